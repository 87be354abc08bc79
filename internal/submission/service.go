// Package submission runs a student's answer through the grading engine and
// records the outcome against the attempt counter.
package submission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-classroom/internal/grading"
	"github.com/mind-engage/mindengage-classroom/internal/metrics"
	"github.com/mind-engage/mindengage-classroom/internal/progress"
	syncx "github.com/mind-engage/mindengage-classroom/internal/sync"
)

var (
	// ErrAlreadyCompleted is returned for a problem whose latest result locked it.
	ErrAlreadyCompleted = errors.New("problem already completed")
	ErrInvalidGrade     = errors.New("invalid manual grade")
)

// ProblemSource loads full problems, answer keys included.
type ProblemSource interface {
	Problem(ctx context.Context, contentID string, index int) (grading.Problem, error)
}

type EventAppender interface {
	Append(ctx context.Context, typ, key string, data any) error
}

type Service struct {
	problems ProblemSource
	store    progress.Store
	engine   *grading.Engine
	events   EventAppender
	log      *zap.Logger
	metrics  *metrics.Metrics
	locks    *keyLock
	now      func() time.Time
}

type Option func(*Service)

func WithEvents(e EventAppender) Option     { return func(s *Service) { s.events = e } }
func WithLogger(l *zap.Logger) Option       { return func(s *Service) { s.log = l } }
func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func New(problems ProblemSource, store progress.Store, engine *grading.Engine, opts ...Option) *Service {
	s := &Service{
		problems: problems,
		store:    store,
		engine:   engine,
		log:      zap.NewNop(),
		locks:    newKeyLock(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	if s.engine == nil {
		s.engine = grading.NewEngine()
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

type Request struct {
	StudentID    string
	ContentID    string
	ProblemIndex int
	Answer       grading.Answer
}

func (r Request) key() progress.Key {
	return progress.Key{StudentID: r.StudentID, ContentID: r.ContentID, ProblemIndex: r.ProblemIndex}
}

// Outcome is a recorded submission plus where the problem now stands.
type Outcome struct {
	Submission   progress.Submission `json:"submission"`
	State        grading.State       `json:"state"`
	AttemptsLeft int                 `json:"attempts_left"`
	DisplayScore string              `json:"display_score"`
}

// Submit grades one answer and records it as the next attempt. Submissions
// for the same key are serialized in-process; a concurrent writer in another
// process surfaces as progress.ErrConflict.
func (s *Service) Submit(ctx context.Context, req Request) (Outcome, error) {
	if req.StudentID == "" {
		return Outcome{}, errors.New("student id required")
	}
	k := req.key()
	p, err := s.problems.Problem(ctx, req.ContentID, req.ProblemIndex)
	if err != nil {
		return Outcome{}, fmt.Errorf("load problem %s: %w", k, err)
	}
	if err := grading.CheckComplete(p, req.Answer); err != nil {
		return Outcome{}, err
	}

	unlock := s.locks.Lock(k.String())
	defer unlock()

	hist, err := s.store.History(ctx, k)
	if err != nil {
		return Outcome{}, fmt.Errorf("history %s: %w", k, err)
	}
	if closing := closedBy(p, hist); closing != nil {
		return Outcome{}, fmt.Errorf("%s: closed by attempt %d: %w", k, closing.Attempt, ErrAlreadyCompleted)
	}
	prior, err := s.store.Attempts(ctx, k)
	if err != nil {
		return Outcome{}, fmt.Errorf("attempts %s: %w", k, err)
	}

	res := s.engine.Grade(p, req.Answer, prior)
	now := s.now().Unix()
	sub, err := s.store.Record(ctx, progress.Submission{
		Key:         k,
		Attempt:     prior + 1,
		Answer:      req.Answer,
		Result:      res,
		SubmittedAt: now,
		GradedAt:    now,
	})
	if err != nil {
		return Outcome{}, err
	}

	s.emit(ctx, syncx.TypeSubmissionGraded, sub)
	s.metrics.ObserveGrade(string(p.Kind), outcome(res), res.Score, p.Points)
	s.log.Info("submission graded",
		zap.String("key", k.String()),
		zap.String("kind", string(p.Kind)),
		zap.Int("attempt", sub.Attempt),
		zap.Bool("correct", res.Correct),
		zap.Bool("half_credit", res.IsHalfCredit),
		zap.Float64("score", res.Score),
	)

	return Outcome{
		Submission:   sub,
		State:        grading.ProgressState(p, sub.Attempt, &sub.Result),
		AttemptsLeft: grading.AttemptsLeft(p, sub.Attempt),
		DisplayScore: grading.FormatScore(sub.Result.Score),
	}, nil
}

// View is the read model of one student's progress on one problem.
type View struct {
	progress.Key
	State        grading.State        `json:"state"`
	Attempts     int                  `json:"attempts"`
	MaxAttempts  int                  `json:"max_attempts"`
	AttemptsLeft int                  `json:"attempts_left"`
	Points       float64              `json:"points"`
	Latest       *progress.Submission `json:"latest,omitempty"`
	DisplayScore string               `json:"display_score"`
}

func (s *Service) Progress(ctx context.Context, k progress.Key) (View, error) {
	p, err := s.problems.Problem(ctx, k.ContentID, k.ProblemIndex)
	if err != nil {
		return View{}, fmt.Errorf("load problem %s: %w", k, err)
	}
	attempts, err := s.store.Attempts(ctx, k)
	if err != nil {
		return View{}, err
	}
	v := View{
		Key:          k,
		Attempts:     attempts,
		MaxAttempts:  p.MaxAttempts,
		AttemptsLeft: grading.AttemptsLeft(p, attempts),
		Points:       p.Points,
		DisplayScore: grading.FormatScore(0),
	}
	hist, err := s.store.History(ctx, k)
	if err != nil {
		return View{}, err
	}
	var res *grading.Result
	if len(hist) > 0 {
		latest := hist[len(hist)-1]
		v.Latest = &latest
		// a closing attempt wins over anything recorded after it
		counted := latest
		if closing := closedBy(p, hist); closing != nil {
			counted = *closing
		}
		res = &counted.Result
		v.DisplayScore = grading.FormatScore(counted.Result.Score)
	}
	v.State = grading.ProgressState(p, attempts, res)
	return v, nil
}

// closedBy returns the first submission in hist that completed the problem,
// or nil while it is still open. Regrades can close a problem from any attempt.
func closedBy(p grading.Problem, hist []progress.Submission) *progress.Submission {
	for i := range hist {
		if grading.Locked(p, &hist[i].Result) {
			return &hist[i]
		}
	}
	return nil
}

// Grade is a teacher's override for one submission. Either Score or Rubric
// with Awarded must be set.
type Grade struct {
	Score   *float64           `json:"score,omitempty" validate:"omitempty,gte=0"`
	Rubric  *grading.Rubric    `json:"rubric,omitempty"`
	Awarded map[string]float64 `json:"awarded,omitempty" validate:"omitempty,dive,gte=0"`
	Comment string             `json:"comment,omitempty" validate:"max=2000"`
}

// Regrade replaces the result of a recorded submission with a manual score.
// The attempt counter is untouched.
func (s *Service) Regrade(ctx context.Context, submissionID string, g Grade, gradedBy string) (progress.Submission, error) {
	sub, err := s.store.Get(ctx, submissionID)
	if err != nil {
		return progress.Submission{}, err
	}
	p, err := s.problems.Problem(ctx, sub.ContentID, sub.ProblemIndex)
	if err != nil {
		return progress.Submission{}, fmt.Errorf("load problem %s: %w", sub.Key, err)
	}

	var res grading.Result
	switch {
	case g.Rubric != nil:
		total, notes := grading.ScoreRubric(*g.Rubric, g.Awarded)
		res = grading.ScoreManual(p, total, g.Comment)
		res.Feedback = append(res.Feedback, notes...)
	case g.Score != nil:
		res = grading.ScoreManual(p, *g.Score, g.Comment)
	default:
		return progress.Submission{}, fmt.Errorf("%w: score or rubric required", ErrInvalidGrade)
	}

	unlock := s.locks.Lock(sub.Key.String())
	defer unlock()

	out, err := s.store.ApplyManualGrade(ctx, submissionID, res, gradedBy)
	if err != nil {
		return progress.Submission{}, err
	}
	s.emit(ctx, syncx.TypeSubmissionRegraded, out)
	s.log.Info("submission regraded",
		zap.String("submission_id", out.ID),
		zap.String("key", out.Key.String()),
		zap.String("graded_by", gradedBy),
		zap.Float64("score", res.Score),
	)
	return out, nil
}

func (s *Service) List(ctx context.Context, opts progress.ListOpts) ([]progress.Submission, error) {
	return s.store.List(ctx, opts)
}

func (s *Service) emit(ctx context.Context, typ string, sub progress.Submission) {
	if s.events == nil {
		return
	}
	// the submission is already recorded; a lost event only delays dashboards
	if err := s.events.Append(ctx, typ, sub.Key.String(), sub); err != nil {
		s.log.Warn("append event", zap.String("type", typ), zap.String("submission_id", sub.ID), zap.Error(err))
	}
}

func outcome(r grading.Result) string {
	switch {
	case r.IsHalfCredit:
		return "half_credit"
	case r.Correct:
		return "correct"
	case r.Score > 0:
		return "partial"
	default:
		return "incorrect"
	}
}
