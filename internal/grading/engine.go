package grading

import (
	"errors"
	"strconv"
)

// Kind selects the correctness rule of a problem.
type Kind string

const (
	KindMultipleChoice Kind = "multiple-choice"
	KindMathExpression Kind = "math-expression"
	KindOpenEnded      Kind = "open-ended"
)

// DefaultTolerance is used for math-expression problems that carry no tolerance.
const DefaultTolerance = 0.001

var (
	ErrIncompleteSubmission = errors.New("incomplete submission")
	ErrInvalidProblem       = errors.New("invalid problem")
)

// Problem is one gradable question as authored by a teacher or admin.
// It is never mutated by grading.
type Problem struct {
	Kind        Kind    `json:"kind"`
	Prompt      string  `json:"prompt,omitempty"`
	Points      float64 `json:"points"`
	MaxAttempts int     `json:"max_attempts,omitempty"` // 0 = unlimited

	// multiple-choice
	Options            []string `json:"options,omitempty"`
	CorrectAnswerIndex int      `json:"correct_answer_index"`

	// math-expression; CorrectAnswer is the legacy single-answer shape
	CorrectAnswers []string `json:"correct_answers,omitempty"`
	CorrectAnswer  string   `json:"correct_answer,omitempty"`
	Tolerance      *float64 `json:"tolerance,omitempty"`

	// open-ended
	Keywords           []string `json:"keywords,omitempty"`
	AllowPartialCredit bool     `json:"allow_partial_credit,omitempty"`
}

// AcceptableAnswers merges the list and legacy single-answer fields.
func (p Problem) AcceptableAnswers() []string {
	if len(p.CorrectAnswers) > 0 {
		return p.CorrectAnswers
	}
	if p.CorrectAnswer != "" {
		return []string{p.CorrectAnswer}
	}
	return nil
}

// Public returns a copy with every answer key removed, safe to show to students.
func (p Problem) Public() Problem {
	out := p
	out.CorrectAnswerIndex = 0
	out.CorrectAnswers = nil
	out.CorrectAnswer = ""
	out.Tolerance = nil
	out.Keywords = nil
	return out
}

// Answer is the raw value a student submitted. Multiple-choice answers use
// Index; every other kind uses Text.
type Answer struct {
	Text  string `json:"text,omitempty"`
	Index *int   `json:"index,omitempty"`
}

// Result is the verdict for one graded attempt.
type Result struct {
	Correct         bool     `json:"correct"`
	Score           float64  `json:"score"`
	IsHalfCredit    bool     `json:"is_half_credit"`
	MatchedKeywords []string `json:"matched_keywords,omitempty"`
	Feedback        []string `json:"feedback,omitempty"`
}

// Strategy grades a single problem kind, before any attempt policy.
type Strategy interface {
	Grade(p Problem, a Answer) Result
}

// Engine routes by problem kind to the matching Strategy and applies the
// attempt policy. It holds no per-submission state.
type Engine struct {
	strategies map[Kind]Strategy
}

type Option func(*config)

type config struct {
	DefaultTolerance float64
}

func WithDefaultTolerance(tol float64) Option {
	return func(c *config) {
		if tol >= 0 {
			c.DefaultTolerance = tol
		}
	}
}

// NewEngine installs the built-in strategies.
func NewEngine(opts ...Option) *Engine {
	cfg := &config{DefaultTolerance: DefaultTolerance}
	for _, o := range opts {
		o(cfg)
	}
	return &Engine{
		strategies: map[Kind]Strategy{
			KindMultipleChoice: choiceStrategy{},
			KindMathExpression: mathStrategy{defaultTol: cfg.DefaultTolerance},
			KindOpenEnded:      keywordStrategy{},
		},
	}
}

// Grade grades a against p given the number of attempts made before this one.
// Callers must reject incomplete answers with CheckComplete first.
func (e *Engine) Grade(p Problem, a Answer, priorAttempts int) Result {
	s, ok := e.strategies[p.Kind]
	if !ok {
		return Result{Feedback: []string{"no strategy available for kind " + strconv.Quote(string(p.Kind))}}
	}
	return ApplyAttemptPolicy(p, priorAttempts, s.Grade(p, a))
}

var defaultEngine = NewEngine()

// Grade grades with the default engine.
func Grade(p Problem, a Answer, priorAttempts int) Result {
	return defaultEngine.Grade(p, a, priorAttempts)
}

// FormatScore renders a score with one decimal for display. Scores are kept
// at full precision everywhere else.
func FormatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', 1, 64)
}
