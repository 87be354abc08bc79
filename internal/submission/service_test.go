package submission

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mind-engage/mindengage-classroom/internal/curriculum"
	"github.com/mind-engage/mindengage-classroom/internal/grading"
	"github.com/mind-engage/mindengage-classroom/internal/metrics"
	"github.com/mind-engage/mindengage-classroom/internal/progress"
	syncx "github.com/mind-engage/mindengage-classroom/internal/sync"
)

type recordedEvent struct {
	typ, key string
}

type fakeEvents struct {
	mu   sync.Mutex
	got  []recordedEvent
	fail bool
}

func (f *fakeEvents) Append(_ context.Context, typ, key string, _ any) error {
	if f.fail {
		return errors.New("event log unavailable")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, recordedEvent{typ, key})
	return nil
}

func intp(i int) *int { return &i }

type fixture struct {
	svc    *Service
	store  progress.Store
	events *fakeEvents
	logs   *observer.ObservedLogs
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	cur := curriculum.NewInMemoryStore()
	_, err := cur.PutLesson(ctx, curriculum.Lesson{ID: "l1", Title: "Algebra"})
	require.NoError(t, err)
	_, err = cur.PutContent(ctx, curriculum.Content{
		ID:       "c1",
		LessonID: "l1",
		Title:    "Warm-up",
		Problems: []grading.Problem{
			{Kind: grading.KindMultipleChoice, Points: 2, Options: []string{"3", "4", "5"}, CorrectAnswerIndex: 1, MaxAttempts: 2},
			{Kind: grading.KindMathExpression, Points: 5, CorrectAnswers: []string{"3.14"}, MaxAttempts: 1},
			{Kind: grading.KindOpenEnded, Points: 10, Keywords: []string{"photosynthesis", "chlorophyll"}, AllowPartialCredit: true},
		},
	})
	require.NoError(t, err)

	core, logs := observer.New(zap.InfoLevel)
	store := progress.NewInMemoryStore()
	events := &fakeEvents{}
	svc := New(cur, store, grading.NewEngine(),
		WithEvents(events),
		WithLogger(zap.New(core)),
		WithMetrics(metrics.New()),
	)
	return fixture{svc: svc, store: store, events: events, logs: logs}
}

func TestSubmitCorrectLocksProblem(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	out, err := f.svc.Submit(ctx, Request{StudentID: "s1", ContentID: "c1", ProblemIndex: 0, Answer: grading.Answer{Index: intp(1)}})
	require.NoError(t, err)
	assert.True(t, out.Submission.Result.Correct)
	assert.Equal(t, 2.0, out.Submission.Result.Score)
	assert.Equal(t, 1, out.Submission.Attempt)
	assert.Equal(t, grading.StateCompletedFullCredit, out.State)
	assert.Equal(t, "2.0", out.DisplayScore)

	_, err = f.svc.Submit(ctx, Request{StudentID: "s1", ContentID: "c1", ProblemIndex: 0, Answer: grading.Answer{Index: intp(1)}})
	assert.ErrorIs(t, err, ErrAlreadyCompleted)

	n, err := f.store.Attempts(ctx, progress.Key{StudentID: "s1", ContentID: "c1", ProblemIndex: 0})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.Len(t, f.events.got, 1)
	assert.Equal(t, syncx.TypeSubmissionGraded, f.events.got[0].typ)
	assert.Equal(t, "s1/c1/0", f.events.got[0].key)
	assert.Equal(t, 1, f.logs.FilterMessage("submission graded").Len())
}

func TestSubmitHalfCreditAfterLimit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	req := Request{StudentID: "s1", ContentID: "c1", ProblemIndex: 1}

	req.Answer = grading.Answer{Text: "3"}
	out, err := f.svc.Submit(ctx, req)
	require.NoError(t, err)
	assert.False(t, out.Submission.Result.Correct)
	assert.Equal(t, grading.StateInProgress, out.State)
	assert.Equal(t, 0, out.AttemptsLeft)

	req.Answer = grading.Answer{Text: " 3.14 "}
	out, err = f.svc.Submit(ctx, req)
	require.NoError(t, err)
	assert.True(t, out.Submission.Result.Correct)
	assert.True(t, out.Submission.Result.IsHalfCredit)
	assert.Equal(t, 2.5, out.Submission.Result.Score)
	assert.Equal(t, 2, out.Submission.Attempt)
	assert.Equal(t, grading.StateCompletedHalfCredit, out.State)
	assert.Equal(t, "2.5", out.DisplayScore)

	_, err = f.svc.Submit(ctx, req)
	assert.ErrorIs(t, err, ErrAlreadyCompleted)
}

func TestSubmitIncompleteConsumesNoAttempt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Submit(ctx, Request{StudentID: "s1", ContentID: "c1", ProblemIndex: 0})
	assert.ErrorIs(t, err, grading.ErrIncompleteSubmission)
	_, err = f.svc.Submit(ctx, Request{StudentID: "s1", ContentID: "c1", ProblemIndex: 2, Answer: grading.Answer{Text: "   "}})
	assert.ErrorIs(t, err, grading.ErrIncompleteSubmission)

	v, err := f.svc.Progress(ctx, progress.Key{StudentID: "s1", ContentID: "c1", ProblemIndex: 0})
	require.NoError(t, err)
	assert.Equal(t, 0, v.Attempts)
	assert.Equal(t, grading.StateUnattempted, v.State)
	assert.Empty(t, f.events.got)
}

func TestSubmitUnknownProblem(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Submit(ctx, Request{StudentID: "s1", ContentID: "c1", ProblemIndex: 9, Answer: grading.Answer{Text: "x"}})
	assert.ErrorIs(t, err, curriculum.ErrNotFound)
	_, err = f.svc.Submit(ctx, Request{StudentID: "s1", ContentID: "missing", ProblemIndex: 0, Answer: grading.Answer{Text: "x"}})
	assert.ErrorIs(t, err, curriculum.ErrNotFound)
}

func TestSubmitPartialCreditStaysOpen(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	req := Request{StudentID: "s1", ContentID: "c1", ProblemIndex: 2, Answer: grading.Answer{Text: "Photosynthesis happens in leaves"}}

	out, err := f.svc.Submit(ctx, req)
	require.NoError(t, err)
	assert.False(t, out.Submission.Result.Correct)
	assert.Equal(t, 5.0, out.Submission.Result.Score)
	assert.Equal(t, grading.StateInProgress, out.State)
	assert.Equal(t, -1, out.AttemptsLeft)

	req.Answer.Text = "photosynthesis needs CHLOROPHYLL"
	out, err = f.svc.Submit(ctx, req)
	require.NoError(t, err)
	assert.True(t, out.Submission.Result.Correct)
	assert.Equal(t, 10.0, out.Submission.Result.Score)
	assert.Equal(t, grading.StateCompletedFullCredit, out.State)
}

func TestSubmitConcurrentSameKey(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Submit(ctx, Request{StudentID: "s1", ContentID: "c1", ProblemIndex: 2, Answer: grading.Answer{Text: "nothing relevant"}})
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	subs, err := f.store.List(ctx, progress.ListOpts{StudentID: "s1"})
	require.NoError(t, err)
	require.Len(t, subs, n)
	seen := map[int]bool{}
	for _, s := range subs {
		seen[s.Attempt] = true
	}
	for a := 1; a <= n; a++ {
		assert.True(t, seen[a], "attempt %d recorded", a)
	}
}

func TestSubmitEventFailureDoesNotFail(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.events.fail = true

	_, err := f.svc.Submit(ctx, Request{StudentID: "s1", ContentID: "c1", ProblemIndex: 0, Answer: grading.Answer{Index: intp(0)}})
	require.NoError(t, err)
	assert.Equal(t, 1, f.logs.FilterMessage("append event").Len())
}

func TestProgressView(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	k := progress.Key{StudentID: "s1", ContentID: "c1", ProblemIndex: 0}

	v, err := f.svc.Progress(ctx, k)
	require.NoError(t, err)
	assert.Equal(t, grading.StateUnattempted, v.State)
	assert.Equal(t, 2, v.AttemptsLeft)
	assert.Nil(t, v.Latest)
	assert.Equal(t, "0.0", v.DisplayScore)

	_, err = f.svc.Submit(ctx, Request{StudentID: "s1", ContentID: "c1", ProblemIndex: 0, Answer: grading.Answer{Index: intp(2)}})
	require.NoError(t, err)

	v, err = f.svc.Progress(ctx, k)
	require.NoError(t, err)
	assert.Equal(t, grading.StateInProgress, v.State)
	assert.Equal(t, 1, v.Attempts)
	assert.Equal(t, 1, v.AttemptsLeft)
	require.NotNil(t, v.Latest)
	assert.Equal(t, 2.0, v.Points)
}

func TestRegrade(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	out, err := f.svc.Submit(ctx, Request{StudentID: "s1", ContentID: "c1", ProblemIndex: 2, Answer: grading.Answer{Text: "plants make food"}})
	require.NoError(t, err)
	assert.Equal(t, 0.0, out.Submission.Result.Score)

	score := 7.0
	sub, err := f.svc.Regrade(ctx, out.Submission.ID, Grade{Score: &score, Comment: "good reasoning"}, "t1")
	require.NoError(t, err)
	assert.True(t, sub.Manual)
	assert.Equal(t, "t1", sub.GradedBy)
	assert.Equal(t, 7.0, sub.Result.Score)
	assert.False(t, sub.Result.Correct)
	assert.Equal(t, []string{"good reasoning"}, sub.Result.Feedback)

	rubric := &grading.Rubric{Criteria: []grading.Criterion{
		{Key: "idea", MaxPoints: 6},
		{Key: "terms", MaxPoints: 4},
	}}
	sub, err = f.svc.Regrade(ctx, out.Submission.ID, Grade{Rubric: rubric, Awarded: map[string]float64{"idea": 6, "terms": 9}}, "t1")
	require.NoError(t, err)
	assert.Equal(t, 10.0, sub.Result.Score)
	assert.True(t, sub.Result.Correct)

	// a full manual score locks the problem
	v, err := f.svc.Progress(ctx, sub.Key)
	require.NoError(t, err)
	assert.Equal(t, grading.StateCompletedFullCredit, v.State)

	_, err = f.svc.Regrade(ctx, out.Submission.ID, Grade{}, "t1")
	assert.ErrorIs(t, err, ErrInvalidGrade)
	_, err = f.svc.Regrade(ctx, "nope", Grade{Score: &score}, "t1")
	assert.ErrorIs(t, err, progress.ErrNotFound)

	last := f.events.got[len(f.events.got)-1]
	assert.Equal(t, syncx.TypeSubmissionRegraded, last.typ)
}

func TestRegradeEarlierAttemptClosesProblem(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	req := Request{StudentID: "s1", ContentID: "c1", ProblemIndex: 2}

	req.Answer = grading.Answer{Text: "photosynthesis"}
	first, err := f.svc.Submit(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 5.0, first.Submission.Result.Score)

	req.Answer = grading.Answer{Text: "nothing"}
	second, err := f.svc.Submit(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 0.0, second.Submission.Result.Score)

	score := 10.0
	_, err = f.svc.Regrade(ctx, first.Submission.ID, Grade{Score: &score}, "t1")
	require.NoError(t, err)

	v, err := f.svc.Progress(ctx, first.Submission.Key)
	require.NoError(t, err)
	assert.Equal(t, grading.StateCompletedFullCredit, v.State)
	assert.Equal(t, "10.0", v.DisplayScore)
	require.NotNil(t, v.Latest)
	assert.Equal(t, second.Submission.ID, v.Latest.ID)

	req.Answer = grading.Answer{Text: "chlorophyll"}
	_, err = f.svc.Submit(ctx, req)
	assert.ErrorIs(t, err, ErrAlreadyCompleted)

	n, err := f.store.Attempts(ctx, first.Submission.Key)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestKeyLockReleases(t *testing.T) {
	kl := newKeyLock()
	unlock := kl.Lock("a")
	unlock2 := kl.Lock("b")
	unlock()
	unlock2()
	assert.Empty(t, kl.locks)
}
