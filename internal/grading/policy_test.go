package grading

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressState(t *testing.T) {
	p := Problem{Points: 10, MaxAttempts: 2}

	tests := []struct {
		name     string
		attempts int
		latest   *Result
		want     State
	}{
		{"nothing yet", 0, nil, StateUnattempted},
		{"wrong once", 1, &Result{}, StateInProgress},
		{"partial", 2, &Result{Score: 5}, StateInProgress},
		{"full credit", 1, &Result{Correct: true, Score: 10}, StateCompletedFullCredit},
		{"half credit", 3, &Result{Correct: true, Score: 5, IsHalfCredit: true}, StateCompletedHalfCredit},
		{"wrong after limit", 4, &Result{}, StateInProgress},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ProgressState(p, tc.attempts, tc.latest)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, got.Terminal(), Locked(p, tc.latest))
		})
	}
}

func TestAttemptsLeft(t *testing.T) {
	assert.Equal(t, -1, AttemptsLeft(Problem{}, 9))
	assert.Equal(t, 2, AttemptsLeft(Problem{MaxAttempts: 3}, 1))
	assert.Equal(t, 0, AttemptsLeft(Problem{MaxAttempts: 3}, 5))
}

func TestValidateProblem(t *testing.T) {
	tests := []struct {
		name string
		p    Problem
		ok   bool
	}{
		{"mcq ok", Problem{Kind: KindMultipleChoice, Points: 1, Options: []string{"a", "b"}, CorrectAnswerIndex: 1}, true},
		{"mcq index out of range", Problem{Kind: KindMultipleChoice, Points: 1, Options: []string{"a"}, CorrectAnswerIndex: 1}, false},
		{"mcq no options", Problem{Kind: KindMultipleChoice, Points: 1}, false},
		{"math ok", Problem{Kind: KindMathExpression, Points: 1, CorrectAnswers: []string{"1"}}, true},
		{"math legacy ok", Problem{Kind: KindMathExpression, Points: 1, CorrectAnswer: "x"}, true},
		{"math blank answers", Problem{Kind: KindMathExpression, Points: 1, CorrectAnswers: []string{" "}}, false},
		{"math negative tolerance", Problem{Kind: KindMathExpression, Points: 1, CorrectAnswer: "1", Tolerance: floatp(-1)}, false},
		{"open ok", Problem{Kind: KindOpenEnded, Points: 2, Keywords: []string{"k"}}, true},
		{"open blank keywords", Problem{Kind: KindOpenEnded, Points: 2, Keywords: []string{""}}, false},
		{"zero points", Problem{Kind: KindOpenEnded, Keywords: []string{"k"}}, false},
		{"negative attempts", Problem{Kind: KindOpenEnded, Points: 1, MaxAttempts: -1, Keywords: []string{"k"}}, false},
		{"unknown kind", Problem{Kind: "essay", Points: 1}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateProblem(tc.p)
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidProblem))
		})
	}
}

func TestCheckComplete(t *testing.T) {
	mcq := Problem{Kind: KindMultipleChoice, Points: 1, Options: []string{"a", "b"}}
	math := Problem{Kind: KindMathExpression, Points: 1, CorrectAnswer: "1"}

	assert.ErrorIs(t, CheckComplete(mcq, Answer{}), ErrIncompleteSubmission)
	assert.ErrorIs(t, CheckComplete(mcq, Answer{Index: intp(2)}), ErrIncompleteSubmission)
	assert.NoError(t, CheckComplete(mcq, Answer{Index: intp(1)}))
	assert.ErrorIs(t, CheckComplete(math, Answer{Text: "  "}), ErrIncompleteSubmission)
	assert.NoError(t, CheckComplete(math, Answer{Text: "not a number"}))
}

func TestScoreManual(t *testing.T) {
	p := Problem{Points: 8}

	got := ScoreManual(p, 12, "great")
	assert.Equal(t, 8.0, got.Score)
	assert.True(t, got.Correct)
	assert.Equal(t, []string{"great"}, got.Feedback)

	got = ScoreManual(p, -3, "")
	assert.Zero(t, got.Score)
	assert.False(t, got.Correct)
	assert.Nil(t, got.Feedback)

	got = ScoreManual(p, 6.5, "")
	assert.Equal(t, 6.5, got.Score)
	assert.False(t, got.Correct)
}

func TestScoreRubric(t *testing.T) {
	r := Rubric{
		Criteria: []Criterion{{Key: "method", MaxPoints: 4}, {Key: "result", MaxPoints: 2}},
		Max:      5,
	}
	total, notes := ScoreRubric(r, map[string]float64{"method": 9, "result": 1.5})
	assert.Equal(t, 5.0, total)
	assert.Equal(t, []string{"method:4.00", "result:1.50"}, notes)
}
