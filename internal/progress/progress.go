// Package progress owns the per-(student, content, problem) attempt counters
// and the graded submissions recorded against them.
package progress

import (
	"context"
	"errors"
	"fmt"

	"github.com/mind-engage/mindengage-classroom/internal/grading"
)

var (
	ErrNotFound = errors.New("submission not found")
	// ErrConflict means the attempt counter moved between read and write,
	// usually because the same problem was submitted twice at once.
	ErrConflict = errors.New("attempt counter changed concurrently")
)

// Key identifies one student's work on one problem.
type Key struct {
	StudentID    string `json:"student_id"`
	ContentID    string `json:"content_id"`
	ProblemIndex int    `json:"problem_index"`
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%d", k.StudentID, k.ContentID, k.ProblemIndex)
}

type Submission struct {
	ID string `json:"id"`
	Key
	Attempt     int            `json:"attempt"` // 1-based
	Answer      grading.Answer `json:"answer"`
	Result      grading.Result `json:"result"`
	Manual      bool           `json:"manual"`
	GradedBy    string         `json:"graded_by,omitempty"`
	SubmittedAt int64          `json:"submitted_at"`
	GradedAt    int64          `json:"graded_at"`
}

type ListOpts struct {
	StudentID string
	ContentID string
	Limit     int
	Offset    int
}

type Store interface {
	// Attempts returns how many graded attempts exist for k.
	Attempts(ctx context.Context, k Key) (int, error)
	// Latest returns the most recent submission for k; ok is false when none exists.
	Latest(ctx context.Context, k Key) (sub Submission, ok bool, err error)
	// History returns every submission for k in attempt order.
	History(ctx context.Context, k Key) ([]Submission, error)
	// Record moves the counter for sub.Key from sub.Attempt-1 to sub.Attempt
	// and stores sub, atomically. A counter at any other value yields ErrConflict.
	Record(ctx context.Context, sub Submission) (Submission, error)
	Get(ctx context.Context, id string) (Submission, error)
	List(ctx context.Context, opts ListOpts) ([]Submission, error)
	// ApplyManualGrade replaces the result of a recorded submission.
	ApplyManualGrade(ctx context.Context, id string, res grading.Result, gradedBy string) (Submission, error)
}

func normalizeList(opts ListOpts) ListOpts {
	if opts.Limit <= 0 || opts.Limit > 500 {
		opts.Limit = 50
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	return opts
}
