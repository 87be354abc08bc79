package curriculum

import (
	"context"
	"errors"
	"fmt"

	"github.com/mind-engage/mindengage-classroom/internal/grading"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidContent = errors.New("invalid content")
)

type Lesson struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Position  int    `json:"position"`
	CreatedBy string `json:"created_by,omitempty"`
	CreatedAt int64  `json:"created_at,omitempty"`
}

// Content is one page of a lesson with its ordered problems. A problem is
// addressed by (content ID, index into Problems).
type Content struct {
	ID        string            `json:"id"`
	LessonID  string            `json:"lesson_id"`
	Title     string            `json:"title"`
	BodyHTML  string            `json:"body_html,omitempty"`
	Problems  []grading.Problem `json:"problems"`
	Position  int               `json:"position"`
	CreatedAt int64             `json:"created_at,omitempty"`
	UpdatedAt int64             `json:"updated_at,omitempty"`
}

// Public returns a copy without answer keys.
func (c Content) Public() Content {
	out := c
	out.Problems = make([]grading.Problem, len(c.Problems))
	for i, p := range c.Problems {
		out.Problems[i] = p.Public()
	}
	return out
}

// Validate checks the content and every problem it holds.
func (c Content) Validate() error {
	if c.ID == "" || c.LessonID == "" {
		return fmt.Errorf("%w: id and lesson_id required", ErrInvalidContent)
	}
	for i, p := range c.Problems {
		if err := grading.ValidateProblem(p); err != nil {
			return &ProblemError{Index: i, Err: err}
		}
	}
	return nil
}

type ProblemError struct {
	Index int
	Err   error
}

func (e *ProblemError) Error() string {
	return fmt.Sprintf("problem %d: %v", e.Index, e.Err)
}

func (e *ProblemError) Unwrap() error { return e.Err }

type Store interface {
	PutLesson(ctx context.Context, l Lesson) (Lesson, error)
	ListLessons(ctx context.Context) ([]Lesson, error)

	PutContent(ctx context.Context, c Content) (Content, error)
	GetContent(ctx context.Context, id string) (Content, error)      // student-safe (no answer keys)
	GetContentAdmin(ctx context.Context, id string) (Content, error) // full content, for teachers and grading
	ListContents(ctx context.Context, lessonID string) ([]Content, error)
	DeleteContent(ctx context.Context, id string) error

	Problem(ctx context.Context, contentID string, index int) (grading.Problem, error)
}
