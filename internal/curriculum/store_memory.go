package curriculum

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-classroom/internal/grading"
)

type memoryStore struct {
	mu       sync.RWMutex
	lessons  map[string]Lesson
	contents map[string]Content
}

// NewInMemoryStore returns a Store for tests and the offline grade command.
func NewInMemoryStore() Store {
	return &memoryStore{
		lessons:  map[string]Lesson{},
		contents: map[string]Content{},
	}
}

func (m *memoryStore) PutLesson(_ context.Context, l Lesson) (Lesson, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if prev, ok := m.lessons[l.ID]; ok {
		l.CreatedAt, l.CreatedBy = prev.CreatedAt, prev.CreatedBy
	}
	if l.CreatedAt == 0 {
		l.CreatedAt = time.Now().Unix()
	}
	m.lessons[l.ID] = l
	return l, nil
}

func (m *memoryStore) ListLessons(_ context.Context) ([]Lesson, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Lesson, 0, len(m.lessons))
	for _, l := range m.lessons {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].CreatedAt < out[j].CreatedAt
	})
	return out, nil
}

func (m *memoryStore) PutContent(_ context.Context, c Content) (Content, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if err := c.Validate(); err != nil {
		return Content{}, err
	}
	if _, ok := m.lessons[c.LessonID]; !ok {
		return Content{}, fmt.Errorf("lesson %s: %w", c.LessonID, ErrNotFound)
	}
	now := time.Now().Unix()
	if prev, ok := m.contents[c.ID]; ok {
		c.CreatedAt = prev.CreatedAt
	}
	if c.CreatedAt == 0 {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	c.Problems = append([]grading.Problem(nil), c.Problems...)
	m.contents[c.ID] = c
	return c, nil
}

func (m *memoryStore) GetContent(ctx context.Context, id string) (Content, error) {
	c, err := m.GetContentAdmin(ctx, id)
	if err != nil {
		return Content{}, err
	}
	return c.Public(), nil
}

func (m *memoryStore) GetContentAdmin(_ context.Context, id string) (Content, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.contents[id]
	if !ok {
		return Content{}, fmt.Errorf("content %s: %w", id, ErrNotFound)
	}
	c.Problems = append([]grading.Problem(nil), c.Problems...)
	return c, nil
}

func (m *memoryStore) ListContents(_ context.Context, lessonID string) ([]Content, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Content{}
	for _, c := range m.contents {
		if c.LessonID == lessonID {
			out = append(out, c.Public())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].CreatedAt < out[j].CreatedAt
	})
	return out, nil
}

func (m *memoryStore) DeleteContent(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.contents[id]; !ok {
		return fmt.Errorf("content %s: %w", id, ErrNotFound)
	}
	delete(m.contents, id)
	return nil
}

func (m *memoryStore) Problem(ctx context.Context, contentID string, index int) (grading.Problem, error) {
	c, err := m.GetContentAdmin(ctx, contentID)
	if err != nil {
		return grading.Problem{}, err
	}
	return problemAt(c, index)
}
