package progress

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
	counters map[Key]int
	subs     map[string]Submission
	byKey    map[Key][]string // submission ids in attempt order
}

func NewInMemoryStore() Store {
	return &memoryStore{
		counters: map[Key]int{},
		subs:     map[string]Submission{},
		byKey:    map[Key][]string{},
	}
}

func (m *memoryStore) Attempts(_ context.Context, k Key) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.counters[k], nil
}

func (m *memoryStore) Latest(_ context.Context, k Key) (Submission, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.byKey[k]
	if len(ids) == 0 {
		return Submission{}, false, nil
	}
	return m.subs[ids[len(ids)-1]], true, nil
}

func (m *memoryStore) History(_ context.Context, k Key) ([]Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Submission, 0, len(m.byKey[k]))
	for _, id := range m.byKey[k] {
		out = append(out, m.subs[id])
	}
	return out, nil
}

func (m *memoryStore) Record(_ context.Context, sub Submission) (Submission, error) {
	if sub.Attempt < 1 {
		return Submission{}, fmt.Errorf("record %s: attempt must be >= 1", sub.Key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur := m.counters[sub.Key]; cur != sub.Attempt-1 {
		return Submission{}, fmt.Errorf("record %s: counter at %d, want %d: %w", sub.Key, cur, sub.Attempt-1, ErrConflict)
	}
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	now := time.Now().Unix()
	if sub.SubmittedAt == 0 {
		sub.SubmittedAt = now
	}
	if sub.GradedAt == 0 {
		sub.GradedAt = now
	}
	m.counters[sub.Key] = sub.Attempt
	m.subs[sub.ID] = sub
	m.byKey[sub.Key] = append(m.byKey[sub.Key], sub.ID)
	return sub, nil
}

func (m *memoryStore) Get(_ context.Context, id string) (Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sub, ok := m.subs[id]
	if !ok {
		return Submission{}, fmt.Errorf("submission %s: %w", id, ErrNotFound)
	}
	return sub, nil
}

func (m *memoryStore) List(_ context.Context, opts ListOpts) ([]Submission, error) {
	opts = normalizeList(opts)
	m.mu.RLock()
	all := make([]Submission, 0, len(m.subs))
	for _, s := range m.subs {
		if opts.StudentID != "" && s.StudentID != opts.StudentID {
			continue
		}
		if opts.ContentID != "" && s.ContentID != opts.ContentID {
			continue
		}
		all = append(all, s)
	}
	m.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].SubmittedAt != all[j].SubmittedAt {
			return all[i].SubmittedAt > all[j].SubmittedAt
		}
		return all[i].Attempt > all[j].Attempt
	})
	if opts.Offset >= len(all) {
		return []Submission{}, nil
	}
	all = all[opts.Offset:]
	if len(all) > opts.Limit {
		all = all[:opts.Limit]
	}
	return all, nil
}

func (m *memoryStore) ApplyManualGrade(_ context.Context, id string, res grading.Result, gradedBy string) (Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subs[id]
	if !ok {
		return Submission{}, fmt.Errorf("submission %s: %w", id, ErrNotFound)
	}
	sub.Result = res
	sub.Manual = true
	sub.GradedBy = gradedBy
	sub.GradedAt = time.Now().Unix()
	m.subs[id] = sub
	return sub, nil
}
