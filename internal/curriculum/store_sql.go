package curriculum

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-classroom/internal/grading"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) PutLesson(ctx context.Context, l Lesson) (Lesson, error) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.CreatedAt == 0 {
		l.CreatedAt = time.Now().Unix()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO lessons (id,title,position,created_by,created_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, position=EXCLUDED.position`,
		l.ID, l.Title, l.Position, l.CreatedBy, l.CreatedAt)
	if err != nil {
		return Lesson{}, err
	}
	return l, nil
}

func (s *SQLStore) ListLessons(ctx context.Context) ([]Lesson, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,title,position,created_by,created_at FROM lessons ORDER BY position, created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Lesson{}
	for rows.Next() {
		var l Lesson
		if err := rows.Scan(&l.ID, &l.Title, &l.Position, &l.CreatedBy, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *SQLStore) PutContent(ctx context.Context, c Content) (Content, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if err := c.Validate(); err != nil {
		return Content{}, err
	}
	var exist int
	if err := s.db.QueryRowContext(ctx, `SELECT 1 FROM lessons WHERE id=$1`, c.LessonID).Scan(&exist); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Content{}, fmt.Errorf("lesson %s: %w", c.LessonID, ErrNotFound)
		}
		return Content{}, err
	}
	pj, err := json.Marshal(c.Problems)
	if err != nil {
		return Content{}, err
	}
	now := time.Now().Unix()
	if c.CreatedAt == 0 {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	_, err = s.db.ExecContext(ctx, `INSERT INTO contents (id,lesson_id,title,body_html,problems_json,position,created_at,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO UPDATE SET lesson_id=EXCLUDED.lesson_id, title=EXCLUDED.title, body_html=EXCLUDED.body_html,
			problems_json=EXCLUDED.problems_json, position=EXCLUDED.position, updated_at=EXCLUDED.updated_at`,
		c.ID, c.LessonID, c.Title, c.BodyHTML, string(pj), c.Position, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return Content{}, err
	}
	return c, nil
}

func (s *SQLStore) GetContent(ctx context.Context, id string) (Content, error) {
	c, err := s.GetContentAdmin(ctx, id)
	if err != nil {
		return Content{}, err
	}
	return c.Public(), nil
}

func (s *SQLStore) GetContentAdmin(ctx context.Context, id string) (Content, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,lesson_id,title,body_html,problems_json,position,created_at,updated_at
		FROM contents WHERE id=$1`, id)
	c, err := scanContent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Content{}, fmt.Errorf("content %s: %w", id, ErrNotFound)
	}
	return c, err
}

func (s *SQLStore) ListContents(ctx context.Context, lessonID string) ([]Content, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,lesson_id,title,body_html,problems_json,position,created_at,updated_at
		FROM contents WHERE lesson_id=$1 ORDER BY position, created_at`, lessonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Content{}
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c.Public())
	}
	return out, rows.Err()
}

func (s *SQLStore) DeleteContent(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM contents WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("content %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLStore) Problem(ctx context.Context, contentID string, index int) (grading.Problem, error) {
	c, err := s.GetContentAdmin(ctx, contentID)
	if err != nil {
		return grading.Problem{}, err
	}
	return problemAt(c, index)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanContent(r scanner) (Content, error) {
	var c Content
	var pjson string
	if err := r.Scan(&c.ID, &c.LessonID, &c.Title, &c.BodyHTML, &pjson, &c.Position, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return Content{}, err
	}
	if err := json.Unmarshal([]byte(pjson), &c.Problems); err != nil {
		return Content{}, fmt.Errorf("content %s: decode problems: %w", c.ID, err)
	}
	return c, nil
}

func problemAt(c Content, index int) (grading.Problem, error) {
	if index < 0 || index >= len(c.Problems) {
		return grading.Problem{}, fmt.Errorf("content %s problem %d: %w", c.ID, index, ErrNotFound)
	}
	return c.Problems[index], nil
}
