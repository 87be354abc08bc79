package progress

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
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

func (s *SQLStore) Attempts(ctx context.Context, k Key) (int, error) {
	return attemptsTx(ctx, s.db, k)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func attemptsTx(ctx context.Context, q queryer, k Key) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT attempts FROM attempt_counters
		WHERE student_id=$1 AND content_id=$2 AND problem_index=$3`,
		k.StudentID, k.ContentID, k.ProblemIndex).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return n, err
}

const submissionCols = `id,student_id,content_id,problem_index,attempt,answer_json,result_json,manual,graded_by,submitted_at,graded_at`

func (s *SQLStore) Latest(ctx context.Context, k Key) (Submission, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+submissionCols+` FROM submissions
		WHERE student_id=$1 AND content_id=$2 AND problem_index=$3
		ORDER BY attempt DESC LIMIT 1`,
		k.StudentID, k.ContentID, k.ProblemIndex)
	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Submission{}, false, nil
	}
	if err != nil {
		return Submission{}, false, err
	}
	return sub, true, nil
}

func (s *SQLStore) History(ctx context.Context, k Key) ([]Submission, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+submissionCols+` FROM submissions
		WHERE student_id=$1 AND content_id=$2 AND problem_index=$3
		ORDER BY attempt ASC`,
		k.StudentID, k.ContentID, k.ProblemIndex)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *SQLStore) Record(ctx context.Context, sub Submission) (Submission, error) {
	if sub.Attempt < 1 {
		return Submission{}, fmt.Errorf("record %s: attempt must be >= 1", sub.Key)
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
	aj, err := json.Marshal(sub.Answer)
	if err != nil {
		return Submission{}, err
	}
	rj, err := json.Marshal(sub.Result)
	if err != nil {
		return Submission{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Submission{}, err
	}
	defer tx.Rollback()

	cur, err := attemptsTx(ctx, tx, sub.Key)
	if err != nil {
		return Submission{}, err
	}
	if cur != sub.Attempt-1 {
		return Submission{}, fmt.Errorf("record %s: counter at %d, want %d: %w", sub.Key, cur, sub.Attempt-1, ErrConflict)
	}

	var res sql.Result
	if cur == 0 {
		res, err = tx.ExecContext(ctx, `INSERT INTO attempt_counters (student_id,content_id,problem_index,attempts,updated_at)
			VALUES ($1,$2,$3,$4,$5) ON CONFLICT (student_id,content_id,problem_index) DO NOTHING`,
			sub.StudentID, sub.ContentID, sub.ProblemIndex, sub.Attempt, now)
	} else {
		res, err = tx.ExecContext(ctx, `UPDATE attempt_counters SET attempts=$1, updated_at=$2
			WHERE student_id=$3 AND content_id=$4 AND problem_index=$5 AND attempts=$6`,
			sub.Attempt, now, sub.StudentID, sub.ContentID, sub.ProblemIndex, cur)
	}
	if err != nil {
		return Submission{}, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return Submission{}, err
	} else if n != 1 {
		return Submission{}, fmt.Errorf("record %s: %w", sub.Key, ErrConflict)
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO submissions (`+submissionCols+`,score)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		sub.ID, sub.StudentID, sub.ContentID, sub.ProblemIndex, sub.Attempt, string(aj), string(rj),
		boolInt(sub.Manual), sub.GradedBy, sub.SubmittedAt, sub.GradedAt, sub.Result.Score)
	if err != nil {
		return Submission{}, err
	}
	if err := tx.Commit(); err != nil {
		return Submission{}, err
	}
	return sub, nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (Submission, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+submissionCols+` FROM submissions WHERE id=$1`, id)
	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Submission{}, fmt.Errorf("submission %s: %w", id, ErrNotFound)
	}
	return sub, err
}

func (s *SQLStore) List(ctx context.Context, opts ListOpts) ([]Submission, error) {
	opts = normalizeList(opts)
	var (
		where []string
		args  []any
	)
	if opts.StudentID != "" {
		args = append(args, opts.StudentID)
		where = append(where, fmt.Sprintf("student_id=$%d", len(args)))
	}
	if opts.ContentID != "" {
		args = append(args, opts.ContentID)
		where = append(where, fmt.Sprintf("content_id=$%d", len(args)))
	}
	q := `SELECT ` + submissionCols + ` FROM submissions`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, opts.Limit, opts.Offset)
	q += fmt.Sprintf(` ORDER BY submitted_at DESC, attempt DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *SQLStore) ApplyManualGrade(ctx context.Context, id string, res grading.Result, gradedBy string) (Submission, error) {
	rj, err := json.Marshal(res)
	if err != nil {
		return Submission{}, err
	}
	r, err := s.db.ExecContext(ctx, `UPDATE submissions SET result_json=$1, score=$2, manual=1, graded_by=$3, graded_at=$4 WHERE id=$5`,
		string(rj), res.Score, gradedBy, time.Now().Unix(), id)
	if err != nil {
		return Submission{}, err
	}
	if n, _ := r.RowsAffected(); n == 0 {
		return Submission{}, fmt.Errorf("submission %s: %w", id, ErrNotFound)
	}
	return s.Get(ctx, id)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSubmission(r scanner) (Submission, error) {
	var (
		sub    Submission
		aj, rj string
		manual int
	)
	if err := r.Scan(&sub.ID, &sub.StudentID, &sub.ContentID, &sub.ProblemIndex, &sub.Attempt,
		&aj, &rj, &manual, &sub.GradedBy, &sub.SubmittedAt, &sub.GradedAt); err != nil {
		return Submission{}, err
	}
	if err := json.Unmarshal([]byte(aj), &sub.Answer); err != nil {
		return Submission{}, fmt.Errorf("submission %s: decode answer: %w", sub.ID, err)
	}
	if err := json.Unmarshal([]byte(rj), &sub.Result); err != nil {
		return Submission{}, fmt.Errorf("submission %s: decode result: %w", sub.ID, err)
	}
	sub.Manual = manual != 0
	return sub, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
