package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/motoquiz-backend/internal/model"
)

const resultColumns = `id, attempt_id, user_id, score, total_questions, answers, correct_answers,
	question_ids, passed, percentage, auto_submitted, date`

// ResultRepository is the append-only store of exam results.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// Append inserts a result and returns the stored record with its
// server-assigned id. Appending the same attempt twice returns the row
// written the first time.
func (r *ResultRepository) Append(ctx context.Context, res *model.ExamResult) (*model.ExamResult, error) {
	stored := res.Clone()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO exam_results (attempt_id, user_id, score, total_questions, answers, correct_answers,
		                           question_ids, passed, percentage, auto_submitted, date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id`,
		res.AttemptID, res.UserID, res.Score, res.TotalQuestions, res.Answers, res.CorrectAnswers,
		res.QuestionIDs, res.Passed, res.Percentage, res.AutoSubmitted, res.Date,
	).Scan(&stored.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return r.GetByAttempt(ctx, res.AttemptID)
		}
		return nil, err
	}
	return stored, nil
}

// GetByID retrieves a result.
func (r *ResultRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamResult, error) {
	return r.getOne(ctx, `SELECT `+resultColumns+` FROM exam_results WHERE id = $1`, id)
}

// GetByAttempt retrieves the result written for an attempt.
func (r *ResultRepository) GetByAttempt(ctx context.Context, attemptID uuid.UUID) (*model.ExamResult, error) {
	return r.getOne(ctx, `SELECT `+resultColumns+` FROM exam_results WHERE attempt_id = $1`, attemptID)
}

// ListByUser retrieves a user's results, newest first.
func (r *ResultRepository) ListByUser(ctx context.Context, userID int) ([]model.ExamResult, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+resultColumns+` FROM exam_results WHERE user_id = $1 ORDER BY date DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	return collectResults(rows)
}

func (r *ResultRepository) getOne(ctx context.Context, query string, arg any) (*model.ExamResult, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	results, err := collectResults(rows)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &results[0], nil
}

func collectResults(rows pgx.Rows) ([]model.ExamResult, error) {
	defer rows.Close()

	var results []model.ExamResult
	for rows.Next() {
		var e model.ExamResult
		if err := rows.Scan(&e.ID, &e.AttemptID, &e.UserID, &e.Score, &e.TotalQuestions, &e.Answers,
			&e.CorrectAnswers, &e.QuestionIDs, &e.Passed, &e.Percentage, &e.AutoSubmitted, &e.Date); err != nil {
			return nil, err
		}
		results = append(results, e)
	}
	return results, rows.Err()
}
