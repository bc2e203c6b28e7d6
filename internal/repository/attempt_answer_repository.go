package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/motoquiz-backend/internal/model"
)

// AttemptAnswerRepository persists the answer audit trail of exam attempts.
type AttemptAnswerRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptAnswerRepository creates a new AttemptAnswerRepository.
func NewAttemptAnswerRepository(pool *pgxpool.Pool) *AttemptAnswerRepository {
	return &AttemptAnswerRepository{pool: pool}
}

// UpsertBatch writes answers in one round trip, keeping the newest selection
// per (attempt, question index).
func (r *AttemptAnswerRepository) UpsertBatch(ctx context.Context, answers []model.AttemptAnswer) error {
	if len(answers) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, a := range answers {
		batch.Queue(
			`INSERT INTO attempt_answers (attempt_id, user_id, question_index, question_id, option_id, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (attempt_id, question_index) DO UPDATE
			 SET option_id = EXCLUDED.option_id, updated_at = EXCLUDED.updated_at
			 WHERE attempt_answers.updated_at <= EXCLUDED.updated_at`,
			a.AttemptID, a.UserID, a.QuestionIndex, a.QuestionID, a.OptionID, a.UpdatedAt,
		)
	}
	return r.pool.SendBatch(ctx, batch).Close()
}

// ListByAttempt retrieves the saved answers of an attempt ordered by index.
func (r *AttemptAnswerRepository) ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.AttemptAnswer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT attempt_id, user_id, question_index, question_id, option_id, updated_at
		 FROM attempt_answers WHERE attempt_id = $1 ORDER BY question_index`, attemptID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []model.AttemptAnswer
	for rows.Next() {
		var a model.AttemptAnswer
		if err := rows.Scan(&a.AttemptID, &a.UserID, &a.QuestionIndex, &a.QuestionID, &a.OptionID, &a.UpdatedAt); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}
