package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/motoquiz-backend/internal/model"
)

// ErrSuggestionReviewed is returned when approving or rejecting a suggestion
// that is no longer pending.
var ErrSuggestionReviewed = errors.New("suggestion has already been reviewed")

const suggestionColumns = `id, user_id, text, category, image, options, correct_answer, status, question_id, created_at, reviewed_at`

// SuggestionRepository handles suggested question data access.
type SuggestionRepository struct {
	pool *pgxpool.Pool
}

// NewSuggestionRepository creates a new SuggestionRepository.
func NewSuggestionRepository(pool *pgxpool.Pool) *SuggestionRepository {
	return &SuggestionRepository{pool: pool}
}

// Create inserts a pending suggestion.
func (r *SuggestionRepository) Create(ctx context.Context, s *model.SuggestedQuestion) error {
	s.Status = model.SuggestionPending
	return r.pool.QueryRow(ctx,
		`INSERT INTO suggested_questions (user_id, text, category, image, options, correct_answer, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		s.UserID, s.Text, s.Category, s.Image, s.Options, s.CorrectAnswer, s.Status,
	).Scan(&s.ID, &s.CreatedAt)
}

// GetByID retrieves a suggestion.
func (r *SuggestionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.SuggestedQuestion, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+suggestionColumns+` FROM suggested_questions WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	list, err := collectSuggestions(rows)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &list[0], nil
}

// ListByUser retrieves a user's suggestions, newest first.
func (r *SuggestionRepository) ListByUser(ctx context.Context, userID int) ([]model.SuggestedQuestion, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+suggestionColumns+` FROM suggested_questions WHERE user_id = $1 ORDER BY created_at DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	return collectSuggestions(rows)
}

// List retrieves suggestions, optionally filtered by status, newest first.
func (r *SuggestionRepository) List(ctx context.Context, status *model.SuggestionStatus) ([]model.SuggestedQuestion, error) {
	query := `SELECT ` + suggestionColumns + ` FROM suggested_questions`
	var args []any
	if status != nil {
		query += ` WHERE status = $1`
		args = append(args, *status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectSuggestions(rows)
}

// Approve copies a pending suggestion into the question bank and marks it
// approved, in one transaction.
func (r *SuggestionRepository) Approve(ctx context.Context, id uuid.UUID) (*model.SuggestedQuestion, *model.Question, error) {
	var (
		suggestion *model.SuggestedQuestion
		question   *model.Question
	)
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		s, err := lockPending(ctx, tx, id)
		if err != nil {
			return err
		}

		q := s.ToQuestion()
		if err := insertQuestion(ctx, tx, q); err != nil {
			return fmt.Errorf("insert question: %w", err)
		}

		err = tx.QueryRow(ctx,
			`UPDATE suggested_questions
			 SET status = $1, question_id = $2, reviewed_at = CURRENT_TIMESTAMP
			 WHERE id = $3
			 RETURNING reviewed_at`,
			model.SuggestionApproved, q.ID, id,
		).Scan(&s.ReviewedAt)
		if err != nil {
			return fmt.Errorf("mark approved: %w", err)
		}
		s.Status = model.SuggestionApproved
		s.QuestionID = &q.ID

		suggestion, question = s, q
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return suggestion, question, nil
}

// Reject marks a pending suggestion rejected.
func (r *SuggestionRepository) Reject(ctx context.Context, id uuid.UUID) (*model.SuggestedQuestion, error) {
	var suggestion *model.SuggestedQuestion
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		s, err := lockPending(ctx, tx, id)
		if err != nil {
			return err
		}
		err = tx.QueryRow(ctx,
			`UPDATE suggested_questions SET status = $1, reviewed_at = CURRENT_TIMESTAMP
			 WHERE id = $2
			 RETURNING reviewed_at`,
			model.SuggestionRejected, id,
		).Scan(&s.ReviewedAt)
		if err != nil {
			return err
		}
		s.Status = model.SuggestionRejected
		suggestion = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return suggestion, nil
}

func lockPending(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.SuggestedQuestion, error) {
	rows, err := tx.Query(ctx,
		`SELECT `+suggestionColumns+` FROM suggested_questions WHERE id = $1 FOR UPDATE`, id,
	)
	if err != nil {
		return nil, err
	}
	list, err := collectSuggestions(rows)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, pgx.ErrNoRows
	}
	if list[0].Status != model.SuggestionPending {
		return nil, ErrSuggestionReviewed
	}
	return &list[0], nil
}

func collectSuggestions(rows pgx.Rows) ([]model.SuggestedQuestion, error) {
	defer rows.Close()

	var list []model.SuggestedQuestion
	for rows.Next() {
		var s model.SuggestedQuestion
		if err := rows.Scan(&s.ID, &s.UserID, &s.Text, &s.Category, &s.Image, &s.Options, &s.CorrectAnswer,
			&s.Status, &s.QuestionID, &s.CreatedAt, &s.ReviewedAt); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}
