package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/motoquiz-backend/internal/model"
	"github.com/stemsi/motoquiz-backend/internal/repository"
)

var (
	ErrSuggestionNotFound = errors.New("suggestion not found")
	ErrSuggestionReviewed = repository.ErrSuggestionReviewed
)

// SuggestionStore is the persistence behind question suggestions.
type SuggestionStore interface {
	Create(ctx context.Context, s *model.SuggestedQuestion) error
	ListByUser(ctx context.Context, userID int) ([]model.SuggestedQuestion, error)
	List(ctx context.Context, status *model.SuggestionStatus) ([]model.SuggestedQuestion, error)
	Approve(ctx context.Context, id uuid.UUID) (*model.SuggestedQuestion, *model.Question, error)
	Reject(ctx context.Context, id uuid.UUID) (*model.SuggestedQuestion, error)
}

// SuggestionService handles user-submitted questions and their review.
type SuggestionService struct {
	repo      SuggestionStore
	questions *QuestionService
	log       zerolog.Logger
}

// NewSuggestionService creates a new SuggestionService.
func NewSuggestionService(repo SuggestionStore, questions *QuestionService, log zerolog.Logger) *SuggestionService {
	return &SuggestionService{
		repo:      repo,
		questions: questions,
		log:       log.With().Str("component", "suggestion_service").Logger(),
	}
}

// Create stores a pending suggestion after checking the option invariant.
func (s *SuggestionService) Create(ctx context.Context, userID int, req *model.QuestionRequest) (*model.SuggestedQuestion, error) {
	q, err := req.ToQuestion()
	if err != nil {
		return nil, err
	}
	sg := &model.SuggestedQuestion{
		UserID:        userID,
		Text:          q.Text,
		Category:      q.Category,
		Image:         q.Image,
		Options:       q.Options,
		CorrectAnswer: q.CorrectAnswer,
	}
	if err := s.repo.Create(ctx, sg); err != nil {
		return nil, fmt.Errorf("create suggestion: %w", err)
	}
	return sg, nil
}

// ListMine returns the caller's suggestions.
func (s *SuggestionService) ListMine(ctx context.Context, userID int) ([]model.SuggestedQuestion, error) {
	list, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list suggestions: %w", err)
	}
	if list == nil {
		list = []model.SuggestedQuestion{}
	}
	return list, nil
}

// List returns all suggestions, optionally filtered by status.
func (s *SuggestionService) List(ctx context.Context, status *model.SuggestionStatus) ([]model.SuggestedQuestion, error) {
	list, err := s.repo.List(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("list suggestions: %w", err)
	}
	if list == nil {
		list = []model.SuggestedQuestion{}
	}
	return list, nil
}

// Approve moves a pending suggestion into the question bank.
func (s *SuggestionService) Approve(ctx context.Context, id uuid.UUID) (*model.SuggestedQuestion, *model.Question, error) {
	sg, q, err := s.repo.Approve(ctx, id)
	if err != nil {
		return nil, nil, mapSuggestionErr(err)
	}
	s.questions.Invalidate(ctx)
	s.log.Info().
		Str("suggestion_id", id.String()).
		Str("question_id", q.ID.String()).
		Msg("Suggestion approved")
	return sg, q, nil
}

// Reject marks a pending suggestion rejected.
func (s *SuggestionService) Reject(ctx context.Context, id uuid.UUID) (*model.SuggestedQuestion, error) {
	sg, err := s.repo.Reject(ctx, id)
	if err != nil {
		return nil, mapSuggestionErr(err)
	}
	return sg, nil
}

func mapSuggestionErr(err error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return ErrSuggestionNotFound
	case errors.Is(err, ErrSuggestionReviewed):
		return err
	default:
		return fmt.Errorf("review suggestion: %w", err)
	}
}
