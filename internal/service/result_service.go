package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stemsi/motoquiz-backend/internal/model"
)

var ErrResultNotFound = errors.New("exam result not found")

// ResultReader is the read side of the result store.
type ResultReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.ExamResult, error)
	ListByUser(ctx context.Context, userID int) ([]model.ExamResult, error)
}

// AttemptAnswerReader reads the answer audit trail written by the autosave worker.
type AttemptAnswerReader interface {
	ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.AttemptAnswer, error)
}

// ResultService serves exam history.
type ResultService struct {
	repo    ResultReader
	answers AttemptAnswerReader
}

// NewResultService creates a new ResultService. answers may be nil.
func NewResultService(repo ResultReader, answers AttemptAnswerReader) *ResultService {
	return &ResultService{repo: repo, answers: answers}
}

// History returns a user's results newest first together with summary stats.
func (s *ResultService) History(ctx context.Context, userID int) (*model.ExamHistory, error) {
	results, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	if results == nil {
		results = []model.ExamResult{}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Date.After(results[j].Date)
	})
	return Summarize(results), nil
}

// Get returns a result visible to the caller. Users only see their own
// results; admins see all.
func (s *ResultService) Get(ctx context.Context, id uuid.UUID, userID int, isAdmin bool) (*model.ExamResult, error) {
	res, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrResultNotFound
		}
		return nil, fmt.Errorf("get result: %w", err)
	}
	if !isAdmin && res.UserID != userID {
		return nil, ErrResultNotFound
	}
	return res, nil
}

// AttemptAnswers returns the autosaved selections of an attempt ordered by
// question index.
func (s *ResultService) AttemptAnswers(ctx context.Context, attemptID uuid.UUID) ([]model.AttemptAnswer, error) {
	if s.answers == nil {
		return []model.AttemptAnswer{}, nil
	}
	answers, err := s.answers.ListByAttempt(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("list attempt answers: %w", err)
	}
	if answers == nil {
		answers = []model.AttemptAnswer{}
	}
	return answers, nil
}

// Summarize computes attempt count, passes and averages rounded to one decimal.
func Summarize(results []model.ExamResult) *model.ExamHistory {
	h := &model.ExamHistory{Results: results, TotalAttempts: len(results)}
	if len(results) == 0 {
		return h
	}

	var score, pct int
	for _, r := range results {
		if r.Passed {
			h.PassedCount++
		}
		score += r.Score
		pct += r.Percentage
	}
	n := float64(len(results))
	h.AverageScore = roundTenth(float64(score) / n)
	h.AveragePercentage = roundTenth(float64(pct) / n)
	return h
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
