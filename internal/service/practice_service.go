package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/stemsi/motoquiz-backend/internal/exam"
	"github.com/stemsi/motoquiz-backend/internal/model"
)

// PracticeService backs the untimed practice mode. Nothing is persisted.
type PracticeService struct {
	questions *QuestionService
}

// NewPracticeService creates a new PracticeService.
func NewPracticeService(questions *QuestionService) *PracticeService {
	return &PracticeService{questions: questions}
}

// Categories lists the practice categories with counts.
func (s *PracticeService) Categories(ctx context.Context) ([]model.CategoryCount, error) {
	return s.questions.Categories(ctx)
}

// Questions returns the questions of a category without their answers.
func (s *PracticeService) Questions(ctx context.Context, category string) ([]exam.QuestionView, error) {
	questions, err := s.questions.ListByCategory(ctx, category)
	if err != nil {
		return nil, err
	}
	views := make([]exam.QuestionView, len(questions))
	for i := range questions {
		views[i] = exam.ViewOf(&questions[i])
	}
	return views, nil
}

// Check reveals whether optionID is the correct answer of a question.
func (s *PracticeService) Check(ctx context.Context, questionID uuid.UUID, optionID int) (*model.PracticeCheckResult, error) {
	q, err := s.questions.GetByID(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if !q.HasOption(optionID) {
		return nil, exam.ErrUnknownOption
	}

	correct, _ := q.CorrectOption()
	return &model.PracticeCheckResult{
		QuestionID:     q.ID,
		Selected:       optionID,
		Correct:        optionID == q.CorrectAnswer,
		CorrectAnswer:  q.CorrectAnswer,
		CorrectContent: correct.Content,
	}, nil
}
