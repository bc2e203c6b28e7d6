package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamResult is the persisted outcome of one submitted exam attempt.
type ExamResult struct {
	ID             uuid.UUID   `json:"id"`
	AttemptID      uuid.UUID   `json:"attempt_id"`
	UserID         int         `json:"user_id"`
	Score          int         `json:"score"`
	TotalQuestions int         `json:"total_questions"`
	Answers        []int       `json:"answers"`
	CorrectAnswers []int       `json:"correct_answers"`
	QuestionIDs    []uuid.UUID `json:"question_ids"`
	Passed         bool        `json:"passed"`
	Percentage     int         `json:"percentage"`
	AutoSubmitted  bool        `json:"auto_submitted"`
	Date           time.Time   `json:"date"`
}

// Clone returns a deep copy so callers cannot alias session-owned slices.
func (r *ExamResult) Clone() *ExamResult {
	if r == nil {
		return nil
	}
	c := *r
	c.Answers = append([]int(nil), r.Answers...)
	c.CorrectAnswers = append([]int(nil), r.CorrectAnswers...)
	c.QuestionIDs = append([]uuid.UUID(nil), r.QuestionIDs...)
	return &c
}

// ExamHistory summarises a user's past attempts.
type ExamHistory struct {
	Results           []ExamResult `json:"results"`
	TotalAttempts     int          `json:"total_attempts"`
	PassedCount       int          `json:"passed_count"`
	AverageScore      float64      `json:"average_score"`
	AveragePercentage float64      `json:"average_percentage"`
}

// AnswerRequest selects an option for a question of the running exam.
type AnswerRequest struct {
	QuestionIndex *int `json:"question_index" binding:"required"`
	OptionID      *int `json:"option_id" binding:"required"`
}

// NavigateRequest moves the current question pointer.
type NavigateRequest struct {
	Direction string `json:"direction" binding:"required,oneof=previous next"`
}
