package model

import (
	"time"

	"github.com/google/uuid"
)

// SuggestionStatus enumerates the review states of a suggested question.
type SuggestionStatus string

const (
	SuggestionPending  SuggestionStatus = "pending"
	SuggestionApproved SuggestionStatus = "approved"
	SuggestionRejected SuggestionStatus = "rejected"
)

// SuggestedQuestion is a user-submitted candidate awaiting admin review.
type SuggestedQuestion struct {
	ID            uuid.UUID        `json:"id"`
	UserID        int              `json:"user_id"`
	Text          string           `json:"text"`
	Category      string           `json:"category"`
	Image         string           `json:"image,omitempty"`
	Options       []Option         `json:"options"`
	CorrectAnswer int              `json:"correct_answer"`
	Status        SuggestionStatus `json:"status"`
	QuestionID    *uuid.UUID       `json:"question_id,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	ReviewedAt    *time.Time       `json:"reviewed_at,omitempty"`
}

// Validate applies the same option invariant as Question.
func (s *SuggestedQuestion) Validate() error {
	return validateOptions(s.Options, s.CorrectAnswer)
}

// ToQuestion builds the question bank entry created on approval.
func (s *SuggestedQuestion) ToQuestion() *Question {
	return &Question{
		Text:          s.Text,
		Category:      s.Category,
		Image:         s.Image,
		Options:       append([]Option(nil), s.Options...),
		CorrectAnswer: s.CorrectAnswer,
	}
}
