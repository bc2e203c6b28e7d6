package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidQuestion is returned when a question breaks the option/answer invariant.
var ErrInvalidQuestion = errors.New("invalid question")

// Option is a single answer choice. IDs are unique within a question and
// conventionally start at 0.
type Option struct {
	ID      int    `json:"id"`
	Content string `json:"content"`
}

// Question is an approved entry of the question bank.
type Question struct {
	ID            uuid.UUID `json:"id"`
	Text          string    `json:"text"`
	Category      string    `json:"category"`
	Image         string    `json:"image,omitempty"`
	Options       []Option  `json:"options"`
	CorrectAnswer int       `json:"correct_answer"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// HasOption reports whether optionID names one of the question's options.
func (q *Question) HasOption(optionID int) bool {
	for _, o := range q.Options {
		if o.ID == optionID {
			return true
		}
	}
	return false
}

// CorrectOption returns the option matching CorrectAnswer.
func (q *Question) CorrectOption() (Option, bool) {
	for _, o := range q.Options {
		if o.ID == q.CorrectAnswer {
			return o, true
		}
	}
	return Option{}, false
}

// Validate checks that option ids are unique and that CorrectAnswer matches
// exactly one of them.
func (q *Question) Validate() error {
	return validateOptions(q.Options, q.CorrectAnswer)
}

func validateOptions(options []Option, correct int) error {
	if len(options) < 2 {
		return fmt.Errorf("%w: at least two options required", ErrInvalidQuestion)
	}
	seen := make(map[int]struct{}, len(options))
	matches := 0
	for _, o := range options {
		if _, dup := seen[o.ID]; dup {
			return fmt.Errorf("%w: duplicate option id %d", ErrInvalidQuestion, o.ID)
		}
		seen[o.ID] = struct{}{}
		if o.ID == correct {
			matches++
		}
	}
	if matches != 1 {
		return fmt.Errorf("%w: correct answer %d is not an option", ErrInvalidQuestion, correct)
	}
	return nil
}

// CategoryCount is a category label with the number of questions in it.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// OptionRequest is an option as submitted by a client.
type OptionRequest struct {
	ID      int    `json:"id" binding:"min=0"`
	Content string `json:"content" binding:"required,max=1000"`
}

// QuestionRequest is the payload for creating or updating a question.
type QuestionRequest struct {
	Text          string          `json:"text" binding:"required,min=1,max=2000"`
	Category      string          `json:"category" binding:"required,max=100"`
	Image         string          `json:"image" binding:"omitempty,max=2048"`
	Options       []OptionRequest `json:"options" binding:"required,min=2,max=10,dive"`
	CorrectAnswer *int            `json:"correct_answer" binding:"required,min=0"`
}

// ToQuestion converts the request into a Question and validates it.
func (r *QuestionRequest) ToQuestion() (*Question, error) {
	q := &Question{
		Text:          r.Text,
		Category:      r.Category,
		Image:         r.Image,
		Options:       make([]Option, len(r.Options)),
		CorrectAnswer: *r.CorrectAnswer,
	}
	for i, o := range r.Options {
		q.Options[i] = Option{ID: o.ID, Content: o.Content}
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return q, nil
}

// PracticeCheckRequest asks whether an option is the right answer.
type PracticeCheckRequest struct {
	QuestionID uuid.UUID `json:"question_id" binding:"required"`
	OptionID   *int      `json:"option_id" binding:"required"`
}

// PracticeCheckResult is the lock-and-reveal outcome of a practice answer.
type PracticeCheckResult struct {
	QuestionID     uuid.UUID `json:"question_id"`
	Selected       int       `json:"selected"`
	Correct        bool      `json:"correct"`
	CorrectAnswer  int       `json:"correct_answer"`
	CorrectContent string    `json:"correct_content"`
}
