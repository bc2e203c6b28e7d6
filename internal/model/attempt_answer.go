package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptAnswer is the latest option picked for one slot of an exam attempt.
// Rows are written asynchronously and only serve as an audit trail.
type AttemptAnswer struct {
	AttemptID     uuid.UUID `json:"attempt_id"`
	UserID        int       `json:"user_id"`
	QuestionIndex int       `json:"question_index"`
	QuestionID    uuid.UUID `json:"question_id"`
	OptionID      int       `json:"option_id"`
	UpdatedAt     time.Time `json:"updated_at"`
}
