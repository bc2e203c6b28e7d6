// Package exam implements the timed mock-exam attempt: question selection,
// answer capture, the countdown with auto-submit, scoring and result emission.
//
// A Session is owned by a single goroutine. Every public method is a message
// to that goroutine, so ticks, answers, navigation and submission never
// interleave.
package exam

import (
	"context"
	"errors"
	"time"

	"github.com/stemsi/motoquiz-backend/internal/model"
)

const (
	// QuestionCount is the number of questions drawn for one exam.
	QuestionCount = 25
	// TimeBudget is the countdown of one attempt.
	TimeBudget = 20 * time.Minute
	// PassPercentage is the minimum percentage needed to pass.
	PassPercentage = 80
	// Unanswered marks a slot without a selected option.
	Unanswered = -1
)

var (
	ErrInsufficientQuestions = errors.New("not enough questions to build an exam")
	ErrNotActive             = errors.New("exam attempt is not accepting answers")
	ErrUnknownOption         = errors.New("option does not belong to the question")
	ErrSessionClosed         = errors.New("exam attempt is closed")
	ErrAbandoned             = errors.New("exam attempt was abandoned")
	ErrPersistFailed         = errors.New("failed to persist exam result")
)

// Status is the lifecycle state of an attempt.
type Status string

const (
	StatusActive       Status = "ACTIVE"
	StatusSubmitting   Status = "SUBMITTING"
	StatusSubmitFailed Status = "SUBMIT_FAILED"
	StatusSubmitted    Status = "SUBMITTED"
	StatusAbandoned    Status = "ABANDONED"
)

// Direction moves the current question pointer.
type Direction string

const (
	DirectionPrevious Direction = "previous"
	DirectionNext     Direction = "next"
)

// ResultStore persists exam outcomes. Append returns the stored record,
// possibly carrying a server-assigned id.
type ResultStore interface {
	Append(ctx context.Context, result *model.ExamResult) (*model.ExamResult, error)
}
