package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/motoquiz-backend/internal/exam"
	"github.com/stemsi/motoquiz-backend/internal/middleware"
	"github.com/stemsi/motoquiz-backend/internal/model"
	"github.com/stemsi/motoquiz-backend/internal/response"
	"github.com/stemsi/motoquiz-backend/internal/service"
	"github.com/stemsi/motoquiz-backend/internal/validator"
)

// ExamHandler handles the running mock exam of the current user.
type ExamHandler struct {
	sessionService *service.ExamSessionService
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(sessionService *service.ExamSessionService) *ExamHandler {
	return &ExamHandler{sessionService: sessionService}
}

// StartExam godoc
// POST /api/v1/exam/start
// Draws 25 questions and starts the 20 minute countdown. A running attempt
// of the same user is abandoned.
func (h *ExamHandler) StartExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	view, err := h.sessionService.Start(c.Request.Context(), claims.UserID)
	if err != nil {
		failExam(c, err)
		return
	}

	response.Success(c, http.StatusCreated, view)
}

// GetState godoc
// GET /api/v1/exam/state
// Returns the running attempt with its questions.
func (h *ExamHandler) GetState(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	view, err := h.sessionService.State(c.Request.Context(), claims.UserID)
	if err != nil {
		failExam(c, err)
		return
	}

	response.Success(c, http.StatusOK, view)
}

// SelectAnswer godoc
// PUT /api/v1/exam/answers
// Records the option picked for one question. Indices outside the paper are
// ignored.
func (h *ExamHandler) SelectAnswer(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.AnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	snap, err := h.sessionService.Answer(c.Request.Context(), claims.UserID, *req.QuestionIndex, *req.OptionID)
	if err != nil {
		failExam(c, err)
		return
	}

	response.Success(c, http.StatusOK, snap)
}

// Navigate godoc
// POST /api/v1/exam/navigate
// Moves to the previous or next question.
func (h *ExamHandler) Navigate(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.NavigateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	snap, err := h.sessionService.Navigate(c.Request.Context(), claims.UserID, exam.Direction(req.Direction))
	if err != nil {
		failExam(c, err)
		return
	}

	response.Success(c, http.StatusOK, snap)
}

// SubmitExam godoc
// POST /api/v1/exam/submit
// Grades and stores the attempt. When storing fails the attempt stays in
// SUBMIT_FAILED with its result kept, and the call can be repeated.
func (h *ExamHandler) SubmitExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	result, err := h.sessionService.Submit(c.Request.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, exam.ErrPersistFailed) {
			if view, stateErr := h.sessionService.State(c.Request.Context(), claims.UserID); stateErr == nil {
				response.FailWithData(c, http.StatusBadGateway, response.ErrSubmitFailed, view.Snapshot)
				return
			}
		}
		failExam(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// AbandonExam godoc
// DELETE /api/v1/exam
// Discards the running attempt without storing a result.
func (h *ExamHandler) AbandonExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	if err := h.sessionService.Abandon(claims.UserID); err != nil {
		failExam(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// examErrCode maps exam errors onto HTTP status and error code.
func examErrCode(err error) (int, response.ErrCode) {
	switch {
	case errors.Is(err, exam.ErrInsufficientQuestions):
		return http.StatusConflict, response.ErrNotEnoughQuestions
	case errors.Is(err, service.ErrNoActiveExam), errors.Is(err, exam.ErrSessionClosed):
		return http.StatusNotFound, response.ErrNoActiveExam
	case errors.Is(err, exam.ErrNotActive):
		return http.StatusConflict, response.ErrExamNotActive
	case errors.Is(err, exam.ErrUnknownOption):
		return http.StatusBadRequest, response.ErrUnknownOption
	case errors.Is(err, exam.ErrPersistFailed):
		return http.StatusBadGateway, response.ErrSubmitFailed
	case errors.Is(err, exam.ErrAbandoned):
		return http.StatusConflict, response.ErrExamAbandoned
	case errors.Is(err, service.ErrShuttingDown):
		return http.StatusServiceUnavailable, response.ErrServiceUnavailable
	default:
		return http.StatusInternalServerError, response.ErrInternal
	}
}

func failExam(c *gin.Context, err error) {
	status, code := examErrCode(err)
	response.Fail(c, status, code)
}
