package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/motoquiz-backend/internal/exam"
	"github.com/stemsi/motoquiz-backend/internal/model"
	"github.com/stemsi/motoquiz-backend/internal/response"
	"github.com/stemsi/motoquiz-backend/internal/service"
	"github.com/stemsi/motoquiz-backend/internal/validator"
)

// PracticeHandler handles untimed practice answers.
type PracticeHandler struct {
	practiceService *service.PracticeService
}

// NewPracticeHandler creates a new PracticeHandler.
func NewPracticeHandler(practiceService *service.PracticeService) *PracticeHandler {
	return &PracticeHandler{practiceService: practiceService}
}

// CheckAnswer godoc
// POST /api/v1/practice/check
// Reveals whether the chosen option is correct. Nothing is stored.
func (h *PracticeHandler) CheckAnswer(c *gin.Context) {
	var req model.PracticeCheckRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.practiceService.Check(c.Request.Context(), req.QuestionID, *req.OptionID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrQuestionNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, exam.ErrUnknownOption):
			response.Fail(c, http.StatusBadRequest, response.ErrUnknownOption)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, result)
}
