package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stemsi/motoquiz-backend/internal/middleware"
	"github.com/stemsi/motoquiz-backend/internal/model"
	"github.com/stemsi/motoquiz-backend/internal/response"
	"github.com/stemsi/motoquiz-backend/internal/service"
	"github.com/stemsi/motoquiz-backend/internal/validator"
)

// SuggestionHandler handles user-submitted questions and their review.
type SuggestionHandler struct {
	suggestionService *service.SuggestionService
}

// NewSuggestionHandler creates a new SuggestionHandler.
func NewSuggestionHandler(suggestionService *service.SuggestionService) *SuggestionHandler {
	return &SuggestionHandler{suggestionService: suggestionService}
}

// CreateSuggestion godoc
// POST /api/v1/suggestions
// Submits a question for admin review.
func (h *SuggestionHandler) CreateSuggestion(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.QuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	suggestion, err := h.suggestionService.Create(c.Request.Context(), claims.UserID, &req)
	if err != nil {
		if errors.Is(err, model.ErrInvalidQuestion) {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidAnswer)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"suggestion": suggestion})
}

// ListMySuggestions godoc
// GET /api/v1/suggestions/mine
func (h *SuggestionHandler) ListMySuggestions(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	suggestions, err := h.suggestionService.ListMine(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"suggestions": suggestions})
}

// ─── Admin ──────────────────────────────────────────────────────────

// ListSuggestions godoc
// GET /api/v1/admin/suggestions?status=pending
func (h *SuggestionHandler) ListSuggestions(c *gin.Context) {
	var status *model.SuggestionStatus
	if raw := c.Query("status"); raw != "" {
		s := model.SuggestionStatus(raw)
		switch s {
		case model.SuggestionPending, model.SuggestionApproved, model.SuggestionRejected:
			status = &s
		default:
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
				"status": "status must be one of [pending approved rejected]",
			})
			return
		}
	}

	suggestions, err := h.suggestionService.List(c.Request.Context(), status)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"suggestions": suggestions})
}

// ApproveSuggestion godoc
// POST /api/v1/admin/suggestions/:id/approve
// Copies a pending suggestion into the question bank.
func (h *SuggestionHandler) ApproveSuggestion(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	suggestion, question, err := h.suggestionService.Approve(c.Request.Context(), id)
	if err != nil {
		failReview(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"suggestion": suggestion, "question": question})
}

// RejectSuggestion godoc
// POST /api/v1/admin/suggestions/:id/reject
func (h *SuggestionHandler) RejectSuggestion(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	suggestion, err := h.suggestionService.Reject(c.Request.Context(), id)
	if err != nil {
		failReview(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"suggestion": suggestion})
}

func failReview(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSuggestionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrSuggestionReviewed):
		response.Fail(c, http.StatusConflict, response.ErrSuggestionReviewed)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
