package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stemsi/motoquiz-backend/internal/exam"
	"github.com/stemsi/motoquiz-backend/internal/model"
	"github.com/stemsi/motoquiz-backend/internal/response"
	"github.com/stemsi/motoquiz-backend/internal/service"
	"github.com/stemsi/motoquiz-backend/internal/validator"
)

// QuestionHandler handles question bank endpoints.
type QuestionHandler struct {
	questionService *service.QuestionService
	practiceService *service.PracticeService
}

// NewQuestionHandler creates a new QuestionHandler.
func NewQuestionHandler(questionService *service.QuestionService, practiceService *service.PracticeService) *QuestionHandler {
	return &QuestionHandler{
		questionService: questionService,
		practiceService: practiceService,
	}
}

// ListQuestions godoc
// GET /api/v1/questions?category=
// Lists questions of a category without their answers. "all" or no category
// returns the whole bank.
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	category := c.DefaultQuery("category", service.CategoryAll)

	questions, err := h.practiceService.Questions(c.Request.Context(), category)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	if questions == nil {
		questions = []exam.QuestionView{}
	}

	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// ListCategories godoc
// GET /api/v1/questions/categories
// Lists categories with their question counts, "all" first.
func (h *QuestionHandler) ListCategories(c *gin.Context) {
	categories, err := h.practiceService.Categories(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"categories": categories})
}

// GetQuestion godoc
// GET /api/v1/questions/:id
// Returns a question without its answer.
func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	q, ok := h.loadQuestion(c)
	if !ok {
		return
	}

	response.Success(c, http.StatusOK, gin.H{"question": exam.ViewOf(q)})
}

// ─── Admin ──────────────────────────────────────────────────────────

// AdminListQuestions godoc
// GET /api/v1/admin/questions
// Lists the whole bank including correct answers.
func (h *QuestionHandler) AdminListQuestions(c *gin.Context) {
	questions, err := h.questionService.List(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	if questions == nil {
		questions = []model.Question{}
	}

	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// AdminGetQuestion godoc
// GET /api/v1/admin/questions/:id
func (h *QuestionHandler) AdminGetQuestion(c *gin.Context) {
	q, ok := h.loadQuestion(c)
	if !ok {
		return
	}

	response.Success(c, http.StatusOK, gin.H{"question": q})
}

// CreateQuestion godoc
// POST /api/v1/admin/questions
// Adds a question to the bank.
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	var req model.QuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	question, err := h.questionService.Create(c.Request.Context(), &req)
	if err != nil {
		failQuestionWrite(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"question": question})
}

// UpdateQuestion godoc
// PUT /api/v1/admin/questions/:id
// Replaces the content of a question.
func (h *QuestionHandler) UpdateQuestion(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.QuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	question, err := h.questionService.Update(c.Request.Context(), id, &req)
	if err != nil {
		failQuestionWrite(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"question": question})
}

// DeleteQuestion godoc
// DELETE /api/v1/admin/questions/:id
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.questionService.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, service.ErrQuestionNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

func (h *QuestionHandler) loadQuestion(c *gin.Context) (*model.Question, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return nil, false
	}

	q, err := h.questionService.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrQuestionNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return nil, false
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return nil, false
	}
	return q, true
}

func failQuestionWrite(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidQuestion):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidAnswer)
	case errors.Is(err, service.ErrQuestionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
