package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/motoquiz-backend/internal/response"
	"github.com/stemsi/motoquiz-backend/internal/service"
)

// multipartOverhead leaves room for boundaries and headers around the file.
const multipartOverhead = 1 << 20

// MediaHandler handles media upload endpoints.
type MediaHandler struct {
	mediaService *service.MediaService
	maxBodyBytes int64
}

// NewMediaHandler creates a new MediaHandler. maxUploadBytes is the largest
// accepted image.
func NewMediaHandler(mediaService *service.MediaService, maxUploadBytes int64) *MediaHandler {
	return &MediaHandler{
		mediaService: mediaService,
		maxBodyBytes: maxUploadBytes + multipartOverhead,
	}
}

// UploadMedia godoc
// POST /api/v1/admin/media/upload
// Uploads a question image (form field "file") and returns its URL.
func (h *MediaHandler) UploadMedia(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Fail(c, http.StatusRequestEntityTooLarge, response.ErrFileTooLarge)
			return
		}
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	defer file.Close()

	url, err := h.mediaService.SaveUpload(file, header)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnsupportedFileType):
			response.Fail(c, http.StatusUnsupportedMediaType, response.ErrUnsupportedFile)
		case errors.Is(err, service.ErrFileTooLarge):
			response.Fail(c, http.StatusRequestEntityTooLarge, response.ErrFileTooLarge)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"url": url})
}
