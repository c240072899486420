package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"saraban/internal/apperr"
	"saraban/internal/model"
	"saraban/internal/service"
)

// multipartOverhead is the room left for form fields and part headers on
// top of the file size ceiling.
const multipartOverhead = 1 << 20

type FeatureHandler struct {
	features *service.FeatureService
	maxBytes int64
	logger   *zap.Logger
}

func NewFeatureHandler(features *service.FeatureService, maxUploadBytes int64, logger *zap.Logger) *FeatureHandler {
	return &FeatureHandler{features: features, maxBytes: maxUploadBytes, logger: logger}
}

// List handles GET /api/projects/:id/features
func (h *FeatureHandler) List(c *gin.Context) {
	projectID, ok := idParam(c)
	if !ok {
		return
	}
	features, err := h.features.List(c.Request.Context(), projectID)
	if err != nil {
		respondError(c, h.logger, "list features", err)
		return
	}
	c.JSON(http.StatusOK, features)
}

// Create handles POST /api/projects/:id/features
func (h *FeatureHandler) Create(c *gin.Context) {
	projectID, ok := idParam(c)
	if !ok {
		return
	}
	var in model.FeatureInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}
	f, err := h.features.Create(c.Request.Context(), actor(c), projectID, in)
	if err != nil {
		respondError(c, h.logger, "create feature", err)
		return
	}
	c.JSON(http.StatusCreated, f)
}

// Update handles PUT /api/features/:id
func (h *FeatureHandler) Update(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var in model.FeatureInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}
	f, err := h.features.Update(c.Request.Context(), actor(c), id, in)
	if err != nil {
		respondError(c, h.logger, "update feature", err)
		return
	}
	c.JSON(http.StatusOK, f)
}

// Delete handles DELETE /api/features/:id
func (h *FeatureHandler) Delete(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.features.Delete(c.Request.Context(), actor(c), id); err != nil {
		respondError(c, h.logger, "delete feature", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted", "id": id})
}

// Notes handles GET /api/features/:id/notes
func (h *FeatureHandler) Notes(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	notes, err := h.features.Notes(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, "list notes", err)
		return
	}
	c.JSON(http.StatusOK, notes)
}

// AddNote handles POST /api/features/:id/notes (multipart: content, file)
func (h *FeatureHandler) AddNote(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	limit := h.maxBytes + multipartOverhead
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	var upload *service.Upload
	fh, err := c.FormFile("file")
	var tooLarge *http.MaxBytesError
	switch {
	case err != nil && (errors.As(err, &tooLarge) || c.Request.ContentLength > limit):
		respondError(c, h.logger, "add note", apperr.ErrFileTooLarge)
		return
	case err == nil:
		if fh.Size > h.maxBytes {
			respondError(c, h.logger, "add note", apperr.ErrFileTooLarge)
			return
		}
		f, err := fh.Open()
		if err != nil {
			respondError(c, h.logger, "add note", err)
			return
		}
		defer f.Close()
		upload = &service.Upload{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Body:        f,
		}
	case err != http.ErrMissingFile && err != http.ErrNotMultipart:
		badRequest(c, "invalid multipart form")
		return
	}

	note, err := h.features.AddNote(c.Request.Context(), actor(c), id, c.PostForm("content"), upload)
	if err != nil {
		respondError(c, h.logger, "add note", err)
		return
	}
	c.JSON(http.StatusCreated, note)
}
