package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"saraban/internal/model"
	"saraban/internal/service"
)

type ProjectHandler struct {
	projects *service.ProjectService
	logger   *zap.Logger
}

func NewProjectHandler(projects *service.ProjectService, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{projects: projects, logger: logger}
}

// List handles GET /api/projects
func (h *ProjectHandler) List(c *gin.Context) {
	projects, err := h.projects.List(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "list projects", err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

// Create handles POST /api/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var in model.ProjectInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}

	p, err := h.projects.Create(c.Request.Context(), actor(c), in)
	if err != nil {
		respondError(c, h.logger, "create project", err)
		return
	}
	h.logger.Info("Project created",
		zap.Int("id", p.ID),
		zap.String("code", p.Code),
		zap.Int("user_id", currentUser(c).UserID),
	)
	c.JSON(http.StatusCreated, p)
}

// Update handles PUT /api/projects/:id
func (h *ProjectHandler) Update(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var in model.ProjectInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}

	p, err := h.projects.Update(c.Request.Context(), actor(c), id, in)
	if err != nil {
		respondError(c, h.logger, "update project", err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Delete handles DELETE /api/projects/:id
func (h *ProjectHandler) Delete(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.projects.Delete(c.Request.Context(), actor(c), id); err != nil {
		respondError(c, h.logger, "delete project", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted", "id": id})
}

// NextCode handles GET /api/projects/next-code?acronym=&type=
func (h *ProjectHandler) NextCode(c *gin.Context) {
	code, err := h.projects.NextCode(c.Request.Context(), c.Query("acronym"), c.DefaultQuery("type", "P"))
	if err != nil {
		respondError(c, h.logger, "next code", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": code})
}

// Stats handles GET /api/stats
func (h *ProjectHandler) Stats(c *gin.Context) {
	s, err := h.projects.Stats(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "stats", err)
		return
	}
	c.JSON(http.StatusOK, s)
}
