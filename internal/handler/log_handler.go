package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"saraban/internal/service"
)

type LogHandler struct {
	projects *service.ProjectService
	logs     *service.AuditService
	logger   *zap.Logger
}

func NewLogHandler(projects *service.ProjectService, logs *service.AuditService, logger *zap.Logger) *LogHandler {
	return &LogHandler{projects: projects, logs: logs, logger: logger}
}

// ProjectLogs handles GET /api/projects/:id/logs
func (h *LogHandler) ProjectLogs(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	logs, err := h.logs.ProjectLogs(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, "list project logs", err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

// AddLog handles POST /api/projects/:id/logs
func (h *LogHandler) AddLog(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req struct {
		Note   string `json:"note"`
		Action string `json:"action"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}

	l, err := h.projects.AddLog(c.Request.Context(), actor(c), id, req.Note, req.Action)
	if err != nil {
		respondError(c, h.logger, "add log", err)
		return
	}
	c.JSON(http.StatusCreated, l)
}

// AuditLogs handles GET /api/audit-logs
func (h *LogHandler) AuditLogs(c *gin.Context) {
	logs, err := h.logs.All(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "list audit logs", err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

// Notifications handles GET /api/notifications?limit=
func (h *LogHandler) Notifications(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "invalid limit")
			return
		}
		limit = n
	}

	logs, err := h.logs.Notifications(c.Request.Context(), limit)
	if err != nil {
		respondError(c, h.logger, "notifications", err)
		return
	}
	c.JSON(http.StatusOK, logs)
}
