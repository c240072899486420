package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"saraban/pkg/outbox"
)

// Replayer is implemented by *outbox.ReplayService.
type Replayer interface {
	ReplayEvent(ctx context.Context, eventID int64) error
	ReplayFailedEvents(ctx context.Context, limit int) (int, error)
}

type AdminHandler struct {
	replay Replayer
	logger *zap.Logger
}

func NewAdminHandler(replay Replayer, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{replay: replay, logger: logger}
}

// ReplayOutboxEvent handles POST /api/admin/outbox/replay?id=
func (h *AdminHandler) ReplayOutboxEvent(c *gin.Context) {
	if h.replay == nil {
		abortWithError(c, http.StatusServiceUnavailable, CodeInternal, "messaging is disabled")
		return
	}
	idStr := c.Query("id")
	if idStr == "" {
		badRequest(c, "missing id parameter")
		return
	}
	eventID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		badRequest(c, "invalid id parameter")
		return
	}

	if err := h.replay.ReplayEvent(c.Request.Context(), eventID); err != nil {
		if errors.Is(err, outbox.ErrEventNotFound) {
			abortWithError(c, http.StatusNotFound, CodeNotFound, err.Error())
			return
		}
		h.logger.Error("Failed to replay event",
			zap.Int64("event_id", eventID),
			zap.Error(err),
		)
		abortWithError(c, http.StatusInternalServerError, CodeInternal, "failed to replay event")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "replayed",
		"event_id": eventID,
	})
}

// ReplayFailedEvents handles POST /api/admin/outbox/replay-failed?limit=
func (h *AdminHandler) ReplayFailedEvents(c *gin.Context) {
	if h.replay == nil {
		abortWithError(c, http.StatusServiceUnavailable, CodeInternal, "messaging is disabled")
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit <= 0 {
		limit = 100
	}

	replayed, err := h.replay.ReplayFailedEvents(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to replay failed events", zap.Error(err))
		abortWithError(c, http.StatusInternalServerError, CodeInternal, "failed to replay failed events")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":        "completed",
		"success_count": replayed,
		"limit":         limit,
	})
}
