// Package relay forwards audit.recorded events to an external webhook.
package relay

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	mqcontracts "saraban/contracts/mq"
	"saraban/pkg/logger"
	"saraban/pkg/metrics"
	"saraban/pkg/util"
)

const handlerName = "relay"

type Poster interface {
	Post(ctx context.Context, payload any) error
}

// Deduper is implemented by *util.Deduper.
type Deduper interface {
	AcquireOnce(ctx context.Context, handler string, id int64) bool
	Release(ctx context.Context, handler string, id int64) error
}

// RetryCounter is implemented by *util.RetryCounter.
type RetryCounter interface {
	IncrementAndGet(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

// DeadLetters is implemented by *mq.Publisher.
type DeadLetters interface {
	PublishToDLQ(routingKey string, payload []byte, originalError, failedAt string) error
}

type Handler struct {
	poster     Poster
	deduper    Deduper
	retries    RetryCounter
	dlq        DeadLetters
	maxRetries int64
	logger     *zap.Logger
}

func NewHandler(poster Poster, deduper Deduper, retries RetryCounter, dlq DeadLetters, maxRetries int64, logger *zap.Logger) *Handler {
	return &Handler{
		poster:     poster,
		deduper:    deduper,
		retries:    retries,
		dlq:        dlq,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// Handle is an mq.MessageHandler. Returning an error requeues the message;
// every terminal outcome returns nil so the delivery is acked.
func (h *Handler) Handle(ctx context.Context, raw json.RawMessage) error {
	log := logger.WithTrace(ctx, h.logger)

	var p mqcontracts.AuditRecordedPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.AuditID <= 0 {
		log.Error("Invalid audit.recorded payload, sending to DLQ", zap.Error(err))
		h.deadLetter(log, raw, "invalid payload", "decode")
		metrics.IncrementRelayDelivery("invalid")
		return nil
	}

	if !h.deduper.AcquireOnce(ctx, handlerName, p.AuditID) {
		metrics.IncrementRelayDelivery("duplicate")
		return nil
	}

	retryKey := util.FormatRetryKey(handlerName, p.AuditID)
	attempt, err := h.retries.IncrementAndGet(ctx, retryKey)
	if err != nil {
		log.Warn("Retry counter unavailable", zap.Error(err))
		attempt = 1
	}

	start := time.Now()
	err = h.poster.Post(ctx, p)
	metrics.RecordRelayLatency(time.Since(start))
	if err == nil {
		_ = h.retries.Reset(ctx, retryKey)
		metrics.IncrementRelayDelivery("delivered")
		log.Info("Audit event relayed",
			zap.Int64("audit_id", p.AuditID),
			zap.String("action", p.Action),
			zap.Int64("attempt", attempt),
		)
		return nil
	}

	retryable, errType := util.IsRetryableError(err)
	log.Warn("Audit relay failed",
		zap.Int64("audit_id", p.AuditID),
		zap.String("error_type", errType),
		zap.Bool("retryable", retryable),
		zap.Int64("attempt", attempt),
		zap.Error(err),
	)

	if util.ShouldRetry(attempt, h.maxRetries, retryable) {
		if relErr := h.deduper.Release(ctx, handlerName, p.AuditID); relErr != nil {
			log.Warn("Failed to release dedup key", zap.Error(relErr))
		}
		metrics.IncrementRelayDelivery("retry")
		return err
	}

	failed, _ := json.Marshal(mqcontracts.AuditRelayFailedPayload{
		AuditID:    p.AuditID,
		Error:      err.Error(),
		RetryCount: attempt,
	})
	h.deadLetter(log, failed, err.Error(), errType)
	_ = h.retries.Reset(ctx, retryKey)
	metrics.IncrementRelayDelivery("dead_lettered")
	return nil
}

func (h *Handler) deadLetter(log *zap.Logger, body []byte, reason, failedAt string) {
	if h.dlq == nil {
		return
	}
	if err := h.dlq.PublishToDLQ(mqcontracts.RoutingKeyAuditRecorded, body, reason, failedAt); err != nil {
		log.Error("Failed to publish to DLQ", zap.Error(err))
	}
}
