// Package audit appends history rows for every mutating operation.
//
// Recording is best effort by default: a failed insert is logged and
// counted but never fails the mutation that triggered it. Strict mode
// returns the error instead, wrapped in apperr.ErrAuditNotRecorded: the
// mutation itself has already been stored by then.
package audit

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"saraban/internal/apperr"
	"saraban/internal/model"
	"saraban/internal/notifycache"
	"saraban/pkg/logger"
	"saraban/pkg/metrics"
)

type Store interface {
	Insert(ctx context.Context, l *model.AuditLog) error
}

type Entry struct {
	EntityID int
	Action   string
	Actor    string
	Details  string
}

type Recorder struct {
	store  Store
	cache  notifycache.FeedCache
	strict bool
	logger *zap.Logger
}

func NewRecorder(store Store, cache notifycache.FeedCache, strict bool, logger *zap.Logger) *Recorder {
	if cache == nil {
		cache = notifycache.Nop{}
	}
	return &Recorder{store: store, cache: cache, strict: strict, logger: logger}
}

// Record writes one row synchronously. It returns a non-nil error only in
// strict mode, and that error wraps apperr.ErrAuditNotRecorded.
func (r *Recorder) Record(ctx context.Context, e Entry) error {
	if _, err := r.Append(ctx, e); err != nil {
		logger.WithTrace(ctx, r.logger).Warn("Audit record failed",
			zap.Int("entity_id", e.EntityID),
			zap.String("action", e.Action),
			zap.String("actor", e.Actor),
			zap.Bool("strict", r.strict),
			zap.Error(err),
		)
		if r.strict {
			return fmt.Errorf("%w: %w", apperr.ErrAuditNotRecorded, err)
		}
	}
	return nil
}

// Append writes one row and always reports failure. It is used when the
// history row is itself the requested mutation.
func (r *Recorder) Append(ctx context.Context, e Entry) (*model.AuditLog, error) {
	l := &model.AuditLog{
		EntityID: e.EntityID,
		Action:   e.Action,
		Actor:    e.Actor,
		Details:  e.Details,
	}
	if err := r.store.Insert(ctx, l); err != nil {
		metrics.IncrementAuditRecord(e.Action, "failed")
		return nil, fmt.Errorf("record audit: %w", err)
	}

	metrics.IncrementAuditRecord(e.Action, "ok")
	r.cache.Invalidate(ctx)
	return l, nil
}
