package service

import (
	"context"

	"saraban/internal/model"
	"saraban/internal/notifycache"
)

type AuditReader interface {
	ListByEntity(ctx context.Context, entityID int) ([]model.AuditLog, error)
	ListAll(ctx context.Context) ([]model.AuditLog, error)
	Latest(ctx context.Context, limit int) ([]model.AuditLog, error)
}

// AuditService serves the read side of the history: per project logs, the
// full log and the notifications feed.
type AuditService struct {
	logs         AuditReader
	cache        notifycache.FeedCache
	defaultLimit int
	maxLimit     int
}

func NewAuditService(logs AuditReader, cache notifycache.FeedCache, defaultLimit, maxLimit int) *AuditService {
	if cache == nil {
		cache = notifycache.Nop{}
	}
	if defaultLimit <= 0 {
		defaultLimit = 50
	}
	if maxLimit < defaultLimit {
		maxLimit = defaultLimit
	}
	return &AuditService{
		logs:         logs,
		cache:        cache,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}
}

func (s *AuditService) ProjectLogs(ctx context.Context, projectID int) ([]model.AuditLog, error) {
	return s.logs.ListByEntity(ctx, projectID)
}

func (s *AuditService) All(ctx context.Context) ([]model.AuditLog, error) {
	return s.logs.ListAll(ctx)
}

// ClampLimit maps a requested page size onto [1, maxLimit]; zero or
// negative means the default.
func (s *AuditService) ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return s.defaultLimit
	case limit > s.maxLimit:
		return s.maxLimit
	}
	return limit
}

// Notifications returns the newest entries, newest first.
func (s *AuditService) Notifications(ctx context.Context, limit int) ([]model.AuditLog, error) {
	limit = s.ClampLimit(limit)
	logs, gen, ok := s.cache.Get(ctx, limit)
	if ok {
		return logs, nil
	}
	logs, err := s.logs.Latest(ctx, limit)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, gen, limit, logs)
	return logs, nil
}
