// Package notifycache caches the latest-N notifications feed in Redis.
// Entries are keyed by a generation counter; every recorded audit row bumps
// the generation, which orphans all cached pages at once.
package notifycache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"saraban/internal/model"
	"saraban/pkg/metrics"
)

const generationKey = "saraban:notifications:gen"

// NoGeneration is returned by Get when the generation could not be read.
// Set ignores pages tagged with it.
const NoGeneration int64 = -1

// FeedCache stores feed pages by requested limit. Get reports the
// generation it looked under; a page filled after a miss must be stored
// with that generation so an invalidation in between orphans it.
type FeedCache interface {
	Get(ctx context.Context, limit int) (logs []model.AuditLog, gen int64, ok bool)
	Set(ctx context.Context, gen int64, limit int, logs []model.AuditLog)
	Invalidate(ctx context.Context)
}

type RedisCache struct {
	rdb    redis.Cmdable
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisCache(rdb redis.Cmdable, ttl time.Duration, logger *zap.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisCache{rdb: rdb, ttl: ttl, logger: logger}
}

func pageKey(gen int64, limit int) string {
	return fmt.Sprintf("saraban:notifications:%d:%d", gen, limit)
}

func (c *RedisCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.rdb.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *RedisCache) Get(ctx context.Context, limit int) ([]model.AuditLog, int64, bool) {
	gen, err := c.generation(ctx)
	if err != nil {
		c.logger.Warn("Notification cache generation lookup failed", zap.Error(err))
		metrics.IncrementNotificationCache("error")
		return nil, NoGeneration, false
	}

	raw, err := c.rdb.Get(ctx, pageKey(gen, limit)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Notification cache read failed", zap.Error(err))
			metrics.IncrementNotificationCache("error")
			return nil, NoGeneration, false
		}
		metrics.IncrementNotificationCache("miss")
		return nil, gen, false
	}

	var logs []model.AuditLog
	if err := json.Unmarshal(raw, &logs); err != nil {
		c.logger.Warn("Discarding corrupt notification cache entry", zap.Error(err))
		metrics.IncrementNotificationCache("error")
		return nil, gen, false
	}
	metrics.IncrementNotificationCache("hit")
	return logs, gen, true
}

// Set stores logs under gen. Pages for a generation that has since been
// invalidated land under a key no reader will look up again.
func (c *RedisCache) Set(ctx context.Context, gen int64, limit int, logs []model.AuditLog) {
	if gen < 0 {
		return
	}
	raw, err := json.Marshal(logs)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, pageKey(gen, limit), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("Notification cache write failed", zap.Error(err))
	}
}

func (c *RedisCache) Invalidate(ctx context.Context) {
	if err := c.rdb.Incr(ctx, generationKey).Err(); err != nil {
		c.logger.Warn("Notification cache invalidation failed", zap.Error(err))
	}
}

// Nop never caches. Used when Redis is not configured.
type Nop struct{}

func (Nop) Get(context.Context, int) ([]model.AuditLog, int64, bool) { return nil, NoGeneration, false }
func (Nop) Set(context.Context, int64, int, []model.AuditLog)        {}
func (Nop) Invalidate(context.Context)                               {}
