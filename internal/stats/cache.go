package stats

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AdhamEssa01/accademy/internal/domain"
	"github.com/AdhamEssa01/accademy/internal/tenant"
)

// Cache holds short-lived stats snapshots in Redis. A nil *Cache is a
// valid no-op cache. Keys are academy-scoped so tenants never share a
// snapshot.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	if rdb == nil {
		return nil
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

func (c *Cache) key(ctx context.Context, examID string) string {
	return "stats:" + tenant.FromContext(ctx) + ":" + examID
}

func (c *Cache) Get(ctx context.Context, examID string) (domain.ExamStats, bool) {
	if c == nil {
		return domain.ExamStats{}, false
	}
	raw, err := c.rdb.Get(ctx, c.key(ctx, examID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logErr(err)
		}
		return domain.ExamStats{}, false
	}
	var snap domain.ExamStats
	if err := json.Unmarshal(raw, &snap); err != nil {
		logErr(err)
		return domain.ExamStats{}, false
	}
	return snap, true
}

func (c *Cache) Set(ctx context.Context, examID string, snap domain.ExamStats) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		logErr(err)
		return
	}
	logErr(c.rdb.Set(ctx, c.key(ctx, examID), raw, c.ttl).Err())
}
