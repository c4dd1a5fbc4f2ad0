package util

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Deduper struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewDeduper(rdb *redis.Client, ttl time.Duration) *Deduper {
	return &Deduper{rdb: rdb, ttl: ttl}
}

// AcquireOnce tries to acquire a dedup lock for a given handler + entity ID
// returns true if this is the FIRST time processing
// returns false if it's a duplicate
func (d *Deduper) AcquireOnce(ctx context.Context, handler string, entityID int) bool {
	ok, err := d.rdb.SetNX(ctx, dedupKey(handler, entityID), 1, d.ttl).Result()
	if err != nil {
		// Redis 挂了？为了安全：当 redis 不可用时，不阻止处理，返回 true
		return true
	}
	return ok
}

// Release drops the dedup key so a requeued delivery is processed again.
// Callers release before nacking a retryable failure, otherwise the retry
// would be skipped as a duplicate.
func (d *Deduper) Release(ctx context.Context, handler string, entityID int) error {
	return d.rdb.Del(ctx, dedupKey(handler, entityID)).Err()
}

func dedupKey(handler string, entityID int) string {
	return fmt.Sprintf("dedup:%s:%d", handler, entityID)
}
