package mqhandler

import (
	"context"
	"encoding/json"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mlunin-git/coaching-platform-sub000/internal/model"
)

// NotificationStore 写入通知行
type NotificationStore interface {
	Insert(ctx context.Context, n *model.Notification) error
}

// ParticipantLister 查询小组成员
type ParticipantLister interface {
	ListParticipants(ctx context.Context, groupID int) ([]model.PlanningParticipant, error)
}

// Deduper Redis SetNX 去重
type Deduper interface {
	AcquireOnce(ctx context.Context, handler string, entityID int) bool
	Release(ctx context.Context, handler string, entityID int) error
}

// RetryCounter Redis 重试计数器
type RetryCounter interface {
	IncrementAndGet(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

// DLQPublisher 死信发布，由 pkg/mq 的 Publisher 实现
type DLQPublisher interface {
	PublishToDLQ(routingKey string, payload []byte, originalError string) error
}

// RedisClient 是 handler 用到的 go-redis 子集
type RedisClient interface {
	Incr(ctx context.Context, key string) *goredis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *goredis.BoolCmd
	Publish(ctx context.Context, channel string, message interface{}) *goredis.IntCmd
}

// publishDLQ best-effort forwards a poisoned or exhausted message to the DLQ.
func publishDLQ(dlq DLQPublisher, logger *zap.Logger, routingKey string, raw json.RawMessage, cause error) {
	if dlq == nil {
		return
	}
	if err := dlq.PublishToDLQ(routingKey, raw, cause.Error()); err != nil {
		logger.Error("Failed to publish to DLQ",
			zap.String("routing_key", routingKey),
			zap.Error(err),
		)
	}
}
