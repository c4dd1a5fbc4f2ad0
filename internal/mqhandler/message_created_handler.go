package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	mqcontracts "github.com/mlunin-git/coaching-platform-sub000/contracts/mq"
	rtcontracts "github.com/mlunin-git/coaching-platform-sub000/contracts/realtime"
	"github.com/mlunin-git/coaching-platform-sub000/internal/model"
	"github.com/mlunin-git/coaching-platform-sub000/internal/service"
	"github.com/mlunin-git/coaching-platform-sub000/pkg/metrics"
	"github.com/mlunin-git/coaching-platform-sub000/pkg/util"
)

const unreadCounterTTL = 30 * 24 * time.Hour

type MessageCreatedHandler struct {
	notificationRepo NotificationStore
	rdb              RedisClient
	dlq              DLQPublisher
	retryCounter     RetryCounter
	deduper          Deduper
	logger           *zap.Logger
}

func NewMessageCreatedHandler(
	notificationRepo NotificationStore,
	rdb RedisClient,
	dlq DLQPublisher,
	retryCounter RetryCounter,
	deduper Deduper,
	logger *zap.Logger,
) *MessageCreatedHandler {
	return &MessageCreatedHandler{
		notificationRepo: notificationRepo,
		rdb:              rdb,
		dlq:              dlq,
		retryCounter:     retryCounter,
		deduper:          deduper,
		logger:           logger,
	}
}

// HandleMessageCreated fans a new message out to the recipient: notification
// row, unread counter bump, realtime push. Idempotent via Redis dedup.
// Returns error only for retryable errors that haven't exceeded max retries.
func (h *MessageCreatedHandler) HandleMessageCreated(ctx context.Context, raw json.RawMessage) (err error) {
	var p mqcontracts.MessageCreatedPayload
	acquired := false

	// Panic 恢复：转成 error 让 consumer nack 并重新入队
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("Panic in HandleMessageCreated",
				zap.Any("panic", r),
			)
			if acquired {
				h.releaseDedup(ctx, p.MessageID)
			}
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	if err := json.Unmarshal(raw, &p); err != nil {
		// JSON decode 错误 - 不可重试，发送到 DLQ
		h.logger.Error("Failed to unmarshal message created payload (non-retryable, sending to DLQ)",
			zap.Error(err),
			zap.String("raw_payload", string(raw)),
		)
		publishDLQ(h.dlq, h.logger, mqcontracts.RoutingKeyMessageCreated, raw, err)
		return nil
	}

	h.logger.Info("Processing message created event",
		zap.Int("message_id", p.MessageID),
		zap.Int("sender_id", p.SenderID),
		zap.Int("recipient_id", p.RecipientID),
	)

	// Redis 去重：同一消息只处理一次
	if !h.deduper.AcquireOnce(ctx, "message_created", p.MessageID) {
		h.logger.Info("Skipped duplicated message created event",
			zap.Int("message_id", p.MessageID),
		)
		return nil
	}
	acquired = true

	if perr := h.process(ctx, p); perr != nil {
		return h.classify(ctx, perr, p.MessageID, raw)
	}

	h.retryCounter.Reset(ctx, util.FormatRetryKey("message_created", p.MessageID))
	return nil
}

func (h *MessageCreatedHandler) process(ctx context.Context, p mqcontracts.MessageCreatedPayload) error {
	n := &model.Notification{
		UserID:  p.RecipientID,
		Type:    model.NotificationNewMessage,
		Content: p.Preview,
	}
	if err := h.notificationRepo.Insert(ctx, n); err != nil {
		return err
	}
	metrics.IncrementNotificationCreated(model.NotificationNewMessage)

	// 未读计数器：recipient 对 sender 的未读 +1
	key := service.UnreadKey(p.RecipientID, p.SenderID)
	if err := h.rdb.Incr(ctx, key).Err(); err != nil {
		h.logger.Warn("Failed to bump unread counter",
			zap.String("key", key),
			zap.Error(err),
		)
	} else {
		h.rdb.Expire(ctx, key, unreadCounterTTL)
	}

	if err := publishRealtime(ctx, h.rdb, p.RecipientID, rtcontracts.EventMessageCreated, p); err != nil {
		h.logger.Warn("Failed to publish realtime message event",
			zap.Int("message_id", p.MessageID),
			zap.Int("recipient_id", p.RecipientID),
			zap.Error(err),
		)
	}

	h.logger.Info("Message created event processed",
		zap.Int("message_id", p.MessageID),
		zap.Int("notification_id", n.ID),
	)
	return nil
}

// classify decides whether the consumer should retry, following the shared
// retryable/permanent split with a Redis retry budget. Permanent failures and
// exhausted retries go to the DLQ and are acked.
func (h *MessageCreatedHandler) classify(ctx context.Context, err error, messageID int, raw json.RawMessage) error {
	isRetryable, errType := util.IsRetryableError(err)
	h.logger.Error("Failed to process message created event",
		zap.Int("message_id", messageID),
		zap.String("error_type", errType),
		zap.Bool("retryable", isRetryable),
		zap.Error(err),
	)

	if !isRetryable {
		// 不可重试错误 - 进 DLQ 并 ack 掉
		publishDLQ(h.dlq, h.logger, mqcontracts.RoutingKeyMessageCreated, raw, err)
		return nil
	}

	retryKey := util.FormatRetryKey("message_created", messageID)
	retryCount, cntErr := h.retryCounter.IncrementAndGet(ctx, retryKey)
	if cntErr != nil {
		h.logger.Warn("Failed to get retry count, continuing anyway",
			zap.Int("message_id", messageID),
			zap.Error(cntErr),
		)
		retryCount = 1
	}

	if retryCount > maxRetries {
		h.logger.Warn("Max retries exceeded for message created event, sending to DLQ",
			zap.Int("message_id", messageID),
			zap.Int64("retry_count", retryCount),
		)
		h.retryCounter.Reset(ctx, retryKey)
		publishDLQ(h.dlq, h.logger, mqcontracts.RoutingKeyMessageCreated, raw, err)
		return nil
	}

	// 可重试错误且未超过最大次数 - 释放去重键再返回 error，
	// 否则重投的同一条消息会被当成重复直接 ack
	h.releaseDedup(ctx, messageID)
	return err
}

func (h *MessageCreatedHandler) releaseDedup(ctx context.Context, messageID int) {
	if err := h.deduper.Release(ctx, "message_created", messageID); err != nil {
		h.logger.Warn("Failed to release dedup key",
			zap.Int("message_id", messageID),
			zap.Error(err),
		)
	}
}
