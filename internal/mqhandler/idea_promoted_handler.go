package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	mqcontracts "github.com/mlunin-git/coaching-platform-sub000/contracts/mq"
	rtcontracts "github.com/mlunin-git/coaching-platform-sub000/contracts/realtime"
	"github.com/mlunin-git/coaching-platform-sub000/internal/model"
	"github.com/mlunin-git/coaching-platform-sub000/pkg/metrics"
	"github.com/mlunin-git/coaching-platform-sub000/pkg/util"
)

type IdeaPromotedHandler struct {
	notificationRepo NotificationStore
	planningRepo     ParticipantLister
	rdb              RedisClient
	dlq              DLQPublisher
	retryCounter     RetryCounter
	deduper          Deduper
	logger           *zap.Logger
}

func NewIdeaPromotedHandler(
	notificationRepo NotificationStore,
	planningRepo ParticipantLister,
	rdb RedisClient,
	dlq DLQPublisher,
	retryCounter RetryCounter,
	deduper Deduper,
	logger *zap.Logger,
) *IdeaPromotedHandler {
	return &IdeaPromotedHandler{
		notificationRepo: notificationRepo,
		planningRepo:     planningRepo,
		rdb:              rdb,
		dlq:              dlq,
		retryCounter:     retryCounter,
		deduper:          deduper,
		logger:           logger,
	}
}

// HandleIdeaPromoted notifies every participant of the group that an idea
// became a scheduled event.
func (h *IdeaPromotedHandler) HandleIdeaPromoted(ctx context.Context, raw json.RawMessage) (err error) {
	var p mqcontracts.IdeaPromotedPayload
	acquired := false

	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("Panic in HandleIdeaPromoted",
				zap.Any("panic", r),
			)
			if acquired {
				h.releaseDedup(ctx, p.EventID)
			}
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal idea promoted payload (non-retryable, sending to DLQ)",
			zap.Error(err),
			zap.String("raw_payload", string(raw)),
		)
		publishDLQ(h.dlq, h.logger, mqcontracts.RoutingKeyIdeaPromoted, raw, err)
		return nil
	}

	h.logger.Info("Processing idea promoted event",
		zap.Int("event_id", p.EventID),
		zap.Int("idea_id", p.IdeaID),
		zap.Int("group_id", p.GroupID),
	)

	if !h.deduper.AcquireOnce(ctx, "idea_promoted", p.EventID) {
		h.logger.Info("Skipped duplicated idea promoted event",
			zap.Int("event_id", p.EventID),
		)
		return nil
	}
	acquired = true

	if perr := h.process(ctx, p); perr != nil {
		return h.classify(ctx, perr, p.EventID, raw)
	}

	h.retryCounter.Reset(ctx, util.FormatRetryKey("idea_promoted", p.EventID))
	return nil
}

func (h *IdeaPromotedHandler) process(ctx context.Context, p mqcontracts.IdeaPromotedPayload) error {
	participants, err := h.planningRepo.ListParticipants(ctx, p.GroupID)
	if err != nil {
		return err
	}

	content := fmt.Sprintf("%s (month %d)", p.Title, p.ScheduledMonth)
	notified := 0
	for _, participant := range participants {
		// 提升者本人不用通知
		if participant.UserID == p.PromotedBy {
			continue
		}

		n := &model.Notification{
			UserID:  participant.UserID,
			Type:    model.NotificationIdeaPromoted,
			Content: content,
		}
		if err := h.notificationRepo.Insert(ctx, n); err != nil {
			return err
		}
		metrics.IncrementNotificationCreated(model.NotificationIdeaPromoted)

		if err := publishRealtime(ctx, h.rdb, participant.UserID, rtcontracts.EventIdeaPromoted, p); err != nil {
			h.logger.Warn("Failed to publish realtime idea event",
				zap.Int("event_id", p.EventID),
				zap.Int("user_id", participant.UserID),
				zap.Error(err),
			)
		}
		notified++
	}

	h.logger.Info("Idea promoted event processed",
		zap.Int("event_id", p.EventID),
		zap.Int("participants_notified", notified),
	)
	return nil
}

func (h *IdeaPromotedHandler) classify(ctx context.Context, err error, eventID int, raw json.RawMessage) error {
	isRetryable, errType := util.IsRetryableError(err)
	h.logger.Error("Failed to process idea promoted event",
		zap.Int("event_id", eventID),
		zap.String("error_type", errType),
		zap.Bool("retryable", isRetryable),
		zap.Error(err),
	)

	if !isRetryable {
		publishDLQ(h.dlq, h.logger, mqcontracts.RoutingKeyIdeaPromoted, raw, err)
		return nil
	}

	retryKey := util.FormatRetryKey("idea_promoted", eventID)
	retryCount, cntErr := h.retryCounter.IncrementAndGet(ctx, retryKey)
	if cntErr != nil {
		h.logger.Warn("Failed to get retry count, continuing anyway",
			zap.Int("event_id", eventID),
			zap.Error(cntErr),
		)
		retryCount = 1
	}

	if retryCount > maxRetries {
		h.logger.Warn("Max retries exceeded for idea promoted event, sending to DLQ",
			zap.Int("event_id", eventID),
			zap.Int64("retry_count", retryCount),
		)
		h.retryCounter.Reset(ctx, retryKey)
		publishDLQ(h.dlq, h.logger, mqcontracts.RoutingKeyIdeaPromoted, raw, err)
		return nil
	}

	h.releaseDedup(ctx, eventID)
	return err
}

func (h *IdeaPromotedHandler) releaseDedup(ctx context.Context, eventID int) {
	if err := h.deduper.Release(ctx, "idea_promoted", eventID); err != nil {
		h.logger.Warn("Failed to release dedup key",
			zap.Int("event_id", eventID),
			zap.Error(err),
		)
	}
}
