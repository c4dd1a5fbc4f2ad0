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

type TaskAssignedHandler struct {
	notificationRepo NotificationStore
	rdb              RedisClient
	dlq              DLQPublisher
	retryCounter     RetryCounter
	deduper          Deduper
	logger           *zap.Logger
}

func NewTaskAssignedHandler(
	notificationRepo NotificationStore,
	rdb RedisClient,
	dlq DLQPublisher,
	retryCounter RetryCounter,
	deduper Deduper,
	logger *zap.Logger,
) *TaskAssignedHandler {
	return &TaskAssignedHandler{
		notificationRepo: notificationRepo,
		rdb:              rdb,
		dlq:              dlq,
		retryCounter:     retryCounter,
		deduper:          deduper,
		logger:           logger,
	}
}

// HandleTaskAssigned notifies the client's linked user about a new
// assignment. Clients without a platform account get no notification.
func (h *TaskAssignedHandler) HandleTaskAssigned(ctx context.Context, raw json.RawMessage) (err error) {
	var p mqcontracts.TaskAssignedPayload
	acquired := false

	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("Panic in HandleTaskAssigned",
				zap.Any("panic", r),
			)
			if acquired {
				h.releaseDedup(ctx, p.AssignmentID)
			}
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal task assigned payload (non-retryable, sending to DLQ)",
			zap.Error(err),
			zap.String("raw_payload", string(raw)),
		)
		publishDLQ(h.dlq, h.logger, mqcontracts.RoutingKeyTaskAssigned, raw, err)
		return nil
	}

	h.logger.Info("Processing task assigned event",
		zap.Int("assignment_id", p.AssignmentID),
		zap.Int("task_id", p.TaskID),
		zap.Int("client_id", p.ClientID),
	)

	if p.ClientUserID == nil {
		// 客户没有关联账号，无处可通知
		h.logger.Debug("Client has no linked user, skipping notification",
			zap.Int("client_id", p.ClientID),
		)
		return nil
	}

	if !h.deduper.AcquireOnce(ctx, "task_assigned", p.AssignmentID) {
		h.logger.Info("Skipped duplicated task assigned event",
			zap.Int("assignment_id", p.AssignmentID),
		)
		return nil
	}
	acquired = true

	if perr := h.process(ctx, p); perr != nil {
		return h.classify(ctx, perr, p.AssignmentID, raw)
	}

	h.retryCounter.Reset(ctx, util.FormatRetryKey("task_assigned", p.AssignmentID))
	return nil
}

func (h *TaskAssignedHandler) process(ctx context.Context, p mqcontracts.TaskAssignedPayload) error {
	n := &model.Notification{
		UserID:  *p.ClientUserID,
		Type:    model.NotificationTaskAssigned,
		Content: p.Title,
	}
	if err := h.notificationRepo.Insert(ctx, n); err != nil {
		return err
	}
	metrics.IncrementNotificationCreated(model.NotificationTaskAssigned)

	if err := publishRealtime(ctx, h.rdb, *p.ClientUserID, rtcontracts.EventNotificationCreated, n); err != nil {
		h.logger.Warn("Failed to publish realtime assignment event",
			zap.Int("assignment_id", p.AssignmentID),
			zap.Error(err),
		)
	}

	h.logger.Info("Task assigned event processed",
		zap.Int("assignment_id", p.AssignmentID),
		zap.Int("notification_id", n.ID),
	)
	return nil
}

func (h *TaskAssignedHandler) classify(ctx context.Context, err error, assignmentID int, raw json.RawMessage) error {
	isRetryable, errType := util.IsRetryableError(err)
	h.logger.Error("Failed to process task assigned event",
		zap.Int("assignment_id", assignmentID),
		zap.String("error_type", errType),
		zap.Bool("retryable", isRetryable),
		zap.Error(err),
	)

	if !isRetryable {
		publishDLQ(h.dlq, h.logger, mqcontracts.RoutingKeyTaskAssigned, raw, err)
		return nil
	}

	retryKey := util.FormatRetryKey("task_assigned", assignmentID)
	retryCount, cntErr := h.retryCounter.IncrementAndGet(ctx, retryKey)
	if cntErr != nil {
		h.logger.Warn("Failed to get retry count, continuing anyway",
			zap.Int("assignment_id", assignmentID),
			zap.Error(cntErr),
		)
		retryCount = 1
	}

	if retryCount > maxRetries {
		h.logger.Warn("Max retries exceeded for task assigned event, sending to DLQ",
			zap.Int("assignment_id", assignmentID),
			zap.Int64("retry_count", retryCount),
		)
		h.retryCounter.Reset(ctx, retryKey)
		publishDLQ(h.dlq, h.logger, mqcontracts.RoutingKeyTaskAssigned, raw, err)
		return nil
	}

	h.releaseDedup(ctx, assignmentID)
	return err
}

func (h *TaskAssignedHandler) releaseDedup(ctx context.Context, assignmentID int) {
	if err := h.deduper.Release(ctx, "task_assigned", assignmentID); err != nil {
		h.logger.Warn("Failed to release dedup key",
			zap.Int("assignment_id", assignmentID),
			zap.Error(err),
		)
	}
}
