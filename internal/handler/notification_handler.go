package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mlunin-git/coaching-platform-sub000/internal/model"
	"github.com/mlunin-git/coaching-platform-sub000/internal/service"
)

type NotificationManager interface {
	List(ctx context.Context, userID, limit int) ([]model.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID int) error
	UnreadCount(ctx context.Context, userID int) (int64, error)
}

type NotificationHandler struct {
	notifications NotificationManager
	logger        *zap.Logger
}

func NewNotificationHandler(notifications NotificationManager, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, logger: logger}
}

func (h *NotificationHandler) List(c *gin.Context) {
	userID, _ := currentUserID(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	notifications, err := h.notifications.List(c.Request.Context(), userID, limit)
	if err != nil {
		h.logger.Error("ListNotifications: failed",
			zap.Int("user_id", userID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, _ := currentUserID(c)
	notificationID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.notifications.MarkRead(c.Request.Context(), userID, notificationID); err != nil {
		if errors.Is(err, service.ErrNotificationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
			return
		}
		h.logger.Error("MarkNotificationRead: failed",
			zap.Int("notification_id", notificationID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark read"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID, _ := currentUserID(c)

	count, err := h.notifications.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("NotificationUnreadCount: failed",
			zap.Int("user_id", userID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch unread count"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}
