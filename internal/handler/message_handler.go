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

type MessageManager interface {
	Send(ctx context.Context, senderID, recipientID int, body string) (*model.Message, error)
	Conversation(ctx context.Context, userID, peerID, limit, offset int) ([]model.Message, error)
	UnreadCounts(ctx context.Context, userID int) ([]model.UnreadCount, error)
	MarkRead(ctx context.Context, userID, peerID int) error
}

type MessageHandler struct {
	messages MessageManager
	logger   *zap.Logger
}

func NewMessageHandler(messages MessageManager, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{messages: messages, logger: logger}
}

type sendMessageRequest struct {
	RecipientID int    `json:"recipient_id" binding:"required"`
	Body        string `json:"body" binding:"required"`
}

func (h *MessageHandler) Send(c *gin.Context) {
	senderID, _ := currentUserID(c)

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.RecipientID == senderID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot message yourself"})
		return
	}

	m, err := h.messages.Send(c.Request.Context(), senderID, req.RecipientID, req.Body)
	if err != nil {
		if errors.Is(err, service.ErrRecipientNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "recipient not found"})
			return
		}
		h.logger.Error("SendMessage: failed",
			zap.Int("sender_id", senderID),
			zap.Int("recipient_id", req.RecipientID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send message"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": m})
}

func (h *MessageHandler) Conversation(c *gin.Context) {
	userID, _ := currentUserID(c)
	peerID, ok := pathID(c, "userID")
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	messages, err := h.messages.Conversation(c.Request.Context(), userID, peerID, limit, offset)
	if err != nil {
		h.logger.Error("Conversation: failed",
			zap.Int("user_id", userID),
			zap.Int("peer_id", peerID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

func (h *MessageHandler) Unread(c *gin.Context) {
	userID, _ := currentUserID(c)

	counts, err := h.messages.UnreadCounts(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("UnreadCounts: failed",
			zap.Int("user_id", userID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch unread counts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"unread": counts})
}

func (h *MessageHandler) MarkRead(c *gin.Context) {
	userID, _ := currentUserID(c)
	peerID, ok := pathID(c, "userID")
	if !ok {
		return
	}

	if err := h.messages.MarkRead(c.Request.Context(), userID, peerID); err != nil {
		h.logger.Error("MarkRead: failed",
			zap.Int("user_id", userID),
			zap.Int("peer_id", peerID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark read"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
