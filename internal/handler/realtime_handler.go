package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	rtcontracts "github.com/mlunin-git/coaching-platform-sub000/contracts/realtime"
	"github.com/mlunin-git/coaching-platform-sub000/internal/ratelimit"
	"github.com/mlunin-git/coaching-platform-sub000/internal/realtime"
	"github.com/mlunin-git/coaching-platform-sub000/pkg/metrics"
)

type RealtimeHandler struct {
	hub      *realtime.Hub
	messages MessageManager
	limiter  *ratelimit.SlidingWindow
	logger   *zap.Logger
}

func NewRealtimeHandler(hub *realtime.Hub, messages MessageManager, limiter *ratelimit.SlidingWindow, logger *zap.Logger) *RealtimeHandler {
	return &RealtimeHandler{
		hub:      hub,
		messages: messages,
		limiter:  limiter,
		logger:   logger,
	}
}

// Stream holds an SSE connection open and forwards the user's realtime
// events. Message events delivered over an open stream are marked read, the
// same way an open chat window would.
func (h *RealtimeHandler) Stream(c *gin.Context) {
	userID, _ := currentUserID(c)

	if !h.limiter.Allow(fmt.Sprintf("stream:%d", userID)) {
		metrics.IncrementRateLimitRejection("stream")
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many subscription attempts"})
		return
	}

	events, cancel := h.hub.Subscribe(userID)
	defer cancel()

	h.logger.Info("Realtime stream opened",
		zap.Int("user_id", userID),
		zap.String("client_ip", c.ClientIP()),
	)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev, ok := <-events:
			if !ok {
				return false
			}
			if ev.Type == rtcontracts.EventMessageCreated {
				h.markDelivered(c, userID, ev.Payload)
			}
			c.SSEvent(ev.Type, string(ev.Payload))
			return true
		}
	})

	h.logger.Info("Realtime stream closed", zap.Int("user_id", userID))
}

// markDelivered marks a message read as soon as it reaches an open stream.
func (h *RealtimeHandler) markDelivered(c *gin.Context, userID int, payload json.RawMessage) {
	var ev struct {
		SenderID int `json:"sender_id"`
	}
	if err := json.Unmarshal(payload, &ev); err != nil || ev.SenderID == 0 {
		return
	}
	if err := h.messages.MarkRead(c.Request.Context(), userID, ev.SenderID); err != nil {
		h.logger.Warn("Failed to mark delivered message read",
			zap.Int("user_id", userID),
			zap.Int("sender_id", ev.SenderID),
			zap.Error(err),
		)
	}
}
