package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mlunin-git/coaching-platform-sub000/internal/model"
	"github.com/mlunin-git/coaching-platform-sub000/internal/service"
)

type WheelManager interface {
	RecordAssessment(ctx context.Context, coachID, clientID int, scores map[string]int) error
	LatestScores(ctx context.Context, coachID, clientID int) ([]model.WheelScore, error)
}

type WheelHandler struct {
	wheel  WheelManager
	logger *zap.Logger
}

func NewWheelHandler(wheel WheelManager, logger *zap.Logger) *WheelHandler {
	return &WheelHandler{wheel: wheel, logger: logger}
}

type wheelRequest struct {
	Scores map[string]int `json:"scores" binding:"required"`
}

func (h *WheelHandler) Record(c *gin.Context) {
	coachID, _ := currentUserID(c)
	clientID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req wheelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.wheel.RecordAssessment(c.Request.Context(), coachID, clientID, req.Scores); err != nil {
		switch {
		case errors.Is(err, service.ErrClientNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
		case errors.Is(err, service.ErrInvalidWheelScores):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			h.logger.Error("RecordWheel: failed",
				zap.Int("client_id", clientID),
				zap.Error(err),
			)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record assessment"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *WheelHandler) Latest(c *gin.Context) {
	coachID, _ := currentUserID(c)
	clientID, ok := pathID(c, "id")
	if !ok {
		return
	}

	scores, err := h.wheel.LatestScores(c.Request.Context(), coachID, clientID)
	if err != nil {
		if errors.Is(err, service.ErrClientNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
			return
		}
		h.logger.Error("LatestWheel: failed",
			zap.Int("client_id", clientID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch scores"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"scores": scores})
}
