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

type ClientManager interface {
	Create(ctx context.Context, c *model.Client) error
	List(ctx context.Context, coachID int) ([]model.Client, error)
	Get(ctx context.Context, coachID, clientID int) (*model.Client, error)
	Update(ctx context.Context, c *model.Client) error
	Delete(ctx context.Context, coachID, clientID int) error
}

type ClientHandler struct {
	clients ClientManager
	logger  *zap.Logger
}

func NewClientHandler(clients ClientManager, logger *zap.Logger) *ClientHandler {
	return &ClientHandler{clients: clients, logger: logger}
}

type clientRequest struct {
	Identifier  string `json:"identifier" binding:"required"`
	DisplayName string `json:"display_name" binding:"required"`
	Email       string `json:"email"`
	Notes       string `json:"notes"`
	UserID      *int   `json:"user_id"`
}

func (h *ClientHandler) Create(c *gin.Context) {
	coachID, _ := currentUserID(c)

	var req clientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	client := &model.Client{
		CoachID:     coachID,
		Identifier:  req.Identifier,
		DisplayName: req.DisplayName,
		Email:       req.Email,
		Notes:       req.Notes,
		UserID:      req.UserID,
	}
	if err := h.clients.Create(c.Request.Context(), client); err != nil {
		if errors.Is(err, service.ErrIdentifierTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "identifier already in use"})
			return
		}
		h.logger.Error("CreateClient: failed",
			zap.Int("coach_id", coachID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create client"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"client": client})
}

func (h *ClientHandler) List(c *gin.Context) {
	coachID, _ := currentUserID(c)

	clients, err := h.clients.List(c.Request.Context(), coachID)
	if err != nil {
		h.logger.Error("ListClients: failed",
			zap.Int("coach_id", coachID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch clients"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"clients": clients})
}

func (h *ClientHandler) Get(c *gin.Context) {
	coachID, _ := currentUserID(c)
	clientID, ok := pathID(c, "id")
	if !ok {
		return
	}

	client, err := h.clients.Get(c.Request.Context(), coachID, clientID)
	if err != nil {
		if errors.Is(err, service.ErrClientNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
			return
		}
		h.logger.Error("GetClient: failed",
			zap.Int("client_id", clientID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch client"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"client": client})
}

func (h *ClientHandler) Update(c *gin.Context) {
	coachID, _ := currentUserID(c)
	clientID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req clientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	client := &model.Client{
		ID:          clientID,
		CoachID:     coachID,
		Identifier:  req.Identifier,
		DisplayName: req.DisplayName,
		Email:       req.Email,
		Notes:       req.Notes,
	}
	if err := h.clients.Update(c.Request.Context(), client); err != nil {
		switch {
		case errors.Is(err, service.ErrClientNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
		case errors.Is(err, service.ErrIdentifierTaken):
			c.JSON(http.StatusConflict, gin.H{"error": "identifier already in use"})
		default:
			h.logger.Error("UpdateClient: failed",
				zap.Int("client_id", clientID),
				zap.Error(err),
			)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update client"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"client": client})
}

func (h *ClientHandler) Delete(c *gin.Context) {
	coachID, _ := currentUserID(c)
	clientID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.clients.Delete(c.Request.Context(), coachID, clientID); err != nil {
		if errors.Is(err, service.ErrClientNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
			return
		}
		h.logger.Error("DeleteClient: failed",
			zap.Int("client_id", clientID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete client"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
