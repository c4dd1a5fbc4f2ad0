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

type PlanningManager interface {
	CreateGroup(ctx context.Context, ownerID int, name string, year int, ownerName string) (*model.PlanningGroup, error)
	JoinGroup(ctx context.Context, token string, userID int, displayName string) (*model.PlanningGroup, error)
	ListGroups(ctx context.Context, userID int) ([]model.PlanningGroup, error)
	GroupDetail(ctx context.Context, groupID, userID int) (*model.PlanningGroupDetail, error)
	SubmitIdea(ctx context.Context, groupID, userID int, title, description string) (*model.PlanningIdea, error)
	ListIdeas(ctx context.Context, groupID, userID int) ([]model.PlanningIdea, error)
	Vote(ctx context.Context, groupID, ideaID, userID int) error
	Unvote(ctx context.Context, groupID, ideaID, userID int) error
	PromoteIdea(ctx context.Context, groupID, ideaID, userID, scheduledMonth int) (*model.PlanningEvent, error)
	ListEvents(ctx context.Context, groupID, userID int) ([]model.PlanningEvent, error)
}

type PlanningHandler struct {
	planning PlanningManager
	logger   *zap.Logger
}

func NewPlanningHandler(planning PlanningManager, logger *zap.Logger) *PlanningHandler {
	return &PlanningHandler{planning: planning, logger: logger}
}

type createGroupRequest struct {
	Name        string `json:"name" binding:"required"`
	Year        int    `json:"year" binding:"required"`
	DisplayName string `json:"display_name" binding:"required"`
}

func (h *PlanningHandler) CreateGroup(c *gin.Context) {
	userID, _ := currentUserID(c)

	var req createGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	g, err := h.planning.CreateGroup(c.Request.Context(), userID, req.Name, req.Year, req.DisplayName)
	if err != nil {
		h.logger.Error("CreateGroup: failed",
			zap.Int("user_id", userID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create group"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"group": g})
}

type joinGroupRequest struct {
	DisplayName string `json:"display_name" binding:"required"`
}

func (h *PlanningHandler) JoinGroup(c *gin.Context) {
	userID, _ := currentUserID(c)
	token := c.Param("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing token"})
		return
	}

	var req joinGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	g, err := h.planning.JoinGroup(c.Request.Context(), token, userID, req.DisplayName)
	if err != nil {
		if errors.Is(err, service.ErrGroupNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "group not found"})
			return
		}
		h.logger.Error("JoinGroup: failed",
			zap.Int("user_id", userID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to join group"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"group": g})
}

func (h *PlanningHandler) ListGroups(c *gin.Context) {
	userID, _ := currentUserID(c)

	groups, err := h.planning.ListGroups(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("ListGroups: failed",
			zap.Int("user_id", userID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch groups"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

func (h *PlanningHandler) GroupDetail(c *gin.Context) {
	userID, _ := currentUserID(c)
	groupID, ok := pathID(c, "id")
	if !ok {
		return
	}

	detail, err := h.planning.GroupDetail(c.Request.Context(), groupID, userID)
	if err != nil {
		h.respondPlanningError(c, err, "GroupDetail", groupID)
		return
	}

	c.JSON(http.StatusOK, gin.H{"group": detail})
}

type ideaRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

func (h *PlanningHandler) SubmitIdea(c *gin.Context) {
	userID, _ := currentUserID(c)
	groupID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req ideaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	idea, err := h.planning.SubmitIdea(c.Request.Context(), groupID, userID, req.Title, req.Description)
	if err != nil {
		h.respondPlanningError(c, err, "SubmitIdea", groupID)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"idea": idea})
}

func (h *PlanningHandler) ListIdeas(c *gin.Context) {
	userID, _ := currentUserID(c)
	groupID, ok := pathID(c, "id")
	if !ok {
		return
	}

	ideas, err := h.planning.ListIdeas(c.Request.Context(), groupID, userID)
	if err != nil {
		h.respondPlanningError(c, err, "ListIdeas", groupID)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ideas": ideas})
}

type voteRequest struct {
	GroupID int `json:"group_id" binding:"required"`
}

func (h *PlanningHandler) Vote(c *gin.Context) {
	userID, _ := currentUserID(c)
	ideaID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.planning.Vote(c.Request.Context(), req.GroupID, ideaID, userID); err != nil {
		if errors.Is(err, service.ErrAlreadyVoted) {
			c.JSON(http.StatusConflict, gin.H{"error": "already voted"})
			return
		}
		h.respondPlanningError(c, err, "Vote", req.GroupID)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *PlanningHandler) Unvote(c *gin.Context) {
	userID, _ := currentUserID(c)
	ideaID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.planning.Unvote(c.Request.Context(), req.GroupID, ideaID, userID); err != nil {
		if errors.Is(err, service.ErrNoVote) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no vote to retract"})
			return
		}
		h.respondPlanningError(c, err, "Unvote", req.GroupID)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type promoteRequest struct {
	GroupID        int `json:"group_id" binding:"required"`
	ScheduledMonth int `json:"scheduled_month" binding:"required,min=1,max=12"`
}

func (h *PlanningHandler) Promote(c *gin.Context) {
	userID, _ := currentUserID(c)
	ideaID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req promoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ev, err := h.planning.PromoteIdea(c.Request.Context(), req.GroupID, ideaID, userID, req.ScheduledMonth)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": "only the group owner can promote"})
		case errors.Is(err, service.ErrAlreadyPromoted):
			c.JSON(http.StatusConflict, gin.H{"error": "idea already promoted"})
		default:
			h.respondPlanningError(c, err, "Promote", req.GroupID)
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"event": ev})
}

func (h *PlanningHandler) ListEvents(c *gin.Context) {
	userID, _ := currentUserID(c)
	groupID, ok := pathID(c, "id")
	if !ok {
		return
	}

	events, err := h.planning.ListEvents(c.Request.Context(), groupID, userID)
	if err != nil {
		h.respondPlanningError(c, err, "ListEvents", groupID)
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (h *PlanningHandler) respondPlanningError(c *gin.Context, err error, op string, groupID int) {
	switch {
	case errors.Is(err, service.ErrGroupNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "group not found"})
	case errors.Is(err, service.ErrNotParticipant):
		c.JSON(http.StatusForbidden, gin.H{"error": "not a participant of this group"})
	default:
		h.logger.Error(op+": failed",
			zap.Int("group_id", groupID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
