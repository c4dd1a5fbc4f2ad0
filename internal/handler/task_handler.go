package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mlunin-git/coaching-platform-sub000/internal/model"
	"github.com/mlunin-git/coaching-platform-sub000/internal/service"
)

type TaskManager interface {
	Create(ctx context.Context, coachID int, title, description string) (*model.Task, error)
	List(ctx context.Context, coachID int) ([]model.Task, error)
	Update(ctx context.Context, t *model.Task) error
	Delete(ctx context.Context, coachID, taskID int) error
	Assign(ctx context.Context, coachID, taskID, clientID int, dueDate *time.Time) (*model.ClientTask, error)
	MarkDone(ctx context.Context, coachID, assignmentID int) error
	ListAssignments(ctx context.Context, coachID, clientID int) ([]model.ClientTask, error)
}

type TaskHandler struct {
	tasks  TaskManager
	logger *zap.Logger
}

func NewTaskHandler(tasks TaskManager, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{tasks: tasks, logger: logger}
}

type taskRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

func (h *TaskHandler) Create(c *gin.Context) {
	coachID, _ := currentUserID(c)

	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	t, err := h.tasks.Create(c.Request.Context(), coachID, req.Title, req.Description)
	if err != nil {
		h.logger.Error("CreateTask: failed",
			zap.Int("coach_id", coachID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create task"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"task": t})
}

func (h *TaskHandler) List(c *gin.Context) {
	coachID, _ := currentUserID(c)

	tasks, err := h.tasks.List(c.Request.Context(), coachID)
	if err != nil {
		h.logger.Error("ListTasks: failed",
			zap.Int("coach_id", coachID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch tasks"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

func (h *TaskHandler) Update(c *gin.Context) {
	coachID, _ := currentUserID(c)
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	t := &model.Task{
		ID:          taskID,
		CoachID:     coachID,
		Title:       req.Title,
		Description: req.Description,
	}
	if err := h.tasks.Update(c.Request.Context(), t); err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
			return
		}
		h.logger.Error("UpdateTask: failed",
			zap.Int("task_id", taskID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update task"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"task": t})
}

func (h *TaskHandler) Delete(c *gin.Context) {
	coachID, _ := currentUserID(c)
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.tasks.Delete(c.Request.Context(), coachID, taskID); err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
			return
		}
		h.logger.Error("DeleteTask: failed",
			zap.Int("task_id", taskID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete task"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type assignRequest struct {
	ClientID int        `json:"client_id" binding:"required"`
	DueDate  *time.Time `json:"due_date"`
}

func (h *TaskHandler) Assign(c *gin.Context) {
	coachID, _ := currentUserID(c)
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ct, err := h.tasks.Assign(c.Request.Context(), coachID, taskID, req.ClientID, req.DueDate)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTaskNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		case errors.Is(err, service.ErrClientNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
		case errors.Is(err, service.ErrAlreadyAssigned):
			c.JSON(http.StatusConflict, gin.H{"error": "task already assigned to this client"})
		default:
			h.logger.Error("AssignTask: failed",
				zap.Int("task_id", taskID),
				zap.Int("client_id", req.ClientID),
				zap.Error(err),
			)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to assign task"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"assignment": ct})
}

func (h *TaskHandler) Complete(c *gin.Context) {
	coachID, _ := currentUserID(c)
	assignmentID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.tasks.MarkDone(c.Request.Context(), coachID, assignmentID); err != nil {
		if errors.Is(err, service.ErrAssignmentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "assignment not found"})
			return
		}
		h.logger.Error("CompleteAssignment: failed",
			zap.Int("assignment_id", assignmentID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to complete assignment"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *TaskHandler) ListForClient(c *gin.Context) {
	coachID, _ := currentUserID(c)
	clientID, ok := pathID(c, "id")
	if !ok {
		return
	}

	assignments, err := h.tasks.ListAssignments(c.Request.Context(), coachID, clientID)
	if err != nil {
		if errors.Is(err, service.ErrClientNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
			return
		}
		h.logger.Error("ListClientTasks: failed",
			zap.Int("client_id", clientID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch assignments"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"assignments": assignments})
}
