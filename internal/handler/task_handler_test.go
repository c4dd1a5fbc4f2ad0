package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/mlunin-git/coaching-platform-sub000/internal/model"
	"github.com/mlunin-git/coaching-platform-sub000/internal/service"
)

type stubTasks struct {
	task        *model.Task
	tasks       []model.Task
	assignment  *model.ClientTask
	assignments []model.ClientTask
	assignErr   error
	updateErr   error
	deleteErr   error
	markErr     error
}

func (s *stubTasks) Create(ctx context.Context, coachID int, title, description string) (*model.Task, error) {
	return s.task, nil
}
func (s *stubTasks) List(ctx context.Context, coachID int) ([]model.Task, error) {
	return s.tasks, nil
}
func (s *stubTasks) Update(ctx context.Context, t *model.Task) error {
	return s.updateErr
}
func (s *stubTasks) Delete(ctx context.Context, coachID, taskID int) error {
	return s.deleteErr
}
func (s *stubTasks) Assign(ctx context.Context, coachID, taskID, clientID int, dueDate *time.Time) (*model.ClientTask, error) {
	return s.assignment, s.assignErr
}
func (s *stubTasks) MarkDone(ctx context.Context, coachID, assignmentID int) error {
	return s.markErr
}
func (s *stubTasks) ListAssignments(ctx context.Context, coachID, clientID int) ([]model.ClientTask, error) {
	return s.assignments, nil
}

func newTaskRig(stub *stubTasks) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewTaskHandler(stub, zap.NewNop())

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", 1)
		c.Set("role", model.RoleCoach)
	})
	r.POST("/tasks", h.Create)
	r.PUT("/tasks/:id", h.Update)
	r.POST("/tasks/:id/assign", h.Assign)
	r.POST("/assignments/:id/complete", h.Complete)
	r.GET("/clients/:id/tasks", h.ListForClient)
	return r
}

func TestCreateTask(t *testing.T) {
	stub := &stubTasks{task: &model.Task{ID: 1, CoachID: 1, Title: "Journal daily"}}
	r := newTaskRig(stub)

	w := doJSON(r, "POST", "/tasks", `{"title":"Journal daily"}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "Journal daily")
}

func TestUpdateTaskNotFound(t *testing.T) {
	stub := &stubTasks{updateErr: service.ErrTaskNotFound}
	r := newTaskRig(stub)

	w := doJSON(r, "PUT", "/tasks/5", `{"title":"Renamed"}`)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAssignTask(t *testing.T) {
	stub := &stubTasks{assignment: &model.ClientTask{ID: 7, TaskID: 5, ClientID: 2, Status: model.AssignmentPending}}
	r := newTaskRig(stub)

	w := doJSON(r, "POST", "/tasks/5/assign", `{"client_id":2}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"pending"`)
}

func TestAssignTaskDuplicate(t *testing.T) {
	stub := &stubTasks{assignErr: service.ErrAlreadyAssigned}
	r := newTaskRig(stub)

	w := doJSON(r, "POST", "/tasks/5/assign", `{"client_id":2}`)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAssignTaskUnknownClient(t *testing.T) {
	stub := &stubTasks{assignErr: service.ErrClientNotFound}
	r := newTaskRig(stub)

	w := doJSON(r, "POST", "/tasks/5/assign", `{"client_id":99}`)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCompleteAssignmentNotFound(t *testing.T) {
	stub := &stubTasks{markErr: service.ErrAssignmentNotFound}
	r := newTaskRig(stub)

	w := doJSON(r, "POST", "/assignments/7/complete", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListAssignmentsForClient(t *testing.T) {
	stub := &stubTasks{assignments: []model.ClientTask{{ID: 1, TaskTitle: "Journal daily", Status: model.AssignmentDone}}}
	r := newTaskRig(stub)

	w := doJSON(r, "GET", "/clients/2/tasks", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Journal daily")
}
