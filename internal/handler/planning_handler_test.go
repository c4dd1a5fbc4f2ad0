package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/mlunin-git/coaching-platform-sub000/internal/model"
	"github.com/mlunin-git/coaching-platform-sub000/internal/service"
)

type stubPlanning struct {
	group      *model.PlanningGroup
	detail     *model.PlanningGroupDetail
	idea       *model.PlanningIdea
	ideas      []model.PlanningIdea
	event      *model.PlanningEvent
	events     []model.PlanningEvent
	groups     []model.PlanningGroup
	voteErr    error
	unvoteErr  error
	promoteErr error
	detailErr  error
	joinErr    error
}

func (s *stubPlanning) CreateGroup(ctx context.Context, ownerID int, name string, year int, ownerName string) (*model.PlanningGroup, error) {
	return s.group, nil
}
func (s *stubPlanning) JoinGroup(ctx context.Context, token string, userID int, displayName string) (*model.PlanningGroup, error) {
	return s.group, s.joinErr
}
func (s *stubPlanning) ListGroups(ctx context.Context, userID int) ([]model.PlanningGroup, error) {
	return s.groups, nil
}
func (s *stubPlanning) GroupDetail(ctx context.Context, groupID, userID int) (*model.PlanningGroupDetail, error) {
	return s.detail, s.detailErr
}
func (s *stubPlanning) SubmitIdea(ctx context.Context, groupID, userID int, title, description string) (*model.PlanningIdea, error) {
	return s.idea, nil
}
func (s *stubPlanning) ListIdeas(ctx context.Context, groupID, userID int) ([]model.PlanningIdea, error) {
	return s.ideas, nil
}
func (s *stubPlanning) Vote(ctx context.Context, groupID, ideaID, userID int) error {
	return s.voteErr
}
func (s *stubPlanning) Unvote(ctx context.Context, groupID, ideaID, userID int) error {
	return s.unvoteErr
}
func (s *stubPlanning) PromoteIdea(ctx context.Context, groupID, ideaID, userID, scheduledMonth int) (*model.PlanningEvent, error) {
	return s.event, s.promoteErr
}
func (s *stubPlanning) ListEvents(ctx context.Context, groupID, userID int) ([]model.PlanningEvent, error) {
	return s.events, nil
}

func newPlanningRig(stub *stubPlanning) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewPlanningHandler(stub, zap.NewNop())

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", 1)
		c.Set("role", model.RoleCoach)
	})
	r.POST("/planning/groups", h.CreateGroup)
	r.GET("/planning/groups/:id", h.GroupDetail)
	r.POST("/planning/join/:token", h.JoinGroup)
	r.POST("/planning/ideas/:id/vote", h.Vote)
	r.DELETE("/planning/ideas/:id/vote", h.Unvote)
	r.POST("/planning/ideas/:id/promote", h.Promote)
	return r
}

func doJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestCreateGroupReturnsToken(t *testing.T) {
	stub := &stubPlanning{group: &model.PlanningGroup{ID: 1, OwnerID: 1, Name: "2027", Year: 2027, JoinToken: "aB3xYz"}}
	r := newPlanningRig(stub)

	w := doJSON(r, "POST", "/planning/groups", `{"name":"2027","year":2027,"display_name":"Sam"}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "aB3xYz")
}

func TestJoinGroupUnknownToken(t *testing.T) {
	stub := &stubPlanning{joinErr: service.ErrGroupNotFound}
	r := newPlanningRig(stub)

	w := doJSON(r, "POST", "/planning/join/badtoken", `{"display_name":"Sam"}`)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGroupDetailNotParticipant(t *testing.T) {
	stub := &stubPlanning{detailErr: service.ErrNotParticipant}
	r := newPlanningRig(stub)

	w := doJSON(r, "GET", "/planning/groups/3", "")

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestVoteConflict(t *testing.T) {
	stub := &stubPlanning{voteErr: service.ErrAlreadyVoted}
	r := newPlanningRig(stub)

	w := doJSON(r, "POST", "/planning/ideas/9/vote", `{"group_id":3}`)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "already voted")
}

func TestUnvoteWithoutVote(t *testing.T) {
	stub := &stubPlanning{unvoteErr: service.ErrNoVote}
	r := newPlanningRig(stub)

	w := doJSON(r, "DELETE", "/planning/ideas/9/vote", `{"group_id":3}`)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPromoteRequiresOwner(t *testing.T) {
	stub := &stubPlanning{promoteErr: service.ErrNotOwner}
	r := newPlanningRig(stub)

	w := doJSON(r, "POST", "/planning/ideas/9/promote", `{"group_id":3,"scheduled_month":6}`)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestPromoteAlreadyPromoted(t *testing.T) {
	stub := &stubPlanning{promoteErr: service.ErrAlreadyPromoted}
	r := newPlanningRig(stub)

	w := doJSON(r, "POST", "/planning/ideas/9/promote", `{"group_id":3,"scheduled_month":6}`)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestPromoteRejectsBadMonth(t *testing.T) {
	stub := &stubPlanning{event: &model.PlanningEvent{ID: 1}}
	r := newPlanningRig(stub)

	w := doJSON(r, "POST", "/planning/ideas/9/promote", `{"group_id":3,"scheduled_month":13}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPromoteSuccess(t *testing.T) {
	stub := &stubPlanning{event: &model.PlanningEvent{ID: 4, GroupID: 3, IdeaID: 9, Title: "Ski trip", ScheduledMonth: 2}}
	r := newPlanningRig(stub)

	w := doJSON(r, "POST", "/planning/ideas/9/promote", `{"group_id":3,"scheduled_month":2}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "Ski trip")
}
