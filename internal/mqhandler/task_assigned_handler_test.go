package mqhandler

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	mqcontracts "github.com/mlunin-git/coaching-platform-sub000/contracts/mq"
	"github.com/mlunin-git/coaching-platform-sub000/internal/model"
)

type taskRig struct {
	handler *TaskAssignedHandler
	repo    *stubNotifications
	redis   *stubRedis
	dlq     *stubDLQ
	retries *stubRetries
}

func newTaskAssignedRig() *taskRig {
	repo := &stubNotifications{}
	rdb := &stubRedis{}
	dlq := &stubDLQ{}
	retries := newStubRetries()
	h := NewTaskAssignedHandler(repo, rdb, dlq, retries, newStubDeduper(), zap.NewNop())
	return &taskRig{handler: h, repo: repo, redis: rdb, dlq: dlq, retries: retries}
}

func taskPayload(t *testing.T, assignmentID int, clientUserID *int) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(mqcontracts.TaskAssignedPayload{
		AssignmentID: assignmentID,
		TaskID:       5,
		ClientID:     3,
		CoachID:      1,
		ClientUserID: clientUserID,
		Title:        "Journal daily",
	})
	require.NoError(t, err)
	return raw
}

func TestTaskAssignedNotifiesLinkedUser(t *testing.T) {
	rig := newTaskAssignedRig()
	userID := 7

	err := rig.handler.HandleTaskAssigned(context.Background(), taskPayload(t, 20, &userID))

	require.NoError(t, err)
	require.Len(t, rig.repo.inserted, 1)
	assert.Equal(t, 7, rig.repo.inserted[0].UserID)
	assert.Equal(t, model.NotificationTaskAssigned, rig.repo.inserted[0].Type)
	assert.Contains(t, rig.redis.published, "realtime:user:7")
}

func TestTaskAssignedSkipsUnlinkedClient(t *testing.T) {
	rig := newTaskAssignedRig()

	err := rig.handler.HandleTaskAssigned(context.Background(), taskPayload(t, 20, nil))

	require.NoError(t, err)
	assert.Empty(t, rig.repo.inserted)
}

func TestTaskAssignedRetryableFailureThenRedelivery(t *testing.T) {
	rig := newTaskAssignedRig()
	userID := 7
	raw := taskPayload(t, 20, &userID)

	rig.repo.insertErr = errConnRefused
	require.Error(t, rig.handler.HandleTaskAssigned(context.Background(), raw))

	rig.repo.insertErr = nil
	require.NoError(t, rig.handler.HandleTaskAssigned(context.Background(), raw))
	assert.Len(t, rig.repo.inserted, 1)
}

func TestTaskAssignedExhaustedRetriesGoToDLQ(t *testing.T) {
	rig := newTaskAssignedRig()
	userID := 7
	rig.repo.insertErr = errConnRefused
	rig.retries.counts["retry:task_assigned:20"] = 5

	err := rig.handler.HandleTaskAssigned(context.Background(), taskPayload(t, 20, &userID))

	require.NoError(t, err)
	assert.Equal(t, []string{mqcontracts.RoutingKeyTaskAssigned}, rig.dlq.routingKeys)
}
