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

type ideaRig struct {
	handler      *IdeaPromotedHandler
	repo         *stubNotifications
	participants *stubParticipants
	redis        *stubRedis
	dlq          *stubDLQ
}

func newIdeaPromotedRig() *ideaRig {
	repo := &stubNotifications{}
	participants := &stubParticipants{
		participants: []model.PlanningParticipant{
			{ID: 1, GroupID: 3, UserID: 1, DisplayName: "Owner"},
			{ID: 2, GroupID: 3, UserID: 4, DisplayName: "Sam"},
			{ID: 3, GroupID: 3, UserID: 9, DisplayName: "Alex"},
		},
	}
	rdb := &stubRedis{}
	dlq := &stubDLQ{}
	h := NewIdeaPromotedHandler(repo, participants, rdb, dlq, newStubRetries(), newStubDeduper(), zap.NewNop())
	return &ideaRig{handler: h, repo: repo, participants: participants, redis: rdb, dlq: dlq}
}

func ideaPayload(t *testing.T, eventID int) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(mqcontracts.IdeaPromotedPayload{
		EventID:        eventID,
		IdeaID:         9,
		GroupID:        3,
		Title:          "Ski trip",
		ScheduledMonth: 2,
		PromotedBy:     1,
	})
	require.NoError(t, err)
	return raw
}

func TestIdeaPromotedNotifiesParticipantsExceptPromoter(t *testing.T) {
	rig := newIdeaPromotedRig()

	err := rig.handler.HandleIdeaPromoted(context.Background(), ideaPayload(t, 30))

	require.NoError(t, err)
	require.Len(t, rig.repo.inserted, 2)
	assert.Equal(t, 4, rig.repo.inserted[0].UserID)
	assert.Equal(t, 9, rig.repo.inserted[1].UserID)
	assert.Contains(t, rig.repo.inserted[0].Content, "Ski trip")
	assert.Contains(t, rig.redis.published, "realtime:user:4")
	assert.Contains(t, rig.redis.published, "realtime:user:9")
}

func TestIdeaPromotedRetryableFailureThenRedelivery(t *testing.T) {
	rig := newIdeaPromotedRig()
	raw := ideaPayload(t, 30)

	rig.participants.err = errConnRefused
	require.Error(t, rig.handler.HandleIdeaPromoted(context.Background(), raw))
	assert.Empty(t, rig.repo.inserted)

	rig.participants.err = nil
	require.NoError(t, rig.handler.HandleIdeaPromoted(context.Background(), raw))
	assert.Len(t, rig.repo.inserted, 2)
}

func TestIdeaPromotedBadPayloadGoesToDLQ(t *testing.T) {
	rig := newIdeaPromotedRig()

	err := rig.handler.HandleIdeaPromoted(context.Background(), json.RawMessage(`[broken`))

	require.NoError(t, err)
	assert.Equal(t, []string{mqcontracts.RoutingKeyIdeaPromoted}, rig.dlq.routingKeys)
}
