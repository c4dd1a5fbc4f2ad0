package mqhandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	mqcontracts "github.com/mlunin-git/coaching-platform-sub000/contracts/mq"
	"github.com/mlunin-git/coaching-platform-sub000/internal/model"
)

type stubNotifications struct {
	inserted  []model.Notification
	insertErr error
	panicNext bool
}

func (s *stubNotifications) Insert(ctx context.Context, n *model.Notification) error {
	if s.panicNext {
		s.panicNext = false
		panic("notification store blew up")
	}
	if s.insertErr != nil {
		return s.insertErr
	}
	n.ID = len(s.inserted) + 1
	s.inserted = append(s.inserted, *n)
	return nil
}

type stubParticipants struct {
	participants []model.PlanningParticipant
	err          error
}

func (s *stubParticipants) ListParticipants(ctx context.Context, groupID int) ([]model.PlanningParticipant, error) {
	return s.participants, s.err
}

type stubRedis struct {
	published []string
}

func (s *stubRedis) Incr(ctx context.Context, key string) *goredis.IntCmd {
	return goredis.NewIntResult(1, nil)
}

func (s *stubRedis) Expire(ctx context.Context, key string, expiration time.Duration) *goredis.BoolCmd {
	return goredis.NewBoolResult(true, nil)
}

func (s *stubRedis) Publish(ctx context.Context, channel string, message interface{}) *goredis.IntCmd {
	s.published = append(s.published, channel)
	return goredis.NewIntResult(1, nil)
}

type stubDeduper struct {
	keys map[string]bool
}

func newStubDeduper() *stubDeduper {
	return &stubDeduper{keys: map[string]bool{}}
}

func (s *stubDeduper) AcquireOnce(ctx context.Context, handler string, entityID int) bool {
	k := fmt.Sprintf("%s:%d", handler, entityID)
	if s.keys[k] {
		return false
	}
	s.keys[k] = true
	return true
}

func (s *stubDeduper) Release(ctx context.Context, handler string, entityID int) error {
	delete(s.keys, fmt.Sprintf("%s:%d", handler, entityID))
	return nil
}

type stubRetries struct {
	counts map[string]int64
}

func newStubRetries() *stubRetries {
	return &stubRetries{counts: map[string]int64{}}
}

func (s *stubRetries) IncrementAndGet(ctx context.Context, key string) (int64, error) {
	s.counts[key]++
	return s.counts[key], nil
}

func (s *stubRetries) Reset(ctx context.Context, key string) error {
	delete(s.counts, key)
	return nil
}

type stubDLQ struct {
	routingKeys []string
	causes      []string
}

func (s *stubDLQ) PublishToDLQ(routingKey string, payload []byte, originalError string) error {
	s.routingKeys = append(s.routingKeys, routingKey)
	s.causes = append(s.causes, originalError)
	return nil
}

type messageRig struct {
	handler *MessageCreatedHandler
	repo    *stubNotifications
	redis   *stubRedis
	dlq     *stubDLQ
	deduper *stubDeduper
	retries *stubRetries
}

func newMessageRig() *messageRig {
	repo := &stubNotifications{}
	rdb := &stubRedis{}
	dlq := &stubDLQ{}
	deduper := newStubDeduper()
	retries := newStubRetries()
	h := NewMessageCreatedHandler(repo, rdb, dlq, retries, deduper, zap.NewNop())
	return &messageRig{handler: h, repo: repo, redis: rdb, dlq: dlq, deduper: deduper, retries: retries}
}

func messagePayload(t *testing.T, id int) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(mqcontracts.MessageCreatedPayload{
		MessageID:   id,
		SenderID:    1,
		RecipientID: 2,
		Preview:     "hello",
		CreatedAt:   time.Now(),
	})
	require.NoError(t, err)
	return raw
}

var errConnRefused = errors.New("failed to connect to postgres: connection refused")

func TestMessageCreatedInsertsAndPublishes(t *testing.T) {
	rig := newMessageRig()

	err := rig.handler.HandleMessageCreated(context.Background(), messagePayload(t, 10))

	require.NoError(t, err)
	require.Len(t, rig.repo.inserted, 1)
	assert.Equal(t, 2, rig.repo.inserted[0].UserID)
	assert.Equal(t, model.NotificationNewMessage, rig.repo.inserted[0].Type)
	assert.Contains(t, rig.redis.published, "realtime:user:2")
}

func TestMessageCreatedDuplicateSkipped(t *testing.T) {
	rig := newMessageRig()
	raw := messagePayload(t, 10)

	require.NoError(t, rig.handler.HandleMessageCreated(context.Background(), raw))
	require.NoError(t, rig.handler.HandleMessageCreated(context.Background(), raw))

	assert.Len(t, rig.repo.inserted, 1)
}

// A retryable failure must not leave the dedup key behind, otherwise the
// requeued delivery is treated as a duplicate and acked with no work done.
func TestMessageCreatedRetryableFailureThenRedelivery(t *testing.T) {
	rig := newMessageRig()
	raw := messagePayload(t, 10)

	rig.repo.insertErr = errConnRefused
	err := rig.handler.HandleMessageCreated(context.Background(), raw)
	require.Error(t, err)
	assert.Empty(t, rig.repo.inserted)

	rig.repo.insertErr = nil
	err = rig.handler.HandleMessageCreated(context.Background(), raw)
	require.NoError(t, err)
	require.Len(t, rig.repo.inserted, 1)
	assert.Empty(t, rig.retries.counts)
}

func TestMessageCreatedRetryCountGrowsAcrossRedeliveries(t *testing.T) {
	rig := newMessageRig()
	raw := messagePayload(t, 10)
	rig.repo.insertErr = errConnRefused

	for i := 0; i < 3; i++ {
		require.Error(t, rig.handler.HandleMessageCreated(context.Background(), raw))
	}

	assert.Equal(t, int64(3), rig.retries.counts["retry:message_created:10"])
}

func TestMessageCreatedNonRetryableGoesToDLQ(t *testing.T) {
	rig := newMessageRig()
	rig.repo.insertErr = errors.New("duplicate key value violates unique constraint (SQLSTATE 23505)")

	err := rig.handler.HandleMessageCreated(context.Background(), messagePayload(t, 10))

	require.NoError(t, err)
	assert.Equal(t, []string{mqcontracts.RoutingKeyMessageCreated}, rig.dlq.routingKeys)
	assert.Empty(t, rig.retries.counts)
}

func TestMessageCreatedExhaustedRetriesGoToDLQ(t *testing.T) {
	rig := newMessageRig()
	rig.repo.insertErr = errConnRefused
	rig.retries.counts["retry:message_created:10"] = 5

	err := rig.handler.HandleMessageCreated(context.Background(), messagePayload(t, 10))

	require.NoError(t, err)
	assert.Equal(t, []string{mqcontracts.RoutingKeyMessageCreated}, rig.dlq.routingKeys)
	assert.Empty(t, rig.retries.counts)
}

func TestMessageCreatedBadPayloadGoesToDLQ(t *testing.T) {
	rig := newMessageRig()

	err := rig.handler.HandleMessageCreated(context.Background(), json.RawMessage(`{not json`))

	require.NoError(t, err)
	assert.Equal(t, []string{mqcontracts.RoutingKeyMessageCreated}, rig.dlq.routingKeys)
}

// A panic mid-processing must surface as an error so the consumer nacks and
// requeues, and the redelivery must not be deduped away.
func TestMessageCreatedPanicReturnsErrorAndAllowsRedelivery(t *testing.T) {
	rig := newMessageRig()
	raw := messagePayload(t, 10)

	rig.repo.panicNext = true
	err := rig.handler.HandleMessageCreated(context.Background(), raw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic")

	err = rig.handler.HandleMessageCreated(context.Background(), raw)
	require.NoError(t, err)
	assert.Len(t, rig.repo.inserted, 1)
}
