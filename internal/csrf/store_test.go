package csrf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndConsume(t *testing.T) {
	store := NewStore(time.Minute)

	token, err := store.Issue("session-1")
	require.NoError(t, err)
	assert.Len(t, token, 64) // 32 bytes hex encoded

	assert.True(t, store.Consume("session-1", token))
}

func TestConsumeIsSingleUse(t *testing.T) {
	store := NewStore(time.Minute)

	token, err := store.Issue("session-1")
	require.NoError(t, err)

	assert.True(t, store.Consume("session-1", token))
	assert.False(t, store.Consume("session-1", token), "second consume must fail")
}

func TestConsumeWrongToken(t *testing.T) {
	store := NewStore(time.Minute)

	token, err := store.Issue("session-1")
	require.NoError(t, err)

	assert.False(t, store.Consume("session-1", "not-the-token"))
	// a failed attempt must not burn the real token
	assert.True(t, store.Consume("session-1", token))
}

func TestConsumeUnknownSession(t *testing.T) {
	store := NewStore(time.Minute)
	assert.False(t, store.Consume("nope", "anything"))
}

func TestIssueReplacesPreviousToken(t *testing.T) {
	store := NewStore(time.Minute)

	first, err := store.Issue("session-1")
	require.NoError(t, err)
	second, err := store.Issue("session-1")
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	assert.False(t, store.Consume("session-1", first))

	// 上一次 Consume 失败不应消耗新 token
	second, err = store.Issue("session-1")
	require.NoError(t, err)
	assert.True(t, store.Consume("session-1", second))
}

func TestConsumeExpiredToken(t *testing.T) {
	store := NewStore(time.Minute)

	now := time.Now()
	store.nowFunc = func() time.Time { return now }

	token, err := store.Issue("session-1")
	require.NoError(t, err)

	store.nowFunc = func() time.Time { return now.Add(2 * time.Minute) }
	assert.False(t, store.Consume("session-1", token))
}

func TestSweepDropsExpired(t *testing.T) {
	store := NewStore(time.Minute)

	now := time.Now()
	store.nowFunc = func() time.Time { return now }

	_, err := store.Issue("old")
	require.NoError(t, err)

	store.nowFunc = func() time.Time { return now.Add(2 * time.Minute) }
	_, err = store.Issue("fresh")
	require.NoError(t, err)

	removed := store.Sweep()
	assert.Equal(t, 1, removed)

	store.mu.Lock()
	_, oldExists := store.tokens["old"]
	_, freshExists := store.tokens["fresh"]
	store.mu.Unlock()
	assert.False(t, oldExists)
	assert.True(t, freshExists)
}

func TestDefaultTTL(t *testing.T) {
	store := NewStore(0)
	assert.Equal(t, 15*time.Minute, store.ttl)
}
