package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffDelayDoubles(t *testing.T) {
	assert.Equal(t, 500*time.Millisecond, BackoffDelay(1))
	assert.Equal(t, 1*time.Second, BackoffDelay(2))
	assert.Equal(t, 2*time.Second, BackoffDelay(3))
	assert.Equal(t, 4*time.Second, BackoffDelay(4))
	assert.Equal(t, 8*time.Second, BackoffDelay(5))
}

func TestBackoffDelayCapped(t *testing.T) {
	assert.Equal(t, backoffCap, BackoffDelay(6))
	assert.Equal(t, backoffCap, BackoffDelay(20))
	// 移位溢出也要落在上限
	assert.Equal(t, backoffCap, BackoffDelay(70))
}

func TestUserIDFromChannel(t *testing.T) {
	id, ok := userIDFromChannel("realtime:user:42")
	assert.True(t, ok)
	assert.Equal(t, 42, id)

	_, ok = userIDFromChannel("realtime:user:abc")
	assert.False(t, ok)

	_, ok = userIDFromChannel("other:channel")
	assert.False(t, ok)
}
