package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowWithinLimit(t *testing.T) {
	l := NewSlidingWindow(time.Minute, 3)

	assert.True(t, l.Allow("1.2.3.4"))
	assert.True(t, l.Allow("1.2.3.4"))
	assert.True(t, l.Allow("1.2.3.4"))
	assert.False(t, l.Allow("1.2.3.4"), "fourth hit must be rejected")
}

func TestIdentifiersAreIndependent(t *testing.T) {
	l := NewSlidingWindow(time.Minute, 1)

	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))
}

func TestWindowSlides(t *testing.T) {
	l := NewSlidingWindow(time.Minute, 2)

	now := time.Now()
	l.nowFunc = func() time.Time { return now }

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))

	// 窗口滑过后应重新放行
	l.nowFunc = func() time.Time { return now.Add(61 * time.Second) }
	assert.True(t, l.Allow("a"))
}

func TestRejectedHitIsNotCounted(t *testing.T) {
	l := NewSlidingWindow(time.Minute, 1)

	now := time.Now()
	l.nowFunc = func() time.Time { return now }

	assert.True(t, l.Allow("a"))
	for i := 0; i < 5; i++ {
		assert.False(t, l.Allow("a"))
	}

	// 被拒绝的请求不延长封禁
	l.nowFunc = func() time.Time { return now.Add(61 * time.Second) }
	assert.True(t, l.Allow("a"))
}

func TestRemaining(t *testing.T) {
	l := NewSlidingWindow(time.Minute, 3)

	assert.Equal(t, 3, l.Remaining("a"))
	l.Allow("a")
	assert.Equal(t, 2, l.Remaining("a"))
	l.Allow("a")
	l.Allow("a")
	assert.Equal(t, 0, l.Remaining("a"))
}

func TestCleanup(t *testing.T) {
	l := NewSlidingWindow(time.Minute, 3)

	now := time.Now()
	l.nowFunc = func() time.Time { return now }

	l.Allow("stale")
	l.nowFunc = func() time.Time { return now.Add(2 * time.Minute) }
	l.Allow("live")

	l.Cleanup()

	l.mu.Lock()
	_, staleExists := l.hits["stale"]
	_, liveExists := l.hits["live"]
	l.mu.Unlock()
	assert.False(t, staleExists)
	assert.True(t, liveExists)
}
