// Package ratelimit implements a per-identifier sliding-window limiter in
// process memory. Good enough for a single API instance; it does not
// coordinate across servers.
package ratelimit

import (
	"sync"
	"time"
)

type SlidingWindow struct {
	mu      sync.Mutex
	window  time.Duration
	limit   int
	hits    map[string][]time.Time
	nowFunc func() time.Time
}

func NewSlidingWindow(window time.Duration, limit int) *SlidingWindow {
	return &SlidingWindow{
		window:  window,
		limit:   limit,
		hits:    make(map[string][]time.Time),
		nowFunc: time.Now,
	}
}

// Allow records a hit for the identifier and reports whether it is within
// the limit for the current window.
func (l *SlidingWindow) Allow(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	cutoff := now.Add(-l.window)

	recent := l.hits[id][:0]
	for _, t := range l.hits[id] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= l.limit {
		l.hits[id] = recent
		return false
	}

	l.hits[id] = append(recent, now)
	return true
}

// Remaining returns how many hits the identifier has left in the window.
func (l *SlidingWindow) Remaining(id string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.nowFunc().Add(-l.window)
	count := 0
	for _, t := range l.hits[id] {
		if t.After(cutoff) {
			count++
		}
	}
	if count >= l.limit {
		return 0
	}
	return l.limit - count
}

// Cleanup drops identifiers whose hits all fell out of the window.
func (l *SlidingWindow) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.nowFunc().Add(-l.window)
	for id, hits := range l.hits {
		alive := false
		for _, t := range hits {
			if t.After(cutoff) {
				alive = true
				break
			}
		}
		if !alive {
			delete(l.hits, id)
		}
	}
}

// StartCleanup runs Cleanup on an interval until stop is closed.
func (l *SlidingWindow) StartCleanup(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			l.Cleanup()
		}
	}
}
