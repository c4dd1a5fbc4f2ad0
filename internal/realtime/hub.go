// Package realtime fans events out to connected users. The worker publishes
// to per-user Redis channels; the Bridge relays them into the Hub, which
// delivers to every open SSE stream for that user.
package realtime

import (
	"sync"

	"github.com/mlunin-git/coaching-platform-sub000/contracts/realtime"
	"github.com/mlunin-git/coaching-platform-sub000/pkg/metrics"
)

// subscriber buffer: events beyond this are dropped for that subscriber
// rather than blocking the bridge.
const subscriberBuffer = 16

type Hub struct {
	mu   sync.RWMutex
	subs map[int]map[chan realtime.Envelope]struct{}
}

func NewHub() *Hub {
	return &Hub{
		subs: make(map[int]map[chan realtime.Envelope]struct{}),
	}
}

// Subscribe registers a stream for the user and returns the event channel
// plus an unsubscribe func.
func (h *Hub) Subscribe(userID int) (<-chan realtime.Envelope, func()) {
	ch := make(chan realtime.Envelope, subscriberBuffer)

	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[chan realtime.Envelope]struct{})
	}
	h.subs[userID][ch] = struct{}{}
	h.mu.Unlock()

	metrics.RealtimeSubscribers.Inc()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[userID], ch)
			if len(h.subs[userID]) == 0 {
				delete(h.subs, userID)
			}
			h.mu.Unlock()
			close(ch)
			metrics.RealtimeSubscribers.Dec()
		})
	}
	return ch, cancel
}

// Publish delivers the event to every open stream for the user. Slow
// subscribers lose events instead of blocking delivery to others.
func (h *Hub) Publish(userID int, ev realtime.Envelope) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs[userID] {
		select {
		case ch <- ev:
		default:
		}
	}
}

// SubscriberCount reports open streams for one user.
func (h *Hub) SubscriberCount(userID int) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}
