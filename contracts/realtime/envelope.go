// Package realtime defines the envelope pushed to per-user Redis channels
// and relayed to browsers over SSE.
package realtime

import (
	"encoding/json"
	"fmt"
)

// Event types carried over the realtime channel.
const (
	EventMessageCreated      = "message.created"
	EventNotificationCreated = "notification.created"
	EventIdeaPromoted        = "idea.promoted"
)

// Envelope 实时事件信封
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ChannelForUser returns the Redis pub/sub channel for one user.
func ChannelForUser(userID int) string {
	return fmt.Sprintf("realtime:user:%d", userID)
}

// ChannelPattern matches every per-user channel (used with PSUBSCRIBE).
const ChannelPattern = "realtime:user:*"
