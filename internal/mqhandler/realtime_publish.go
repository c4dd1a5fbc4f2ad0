package mqhandler

import (
	"context"
	"encoding/json"

	rtcontracts "github.com/mlunin-git/coaching-platform-sub000/contracts/realtime"
)

const maxRetries = 5 // 最大重试次数

// publishRealtime pushes an event envelope to the user's Redis channel. The
// API's bridge picks it up and fans it out to open streams. Publish errors
// are returned so callers can log them; delivery is best-effort either way.
func publishRealtime(ctx context.Context, rdb RedisClient, userID int, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	envelope, err := json.Marshal(rtcontracts.Envelope{
		Type:    eventType,
		Payload: data,
	})
	if err != nil {
		return err
	}
	return rdb.Publish(ctx, rtcontracts.ChannelForUser(userID), envelope).Err()
}
