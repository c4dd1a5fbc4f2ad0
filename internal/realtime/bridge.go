package realtime

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mlunin-git/coaching-platform-sub000/contracts/realtime"
	"github.com/mlunin-git/coaching-platform-sub000/pkg/metrics"
)

const (
	// 重连退避：500ms 起步，翻倍，上限 10s，最多 5 次
	backoffBase   = 500 * time.Millisecond
	backoffCap    = 10 * time.Second
	maxReconnects = 5
)

// Bridge relays Redis pub/sub messages into the Hub.
type Bridge struct {
	rdb    *goredis.Client
	hub    *Hub
	logger *zap.Logger
}

func NewBridge(rdb *goredis.Client, hub *Hub, logger *zap.Logger) *Bridge {
	return &Bridge{rdb: rdb, hub: hub, logger: logger}
}

// BackoffDelay returns the reconnect delay for the given attempt (1-based).
func BackoffDelay(attempt int) time.Duration {
	d := backoffBase << (attempt - 1)
	if d > backoffCap || d <= 0 {
		return backoffCap
	}
	return d
}

// Run subscribes to every per-user channel and pumps events into the Hub.
// On subscription failure it retries with exponential backoff, giving up
// after maxReconnects consecutive failures. Blocks until ctx is cancelled
// or the retry budget is spent.
func (b *Bridge) Run(ctx context.Context) error {
	attempt := 0

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := b.consume(ctx)
		if err == nil || ctx.Err() != nil {
			return ctx.Err()
		}

		attempt++
		metrics.RealtimeReconnects.Inc()
		if attempt > maxReconnects {
			b.logger.Error("Realtime bridge giving up after max reconnect attempts",
				zap.Int("attempts", attempt-1),
				zap.Error(err),
			)
			return err
		}

		delay := BackoffDelay(attempt)
		b.logger.Warn("Realtime subscription lost, reconnecting",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// consume holds one pub/sub subscription open and forwards events until it
// breaks. A successful delivery resets the caller's retry budget by
// returning only on error.
func (b *Bridge) consume(ctx context.Context) error {
	pubsub := b.rdb.PSubscribe(ctx, realtime.ChannelPattern)
	defer pubsub.Close()

	// 确认订阅建立成功
	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}

	b.logger.Info("Realtime bridge subscribed",
		zap.String("pattern", realtime.ChannelPattern),
	)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return goredis.ErrClosed
			}
			b.dispatch(msg)
		}
	}
}

func (b *Bridge) dispatch(msg *goredis.Message) {
	userID, ok := userIDFromChannel(msg.Channel)
	if !ok {
		b.logger.Warn("Realtime message on unexpected channel",
			zap.String("channel", msg.Channel),
		)
		return
	}

	var ev realtime.Envelope
	if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
		b.logger.Error("Failed to unmarshal realtime event",
			zap.String("channel", msg.Channel),
			zap.Error(err),
		)
		return
	}

	b.hub.Publish(userID, ev)
}

func userIDFromChannel(channel string) (int, bool) {
	const prefix = "realtime:user:"
	if !strings.HasPrefix(channel, prefix) {
		return 0, false
	}
	id, err := strconv.Atoi(channel[len(prefix):])
	if err != nil {
		return 0, false
	}
	return id, true
}
