package querycache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Message is one invalidation broadcast between gateway instances.
type Message struct {
	Origin string    `json:"origin"`
	Keys   []Key     `json:"keys"`
	SentAt time.Time `json:"sent_at"`
}

// Bus carries invalidations between caches. Subscribe calls ready once the
// subscription is live, then blocks until ctx is done or the transport fails.
type Bus interface {
	Publish(ctx context.Context, msg Message) error
	Subscribe(ctx context.Context, ready func(), handle func(Message)) error
}

// errBusClosed reports a subscription that ended without an error.
var errBusClosed = errors.New("invalidation subscription closed")

// Listen applies invalidations published by other instances until ctx is
// done. A failed or dropped subscription is retried with exponential
// backoff. After a reconnect every entry is marked stale because broadcasts
// sent in between were lost. It returns nil immediately when the cache has
// no bus.
func (c *Cache) Listen(ctx context.Context) error {
	if c.bus == nil {
		return nil
	}
	handle := func(m Message) {
		if m.Origin == c.id {
			return
		}
		n := c.invalidate(m.Keys, false)
		c.logger.Debug("remote invalidation", zap.String("origin", m.Origin), zap.Int("entries", n))
	}

	recovering := false
	attempt := 0
	for {
		connected := false
		err := c.bus.Subscribe(ctx, func() {
			connected = true
			c.setBusErr(nil)
			if recovering {
				n := c.invalidate([]Key{{}}, false)
				c.logger.Info("invalidation bus reconnected", zap.Int("stale_entries", n))
			}
		}, handle)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			err = errBusClosed
		}
		c.setBusErr(err)
		recovering = true
		if connected {
			attempt = 0
		}
		attempt++

		delay := c.retryBase << min(attempt-1, 16)
		if delay <= 0 || delay > c.retryMax {
			delay = c.retryMax
		}
		c.logger.Warn("invalidation bus unavailable, retrying",
			zap.Error(err), zap.Int("attempt", attempt), zap.Duration("backoff", delay))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// BusErr reports why the invalidation bus is not subscribed, or nil when it
// is live or not configured.
func (c *Cache) BusErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busErr
}

func (c *Cache) setBusErr(err error) {
	c.mu.Lock()
	c.busErr = err
	c.mu.Unlock()
}

// RedisBus is a Bus over Redis Pub/Sub.
type RedisBus struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

// NewRedisBus publishes and listens on channel. The caller owns client.
func NewRedisBus(client *redis.Client, channel string, logger *zap.Logger) *RedisBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisBus{client: client, channel: channel, logger: logger}
}

func (b *RedisBus) Publish(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal invalidation: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("publish invalidation: %w", err)
	}
	return nil
}

func (b *RedisBus) Subscribe(ctx context.Context, ready func(), handle func(Message)) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}
	b.logger.Info("listening for cache invalidations", zap.String("channel", b.channel))
	if ready != nil {
		ready()
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-ch:
			if !ok {
				return nil
			}
			var msg Message
			if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
				b.logger.Warn("drop malformed invalidation", zap.String("payload", raw.Payload), zap.Error(err))
				continue
			}
			handle(msg)
		}
	}
}
