package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/redis/go-redis/v9"

	"github.com/erazemk/zaloga/internal/live"
)

// DefaultChannel is the Redis channel used when none is configured.
const DefaultChannel = "zaloga:items"

// RedisNotifier shares change signals between processes that use the same
// database. Local listeners are notified directly as well, so a Redis outage
// only affects other processes.
type RedisNotifier struct {
	client  *redis.Client
	channel string
	pubsub  *redis.PubSub
	local   *live.Topic[struct{}]
	logger  *slog.Logger
	done    chan struct{}
	closing atomic.Bool
}

var _ Notifier = (*RedisNotifier)(nil)

// NewRedisNotifier subscribes to channel and starts relaying remote signals to
// local listeners.
func NewRedisNotifier(ctx context.Context, client *redis.Client, channel string, logger *slog.Logger) (*RedisNotifier, error) {
	if channel == "" {
		channel = DefaultChannel
	}

	ps := client.Subscribe(ctx, channel)
	// Wait for the subscription to be confirmed so no signal is missed.
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("subscribing to %s: %w", channel, err)
	}

	n := &RedisNotifier{
		client:  client,
		channel: channel,
		pubsub:  ps,
		local:   live.NewTopic[struct{}](),
		logger:  logger.With("component", "notify", "channel", channel),
		done:    make(chan struct{}),
	}
	go n.relay()
	return n, nil
}

func (n *RedisNotifier) relay() {
	defer close(n.done)
	for range n.pubsub.Channel() {
		n.logger.Debug("item change received from redis")
		n.local.Publish(struct{}{})
	}
	if !n.closing.Load() {
		n.logger.Warn("redis subscription ended, changes from other processes will be missed")
	}
}

// Notify implements Notifier.
func (n *RedisNotifier) Notify(ctx context.Context) error {
	n.local.Publish(struct{}{})
	if err := n.client.Publish(ctx, n.channel, "changed").Err(); err != nil {
		return fmt.Errorf("publishing change: %w", err)
	}
	return nil
}

// Listen implements Notifier.
func (n *RedisNotifier) Listen(ctx context.Context) (*live.Subscription[struct{}], error) {
	sub := n.local.Subscribe()
	context.AfterFunc(ctx, sub.Close)
	return sub, nil
}

// Close unsubscribes from Redis and closes local listeners. The Redis client
// itself is owned by the caller.
func (n *RedisNotifier) Close() error {
	n.closing.Store(true)
	err := n.pubsub.Close()
	<-n.done
	n.local.Close()
	if err != nil {
		return fmt.Errorf("closing subscription: %w", err)
	}
	return nil
}
