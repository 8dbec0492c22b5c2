// Package notify bridges redis pub/sub into engine change notifications.
// Messages carry no payload the engine trusts; every notification just means
// "something changed, reload when convenient".
package notify

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the pub/sub channel community writers publish to.
const DefaultChannel = "iengine:community:changed"

// RedisNotifier subscribes to a redis channel and invokes a callback per
// message. Debouncing is the engine's job, not this notifier's.
type RedisNotifier struct {
	client  *redis.Client
	channel string
}

// NewRedisNotifier wires a notifier to the given client. An empty channel
// selects DefaultChannel.
func NewRedisNotifier(client *redis.Client, channel string) *RedisNotifier {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisNotifier{client: client, channel: channel}
}

// Subscribe blocks, invoking fn once per received message, until ctx is
// cancelled or the subscription fails.
func (n *RedisNotifier) Subscribe(ctx context.Context, fn func()) error {
	sub := n.client.Subscribe(ctx, n.channel)
	defer sub.Close()

	// Wait for the subscription to be confirmed before reporting success via
	// the first receive; a bad address should surface here, not hang.
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", n.channel, err)
	}
	log.Printf("notify: subscribed to %s", n.channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("subscription to %s closed", n.channel)
			}
			_ = msg.Payload
			fn()
		}
	}
}

// Publish announces a community change. Writers call this after committing
// rows so open views reload.
func (n *RedisNotifier) Publish(ctx context.Context, reason string) error {
	if err := n.client.Publish(ctx, n.channel, reason).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", n.channel, err)
	}
	return nil
}
