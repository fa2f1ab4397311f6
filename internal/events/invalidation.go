package events

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisInvalidationBus fans slot cache invalidations out to every instance
// over Redis pub/sub. Unlike the intent queue, each message reaches all
// subscribers.
type RedisInvalidationBus struct {
	client  *redis.Client
	channel string
	logger  zerolog.Logger
}

// NewRedisInvalidationBus creates a bus on channel.
func NewRedisInvalidationBus(client *redis.Client, channel string, logger zerolog.Logger) *RedisInvalidationBus {
	return &RedisInvalidationBus{
		client:  client,
		channel: channel,
		logger:  logger.With().Str("component", "invalidation_bus").Logger(),
	}
}

// BroadcastInvalidation announces that doctorID's calendar changed.
func (b *RedisInvalidationBus) BroadcastInvalidation(ctx context.Context, doctorID string) error {
	if err := b.client.Publish(ctx, b.channel, doctorID).Err(); err != nil {
		return fmt.Errorf("publish invalidation: %w", err)
	}
	return nil
}

// Subscribe starts listening and calls onInvalidate for every announced
// doctor until ctx ends. It returns once the subscription is confirmed.
func (b *RedisInvalidationBus) Subscribe(ctx context.Context, onInvalidate func(doctorID string)) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}

	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				b.logger.Debug().Str("doctor_id", msg.Payload).Msg("slot cache invalidated by peer")
				onInvalidate(msg.Payload)
			}
		}
	}()
	return nil
}
