package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisQueue is a FIFO of intents stored in a Redis list.
type RedisQueue struct {
	client      *redis.Client
	key         string
	pollTimeout time.Duration
}

// NewRedisQueue creates a queue on key.
func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	return &RedisQueue{client: client, key: key, pollTimeout: 5 * time.Second}
}

func (q *RedisQueue) Publish(ctx context.Context, intent Intent) error {
	payload, err := encode(intent)
	if err != nil {
		return fmt.Errorf("encode intent: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("push intent: %w", err)
	}
	return nil
}

func (q *RedisQueue) Next(ctx context.Context) (Intent, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Intent{}, err
		}
		res, err := q.client.BRPop(ctx, q.pollTimeout, q.key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return Intent{}, err
		}
		// res is [key, value]
		intent, err := decode(res[1])
		if err != nil {
			return Intent{}, fmt.Errorf("decode intent: %w", err)
		}
		return intent, nil
	}
}

// Len reports the number of queued intents.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}
