package events

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisQueueIsFIFO(t *testing.T) {
	ctx := context.Background()
	q := NewRedisQueue(setupTestRedis(t), "test:intents")
	start := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)

	first := NewIntent(AppointmentBooked, "appt-1", "doc-1", start)
	second := NewIntent(AppointmentCancelled, "appt-2", "doc-1", start)
	require.NoError(t, q.Publish(ctx, first))
	require.NoError(t, q.Publish(ctx, second))

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err := q.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, AppointmentBooked, got.Type)
	assert.True(t, start.Equal(got.ScheduledAt))

	got, err = q.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)
}

func TestRedisQueueNextStopsOnContext(t *testing.T) {
	q := NewRedisQueue(setupTestRedis(t), "test:intents")
	q.pollTimeout = 50 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()

	_, err := q.Next(ctx)
	assert.Error(t, err)
}

func TestMemoryQueue(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue(1)

	intent := NewIntent(AppointmentRescheduled, "appt-1", "doc-1", time.Now())
	require.NoError(t, q.Publish(ctx, intent))
	assert.ErrorIs(t, q.Publish(ctx, intent), ErrQueueFull)

	got, err := q.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, intent.ID, got.ID)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = q.Next(cancelled)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInvalidationBusReachesEveryInstance(t *testing.T) {
	mr := miniredis.RunT(t)
	newClient := func() *redis.Client {
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		return client
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan string, 4)
	for i := 0; i < 2; i++ {
		bus := NewRedisInvalidationBus(newClient(), "test:invalidate", zerolog.Nop())
		require.NoError(t, bus.Subscribe(ctx, func(doctorID string) { got <- doctorID }))
	}

	sender := NewRedisInvalidationBus(newClient(), "test:invalidate", zerolog.Nop())
	require.NoError(t, sender.BroadcastInvalidation(ctx, "doc-1"))

	for i := 0; i < 2; i++ {
		select {
		case id := <-got:
			assert.Equal(t, "doc-1", id)
		case <-time.After(2 * time.Second):
			t.Fatal("invalidation not delivered to every subscriber")
		}
	}
}
