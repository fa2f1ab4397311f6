package events

import "context"

// MemoryQueue is an in-process Queue used when Redis is disabled.
type MemoryQueue struct {
	ch chan Intent
}

// NewMemoryQueue creates a queue holding up to size pending intents.
func NewMemoryQueue(size int) *MemoryQueue {
	return &MemoryQueue{ch: make(chan Intent, size)}
}

func (q *MemoryQueue) Publish(ctx context.Context, intent Intent) error {
	select {
	case q.ch <- intent:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *MemoryQueue) Next(ctx context.Context) (Intent, error) {
	select {
	case intent := <-q.ch:
		return intent, nil
	case <-ctx.Done():
		return Intent{}, ctx.Err()
	}
}
