package queue

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"
)

// Memory is a channel-backed Queue consumed by a fixed-size worker pool.
// It is the single-process stand-in for a durable broker; the Queue
// interface is the seam where one would be swapped in.
type Memory struct {
	messages chan Message
	cancel   context.CancelFunc
	group    *errgroup.Group
}

// NewMemory creates a queue with the given buffer capacity.
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = 256
	}
	return &Memory{messages: make(chan Message, capacity)}
}

// Enqueue adds a message for the worker pool. Returns an error if the
// buffer is full rather than blocking a stage completion on queue pressure.
func (m *Memory) Enqueue(_ context.Context, msg Message) error {
	select {
	case m.messages <- msg:
		return nil
	default:
		return fmt.Errorf("queue full, dropping %s for job %s", msg.Stage, msg.JobID)
	}
}

// Start launches workers goroutines that run handler for each dequeued
// message until Stop is called or ctx is cancelled.
func (m *Memory) Start(ctx context.Context, workers int, handler Handler) {
	if workers <= 0 {
		workers = 4
	}

	ctx, m.cancel = context.WithCancel(ctx)
	m.group, ctx = errgroup.WithContext(ctx)

	for i := 0; i < workers; i++ {
		worker := i
		m.group.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case msg, ok := <-m.messages:
					if !ok {
						return nil
					}
					log.Printf("[worker %d] %s job=%s", worker, msg.Stage, msg.JobID)
					handler(ctx, msg)
				}
			}
		})
	}
}

// Stop cancels the workers and waits for in-flight stages to return.
func (m *Memory) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	if m.group != nil {
		_ = m.group.Wait()
	}
}
