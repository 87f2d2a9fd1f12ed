package queue

import "context"

// Inline is a synchronous Queue: Enqueue runs the handler before returning.
// It makes stage chaining deterministic for tests and for the one-shot CLI
// run command. Chained enqueues from inside a handler are deferred to a
// drain loop rather than recursing, preserving per-job dispatch order.
type Inline struct {
	handler Handler
	pending []Message
	running bool
}

// NewInline creates a synchronous queue dispatching to handler. The handler
// may be set after construction via Bind to break construction cycles with
// the orchestrator.
func NewInline(handler Handler) *Inline {
	return &Inline{handler: handler}
}

// Bind sets the handler messages are dispatched to.
func (q *Inline) Bind(handler Handler) {
	q.handler = handler
}

// Enqueue runs the handler synchronously, draining any messages the handler
// enqueues in turn.
func (q *Inline) Enqueue(ctx context.Context, msg Message) error {
	q.pending = append(q.pending, msg)
	if q.running {
		return nil
	}

	q.running = true
	defer func() { q.running = false }()

	for len(q.pending) > 0 {
		next := q.pending[0]
		q.pending = q.pending[1:]
		q.handler(ctx, next)
	}
	return nil
}
