package bus

import (
	"context"
	"errors"
	"sync"

	"fxtrader/internal/schema"
)

var (
	ErrQueueFull   = errors.New("event queue full")
	ErrQueueClosed = errors.New("event queue closed")
)

// Queue is a bounded FIFO of events. Many producers may publish while a
// single consumer pops. The channel itself is never closed, so a publish
// racing with Close cannot panic.
type Queue struct {
	ch        chan schema.Event
	done      chan struct{}
	closeOnce sync.Once
}

// NewQueue allocates a queue with the given capacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{
		ch:   make(chan schema.Event, capacity),
		done: make(chan struct{}),
	}
}

// TryPublish enqueues an event without blocking.
func (q *Queue) TryPublish(e schema.Event) error {
	if q.Closed() {
		return ErrQueueClosed
	}
	select {
	case q.ch <- e:
		return nil
	default:
		return ErrQueueFull
	}
}

// Publish blocks until the event is queued, the queue is closed or ctx is done.
func (q *Queue) Publish(ctx context.Context, e schema.Event) error {
	if q.Closed() {
		return ErrQueueClosed
	}
	select {
	case q.ch <- e:
		return nil
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryPop dequeues the oldest event without blocking.
func (q *Queue) TryPop() (schema.Event, bool) {
	select {
	case e := <-q.ch:
		return e, true
	default:
		return nil, false
	}
}

// Pop blocks for the next event. After Close it keeps returning queued
// events and reports ErrQueueClosed once the queue is empty.
func (q *Queue) Pop(ctx context.Context) (schema.Event, error) {
	select {
	case e := <-q.ch:
		return e, nil
	case <-q.done:
		if e, ok := q.TryPop(); ok {
			return e, nil
		}
		return nil, ErrQueueClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Cap returns the queue capacity.
func (q *Queue) Cap() int {
	return cap(q.ch)
}

// Close stops the queue from accepting new events.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		close(q.done)
	})
}

// Closed reports whether Close was called.
func (q *Queue) Closed() bool {
	select {
	case <-q.done:
		return true
	default:
		return false
	}
}
