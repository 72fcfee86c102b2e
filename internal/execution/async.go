package execution

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/yanun0323/logs"

	"fxtrader/internal/errors"
	"fxtrader/internal/schema"
	"fxtrader/pkg/exception"
)

// Async hands orders to worker goroutines so a slow sink never stalls the
// dispatch loop. Submit only enqueues. Workers run until Close, so orders
// submitted while the loop drains after cancellation are still sent.
type Async struct {
	sink    Sink
	workers int
	queue   chan schema.Order

	mu     sync.RWMutex
	closed bool

	running atomic.Bool
	wg      sync.WaitGroup
	failed  atomic.Uint64
}

// NewAsync wraps sink with workerCount workers and a queue of workerCap.
func NewAsync(sink Sink, workerCount, workerCap int) *Async {
	if workerCount <= 0 {
		workerCount = 1
	}
	if workerCap <= 0 {
		workerCap = 1
	}
	return &Async{
		sink:    sink,
		workers: workerCount,
		queue:   make(chan schema.Order, workerCap),
	}
}

func (a *Async) Submit(_ context.Context, order schema.Order) error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return errors.Wrapf(exception.ErrOrderSinkClosed, "%s", order)
	}
	select {
	case a.queue <- order:
		return nil
	default:
		return errors.Wrapf(exception.ErrOrderQueueFull, "%s", order)
	}
}

// Run starts the workers. ctx only carries values to the wrapped sink, its
// cancellation does not stop the workers.
func (a *Async) Run(ctx context.Context) {
	if a.running.Swap(true) {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for range a.workers {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			for order := range a.queue {
				a.send(ctx, order)
			}
		}()
	}
}

// Close rejects further orders and lets the workers exit once the queue is
// empty. Safe to call more than once.
func (a *Async) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return
	}
	a.closed = true
	close(a.queue)
}

// Wait blocks until every worker returned. Call it after Close.
func (a *Async) Wait() {
	a.wg.Wait()
}

// Failed counts orders the wrapped sink returned an error for.
func (a *Async) Failed() uint64 {
	return a.failed.Load()
}

func (a *Async) send(ctx context.Context, order schema.Order) {
	if err := a.sink.Submit(ctx, order); err != nil {
		a.failed.Add(1)
		logs.Errorf("submit %s, err: %+v", order, err)
	}
}
