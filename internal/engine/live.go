package engine

import (
	"context"

	"github.com/yanun0323/logs"

	"fxtrader/internal/bus"
	"fxtrader/internal/errors"
)

// RunLive consumes the bus until ctx is done or the bus is closed. Events
// still queued when ctx is done are dispatched before it returns.
func (e *Engine) RunLive(ctx context.Context) (Result, error) {
	e.setState(StateRunning)
	logs.Info("running live trading loop...")

	for {
		ev, err := e.bus.Pop(ctx)
		if errors.Is(err, bus.ErrQueueClosed) {
			e.setState(StateStopped)
			return e.snapshot(), nil
		}
		if err != nil {
			return e.drain(context.WithoutCancel(ctx))
		}

		if err := e.dispatch(ctx, ev); err != nil {
			e.setState(StateStopped)
			return e.snapshot(), err
		}
		e.result.Iterations++
	}
}

func (e *Engine) drain(ctx context.Context) (Result, error) {
	e.setState(StateDraining)
	for {
		ev, ok := e.bus.TryPop()
		if !ok {
			break
		}
		if err := e.dispatch(ctx, ev); err != nil {
			e.setState(StateStopped)
			return e.snapshot(), err
		}
		e.result.Iterations++
	}
	e.setState(StateStopped)
	logs.Infof("live loop drained, ticks: %d, orders: %d", e.result.Ticks, e.result.Orders)
	return e.snapshot(), nil
}
