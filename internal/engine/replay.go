package engine

import (
	"context"
	"time"

	"github.com/yanun0323/logs"

	"fxtrader/internal/errors"
	"fxtrader/internal/feed"
	"fxtrader/pkg/exception"
)

// ReplayConfig bounds a replay run. MaxIters 0 means no ceiling.
type ReplayConfig struct {
	Heartbeat time.Duration
	MaxIters  int
}

// RunReplay drives the loop from a pull feed. Each iteration pops one event,
// or pulls one tick into the bus when the bus is empty. The run ends when the
// feed is exhausted, the iteration ceiling is reached, or an invariant fails.
func (e *Engine) RunReplay(ctx context.Context, src feed.Source, cfg ReplayConfig) (Result, error) {
	if src == nil {
		return Result{}, errors.Wrap(exception.ErrNilInstance, "replay feed")
	}
	e.setState(StateRunning)
	logs.Info("running backtest...")

	for cfg.MaxIters <= 0 || e.result.Iterations < cfg.MaxIters {
		if err := ctx.Err(); err != nil {
			e.setState(StateStopped)
			return e.snapshot(), err
		}

		if ev, ok := e.bus.TryPop(); ok {
			if err := e.dispatch(ctx, ev); err != nil {
				e.setState(StateStopped)
				return e.snapshot(), err
			}
		} else {
			tick, err := src.Next(ctx)
			if errors.Is(err, exception.ErrFeedExhausted) {
				logs.Info("end of available historical data")
				e.setState(StateStopped)
				return e.snapshot(), nil
			}
			if err != nil {
				e.setState(StateStopped)
				return e.snapshot(), errors.Wrap(err, "next tick")
			}
			if err := e.bus.TryPublish(tick); err != nil {
				e.setState(StateStopped)
				return e.snapshot(), errors.Wrap(err, "publish tick")
			}
		}

		e.result.Iterations++
		if err := sleep(ctx, cfg.Heartbeat); err != nil {
			e.setState(StateStopped)
			return e.snapshot(), err
		}
	}

	if e.bus.Len() > 0 {
		e.setState(StateDraining)
	}
	logs.Infof("backtest reached iteration ceiling %d", cfg.MaxIters)
	return e.snapshot(), nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
