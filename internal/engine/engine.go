/*
Package engine runs the event dispatch loop.

# Flow
  - tick: strategy, then portfolio mark and ledger row
  - signal: portfolio sizing and fill, then an order back onto the bus
  - order: execution sink

# Modes
  - replay: single goroutine, pulls one tick from a feed whenever the bus is empty
  - live: push feeds publish into the bus, the loop blocks on it until cancelled

The loop is the only goroutine that touches the strategy and the portfolio.
*/
package engine

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/yanun0323/logs"

	"fxtrader/internal/bus"
	"fxtrader/internal/errors"
	"fxtrader/internal/execution"
	"fxtrader/internal/obs"
	"fxtrader/internal/schema"
	"fxtrader/internal/strategy"
	"fxtrader/pkg/exception"
)

// Portfolio is the part of the portfolio the loop drives.
type Portfolio interface {
	OnTick(tick schema.Tick) error
	OnSignal(sig schema.Signal) (schema.Order, bool, error)
}

// Recorder captures dispatched events, usually into the WAL.
type Recorder interface {
	Tick(t schema.Tick, recv time.Time) error
	Signal(s schema.Signal, recv time.Time) error
	Order(o schema.Order, recv time.Time) error
}

// Result summarizes a run.
type Result struct {
	// State is the state the loop was in when it returned.
	State State

	Iterations int
	Ticks      int
	Signals    int
	Orders     int
	Rejected   int
	Failed     int
	Dropped    int
}

// Option customizes an Engine.
type Option func(*Engine)

func WithMetrics(m *obs.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithClock replaces time.Now for receive stamps and latencies.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

type Engine struct {
	bus       *bus.Queue
	strategy  strategy.Strategy
	portfolio Portfolio
	sink      execution.Sink
	metrics   *obs.Metrics
	recorder  Recorder
	now       func() time.Time

	state  atomic.Int32
	result Result
}

func New(q *bus.Queue, s strategy.Strategy, p Portfolio, sink execution.Sink, opts ...Option) (*Engine, error) {
	switch {
	case q == nil:
		return nil, errors.Wrap(exception.ErrNilInstance, "engine bus")
	case s == nil:
		return nil, errors.Wrap(exception.ErrNilInstance, "engine strategy")
	case p == nil:
		return nil, errors.Wrap(exception.ErrNilInstance, "engine portfolio")
	case sink == nil:
		return nil, errors.Wrap(exception.ErrNilInstance, "engine execution")
	}

	e := &Engine{
		bus:       q,
		strategy:  s,
		portfolio: p,
		sink:      sink,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// State is safe to read from any goroutine.
func (e *Engine) State() State {
	return State(e.state.Load())
}

func (e *Engine) setState(s State) {
	if old := State(e.state.Swap(int32(s))); old != s {
		logs.Infof("engine state: %s -> %s", old, s)
	}
}

func (e *Engine) snapshot() Result {
	r := e.result
	r.State = e.State()
	return r
}

// dispatch handles one event. A returned error is fatal for the run.
func (e *Engine) dispatch(ctx context.Context, ev schema.Event) error {
	start := e.now()
	defer func() {
		e.metrics.ObserveDispatch(e.now().Sub(start))
	}()
	e.metrics.ObserveEvent(ev.Kind())

	switch v := ev.(type) {
	case schema.Tick:
		return e.onTick(v, start)
	case schema.Signal:
		return e.onSignal(v, start)
	case schema.Order:
		e.onOrder(ctx, v, start)
		return nil
	default:
		logs.Errorf("unknown event on bus: %s", ev)
		return nil
	}
}

func (e *Engine) onTick(tick schema.Tick, recv time.Time) error {
	e.result.Ticks++
	e.metrics.ObserveTick(tick, recv)
	if e.recorder != nil {
		if err := e.recorder.Tick(tick, recv); err != nil {
			logs.Errorf("record tick, err: %+v", err)
		}
	}

	for _, sig := range e.strategy.OnTick(tick) {
		e.publish(sig)
	}

	if err := e.portfolio.OnTick(tick); err != nil {
		return errors.Wrapf(err, "portfolio tick %s", tick.Instrument)
	}
	return nil
}

func (e *Engine) onSignal(sig schema.Signal, recv time.Time) error {
	e.result.Signals++
	if e.recorder != nil {
		if err := e.recorder.Signal(sig, recv); err != nil {
			logs.Errorf("record signal, err: %+v", err)
		}
	}

	order, ok, err := e.portfolio.OnSignal(sig)
	if err != nil {
		return errors.Wrapf(err, "portfolio signal %s %s", sig.Side, sig.Instrument)
	}
	if !ok {
		e.result.Rejected++
		e.metrics.IncRejectedSignal()
		return nil
	}

	e.publish(order)
	return nil
}

func (e *Engine) onOrder(ctx context.Context, order schema.Order, recv time.Time) {
	e.result.Orders++
	if e.recorder != nil {
		if err := e.recorder.Order(order, recv); err != nil {
			logs.Errorf("record order, err: %+v", err)
		}
	}

	start := e.now()
	err := e.sink.Submit(ctx, order)
	e.metrics.ObserveOrder(e.now().Sub(start))
	if err != nil {
		e.result.Failed++
		e.metrics.IncOrderFailure()
		logs.Errorf("execute %s, err: %+v", order, err)
	}
}

func (e *Engine) publish(ev schema.Event) {
	err := e.bus.TryPublish(ev)
	if err == nil {
		return
	}

	e.result.Dropped++
	if errors.Is(err, bus.ErrQueueClosed) {
		e.metrics.IncQueueClosed()
	} else {
		e.metrics.IncQueueDrop()
	}
	logs.Errorf("drop %s, err: %+v", ev, err)
}
