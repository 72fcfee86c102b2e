package obs

import (
	"sync/atomic"
	"time"

	"fxtrader/internal/schema"
)

const maxKind = int(schema.KindOrder)

// Metrics collects lightweight counters and latency stats.
type Metrics struct {
	eventCounts     [maxKind + 1]uint64
	rejectedSignals uint64
	orderFailures   uint64
	queueDrops      uint64
	queueClosed     uint64

	tickLatency     LatencyStats
	dispatchLatency LatencyStats
	orderLatency    LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
	Sum   time.Duration
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	EventCounts     map[schema.Kind]uint64
	RejectedSignals uint64
	OrderFailures   uint64
	QueueDrops      uint64
	QueueClosed     uint64
	TickLatency     LatencySnapshot
	DispatchLatency LatencySnapshot
	OrderLatency    LatencySnapshot
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// ObserveEvent counts a dispatched event by kind.
func (m *Metrics) ObserveEvent(kind schema.Kind) {
	if m == nil {
		return
	}
	idx := int(kind)
	if idx >= 0 && idx < len(m.eventCounts) {
		atomic.AddUint64(&m.eventCounts[idx], 1)
	}
}

// ObserveTick tracks feed latency between the quote time and its receipt.
func (m *Metrics) ObserveTick(tick schema.Tick, recv time.Time) {
	if m == nil || tick.Time.IsZero() {
		return
	}
	if delta := recv.Sub(tick.Time); delta >= 0 {
		m.tickLatency.Observe(delta)
	}
}

// IncRejectedSignal records a signal refused by the quote gate.
func (m *Metrics) IncRejectedSignal() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.rejectedSignals, 1)
}

// IncOrderFailure records an execution sink error.
func (m *Metrics) IncOrderFailure() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.orderFailures, 1)
}

// IncQueueDrop records a queue drop.
func (m *Metrics) IncQueueDrop() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.queueDrops, 1)
}

// IncQueueClosed records a closed-queue publish attempt.
func (m *Metrics) IncQueueClosed() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.queueClosed, 1)
}

// ObserveDispatch measures one dispatch loop iteration.
func (m *Metrics) ObserveDispatch(d time.Duration) {
	if m == nil {
		return
	}
	m.dispatchLatency.Observe(d)
}

// ObserveOrder measures an execution sink submit.
func (m *Metrics) ObserveOrder(d time.Duration) {
	if m == nil {
		return
	}
	m.orderLatency.Observe(d)
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	eventCounts := make(map[schema.Kind]uint64)
	for i := range m.eventCounts {
		if v := atomic.LoadUint64(&m.eventCounts[i]); v > 0 {
			eventCounts[schema.Kind(i)] = v
		}
	}
	return Snapshot{
		EventCounts:     eventCounts,
		RejectedSignals: atomic.LoadUint64(&m.rejectedSignals),
		OrderFailures:   atomic.LoadUint64(&m.orderFailures),
		QueueDrops:      atomic.LoadUint64(&m.queueDrops),
		QueueClosed:     atomic.LoadUint64(&m.queueClosed),
		TickLatency:     m.tickLatency.Snapshot(),
		DispatchLatency: m.dispatchLatency.Snapshot(),
		OrderLatency:    m.orderLatency.Snapshot(),
	}
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		min := atomic.LoadUint64(&l.min)
		if min != 0 && nanos >= min {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, min, nanos) {
			break
		}
	}

	for {
		max := atomic.LoadUint64(&l.max)
		if nanos <= max {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, max, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	sum := atomic.LoadUint64(&l.sum)
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(atomic.LoadUint64(&l.min)),
		Max:   time.Duration(atomic.LoadUint64(&l.max)),
		Avg:   time.Duration(sum / count),
		Sum:   time.Duration(sum),
	}
}
