package obs

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxtrader/internal/schema"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.ObserveEvent(schema.KindTick)
	m.ObserveEvent(schema.KindTick)
	m.ObserveEvent(schema.KindOrder)
	m.IncRejectedSignal()
	m.IncQueueDrop()
	m.ObserveDispatch(3 * time.Millisecond)
	m.ObserveDispatch(time.Millisecond)
	m.ObserveDispatch(-time.Second)

	now := time.Now()
	m.ObserveTick(schema.Tick{Time: now.Add(-2 * time.Millisecond)}, now)
	m.ObserveTick(schema.Tick{}, now)

	s := m.Snapshot()
	assert.Equal(t, map[schema.Kind]uint64{schema.KindTick: 2, schema.KindOrder: 1}, s.EventCounts)
	assert.Equal(t, uint64(1), s.RejectedSignals)
	assert.Equal(t, uint64(1), s.QueueDrops)
	assert.Equal(t, LatencySnapshot{
		Count: 2,
		Min:   time.Millisecond,
		Max:   3 * time.Millisecond,
		Avg:   2 * time.Millisecond,
		Sum:   4 * time.Millisecond,
	}, s.DispatchLatency)
	assert.Equal(t, uint64(1), s.TickLatency.Count)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.ObserveEvent(schema.KindTick)
	m.IncOrderFailure()
	assert.Equal(t, Snapshot{}, m.Snapshot())
}

func TestCollectorGather(t *testing.T) {
	m := NewMetrics()
	m.ObserveEvent(schema.KindSignal)
	m.IncRejectedSignal()

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(NewCollector(m)))

	mfs, err := reg.Gather()
	require.NoError(t, err)

	values := make(map[string]float64)
	for _, mf := range mfs {
		for _, metric := range mf.GetMetric() {
			key := mf.GetName()
			for _, l := range metric.GetLabel() {
				key += "/" + l.GetValue()
			}
			values[key] = metric.GetCounter().GetValue() + metric.GetGauge().GetValue()
		}
	}
	assert.Equal(t, float64(1), values["fxtrader_events_total/SIGNAL"])
	assert.Equal(t, float64(0), values["fxtrader_events_total/TICK"])
	assert.Equal(t, float64(1), values["fxtrader_rejected_signals_total"])
	assert.Contains(t, values, "fxtrader_latency_seconds_max/dispatch")
}

func TestTraceGenerator(t *testing.T) {
	g := NewTraceGenerator(10)
	assert.Equal(t, uint64(11), g.Next())
	assert.Equal(t, uint64(12), g.Next())

	var nilGen *TraceGenerator
	assert.Equal(t, uint64(0), nilGen.Next())
}
