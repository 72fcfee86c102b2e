package obs

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fxtrader/internal/schema"
)

const namespace = "fxtrader"

// Collector exposes a Metrics snapshot to Prometheus on every scrape.
type Collector struct {
	m *Metrics

	events          *prometheus.Desc
	rejectedSignals *prometheus.Desc
	orderFailures   *prometheus.Desc
	queueDrops      *prometheus.Desc
	queueClosed     *prometheus.Desc
	latencyCount    *prometheus.Desc
	latencySum      *prometheus.Desc
	latencyMax      *prometheus.Desc
}

// NewCollector wraps m.
func NewCollector(m *Metrics) *Collector {
	return &Collector{
		m:               m,
		events:          prometheus.NewDesc(namespace+"_events_total", "Dispatched events by kind.", []string{"kind"}, nil),
		rejectedSignals: prometheus.NewDesc(namespace+"_rejected_signals_total", "Signals rejected by the quote gate.", nil, nil),
		orderFailures:   prometheus.NewDesc(namespace+"_order_failures_total", "Orders the execution sink failed to submit.", nil, nil),
		queueDrops:      prometheus.NewDesc(namespace+"_queue_drops_total", "Events dropped on a full bus.", nil, nil),
		queueClosed:     prometheus.NewDesc(namespace+"_queue_closed_total", "Publish attempts on a closed bus.", nil, nil),
		latencyCount:    prometheus.NewDesc(namespace+"_latency_samples_total", "Latency samples by stage.", []string{"stage"}, nil),
		latencySum:      prometheus.NewDesc(namespace+"_latency_seconds_sum", "Summed latency by stage.", []string{"stage"}, nil),
		latencyMax:      prometheus.NewDesc(namespace+"_latency_seconds_max", "Maximum latency by stage.", []string{"stage"}, nil),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.events
	ch <- c.rejectedSignals
	ch <- c.orderFailures
	ch <- c.queueDrops
	ch <- c.queueClosed
	ch <- c.latencyCount
	ch <- c.latencySum
	ch <- c.latencyMax
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.m.Snapshot()

	for _, k := range []schema.Kind{schema.KindTick, schema.KindSignal, schema.KindOrder} {
		ch <- prometheus.MustNewConstMetric(c.events, prometheus.CounterValue, float64(s.EventCounts[k]), k.String())
	}
	ch <- prometheus.MustNewConstMetric(c.rejectedSignals, prometheus.CounterValue, float64(s.RejectedSignals))
	ch <- prometheus.MustNewConstMetric(c.orderFailures, prometheus.CounterValue, float64(s.OrderFailures))
	ch <- prometheus.MustNewConstMetric(c.queueDrops, prometheus.CounterValue, float64(s.QueueDrops))
	ch <- prometheus.MustNewConstMetric(c.queueClosed, prometheus.CounterValue, float64(s.QueueClosed))

	stages := map[string]LatencySnapshot{
		"tick":     s.TickLatency,
		"dispatch": s.DispatchLatency,
		"order":    s.OrderLatency,
	}
	for stage, l := range stages {
		ch <- prometheus.MustNewConstMetric(c.latencyCount, prometheus.CounterValue, float64(l.Count), stage)
		ch <- prometheus.MustNewConstMetric(c.latencySum, prometheus.CounterValue, l.Sum.Seconds(), stage)
		ch <- prometheus.MustNewConstMetric(c.latencyMax, prometheus.GaugeValue, l.Max.Seconds(), stage)
	}
}

// Serve registers m on a fresh registry and serves /metrics on addr.
func Serve(addr string, m *Metrics) (*http.Server, error) {
	reg := prometheus.NewRegistry()
	if err := reg.Register(NewCollector(m)); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = srv.ListenAndServe() }()
	return srv, nil
}
