package recorder

import (
	"sync/atomic"
	"time"

	"fxtrader/internal/codec"
	"fxtrader/internal/obs"
	"fxtrader/internal/schema"
)

// Source identifiers stored in the record header.
const (
	SourceUnknown uint16 = iota
	SourceBacktest
	SourceStream
	SourceWebSocket
)

// Events encodes bus events and appends them to a Writer.
type Events struct {
	w      *Writer
	source uint16
	traces *obs.TraceGenerator
	seq    uint64
}

// NewEvents records into w. traces may be nil.
func NewEvents(w *Writer, source uint16, traces *obs.TraceGenerator) *Events {
	return &Events{w: w, source: source, traces: traces}
}

// Resume continues numbering after seq, the last sequence of an earlier run.
func (e *Events) Resume(seq uint64) {
	atomic.StoreUint64(&e.seq, seq)
}

// LastSeq returns the sequence of the latest record.
func (e *Events) LastSeq() uint64 {
	return atomic.LoadUint64(&e.seq)
}

// Tick records a tick and starts a new trace.
func (e *Events) Tick(t schema.Tick, recv time.Time) error {
	h := e.header(schema.EventTick, t.Time, recv)
	h.TraceID = e.traces.Next()
	return e.w.TryAppend(h, codec.EncodeTick(nil, t))
}

// Signal records a signal under the current trace.
func (e *Events) Signal(s schema.Signal, recv time.Time) error {
	h := e.header(schema.EventSignal, s.Time, recv)
	h.TraceID = e.traces.Last()
	return e.w.TryAppend(h, codec.EncodeSignal(nil, s))
}

// Order records an order under the current trace.
func (e *Events) Order(o schema.Order, recv time.Time) error {
	h := e.header(schema.EventOrder, recv, recv)
	h.TraceID = e.traces.Last()
	return e.w.TryAppend(h, codec.EncodeOrder(nil, o))
}

func (e *Events) header(t schema.EventType, event, recv time.Time) schema.EventHeader {
	return schema.NewHeader(t, e.source, atomic.AddUint64(&e.seq, 1), unixNano(event), unixNano(recv))
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

// Decode turns a record back into its bus event.
func Decode(h schema.EventHeader, payload []byte) (schema.Event, bool) {
	switch h.Type {
	case schema.EventTick:
		t, ok := codec.DecodeTick(payload)
		return t, ok
	case schema.EventSignal:
		s, ok := codec.DecodeSignal(payload)
		return s, ok
	case schema.EventOrder:
		o, ok := codec.DecodeOrder(payload)
		return o, ok
	default:
		return nil, false
	}
}
