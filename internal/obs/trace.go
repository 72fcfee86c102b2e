package obs

import (
	"sync/atomic"
	"time"
)

// TraceGenerator hands out increasing trace IDs for recorded events. Every
// event of one dispatch iteration shares the ID of the tick that caused it.
type TraceGenerator struct {
	next uint64
}

// NewTraceGenerator starts after seed. A zero seed uses the wall clock so IDs
// from separate runs do not collide.
func NewTraceGenerator(seed uint64) *TraceGenerator {
	if seed == 0 {
		seed = uint64(time.Now().UTC().UnixNano())
	}
	return &TraceGenerator{next: seed}
}

func (g *TraceGenerator) Next() uint64 {
	if g == nil {
		return 0
	}
	return atomic.AddUint64(&g.next, 1)
}

// Last returns the most recent ID without advancing.
func (g *TraceGenerator) Last() uint64 {
	if g == nil {
		return 0
	}
	return atomic.LoadUint64(&g.next)
}
