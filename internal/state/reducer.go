package state

import (
	"time"

	"github.com/shopspring/decimal"

	"fxtrader/internal/schema"
)

// NetPositions folds signed order units into a net position per instrument.
type NetPositions struct {
	units map[schema.Instrument]int64
}

func NewNetPositions() *NetPositions {
	return &NetPositions{units: make(map[schema.Instrument]int64)}
}

// ApplyOrder adds the order's signed units and returns the new net.
func (r *NetPositions) ApplyOrder(order schema.Order) int64 {
	next := r.units[order.Instrument] + order.Units
	if next == 0 {
		delete(r.units, order.Instrument)
	} else {
		r.units[order.Instrument] = next
	}
	return next
}

// ApplySnapshot replaces positions with a snapshot.
func (r *NetPositions) ApplySnapshot(snapshot Snapshot) {
	clear(r.units)
	for _, entry := range snapshot.Positions {
		if entry.Units != 0 {
			r.units[entry.Instrument] = entry.Units
		}
	}
}

func (r *NetPositions) Units(i schema.Instrument) int64 {
	return r.units[i]
}

// Count returns the number of non-flat instruments.
func (r *NetPositions) Count() int {
	return len(r.units)
}

// Instruments lists non-flat instruments in name order.
func (r *NetPositions) Instruments() []schema.Instrument {
	out := make([]schema.Instrument, 0, len(r.units))
	for i := range r.units {
		out = append(out, i)
	}
	sortInstruments(out)
	return out
}

// Snapshot renders the net positions. Only units are known here, so the
// price and cash fields stay zero.
func (r *NetPositions) Snapshot(at time.Time, lastSeq uint64) Snapshot {
	entries := make([]PositionEntry, 0, len(r.units))
	for _, i := range r.Instruments() {
		entries = append(entries, PositionEntry{Instrument: i, Units: r.units[i], AvgPrice: decimal.Zero, ProfitBase: decimal.Zero})
	}
	return Snapshot{
		Timestamp: at.UTC().UnixNano(),
		LastSeq:   lastSeq,
		Balance:   decimal.Zero,
		Equity:    decimal.Zero,
		Positions: entries,
	}
}
