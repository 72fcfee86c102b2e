// Package ledger persists one row per tick: the cash balance plus every
// configured instrument's profit, side and size.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"fxtrader/internal/schema"
)

// Row is the portfolio state after one tick.
type Row struct {
	Time    time.Time
	Balance decimal.Decimal
	Entries []Entry
}

// Entry is one instrument's column group. Side is zero and Units 0 when flat.
type Entry struct {
	Instrument schema.Instrument
	ProfitBase decimal.Decimal
	Side       schema.PositionSide
	Units      int64
}

// Flat reports whether the instrument had no open position.
func (e Entry) Flat() bool {
	return !e.Side.IsAvailable() || e.Units == 0
}

// Total is balance plus every entry's unrealized profit.
func (r Row) Total() decimal.Decimal {
	total := r.Balance
	for _, e := range r.Entries {
		total = total.Add(e.ProfitBase)
	}
	return total
}

// Sink receives ledger rows in tick order.
type Sink interface {
	Append(Row) error
	Close() error
}

// Multi fans rows out to several sinks, stopping at the first error.
type Multi []Sink

func (m Multi) Append(r Row) error {
	for _, s := range m {
		if err := s.Append(r); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every sink and returns the first error.
func (m Multi) Close() error {
	var first error
	for _, s := range m {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Memory keeps rows in memory.
type Memory struct {
	Rows []Row
}

func (m *Memory) Append(r Row) error {
	m.Rows = append(m.Rows, r)
	return nil
}

func (m *Memory) Close() error { return nil }
