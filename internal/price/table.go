// Package price keeps the latest bid/ask per instrument together with its
// reciprocal pair.
package price

import (
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"fxtrader/internal/errors"
	"fxtrader/internal/schema"
	"fxtrader/pkg/exception"
	"fxtrader/pkg/fixed"
)

var one = decimal.NewFromInt(1)

// Quote is an immutable bid/ask record. The table replaces records, it never
// edits them.
type Quote struct {
	Bid  decimal.Decimal
	Ask  decimal.Decimal
	Time time.Time
}

// Side returns the ask for long and the bid for short.
func (q Quote) Side(s schema.PositionSide) decimal.Decimal {
	if s == schema.PositionShort {
		return q.Bid
	}
	return q.Ask
}

// Reader is the read-only view used by positions and the portfolio.
type Reader interface {
	Quote(i schema.Instrument) (Quote, error)
	AllReady(instruments ...schema.Instrument) bool
}

// Table maps instruments to their latest quote. Every tracked pair is stored
// with its reciprocal. Safe for one writer and many readers.
type Table struct {
	mu     sync.RWMutex
	quotes map[schema.Instrument]*Quote
}

// NewTable tracks the given pairs and their reciprocals, all unpopulated.
func NewTable(instruments ...schema.Instrument) *Table {
	t := &Table{quotes: make(map[schema.Instrument]*Quote, len(instruments)*2)}
	for _, i := range instruments {
		t.quotes[i] = nil
		t.quotes[i.Invert()] = nil
	}
	return t
}

// Track adds pairs after construction.
func (t *Table) Track(instruments ...schema.Instrument) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, i := range instruments {
		if _, ok := t.quotes[i]; !ok {
			t.quotes[i] = nil
		}
		if _, ok := t.quotes[i.Invert()]; !ok {
			t.quotes[i.Invert()] = nil
		}
	}
}

// SetQuote writes the direct quote and its reciprocal under one lock.
func (t *Table) SetQuote(i schema.Instrument, bid, ask decimal.Decimal, ts time.Time) error {
	direct := &Quote{Bid: fixed.Price(bid), Ask: fixed.Price(ask), Time: ts}
	// checked after quantizing, a price that rounds to zero has no reciprocal
	if direct.Bid.Sign() <= 0 || direct.Ask.Sign() <= 0 {
		return errors.Wrapf(exception.ErrInvalidQuote, "%s bid %s ask %s", i, bid, ask)
	}
	invBid, invAsk := Invert(direct.Bid, direct.Ask)
	inverse := &Quote{Bid: invBid, Ask: invAsk, Time: ts}

	t.mu.Lock()
	t.quotes[i] = direct
	t.quotes[i.Invert()] = inverse
	t.mu.Unlock()

	return nil
}

// SetTick is SetQuote for a tick event.
func (t *Table) SetTick(tick schema.Tick) error {
	return t.SetQuote(tick.Instrument, tick.Bid, tick.Ask, tick.Time)
}

// Quote returns a copy of the latest quote.
func (t *Table) Quote(i schema.Instrument) (Quote, error) {
	t.mu.RLock()
	q := t.quotes[i]
	t.mu.RUnlock()

	if q == nil {
		return Quote{}, errors.Wrapf(exception.ErrQuoteUnavailable, "%s", i)
	}
	return *q, nil
}

// AllReady reports whether every named instrument has a quote. With no
// arguments it checks every tracked entry.
func (t *Table) AllReady(instruments ...schema.Instrument) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(instruments) == 0 {
		for _, q := range t.quotes {
			if q == nil {
				return false
			}
		}
		return len(t.quotes) != 0
	}

	for _, i := range instruments {
		if t.quotes[i] == nil {
			return false
		}
	}
	return true
}

// Missing lists tracked instruments with no quote yet.
func (t *Table) Missing() []schema.Instrument {
	t.mu.RLock()
	var out []schema.Instrument
	for i, q := range t.quotes {
		if q == nil {
			out = append(out, i)
		}
	}
	t.mu.RUnlock()

	sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
	return out
}

// Instruments returns the tracked set, sorted.
func (t *Table) Instruments() []schema.Instrument {
	t.mu.RLock()
	out := make([]schema.Instrument, 0, len(t.quotes))
	for i := range t.quotes {
		out = append(out, i)
	}
	t.mu.RUnlock()

	sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
	return out
}

// ConversionRate reads the quote->home rate from the pair quote+home.
// A quote currency equal to home converts at 1.
func ConversionRate(r Reader, quote, home string, side schema.PositionSide) (decimal.Decimal, error) {
	if quote == home {
		return one, nil
	}
	q, err := r.Quote(schema.NewInstrument(quote, home))
	if err != nil {
		return decimal.Zero, err
	}
	return q.Side(side), nil
}

// Invert computes the reciprocal pair's bid and ask at 5 places, half-down.
// The reciprocal bid comes from the direct bid and the reciprocal ask from
// the direct ask.
func Invert(bid, ask decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	return fixed.Div(one, bid, fixed.PricePlaces, fixed.HalfDown),
		fixed.Div(one, ask, fixed.PricePlaces, fixed.HalfDown)
}
