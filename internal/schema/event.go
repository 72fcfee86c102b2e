package schema

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Event is the unit passed through the bus. Implementations are value types
// and are never mutated after construction.
type Event interface {
	Kind() Kind
	String() string
}

// Tick is a bid/ask update for one instrument.
type Tick struct {
	Instrument Instrument
	Time       time.Time
	Bid        decimal.Decimal
	Ask        decimal.Decimal
}

func (Tick) Kind() Kind { return KindTick }

func (t Tick) String() string {
	return fmt.Sprintf("Type: %s, Instrument: %s, Time: %s, Bid: %s, Ask: %s",
		KindTick, t.Instrument, t.Time.Format(time.RFC3339Nano), t.Bid, t.Ask)
}

// Signal is a strategy's intent to trade one instrument.
type Signal struct {
	Instrument Instrument
	OrderKind  OrderKind
	Side       Side
	Time       time.Time
}

func (Signal) Kind() Kind { return KindSignal }

func (s Signal) String() string {
	return fmt.Sprintf("Type: %s, Instrument: %s, Order Type: %s, Side: %s",
		KindSignal, s.Instrument, s.OrderKind, s.Side)
}

// Order is a concrete instruction. Units is positive for buy and negative for sell.
type Order struct {
	Instrument Instrument
	Units      int64
	OrderKind  OrderKind
	Side       Side
}

func (Order) Kind() Kind { return KindOrder }

func (o Order) String() string {
	return fmt.Sprintf("Type: %s, Instrument: %s, Units: %d, Order Type: %s, Side: %s",
		KindOrder, o.Instrument, o.Units, o.OrderKind, o.Side)
}

// NewOrder sizes an order for a signal: +units for buy, -units for sell.
func NewOrder(s Signal, units int64) Order {
	if units < 0 {
		units = -units
	}
	if s.Side == SideSell {
		units = -units
	}
	return Order{
		Instrument: s.Instrument,
		Units:      units,
		OrderKind:  s.OrderKind,
		Side:       s.Side,
	}
}
