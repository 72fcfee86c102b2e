package strategy

import "fxtrader/internal/schema"

const defaultEvery = 5

// Alternator buys and sells one pair on every nth tick of that pair. It
// crosses the spread on purpose and exists to exercise the trading loop.
type Alternator struct {
	pair     schema.Instrument
	every    int
	ticks    int
	invested bool
}

// NewAlternator flips every `every` ticks, 5 when every <= 0.
func NewAlternator(pair schema.Instrument, every int) *Alternator {
	if every <= 0 {
		every = defaultEvery
	}
	return &Alternator{pair: pair, every: every}
}

func (a *Alternator) OnTick(tick schema.Tick) []schema.Signal {
	if tick.Instrument != a.pair {
		return nil
	}
	defer func() { a.ticks++ }()

	if a.ticks%a.every != 0 {
		return nil
	}

	side := schema.SideBuy
	if a.invested {
		side = schema.SideSell
	}
	a.invested = !a.invested

	return []schema.Signal{{
		Instrument: a.pair,
		OrderKind:  schema.OrderMarket,
		Side:       side,
		Time:       tick.Time,
	}}
}
