package strategy

import (
	"github.com/shopspring/decimal"

	"fxtrader/internal/errors"
	"fxtrader/internal/schema"
	"fxtrader/pkg/exception"
	"fxtrader/pkg/fixed"
)

const (
	defaultShortWindow = 500
	defaultLongWindow  = 2000
)

// MovingAverageCross is long only: it buys when the short rolling SMA of the
// bid rises above the long one and sells when it falls back below. Signals
// start once more than shortWindow ticks have been seen for the pair.
type MovingAverageCross struct {
	shortWindow int
	longWindow  int
	pairs       map[schema.Instrument]*smaState
}

type smaState struct {
	ticks    int
	invested bool
	short    decimal.Decimal
	long     decimal.Decimal
}

// NewMovingAverageCross uses 500/2000 when a window is <= 0.
func NewMovingAverageCross(pairs []schema.Instrument, shortWindow, longWindow int) (*MovingAverageCross, error) {
	if shortWindow <= 0 {
		shortWindow = defaultShortWindow
	}
	if longWindow <= 0 {
		longWindow = defaultLongWindow
	}
	if shortWindow >= longWindow {
		return nil, errors.Wrapf(exception.ErrInvalidArgument, "short window %d must be below long window %d", shortWindow, longWindow)
	}

	m := &MovingAverageCross{
		shortWindow: shortWindow,
		longWindow:  longWindow,
		pairs:       make(map[schema.Instrument]*smaState, len(pairs)),
	}
	for _, p := range pairs {
		m.pairs[p] = &smaState{}
	}
	return m, nil
}

// rolling folds price into an SMA kept at AvgPricePlaces, half-down.
func rolling(prev decimal.Decimal, window int, price decimal.Decimal) decimal.Decimal {
	w := decimal.NewFromInt(int64(window))
	sum := prev.Mul(w.Sub(decimal.NewFromInt(1))).Add(price)
	return fixed.Div(sum, w, fixed.AvgPricePlaces, fixed.HalfDown)
}

func (m *MovingAverageCross) OnTick(tick schema.Tick) []schema.Signal {
	st, ok := m.pairs[tick.Instrument]
	if !ok {
		return nil
	}
	defer func() { st.ticks++ }()

	price := tick.Bid
	if st.ticks == 0 {
		st.short, st.long = price, price
	} else {
		st.short = rolling(st.short, m.shortWindow, price)
		st.long = rolling(st.long, m.longWindow, price)
	}

	if st.ticks <= m.shortWindow {
		return nil
	}

	switch {
	case st.short.GreaterThan(st.long) && !st.invested:
		st.invested = true
		return []schema.Signal{m.signal(tick, schema.SideBuy)}
	case st.short.LessThan(st.long) && st.invested:
		st.invested = false
		return []schema.Signal{m.signal(tick, schema.SideSell)}
	}
	return nil
}

func (m *MovingAverageCross) signal(tick schema.Tick, side schema.Side) schema.Signal {
	return schema.Signal{
		Instrument: tick.Instrument,
		OrderKind:  schema.OrderMarket,
		Side:       side,
		Time:       tick.Time,
	}
}
