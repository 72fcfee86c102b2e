// Package position tracks single-instrument exposure and its profit in the
// home currency.
package position

import (
	"github.com/shopspring/decimal"

	"fxtrader/internal/errors"
	"fxtrader/internal/price"
	"fxtrader/internal/schema"
	"fxtrader/pkg/exception"
	"fxtrader/pkg/fixed"
)

var hundred = decimal.NewFromInt(100)

// Position is an open exposure in one instrument. ProfitBase and ProfitPct are
// derived from side, prices, units and the conversion rate on every change.
type Position struct {
	home       string
	side       schema.PositionSide
	instrument schema.Instrument
	units      int64

	avgPrice   decimal.Decimal
	curPrice   decimal.Decimal
	profitBase decimal.Decimal
	profitPct  decimal.Decimal
}

// Open enters a position at the ask (long) or bid (short) and marks it at the
// opposite side.
func Open(home string, side schema.PositionSide, instrument schema.Instrument, units int64, prices price.Reader) (*Position, error) {
	if !side.IsAvailable() {
		return nil, errors.Wrapf(exception.ErrInvalidArgument, "open %s side %d", instrument, side)
	}
	if units <= 0 {
		return nil, errors.Wrapf(exception.ErrInvalidUnits, "open %s units %d", instrument, units)
	}

	q, err := prices.Quote(instrument)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}

	p := &Position{
		home:       home,
		side:       side,
		instrument: instrument,
		units:      units,
		avgPrice:   q.Side(side),
		curPrice:   q.Side(side.Opposite()),
	}
	if err := p.recalculate(prices); err != nil {
		return nil, err
	}
	return p, nil
}

// Mark refreshes the current price from the latest quote and recomputes profit.
func (p *Position) Mark(prices price.Reader) error {
	if err := p.refresh(prices); err != nil {
		return err
	}
	return p.recalculate(prices)
}

// AddUnits grows the position at the current entry price and re-weights avg price.
func (p *Position) AddUnits(n int64, prices price.Reader) error {
	if n <= 0 {
		return errors.Wrapf(exception.ErrInvalidUnits, "add %d to %s", n, p.instrument)
	}

	q, err := prices.Quote(p.instrument)
	if err != nil {
		return errors.Wrap(err, "add units")
	}

	addPrice := q.Side(p.side)
	total := p.units + n
	cost := p.avgPrice.Mul(decimal.NewFromInt(p.units)).Add(addPrice.Mul(decimal.NewFromInt(n)))

	p.avgPrice = fixed.Div(cost, decimal.NewFromInt(total), fixed.AvgPricePlaces, fixed.HalfDown)
	p.units = total

	return p.Mark(prices)
}

// RemoveUnits realizes profit on n units and returns it at cash precision.
func (p *Position) RemoveUnits(n int64, prices price.Reader) (decimal.Decimal, error) {
	if n <= 0 {
		return decimal.Zero, errors.Wrapf(exception.ErrInvalidUnits, "remove %d from %s", n, p.instrument)
	}
	if n > p.units {
		return decimal.Zero, errors.Wrapf(exception.ErrOverRemoval, "remove %d from %s holding %d", n, p.instrument, p.units)
	}

	if err := p.refresh(prices); err != nil {
		return decimal.Zero, err
	}

	// closing converts on the entry side of the quote/home pair
	rate, err := price.ConversionRate(prices, p.instrument.Quote(), p.home, p.side)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "remove units")
	}

	realized := fixed.Quantize(p.pips().Mul(rate).Mul(decimal.NewFromInt(n)), fixed.CashPlaces, fixed.HalfDown)
	p.units -= n

	if p.units == 0 {
		p.profitBase = decimal.Zero
		p.profitPct = decimal.Zero
		return realized, nil
	}

	if err := p.recalculate(prices); err != nil {
		return decimal.Zero, err
	}
	return realized, nil
}

// Close realizes every remaining unit. The caller drops the position.
func (p *Position) Close(prices price.Reader) (decimal.Decimal, error) {
	return p.RemoveUnits(p.units, prices)
}

func (p *Position) refresh(prices price.Reader) error {
	q, err := prices.Quote(p.instrument)
	if err != nil {
		return errors.Wrap(err, "mark")
	}
	p.curPrice = q.Side(p.side.Opposite())
	return nil
}

func (p *Position) pips() decimal.Decimal {
	diff := fixed.Quantize(p.curPrice.Sub(p.avgPrice), fixed.PricePlaces, fixed.HalfDown)
	if p.side == schema.PositionShort {
		return diff.Neg()
	}
	return diff
}

func (p *Position) recalculate(prices price.Reader) error {
	// marking converts on the exit side of the quote/home pair
	rate, err := price.ConversionRate(prices, p.instrument.Quote(), p.home, p.side.Opposite())
	if err != nil {
		return errors.Wrap(err, "profit")
	}

	units := decimal.NewFromInt(p.units)
	p.profitBase = fixed.Quantize(p.pips().Mul(rate).Mul(units), fixed.PricePlaces, fixed.HalfDown)
	if p.units == 0 {
		p.profitPct = decimal.Zero
		return nil
	}
	p.profitPct = fixed.Div(p.profitBase.Mul(hundred), units, fixed.PricePlaces, fixed.HalfDown)
	return nil
}

func (p *Position) Home() string { return p.home }
func (p *Position) Side() schema.PositionSide { return p.side }
func (p *Position) Instrument() schema.Instrument { return p.instrument }
func (p *Position) Units() int64 { return p.units }
func (p *Position) AvgPrice() decimal.Decimal { return p.avgPrice }
func (p *Position) CurPrice() decimal.Decimal { return p.curPrice }
func (p *Position) ProfitBase() decimal.Decimal { return p.profitBase }
func (p *Position) ProfitPct() decimal.Decimal { return p.profitPct }
func (p *Position) Pips() decimal.Decimal { return p.pips() }
