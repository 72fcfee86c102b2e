package portfolio

import (
	"github.com/shopspring/decimal"

	"fxtrader/internal/position"
	"fxtrader/internal/schema"
)

// PositionView is a read-only copy of an open position.
type PositionView struct {
	Instrument schema.Instrument
	Side       schema.PositionSide
	Units      int64
	AvgPrice   decimal.Decimal
	CurPrice   decimal.Decimal
	ProfitBase decimal.Decimal
	ProfitPct  decimal.Decimal
}

func viewOf(ps *position.Position) PositionView {
	return PositionView{
		Instrument: ps.Instrument(),
		Side:       ps.Side(),
		Units:      ps.Units(),
		AvgPrice:   ps.AvgPrice(),
		CurPrice:   ps.CurPrice(),
		ProfitBase: ps.ProfitBase(),
		ProfitPct:  ps.ProfitPct(),
	}
}

// Position returns a copy of the open position for i.
func (p *Portfolio) Position(i schema.Instrument) (PositionView, bool) {
	ps, ok := p.positions[i]
	if !ok {
		return PositionView{}, false
	}
	return viewOf(ps), true
}

// Positions returns copies of the open positions in configured instrument order.
func (p *Portfolio) Positions() []PositionView {
	out := make([]PositionView, 0, len(p.positions))
	for _, i := range p.cfg.Instruments {
		if ps, ok := p.positions[i]; ok {
			out = append(out, viewOf(ps))
		}
	}
	return out
}
