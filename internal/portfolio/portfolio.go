// Package portfolio owns the open positions and cash balance, sizes trades
// and turns signals into orders.
package portfolio

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"

	"fxtrader/internal/errors"
	"fxtrader/internal/ledger"
	"fxtrader/internal/position"
	"fxtrader/internal/price"
	"fxtrader/internal/schema"
	"fxtrader/pkg/exception"
)

// Config sizes the portfolio. Leverage is carried for reporting only.
type Config struct {
	Home         string
	Equity       decimal.Decimal
	RiskPerTrade decimal.Decimal
	Leverage     int64
	Instruments  []schema.Instrument
}

// Option customizes a Portfolio.
type Option func(*Portfolio)

// WithLedger appends one row per tick to sink.
func WithLedger(sink ledger.Sink) Option {
	return func(p *Portfolio) {
		p.ledger = sink
	}
}

// Portfolio is mutated only by the dispatch loop and needs no lock.
type Portfolio struct {
	cfg        Config
	prices     price.Reader
	balance    decimal.Decimal
	tradeUnits int64
	positions  map[schema.Instrument]*position.Position
	required   []schema.Instrument
	ledger     ledger.Sink
}

// New validates cfg and fixes the per-trade size at floor(equity * risk).
func New(cfg Config, prices price.Reader, opts ...Option) (*Portfolio, error) {
	if prices == nil {
		return nil, errors.Wrap(exception.ErrNilInstance, "portfolio prices")
	}
	if len(cfg.Home) != 3 {
		return nil, errors.Wrapf(exception.ErrInvalidArgument, "home currency %q", cfg.Home)
	}
	if cfg.Equity.Sign() <= 0 || cfg.RiskPerTrade.Sign() <= 0 {
		return nil, errors.Wrapf(exception.ErrInvalidArgument, "equity %s risk %s", cfg.Equity, cfg.RiskPerTrade)
	}
	if len(cfg.Instruments) == 0 {
		return nil, errors.Wrap(exception.ErrInvalidArgument, "no instruments")
	}

	units := cfg.Equity.Mul(cfg.RiskPerTrade).Floor().IntPart()
	if units <= 0 {
		return nil, errors.Wrapf(exception.ErrInvalidArgument, "trade units %d", units)
	}

	p := &Portfolio{
		cfg:        cfg,
		prices:     prices,
		balance:    cfg.Equity,
		tradeUnits: units,
		positions:  make(map[schema.Instrument]*position.Position, len(cfg.Instruments)),
		required:   RequiredInstruments(cfg.Home, cfg.Instruments),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// RequiredInstruments lists every pair that must be quoted before trading:
// each instrument, its reciprocal and its quote/home conversion pair.
func RequiredInstruments(home string, instruments []schema.Instrument) []schema.Instrument {
	seen := make(map[schema.Instrument]struct{}, len(instruments)*3)
	var out []schema.Instrument
	add := func(i schema.Instrument) {
		if _, ok := seen[i]; ok {
			return
		}
		seen[i] = struct{}{}
		out = append(out, i)
	}
	for _, i := range instruments {
		add(i)
		add(i.Invert())
		if i.Quote() != home {
			add(schema.NewInstrument(i.Quote(), home))
		}
	}
	return out
}

// FeedInstruments lists the pairs a feed has to deliver so that every
// required pair gets quoted. Reciprocals come from the price table, so a
// conversion pair is only added when neither it nor its inverse is traded.
func FeedInstruments(home string, instruments []schema.Instrument) []schema.Instrument {
	out := append([]schema.Instrument(nil), instruments...)
	covered := make(map[schema.Instrument]struct{}, len(instruments)*2)
	for _, i := range instruments {
		covered[i] = struct{}{}
		covered[i.Invert()] = struct{}{}
	}
	for _, i := range instruments {
		if i.Quote() == home {
			continue
		}
		c := schema.NewInstrument(i.Quote(), home)
		if _, ok := covered[c]; ok {
			continue
		}
		covered[c] = struct{}{}
		covered[c.Invert()] = struct{}{}
		out = append(out, c)
	}
	return out
}

// OnTick marks the tick's position and writes a ledger row.
func (p *Portfolio) OnTick(tick schema.Tick) error {
	if ps, ok := p.positions[tick.Instrument]; ok {
		if err := ps.Mark(p.prices); err != nil {
			return errors.Wrapf(err, "mark %s", tick.Instrument)
		}
	}

	if p.ledger == nil {
		return nil
	}
	if err := p.ledger.Append(p.Row(tick.Time)); err != nil {
		return errors.Wrap(err, "append ledger")
	}
	return nil
}

// OnSignal applies a signal. It reports false without error when the quote
// gate rejects the signal. Errors are invariant violations and are fatal.
func (p *Portfolio) OnSignal(sig schema.Signal) (schema.Order, bool, error) {
	if !p.ready() {
		logs.Infof("unable to execute %s %s, price data is insufficient, missing quotes for %v", sig.Side, sig.Instrument, p.missing())
		return schema.Order{}, false, nil
	}
	if !sig.Side.IsAvailable() {
		return schema.Order{}, false, errors.Wrapf(exception.ErrInvalidArgument, "signal side %d", sig.Side)
	}
	if !p.tracks(sig.Instrument) {
		return schema.Order{}, false, errors.Wrapf(exception.ErrInvalidInstrument, "signal for untracked %s", sig.Instrument)
	}

	if err := p.apply(sig); err != nil {
		return schema.Order{}, false, errors.Wrapf(err, "execute %s %s", sig.Side, sig.Instrument)
	}

	logs.Infof("portfolio balance: %s", p.balance.StringFixed(2))
	return schema.NewOrder(sig, p.tradeUnits), true, nil
}

func (p *Portfolio) apply(sig schema.Signal) error {
	want := sig.Side.PositionSide()
	units := p.tradeUnits

	ps, ok := p.positions[sig.Instrument]
	if !ok {
		return p.open(want, sig.Instrument, units)
	}

	if ps.Side() == want {
		return ps.AddUnits(units, p.prices)
	}

	held := ps.Units()
	switch {
	case units == held:
		return p.close(ps)
	case units < held:
		realized, err := ps.RemoveUnits(units, p.prices)
		if err != nil {
			return err
		}
		p.balance = p.balance.Add(realized)
		return nil
	default:
		if err := p.close(ps); err != nil {
			return err
		}
		return p.open(want, sig.Instrument, units-held)
	}
}

func (p *Portfolio) open(side schema.PositionSide, i schema.Instrument, units int64) error {
	ps, err := position.Open(p.cfg.Home, side, i, units, p.prices)
	if err != nil {
		return err
	}
	p.positions[i] = ps
	return nil
}

func (p *Portfolio) close(ps *position.Position) error {
	realized, err := ps.Close(p.prices)
	if err != nil {
		return err
	}
	p.balance = p.balance.Add(realized)
	delete(p.positions, ps.Instrument())
	return nil
}

func (p *Portfolio) tracks(i schema.Instrument) bool {
	for _, c := range p.cfg.Instruments {
		if c == i {
			return true
		}
	}
	return false
}

func (p *Portfolio) ready() bool {
	return p.prices.AllReady() && p.prices.AllReady(p.required...)
}

func (p *Portfolio) missing() []schema.Instrument {
	var out []schema.Instrument
	for _, i := range p.required {
		if !p.prices.AllReady(i) {
			out = append(out, i)
		}
	}
	return out
}

// Row renders the ledger row for the current state.
func (p *Portfolio) Row(ts time.Time) ledger.Row {
	row := ledger.Row{
		Time:    ts,
		Balance: p.balance,
		Entries: make([]ledger.Entry, len(p.cfg.Instruments)),
	}
	for n, i := range p.cfg.Instruments {
		row.Entries[n] = ledger.Entry{Instrument: i, ProfitBase: decimal.Zero}
		if ps, ok := p.positions[i]; ok {
			row.Entries[n] = ledger.Entry{
				Instrument: i,
				ProfitBase: ps.ProfitBase(),
				Side:       ps.Side(),
				Units:      ps.Units(),
			}
		}
	}
	return row
}

// Close flushes and closes the attached ledger.
func (p *Portfolio) Close() error {
	if p.ledger == nil {
		return nil
	}
	return p.ledger.Close()
}

func (p *Portfolio) Balance() decimal.Decimal {
	return p.balance
}

// Equity is the balance plus unrealized profit of every open position.
func (p *Portfolio) Equity() decimal.Decimal {
	e := p.balance
	for _, ps := range p.positions {
		e = e.Add(ps.ProfitBase())
	}
	return e
}

func (p *Portfolio) TradeUnits() int64 {
	return p.tradeUnits
}

func (p *Portfolio) Config() Config {
	return p.cfg
}
