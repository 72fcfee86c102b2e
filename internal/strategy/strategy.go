// Package strategy turns ticks into trade signals.
package strategy

import (
	"strings"

	"fxtrader/internal/errors"
	"fxtrader/internal/schema"
	"fxtrader/pkg/exception"
)

// Strategy consumes ticks and may emit signals. Implementations are driven
// from one goroutine and keep their own state.
type Strategy interface {
	OnTick(tick schema.Tick) []schema.Signal
}

const (
	NameAlternator = "alternator"
	NameMACross    = "ma_cross"

	ParamEvery       = "every"
	ParamShortWindow = "short_window"
	ParamLongWindow  = "long_window"
)

// New builds a strategy by name.
func New(name string, pairs []schema.Instrument, params map[string]int) (Strategy, error) {
	if len(pairs) == 0 {
		return nil, errors.Wrap(exception.ErrInvalidArgument, "strategy needs at least one pair")
	}

	switch strings.ToLower(name) {
	case NameAlternator, "test":
		return NewAlternator(pairs[0], params[ParamEvery]), nil
	case NameMACross, "moving_average_cross":
		return NewMovingAverageCross(pairs, params[ParamShortWindow], params[ParamLongWindow])
	default:
		return nil, errors.Wrapf(exception.ErrInvalidArgument, "unknown strategy %q", name)
	}
}
