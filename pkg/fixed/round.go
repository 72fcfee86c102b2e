// Package fixed holds the fixed-point rounding rules used for prices, cash
// and profit figures. Every operation takes its rounding mode explicitly.
package fixed

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	// PricePlaces is the number of fractional digits kept for quotes and pips.
	PricePlaces int32 = 5
	// CashPlaces is the number of fractional digits kept for realized cash.
	CashPlaces int32 = 2
	// AvgPricePlaces is the precision kept for weighted-average entry prices.
	AvgPricePlaces int32 = 10
)

// RoundingMode selects how a discarded remainder is resolved.
type RoundingMode uint8

const (
	// HalfDown rounds to nearest, ties toward zero.
	HalfDown RoundingMode = iota
	// HalfUp rounds to nearest, ties away from zero.
	HalfUp
	// Down truncates toward zero.
	Down
)

func (m RoundingMode) String() string {
	switch m {
	case HalfDown:
		return "half-down"
	case HalfUp:
		return "half-up"
	case Down:
		return "down"
	default:
		return fmt.Sprintf("RoundingMode(%d)", m)
	}
}

var two = decimal.NewFromInt(2)

// Quantize rounds d to places fractional digits.
func Quantize(d decimal.Decimal, places int32, mode RoundingMode) decimal.Decimal {
	t := d.Truncate(places)
	rem := d.Sub(t)
	if rem.IsZero() || mode == Down {
		return t
	}
	// |rem| compared with half a unit in the last kept place.
	cmp := rem.Abs().Mul(two).Cmp(ulp(places))
	if roundAway(cmp, mode) {
		return t.Add(ulp(places).Mul(decimal.NewFromInt(int64(d.Sign()))))
	}
	return t
}

// Div returns a/b rounded to places fractional digits. The rounding decision
// is made on the exact remainder. Div panics when b is zero.
func Div(a, b decimal.Decimal, places int32, mode RoundingMode) decimal.Decimal {
	if b.IsZero() {
		panic("fixed: division by zero")
	}
	if b.Sign() < 0 {
		a, b = a.Neg(), b.Neg()
	}
	q, r := a.QuoRem(b, places)
	if r.IsZero() || mode == Down {
		return q
	}
	cmp := r.Abs().Mul(two).Cmp(b.Mul(ulp(places)))
	if roundAway(cmp, mode) {
		return q.Add(ulp(places).Mul(decimal.NewFromInt(int64(a.Sign()))))
	}
	return q
}

// Price quantizes to PricePlaces with HalfDown.
func Price(d decimal.Decimal) decimal.Decimal {
	return Quantize(d, PricePlaces, HalfDown)
}

func roundAway(cmp int, mode RoundingMode) bool {
	switch mode {
	case HalfDown:
		return cmp > 0
	case HalfUp:
		return cmp >= 0
	default:
		return false
	}
}

func ulp(places int32) decimal.Decimal {
	return decimal.New(1, -places)
}
