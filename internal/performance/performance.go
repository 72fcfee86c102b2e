// Package performance derives the equity curve and drawdown statistics from
// the per-tick ledger.
package performance

import (
	"time"

	"github.com/shopspring/decimal"

	"fxtrader/internal/ledger"
	"fxtrader/pkg/fixed"
)

// RatioPlaces is the precision kept for returns and the equity index.
const RatioPlaces int32 = 10

var one = decimal.NewFromInt(1)

// Point is one row of the equity report.
type Point struct {
	Time     time.Time
	Total    decimal.Decimal
	Return   decimal.Decimal
	Equity   decimal.Decimal
	HWM      decimal.Decimal
	Drawdown decimal.Decimal
	Duration int
}

// EquityCurve turns ledger rows into an equity index. Total is the balance
// plus every open profit, Return the change of Total against the previous
// row and Equity the compounded returns starting at 1.
func EquityCurve(rows []ledger.Row) []Point {
	points := make([]Point, len(rows))
	for n, row := range rows {
		p := Point{Time: row.Time, Total: row.Total(), Return: decimal.Zero, Equity: one}
		if n > 0 {
			prev := points[n-1]
			if !prev.Total.IsZero() {
				p.Return = fixed.Div(p.Total.Sub(prev.Total), prev.Total, RatioPlaces, fixed.HalfDown)
			}
			p.Equity = fixed.Quantize(prev.Equity.Mul(one.Add(p.Return)), RatioPlaces, fixed.HalfDown)
		}
		points[n] = p
	}
	return points
}

// Drawdowns fills HWM, Drawdown and Duration on points and returns the
// largest drawdown and the longest duration. The high water mark starts at
// the first equity value.
func Drawdowns(points []Point) (decimal.Decimal, int) {
	maxDD, maxDur := decimal.Zero, 0
	for n := range points {
		p := &points[n]
		if n == 0 {
			p.HWM = p.Equity
		} else {
			p.HWM = decimal.Max(points[n-1].HWM, p.Equity)
		}
		p.Drawdown = p.HWM.Sub(p.Equity)
		if p.Drawdown.Sign() > 0 && n > 0 {
			p.Duration = points[n-1].Duration + 1
		} else {
			p.Duration = 0
		}

		if p.Drawdown.GreaterThan(maxDD) {
			maxDD = p.Drawdown
		}
		if p.Duration > maxDur {
			maxDur = p.Duration
		}
	}
	return maxDD, maxDur
}

// Summary is the headline of a report.
type Summary struct {
	Rows        int
	Start       time.Time
	End         time.Time
	StartTotal  decimal.Decimal
	EndTotal    decimal.Decimal
	TotalReturn decimal.Decimal
	MaxDrawdown decimal.Decimal
	MaxDuration int
}

// Analyze builds the curve with drawdowns and its summary.
func Analyze(rows []ledger.Row) ([]Point, Summary) {
	points := EquityCurve(rows)
	maxDD, maxDur := Drawdowns(points)

	s := Summary{Rows: len(points), MaxDrawdown: maxDD, MaxDuration: maxDur}
	if len(points) == 0 {
		return points, s
	}
	first, last := points[0], points[len(points)-1]
	s.Start, s.End = first.Time, last.Time
	s.StartTotal, s.EndTotal = first.Total, last.Total
	s.TotalReturn = last.Equity.Sub(one)
	return points, s
}
