// Package codec serializes bus events into fixed-size little-endian payloads
// for the WAL. Prices are stored as integers scaled by 10^5.
package codec

import (
	"github.com/shopspring/decimal"

	"fxtrader/internal/schema"
	"fxtrader/pkg/fixed"
)

const instrumentSize = 6

func putInstrument(dst []byte, i schema.Instrument) {
	_ = dst[instrumentSize-1]
	for n := range instrumentSize {
		dst[n] = ' '
	}
	copy(dst[:instrumentSize], i)
}

func getInstrument(src []byte) schema.Instrument {
	end := instrumentSize
	for end > 0 && (src[end-1] == ' ' || src[end-1] == 0) {
		end--
	}
	return schema.Instrument(src[:end])
}

// ScalePrice converts a quote to its 10^-5 integer form, half-down.
func ScalePrice(d decimal.Decimal) int64 {
	return fixed.Price(d).Shift(fixed.PricePlaces).IntPart()
}

// UnscalePrice reverses ScalePrice.
func UnscalePrice(v int64) decimal.Decimal {
	return decimal.New(v, -fixed.PricePlaces)
}

func grow(dst []byte, size int) []byte {
	if cap(dst) < size {
		return make([]byte, size)
	}
	return dst[:size]
}
