package schema

import (
	"strings"

	"fxtrader/internal/errors"
	"fxtrader/pkg/exception"
)

const currencyLen = 3

// Instrument is a normalized currency pair such as "GBPUSD".
// The first three letters are the base currency, the last three the quote.
type Instrument string

// ParseInstrument normalizes "gbp_usd", "GBP/USD" and "GBPUSD" to "GBPUSD".
func ParseInstrument(s string) (Instrument, error) {
	r := strings.NewReplacer("_", "", "/", "", "-", "", " ", "")
	n := strings.ToUpper(r.Replace(s))
	if len(n) != 2*currencyLen {
		return "", errors.Wrapf(exception.ErrInvalidInstrument, "parse %q", s)
	}
	for _, c := range n {
		if c < 'A' || c > 'Z' {
			return "", errors.Wrapf(exception.ErrInvalidInstrument, "parse %q", s)
		}
	}
	return Instrument(n), nil
}

// MustInstrument is ParseInstrument for literals known to be valid.
func MustInstrument(s string) Instrument {
	i, err := ParseInstrument(s)
	if err != nil {
		panic(err)
	}
	return i
}

// NewInstrument joins a base and quote currency.
func NewInstrument(base, quote string) Instrument {
	return Instrument(strings.ToUpper(base) + strings.ToUpper(quote))
}

func (i Instrument) Base() string {
	if len(i) < currencyLen {
		return ""
	}
	return string(i[:currencyLen])
}

func (i Instrument) Quote() string {
	if len(i) < currencyLen {
		return ""
	}
	return string(i[currencyLen:])
}

// Invert returns the reciprocal pair, GBPUSD -> USDGBP.
func (i Instrument) Invert() Instrument {
	return Instrument(i.Quote() + i.Base())
}

// OANDA renders the broker form "GBP_USD".
func (i Instrument) OANDA() string {
	return i.Base() + "_" + i.Quote()
}

func (i Instrument) String() string {
	return string(i)
}
