package exception

import "errors"

// Price table errors
var (
	// ErrInvalidQuote is returned when a bid or ask is not strictly positive.
	ErrInvalidQuote = errors.New("quote: non-positive price")

	// ErrQuoteUnavailable is returned when an instrument has never been quoted.
	ErrQuoteUnavailable = errors.New("quote: unavailable")

	// ErrInvalidInstrument is returned for symbols that are not a six letter pair.
	ErrInvalidInstrument = errors.New("quote: invalid instrument")
)
