package exception

import "errors"

// Position errors
var (
	// ErrOverRemoval means more units were removed than the position holds.
	// The portfolio never issues such a call, so it is treated as fatal.
	ErrOverRemoval = errors.New("position: removing more units than held")

	ErrInvalidUnits = errors.New("position: units must be > 0")
)
