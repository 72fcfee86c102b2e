package exception

import "errors"

// Feed errors
var (
	// ErrFeedExhausted marks the end of a historical feed. It is a terminal
	// signal, not a failure.
	ErrFeedExhausted = errors.New("feed: exhausted")

	ErrConnectionFailure = errors.New("feed: connection failure")
	ErrStreamTerminated  = errors.New("feed: stream terminated")
)
