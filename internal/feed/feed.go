// Package feed produces ticks for the dispatch loop. Pull sources serve the
// replay loop, push sources publish straight into the bus.
package feed

import (
	"context"

	"fxtrader/internal/schema"
)

// Source is a pull feed. Next writes the tick's quote into the price table
// before returning it and returns exception.ErrFeedExhausted after the last
// tick.
type Source interface {
	Next(ctx context.Context) (schema.Tick, error)
}

// Quotes is the write side of the price table.
type Quotes interface {
	SetTick(tick schema.Tick) error
}

// Publisher accepts events from push feeds.
type Publisher interface {
	Publish(ctx context.Context, e schema.Event) error
}
