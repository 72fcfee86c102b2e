// Package execution submits orders produced by the portfolio.
package execution

import (
	"context"
	"sync"

	"github.com/yanun0323/logs"

	"fxtrader/internal/schema"
)

// Sink receives orders. Failures are the sink's concern and are only logged
// by the dispatch loop.
type Sink interface {
	Submit(ctx context.Context, order schema.Order) error
}

// Simulated accepts every order and keeps it in memory. The portfolio already
// applied the fill, so nothing else happens.
type Simulated struct {
	mu      sync.Mutex
	orders  []schema.Order
	verbose bool
}

// NewSimulated returns an empty simulated sink. verbose logs each order.
func NewSimulated(verbose bool) *Simulated {
	return &Simulated{verbose: verbose}
}

func (s *Simulated) Submit(_ context.Context, order schema.Order) error {
	s.mu.Lock()
	s.orders = append(s.orders, order)
	s.mu.Unlock()

	if s.verbose {
		logs.Infof("simulated execution: %s", order)
	}
	return nil
}

// Orders returns a copy of every submitted order.
func (s *Simulated) Orders() []schema.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]schema.Order(nil), s.orders...)
}
