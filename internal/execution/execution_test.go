package execution

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxtrader/internal/errors"
	"fxtrader/internal/schema"
	"fxtrader/pkg/exception"
	"fxtrader/pkg/oanda"
)

func buyOrder(units int64) schema.Order {
	return schema.Order{
		Instrument: schema.MustInstrument("GBPUSD"),
		Units:      units,
		OrderKind:  schema.OrderMarket,
		Side:       schema.SideBuy,
	}
}

func TestSimulated(t *testing.T) {
	s := NewSimulated(false)
	require.NoError(t, s.Submit(context.Background(), buyOrder(100)))
	require.NoError(t, s.Submit(context.Background(), buyOrder(-50)))

	orders := s.Orders()
	require.Len(t, orders, 2)
	assert.Equal(t, int64(100), orders[0].Units)
	assert.Equal(t, int64(-50), orders[1].Units)

	orders[0].Units = 1
	assert.Equal(t, int64(100), s.Orders()[0].Units)
}

func TestBrokerSubmit(t *testing.T) {
	var (
		gotPath string
		gotAuth string
		gotBody oanda.MarketOrderRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = sonic.Unmarshal(raw, &gotBody)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"orderCreateTransaction":{"id":"42","type":"MARKET_ORDER"},"lastTransactionID":"43"}`))
	}))
	defer srv.Close()

	b := NewBroker(srv.Client(), oanda.DomainPractice, "001-011", "secret", WithBaseURL(srv.URL))
	b.newID = func() string { return "client-1" }

	require.NoError(t, b.Submit(context.Background(), buyOrder(-1500)))
	assert.Equal(t, "/v3/accounts/001-011/orders", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "MARKET", gotBody.Order.Type)
	assert.Equal(t, "GBP_USD", gotBody.Order.Instrument)
	assert.Equal(t, "-1500", gotBody.Order.Units)
	assert.Equal(t, "FOK", gotBody.Order.TimeInForce)
	require.NotNil(t, gotBody.Order.ClientExtensions)
	assert.Equal(t, "client-1", gotBody.Order.ClientExtensions.ID)
}

func TestBrokerRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errorCode":"INSUFFICIENT_MARGIN","errorMessage":"no margin"}`))
	}))
	defer srv.Close()

	b := NewBroker(srv.Client(), oanda.DomainPractice, "acc", "tok", WithBaseURL(srv.URL))
	err := b.Submit(context.Background(), buyOrder(10))
	require.Error(t, err)
	assert.True(t, errors.Is(err, exception.ErrOrderResponseStatus))
	assert.Contains(t, err.Error(), "INSUFFICIENT_MARGIN")
}

func TestBrokerInvalidOrder(t *testing.T) {
	b := NewBroker(nil, oanda.DomainLive, "acc", "tok")
	assert.Equal(t, "https://api-fxtrade.oanda.com", b.baseURL)

	err := b.Submit(context.Background(), buyOrder(0))
	assert.True(t, errors.Is(err, exception.ErrOrderInvalidRequest))

	o := buyOrder(1)
	o.OrderKind = 0
	err = b.Submit(context.Background(), o)
	assert.True(t, errors.Is(err, exception.ErrOrderUnsupportedType))
}

type countingSink struct {
	mu     sync.Mutex
	orders []schema.Order
	fail   bool
}

func (s *countingSink) Submit(_ context.Context, o schema.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append(s.orders, o)
	if s.fail {
		return errors.New("boom")
	}
	return nil
}

func (s *countingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func TestAsyncDeliversQueuedOrders(t *testing.T) {
	sink := &countingSink{}
	a := NewAsync(sink, 2, 8)

	for i := range 5 {
		require.NoError(t, a.Submit(context.Background(), buyOrder(int64(i+1))))
	}

	a.Run(context.Background())
	a.Close()
	a.Wait()

	assert.Equal(t, 5, sink.count())
	assert.Zero(t, a.Failed())
}

func TestAsyncSendsOrdersSubmittedAfterCancel(t *testing.T) {
	sink := &countingSink{}
	a := NewAsync(sink, 2, 16)

	ctx, cancel := context.WithCancel(context.Background())
	a.Run(ctx)
	cancel()

	// the dispatch loop keeps submitting while it drains the bus
	require.NoError(t, a.Submit(ctx, buyOrder(1)))
	require.NoError(t, a.Submit(ctx, buyOrder(2)))
	assert.Eventually(t, func() bool { return sink.count() == 2 }, time.Second, 5*time.Millisecond)

	a.Close()
	a.Wait()
	assert.Equal(t, 2, sink.count())
	assert.Zero(t, a.Failed())
}

func TestAsyncRejectsAfterClose(t *testing.T) {
	sink := &countingSink{}
	a := NewAsync(sink, 1, 4)
	a.Run(context.Background())
	a.Close()
	a.Close()
	a.Wait()

	err := a.Submit(context.Background(), buyOrder(1))
	assert.True(t, errors.Is(err, exception.ErrOrderSinkClosed))
	assert.Zero(t, sink.count())
}

func TestAsyncQueueFull(t *testing.T) {
	a := NewAsync(&countingSink{}, 1, 1)
	require.NoError(t, a.Submit(context.Background(), buyOrder(1)))

	err := a.Submit(context.Background(), buyOrder(2))
	assert.True(t, errors.Is(err, exception.ErrOrderQueueFull))
}

func TestAsyncCountsFailures(t *testing.T) {
	sink := &countingSink{fail: true}
	a := NewAsync(sink, 1, 4)

	ctx, cancel := context.WithCancel(context.Background())
	a.Run(ctx)
	require.NoError(t, a.Submit(context.Background(), buyOrder(1)))
	require.NoError(t, a.Submit(context.Background(), buyOrder(2)))

	assert.Eventually(t, func() bool { return a.Failed() == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	a.Close()
	a.Wait()
}
