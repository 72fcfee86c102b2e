package price

import (
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxtrader/internal/schema"
	"fxtrader/pkg/exception"
)

var (
	gbpusd = schema.MustInstrument("GBPUSD")
	usdgbp = schema.MustInstrument("USDGBP")
	eurusd = schema.MustInstrument("EURUSD")
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestSetQuoteWritesReciprocal(t *testing.T) {
	table := NewTable(gbpusd)
	ts := time.Date(2017, 1, 3, 0, 0, 0, 0, time.UTC)

	require.NoError(t, table.SetQuote(gbpusd, d("1.30000"), d("1.30010"), ts))

	direct, err := table.Quote(gbpusd)
	require.NoError(t, err)
	assert.True(t, direct.Bid.Equal(d("1.3")), "bid %s", direct.Bid)
	assert.True(t, direct.Ask.Equal(d("1.3001")), "ask %s", direct.Ask)
	assert.Equal(t, ts, direct.Time)

	inverse, err := table.Quote(usdgbp)
	require.NoError(t, err)
	assert.Equal(t, "0.76923", inverse.Bid.StringFixed(5))
	assert.Equal(t, "0.76917", inverse.Ask.StringFixed(5))
	assert.Equal(t, ts, inverse.Time)
}

func TestSetQuoteQuantizesHalfDown(t *testing.T) {
	table := NewTable(eurusd)
	require.NoError(t, table.SetQuote(eurusd, d("1.100005"), d("1.1000051"), time.Time{}))

	q, err := table.Quote(eurusd)
	require.NoError(t, err)
	assert.Equal(t, "1.10000", q.Bid.StringFixed(5))
	assert.Equal(t, "1.10001", q.Ask.StringFixed(5))
}

func TestSetQuoteRejectsNonPositive(t *testing.T) {
	testCases := []struct {
		desc     string
		bid, ask string
	}{
		{"zero bid", "0", "1.1"},
		{"zero ask", "1.1", "0"},
		{"negative bid", "-1.1", "1.1"},
		{"negative ask", "1.1", "-0.00001"},
		{"bid rounds to zero", "0.000004", "1.3"},
		{"ask tie rounds to zero", "1.3", "0.000005"},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			table := NewTable(eurusd)
			err := table.SetQuote(eurusd, d(tc.bid), d(tc.ask), time.Time{})
			require.ErrorIs(t, err, exception.ErrInvalidQuote)

			_, err = table.Quote(eurusd)
			require.ErrorIs(t, err, exception.ErrQuoteUnavailable)
		})
	}
}

func TestQuoteUnavailable(t *testing.T) {
	table := NewTable(gbpusd)

	_, err := table.Quote(gbpusd)
	require.ErrorIs(t, err, exception.ErrQuoteUnavailable)

	_, err = table.Quote(schema.MustInstrument("AUDJPY"))
	require.ErrorIs(t, err, exception.ErrQuoteUnavailable)
}

func TestAllReady(t *testing.T) {
	table := NewTable(gbpusd, eurusd)
	assert.False(t, table.AllReady())
	assert.Len(t, table.Missing(), 4)

	require.NoError(t, table.SetQuote(gbpusd, d("1.3"), d("1.3001"), time.Time{}))
	assert.True(t, table.AllReady(gbpusd, usdgbp))
	assert.False(t, table.AllReady(eurusd))
	assert.False(t, table.AllReady())
	assert.Equal(t, []schema.Instrument{eurusd, "USDEUR"}, table.Missing())

	require.NoError(t, table.SetQuote(eurusd, d("1.1"), d("1.1001"), time.Time{}))
	assert.True(t, table.AllReady())
	assert.Empty(t, table.Missing())
	assert.False(t, NewTable().AllReady())
}

func TestInstruments(t *testing.T) {
	table := NewTable(gbpusd, eurusd)
	assert.Equal(t, []schema.Instrument{eurusd, gbpusd, "USDEUR", usdgbp}, table.Instruments())

	table.Track(schema.MustInstrument("USDJPY"))
	assert.Len(t, table.Instruments(), 6)
}

func TestConversionRate(t *testing.T) {
	table := NewTable(gbpusd)
	require.NoError(t, table.SetQuote(gbpusd, d("1.30000"), d("1.30010"), time.Time{}))

	testCases := []struct {
		desc     string
		quote    string
		home     string
		side     schema.PositionSide
		expected string
	}{
		{"long reads ask", "USD", "GBP", schema.PositionLong, "0.76917"},
		{"short reads bid", "USD", "GBP", schema.PositionShort, "0.76923"},
		{"direct pair", "GBP", "USD", schema.PositionLong, "1.3001"},
		{"same currency", "GBP", "GBP", schema.PositionShort, "1"},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			rate, err := ConversionRate(table, tc.quote, tc.home, tc.side)
			require.NoError(t, err)
			assert.True(t, rate.Equal(d(tc.expected)), "rate %s", rate)
		})
	}

	_, err := ConversionRate(table, "JPY", "GBP", schema.PositionLong)
	require.ErrorIs(t, err, exception.ErrQuoteUnavailable)
}

func TestReciprocalProperty(t *testing.T) {
	table := NewTable(eurusd)
	quotes := [][2]string{
		{"1.05", "1.05012"},
		{"1.13579", "1.13591"},
		{"0.99999", "1.00001"},
		{"1.23456", "1.23467"},
	}

	for _, q := range quotes {
		require.NoError(t, table.SetQuote(eurusd, d(q[0]), d(q[1]), time.Time{}))
		direct, err := table.Quote(eurusd)
		require.NoError(t, err)
		inverse, err := table.Quote("USDEUR")
		require.NoError(t, err)

		bid, ask := Invert(direct.Bid, direct.Ask)
		assert.True(t, inverse.Bid.Equal(bid))
		assert.True(t, inverse.Ask.Equal(ask))
		assert.True(t, inverse.Bid.Exponent() >= -5)
	}
}

func TestConcurrentReadsNeverTear(t *testing.T) {
	table := NewTable(eurusd)
	require.NoError(t, table.SetQuote(eurusd, d("1.1"), d("1.1"), time.Time{}))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for n := int64(1); n <= 2000; n++ {
			p := decimal.New(100000+n, -5)
			_ = table.SetQuote(eurusd, p, p, time.Time{})
		}
	}()

	for range 2000 {
		q, err := table.Quote(eurusd)
		require.NoError(t, err)
		require.True(t, q.Bid.Equal(q.Ask), "torn quote bid %s ask %s", q.Bid, q.Ask)
	}
	wg.Wait()
}
