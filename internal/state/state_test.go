package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxtrader/internal/errors"
	"fxtrader/internal/obs"
	"fxtrader/internal/portfolio"
	"fxtrader/internal/price"
	"fxtrader/internal/recorder"
	"fxtrader/internal/schema"
	"fxtrader/pkg/exception"
)

var (
	gbpusd = schema.MustInstrument("GBPUSD")
	eurusd = schema.MustInstrument("EURUSD")
	at     = time.Date(2018, 7, 2, 12, 0, 0, 0, time.UTC)
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func longPortfolio(t *testing.T) *portfolio.Portfolio {
	t.Helper()
	table := price.NewTable(gbpusd)
	require.NoError(t, table.SetQuote(gbpusd, d("1.30000"), d("1.30010"), at))

	p, err := portfolio.New(portfolio.Config{
		Home:         "USD",
		Equity:       decimal.NewFromInt(100000),
		RiskPerTrade: d("0.02"),
		Instruments:  []schema.Instrument{gbpusd},
	}, table)
	require.NoError(t, err)

	_, ok, err := p.OnSignal(schema.Signal{Instrument: gbpusd, OrderKind: schema.OrderMarket, Side: schema.SideBuy, Time: at})
	require.NoError(t, err)
	require.True(t, ok)
	return p
}

func TestFromPortfolio(t *testing.T) {
	snap := FromPortfolio(longPortfolio(t), at, 7)

	assert.Equal(t, at.UnixNano(), snap.Timestamp)
	assert.Equal(t, uint64(7), snap.LastSeq)
	assert.True(t, snap.Balance.Equal(d("100000")))
	assert.True(t, snap.Equity.Equal(d("99999.8")))
	require.Len(t, snap.Positions, 1)
	assert.Equal(t, gbpusd, snap.Positions[0].Instrument)
	assert.Equal(t, int64(2000), snap.Positions[0].Units)
	assert.True(t, snap.Positions[0].AvgPrice.Equal(d("1.3001")))
}

func TestSnapshotFile(t *testing.T) {
	snap := FromPortfolio(longPortfolio(t), at, 3)
	path := filepath.Join(t.TempDir(), "run", "snapshot.json")

	require.NoError(t, WriteSnapshot(path, snap))
	got, err := ReadSnapshot(path)
	require.NoError(t, err)

	assert.NoError(t, CompareSnapshots(snap, got))
	assert.Equal(t, snap.LastSeq, got.LastSeq)

	_, err = ReadSnapshot(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestCompareSnapshots(t *testing.T) {
	base := Snapshot{
		Balance: d("100000"),
		Equity:  d("99999.8"),
		Positions: []PositionEntry{
			{Instrument: gbpusd, Units: 2000, AvgPrice: d("1.3001"), ProfitBase: d("-0.2")},
		},
	}

	testCases := []struct {
		desc   string
		mutate func(s *Snapshot)
		ok     bool
	}{
		{"equal", func(s *Snapshot) { s.Timestamp = 42 }, true},
		{"balance", func(s *Snapshot) { s.Balance = d("100000.01") }, false},
		{"equity", func(s *Snapshot) { s.Equity = d("1") }, false},
		{"missing position", func(s *Snapshot) { s.Positions = nil }, false},
		{"other instrument", func(s *Snapshot) { s.Positions[0].Instrument = eurusd }, false},
		{"units", func(s *Snapshot) { s.Positions[0].Units = -2000 }, false},
		{"avg price", func(s *Snapshot) { s.Positions[0].AvgPrice = d("1.3") }, false},
		{"profit", func(s *Snapshot) { s.Positions[0].ProfitBase = d("0") }, false},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			actual := base
			actual.Positions = append([]PositionEntry(nil), base.Positions...)
			tc.mutate(&actual)

			err := CompareSnapshots(base, actual)
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, exception.ErrSnapshotMismatch))
		})
	}
}

func TestNetPositions(t *testing.T) {
	r := NewNetPositions()
	assert.Equal(t, int64(2000), r.ApplyOrder(schema.Order{Instrument: gbpusd, Units: 2000}))
	assert.Equal(t, int64(-150), r.ApplyOrder(schema.Order{Instrument: eurusd, Units: -150}))
	assert.Equal(t, int64(0), r.ApplyOrder(schema.Order{Instrument: gbpusd, Units: -2000}))
	assert.Equal(t, 1, r.Count())
	assert.Equal(t, []schema.Instrument{eurusd}, r.Instruments())

	r.ApplySnapshot(Snapshot{Positions: []PositionEntry{{Instrument: gbpusd, Units: 50}, {Instrument: eurusd, Units: 0}}})
	assert.Equal(t, int64(50), r.Units(gbpusd))
	assert.Zero(t, r.Units(eurusd))
	assert.Equal(t, 1, r.Count())
}

func writeOrders(t *testing.T, dir string) {
	t.Helper()
	w, err := recorder.NewWriter(recorder.DefaultConfig(dir))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))

	ev := recorder.NewEvents(w, recorder.SourceStream, obs.NewTraceGenerator(1))
	require.NoError(t, ev.Tick(schema.Tick{Instrument: gbpusd, Time: at, Bid: d("1.3"), Ask: d("1.3001")}, at))
	for _, o := range []schema.Order{
		{Instrument: gbpusd, Units: 2000, OrderKind: schema.OrderMarket, Side: schema.SideBuy},
		{Instrument: gbpusd, Units: -500, OrderKind: schema.OrderMarket, Side: schema.SideSell},
		{Instrument: eurusd, Units: 100, OrderKind: schema.OrderMarket, Side: schema.SideBuy},
	} {
		require.NoError(t, ev.Order(o, at))
	}
	require.NoError(t, w.Close())
}

func TestRecoverPositions(t *testing.T) {
	dir := t.TempDir()
	writeOrders(t, dir)

	res, err := RecoverPositions(context.Background(), RecoverConfig{WALDir: dir})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Orders)
	assert.Equal(t, uint64(4), res.LastSeq)
	assert.Equal(t, int64(1500), res.Positions.Units(gbpusd))
	assert.Equal(t, int64(100), res.Positions.Units(eurusd))
}

func TestRecoverPositionsFromSnapshot(t *testing.T) {
	dir := t.TempDir()
	writeOrders(t, dir)

	snapPath := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, WriteSnapshot(snapPath, Snapshot{
		LastSeq:   2,
		Positions: []PositionEntry{{Instrument: gbpusd, Units: 2000}},
	}))

	res, err := RecoverPositions(context.Background(), RecoverConfig{WALDir: dir, SnapshotPath: snapPath})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Orders)
	assert.Equal(t, uint64(4), res.LastSeq)
	assert.Equal(t, int64(1500), res.Positions.Units(gbpusd))
	assert.Equal(t, int64(100), res.Positions.Units(eurusd))
}

func TestNetPositionsSnapshotRecovers(t *testing.T) {
	dir := t.TempDir()
	writeOrders(t, dir)

	res, err := RecoverPositions(context.Background(), RecoverConfig{WALDir: dir})
	require.NoError(t, err)

	snap := res.Positions.Snapshot(at, res.LastSeq)
	assert.Equal(t, uint64(4), snap.LastSeq)
	assert.Equal(t, []PositionEntry{
		{Instrument: eurusd, Units: 100, AvgPrice: decimal.Zero, ProfitBase: decimal.Zero},
		{Instrument: gbpusd, Units: 1500, AvgPrice: decimal.Zero, ProfitBase: decimal.Zero},
	}, snap.Positions)

	snapPath := filepath.Join(t.TempDir(), "positions.json")
	require.NoError(t, WriteSnapshot(snapPath, snap))

	again, err := RecoverPositions(context.Background(), RecoverConfig{WALDir: dir, SnapshotPath: snapPath})
	require.NoError(t, err)
	assert.Zero(t, again.Orders)
	assert.NoError(t, CompareSnapshots(snap, again.Positions.Snapshot(at, again.LastSeq)))
}

func TestRecoverPositionsNeedsDir(t *testing.T) {
	_, err := RecoverPositions(context.Background(), RecoverConfig{})
	assert.True(t, errors.Is(err, exception.ErrInvalidArgument))
}
