// Package state captures portfolio snapshots and rebuilds net positions
// from a snapshot plus the recorded order tail.
package state

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"
	yerrors "github.com/yanun0323/errors"

	"fxtrader/internal/errors"
	"fxtrader/internal/portfolio"
	"fxtrader/internal/schema"
	"fxtrader/pkg/exception"
)

// Snapshot is the portfolio state at a point in time.
type Snapshot struct {
	Timestamp int64           `json:"timestamp"`
	LastSeq   uint64          `json:"lastSeq"`
	Balance   decimal.Decimal `json:"balance"`
	Equity    decimal.Decimal `json:"equity"`
	Positions []PositionEntry `json:"positions"`
}

// PositionEntry is one open position. Units are signed, short is negative.
type PositionEntry struct {
	Instrument schema.Instrument `json:"instrument"`
	Units      int64             `json:"units"`
	AvgPrice   decimal.Decimal   `json:"avgPrice"`
	ProfitBase decimal.Decimal   `json:"profitBase"`
}

// FromPortfolio snapshots every open position of p.
func FromPortfolio(p *portfolio.Portfolio, at time.Time, lastSeq uint64) Snapshot {
	views := p.Positions()
	entries := make([]PositionEntry, 0, len(views))
	for _, v := range views {
		entries = append(entries, PositionEntry{
			Instrument: v.Instrument,
			Units:      v.Side.Sign() * v.Units,
			AvgPrice:   v.AvgPrice,
			ProfitBase: v.ProfitBase,
		})
	}
	sortEntries(entries)
	return Snapshot{
		Timestamp: at.UTC().UnixNano(),
		LastSeq:   lastSeq,
		Balance:   p.Balance(),
		Equity:    p.Equity(),
		Positions: entries,
	}
}

func sortEntries(entries []PositionEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Instrument < entries[j].Instrument
	})
}

// WriteSnapshot writes a snapshot to disk as JSON.
func WriteSnapshot(path string, snapshot Snapshot) error {
	data, err := sonic.ConfigStd.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return yerrors.Wrap(err, "marshal snapshot")
	}
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return yerrors.Wrap(err, "mkdir").With("dir", dir)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return yerrors.Wrap(err, "write snapshot").With("path", path)
	}
	return nil
}

// ReadSnapshot loads a snapshot from disk.
func ReadSnapshot(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, yerrors.Wrap(err, "read snapshot").With("path", path)
	}
	var snap Snapshot
	if err := sonic.ConfigStd.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, yerrors.Wrap(err, "unmarshal snapshot").With("path", path)
	}
	return snap, nil
}

// CompareSnapshots checks that two runs ended in the same state. Timestamps
// and sequence numbers are ignored.
func CompareSnapshots(expected, actual Snapshot) error {
	if !expected.Balance.Equal(actual.Balance) {
		return errors.Wrapf(exception.ErrSnapshotMismatch, "balance expected=%s actual=%s", expected.Balance, actual.Balance)
	}
	if !expected.Equity.Equal(actual.Equity) {
		return errors.Wrapf(exception.ErrSnapshotMismatch, "equity expected=%s actual=%s", expected.Equity, actual.Equity)
	}
	if len(expected.Positions) != len(actual.Positions) {
		return errors.Wrapf(exception.ErrSnapshotMismatch, "positions expected=%d actual=%d", len(expected.Positions), len(actual.Positions))
	}

	expectedMap := make(map[schema.Instrument]PositionEntry, len(expected.Positions))
	for _, entry := range expected.Positions {
		expectedMap[entry.Instrument] = entry
	}
	for _, entry := range actual.Positions {
		want, ok := expectedMap[entry.Instrument]
		if !ok {
			return errors.Wrapf(exception.ErrSnapshotMismatch, "unexpected position %s", entry.Instrument)
		}
		if want.Units != entry.Units {
			return errors.Wrapf(exception.ErrSnapshotMismatch, "%s units expected=%d actual=%d", entry.Instrument, want.Units, entry.Units)
		}
		if !want.AvgPrice.Equal(entry.AvgPrice) {
			return errors.Wrapf(exception.ErrSnapshotMismatch, "%s avg price expected=%s actual=%s", entry.Instrument, want.AvgPrice, entry.AvgPrice)
		}
		if !want.ProfitBase.Equal(entry.ProfitBase) {
			return errors.Wrapf(exception.ErrSnapshotMismatch, "%s profit expected=%s actual=%s", entry.Instrument, want.ProfitBase, entry.ProfitBase)
		}
	}
	return nil
}
