package state

import (
	"context"
	"sort"

	"fxtrader/internal/errors"
	"fxtrader/internal/recorder"
	"fxtrader/internal/schema"
	"fxtrader/pkg/exception"
)

// RecoverConfig controls snapshot plus WAL recovery.
type RecoverConfig struct {
	WALDir          string
	SnapshotPath    string
	FilePrefix      string
	DisableChecksum bool
	MaxPayloadSize  int
}

// RecoverResult holds the rebuilt net positions.
type RecoverResult struct {
	Positions *NetPositions
	LastSeq   uint64
	Orders    int
}

// RecoverPositions loads an optional snapshot and applies every recorded
// order with a higher sequence number.
func RecoverPositions(ctx context.Context, cfg RecoverConfig) (RecoverResult, error) {
	if cfg.WALDir == "" {
		return RecoverResult{}, errors.Wrap(exception.ErrInvalidArgument, "wal dir is empty")
	}
	res := RecoverResult{Positions: NewNetPositions()}

	if cfg.SnapshotPath != "" {
		snapshot, err := ReadSnapshot(cfg.SnapshotPath)
		if err != nil {
			return RecoverResult{}, err
		}
		res.Positions.ApplySnapshot(snapshot)
		res.LastSeq = snapshot.LastSeq
	}

	playback := recorder.PlaybackConfig{
		Dir:             cfg.WALDir,
		FilePrefix:      cfg.FilePrefix,
		DisableChecksum: cfg.DisableChecksum,
		MaxPayloadSize:  cfg.MaxPayloadSize,
		Types:           []schema.EventType{schema.EventOrder},
	}
	snapshotSeq := res.LastSeq
	err := recorder.Play(ctx, playback, func(h schema.EventHeader, payload []byte) error {
		if h.Seq <= snapshotSeq {
			return nil
		}
		e, ok := recorder.Decode(h, payload)
		if !ok {
			return errors.Wrapf(exception.ErrInternal, "decode order seq %d", h.Seq)
		}
		order, ok := e.(schema.Order)
		if !ok {
			return errors.Wrapf(exception.ErrInternal, "record seq %d is %s", h.Seq, e.Kind())
		}
		res.Positions.ApplyOrder(order)
		res.Orders++
		if h.Seq > res.LastSeq {
			res.LastSeq = h.Seq
		}
		return nil
	})
	if err != nil {
		return RecoverResult{}, err
	}
	return res, nil
}

func sortInstruments(s []schema.Instrument) {
	sort.Slice(s, func(i, j int) bool { return s[i] < s[j] })
}
