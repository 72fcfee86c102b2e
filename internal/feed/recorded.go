package feed

import (
	"context"
	"io"

	"github.com/yanun0323/errors"

	"fxtrader/internal/recorder"
	"fxtrader/internal/schema"
	"fxtrader/pkg/exception"
)

// Recorded replays ticks captured in a WAL directory.
type Recorded struct {
	cursor *recorder.Cursor
	quotes Quotes
}

// NewRecorded opens the WAL segments described by cfg. Only tick records are
// read.
func NewRecorded(cfg recorder.PlaybackConfig, quotes Quotes) (*Recorded, error) {
	if quotes == nil {
		return nil, errors.Wrap(exception.ErrNilInstance, "recorded feed quotes")
	}
	cfg.Types = []schema.EventType{schema.EventTick}
	cursor, err := recorder.Open(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "open wal").With("dir", cfg.Dir)
	}
	return &Recorded{cursor: cursor, quotes: quotes}, nil
}

func (r *Recorded) Next(ctx context.Context) (schema.Tick, error) {
	h, payload, err := r.cursor.Next(ctx)
	if err == io.EOF {
		return schema.Tick{}, exception.ErrFeedExhausted
	}
	if err != nil {
		return schema.Tick{}, err
	}

	tick, ok := recorded(h, payload)
	if !ok {
		return schema.Tick{}, errors.Errorf("decode tick record, seq: %d", h.Seq)
	}
	if err := r.quotes.SetTick(tick); err != nil {
		return schema.Tick{}, errors.Wrap(err, "set quote").With("tick", tick.String())
	}
	return tick, nil
}

// Close releases the WAL cursor.
func (r *Recorded) Close() error {
	return r.cursor.Close()
}

func recorded(h schema.EventHeader, payload []byte) (schema.Tick, bool) {
	e, ok := recorder.Decode(h, payload)
	if !ok {
		return schema.Tick{}, false
	}
	tick, ok := e.(schema.Tick)
	return tick, ok
}
