package recorder

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxtrader/internal/obs"
	"fxtrader/internal/schema"
	"fxtrader/pkg/exception"
)

func sampleTick(n int) schema.Tick {
	return schema.Tick{
		Instrument: "GBPUSD",
		Time:       time.Date(2017, 1, 3, 9, 0, n, 0, time.UTC),
		Bid:        decimal.New(130000+int64(n), -5),
		Ask:        decimal.New(130010+int64(n), -5),
	}
}

func writeEvents(t *testing.T, cfg Config, ticks int) {
	t.Helper()
	w, err := NewWriter(cfg)
	require.NoError(t, err)
	require.NoError(t, w.Start(t.Context()))

	ev := NewEvents(w, SourceBacktest, obs.NewTraceGenerator(100))
	for n := range ticks {
		tick := sampleTick(n)
		require.NoError(t, ev.Tick(tick, tick.Time))
		if n%2 == 0 {
			require.NoError(t, ev.Order(schema.Order{Instrument: "GBPUSD", Units: 2000, OrderKind: schema.OrderMarket, Side: schema.SideBuy}, tick.Time))
		}
	}
	require.NoError(t, w.Close())
	assert.Equal(t, uint64(ticks+(ticks+1)/2), w.Written())
}

func TestWriterAndCursor(t *testing.T) {
	dir := t.TempDir()
	writeEvents(t, DefaultConfig(dir), 5)

	c, err := Open(PlaybackConfig{Dir: dir})
	require.NoError(t, err)
	defer c.Close()

	var kinds []schema.Kind
	var traces []uint64
	var seqs []uint64
	for {
		h, payload, err := c.Next(t.Context())
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		e, ok := Decode(h, payload)
		require.True(t, ok)
		kinds = append(kinds, e.Kind())
		traces = append(traces, h.TraceID)
		seqs = append(seqs, h.Seq)
		assert.Equal(t, SourceBacktest, h.Source)
		assert.Equal(t, schema.SchemaVersion, h.Version)
	}

	assert.Equal(t, []schema.Kind{
		schema.KindTick, schema.KindOrder,
		schema.KindTick,
		schema.KindTick, schema.KindOrder,
		schema.KindTick,
		schema.KindTick, schema.KindOrder,
	}, kinds)
	assert.Equal(t, []uint64{101, 101, 102, 103, 103, 104, 105, 105}, traces)
	assert.Equal(t, []uint64{1, 2, 3, 4, 5, 6, 7, 8}, seqs)
}

func TestEventsResume(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(DefaultConfig(dir))
	require.NoError(t, err)
	require.NoError(t, w.Start(t.Context()))

	ev := NewEvents(w, SourceStream, nil)
	ev.Resume(41)
	require.NoError(t, ev.Tick(sampleTick(0), time.Time{}))
	assert.Equal(t, uint64(42), ev.LastSeq())
	require.NoError(t, w.Close())

	var seqs []uint64
	require.NoError(t, Play(t.Context(), PlaybackConfig{Dir: dir}, func(h schema.EventHeader, _ []byte) error {
		seqs = append(seqs, h.Seq)
		assert.Zero(t, h.TsRecv)
		return nil
	}))
	assert.Equal(t, []uint64{42}, seqs)
}

func TestCursorFiltersTypesAcrossSegments(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)
	cfg.SegmentMaxBytes = 3 * recordSize(32)
	writeEvents(t, cfg, 6)

	files, err := Segments(dir, cfg.FilePrefix)
	require.NoError(t, err)
	assert.Greater(t, len(files), 1)

	var ticks []schema.Tick
	err = Play(t.Context(), PlaybackConfig{Dir: dir, Types: []schema.EventType{schema.EventTick}}, func(h schema.EventHeader, payload []byte) error {
		e, ok := Decode(h, payload)
		require.True(t, ok)
		ticks = append(ticks, e.(schema.Tick))
		return nil
	})
	require.NoError(t, err)
	require.Len(t, ticks, 6)
	for n, tick := range ticks {
		assert.True(t, tick.Bid.Equal(sampleTick(n).Bid))
		assert.True(t, tick.Time.Equal(sampleTick(n).Time))
	}
}

type recordingClock struct {
	slept []time.Duration
}

func (c *recordingClock) Sleep(_ context.Context, d time.Duration) error {
	c.slept = append(c.slept, d)
	return nil
}

func TestCursorPacing(t *testing.T) {
	dir := t.TempDir()
	writeEvents(t, DefaultConfig(dir), 3)

	clock := &recordingClock{}
	c, err := Open(PlaybackConfig{Dir: dir, Speed: 2, Types: []schema.EventType{schema.EventTick}})
	require.NoError(t, err)
	c.WithClock(clock)
	defer c.Close()

	for {
		if _, _, err := c.Next(t.Context()); err == io.EOF {
			break
		}
	}
	assert.Equal(t, []time.Duration{500 * time.Millisecond, 500 * time.Millisecond}, clock.slept)
}

func TestReaderDetectsCorruption(t *testing.T) {
	dir := t.TempDir()
	writeEvents(t, DefaultConfig(dir), 1)
	files, err := Segments(dir, defaultFilePrefix)
	require.NoError(t, err)
	require.Len(t, files, 1)

	raw, err := os.ReadFile(files[0])
	require.NoError(t, err)

	flipped := bytes.Clone(raw)
	flipped[recordHeaderSize+3] ^= 0xFF
	_, _, err = NewReader(bytes.NewReader(flipped), ReaderOptions{}).Next()
	assert.ErrorIs(t, err, ErrChecksumMismatch)

	_, _, err = NewReader(bytes.NewReader(raw[:recordHeaderSize+5]), ReaderOptions{}).Next()
	assert.ErrorIs(t, err, ErrTruncated)

	badMagic := bytes.Clone(raw)
	badMagic[0] = 'X'
	_, _, err = NewReader(bytes.NewReader(badMagic), ReaderOptions{}).Next()
	assert.ErrorIs(t, err, ErrInvalidMagic)
}

func TestWriterLifecycle(t *testing.T) {
	_, err := NewWriter(Config{})
	require.ErrorIs(t, err, exception.ErrInvalidArgument)

	w, err := NewWriter(DefaultConfig(t.TempDir()))
	require.NoError(t, err)
	assert.ErrorIs(t, w.TryAppend(schema.EventHeader{}, nil), ErrNotStarted)

	require.NoError(t, w.Start(t.Context()))
	assert.ErrorIs(t, w.Start(t.Context()), ErrAlreadyStarted)
	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.TryAppend(schema.EventHeader{}, nil), ErrClosed)
}
