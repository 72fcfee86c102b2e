package recorder

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"fxtrader/internal/errors"
	"fxtrader/internal/schema"
	"fxtrader/pkg/exception"
)

// PlaybackConfig controls WAL playback behavior. Speed 0 replays as fast as
// possible; Speed 1 keeps the recorded pacing.
type PlaybackConfig struct {
	Dir             string
	FilePrefix      string
	Speed           float64
	UseRecvTime     bool
	DisableChecksum bool
	MaxPayloadSize  int
	// Types limits playback to the listed event types. Empty plays everything.
	Types []schema.EventType
}

// Clock allows deterministic playback control.
type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (c PlaybackConfig) withDefaults() PlaybackConfig {
	if c.FilePrefix == "" {
		c.FilePrefix = defaultFilePrefix
	}
	return c
}

// Validate checks if the config is usable.
func (c PlaybackConfig) Validate() error {
	switch {
	case c.Dir == "":
		return errors.Wrap(exception.ErrInvalidArgument, "playback dir is empty")
	case c.Speed < 0:
		return errors.Wrapf(exception.ErrInvalidArgument, "playback speed %v", c.Speed)
	case c.MaxPayloadSize < 0:
		return errors.Wrapf(exception.ErrInvalidArgument, "playback max payload %d", c.MaxPayloadSize)
	}
	return nil
}

func (c PlaybackConfig) wants(t schema.EventType) bool {
	if len(c.Types) == 0 {
		return true
	}
	for _, want := range c.Types {
		if want == t {
			return true
		}
	}
	return false
}

// Cursor pulls records one at a time across every segment in a directory.
type Cursor struct {
	cfg    PlaybackConfig
	clock  Clock
	files  []string
	file   *os.File
	reader *Reader
	prevTS int64
}

// Open lists the segments in cfg.Dir in write order.
func Open(cfg PlaybackConfig) (*Cursor, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	files, err := Segments(cfg.Dir, cfg.FilePrefix)
	if err != nil {
		return nil, err
	}
	return &Cursor{cfg: cfg, clock: realClock{}, files: files}, nil
}

// WithClock swaps the clock implementation.
func (c *Cursor) WithClock(clock Clock) *Cursor {
	if clock != nil {
		c.clock = clock
	}
	return c
}

// Next returns the next wanted record, pacing by Speed. It returns io.EOF
// after the last segment. The payload is valid until the next call.
func (c *Cursor) Next(ctx context.Context) (schema.EventHeader, []byte, error) {
	for {
		if err := ctx.Err(); err != nil {
			return schema.EventHeader{}, nil, err
		}
		if c.reader == nil {
			if len(c.files) == 0 {
				return schema.EventHeader{}, nil, io.EOF
			}
			if err := c.openNext(); err != nil {
				return schema.EventHeader{}, nil, err
			}
		}

		header, payload, err := c.reader.Next()
		if err == io.EOF {
			c.closeFile()
			continue
		}
		if err != nil {
			return header, nil, errors.Wrapf(err, "read %s", c.file.Name())
		}
		if !c.cfg.wants(header.Type) {
			continue
		}
		if err := c.pace(ctx, header); err != nil {
			return header, nil, err
		}
		return header, payload, nil
	}
}

// Close releases the open segment.
func (c *Cursor) Close() error {
	c.closeFile()
	c.files = nil
	return nil
}

func (c *Cursor) openNext() error {
	path := c.files[0]
	c.files = c.files[1:]
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	c.file = f
	c.reader = NewReader(f, ReaderOptions{
		DisableChecksum: c.cfg.DisableChecksum,
		MaxPayloadSize:  c.cfg.MaxPayloadSize,
	})
	return nil
}

func (c *Cursor) closeFile() {
	if c.file != nil {
		_ = c.file.Close()
	}
	c.file, c.reader = nil, nil
}

func (c *Cursor) pace(ctx context.Context, h schema.EventHeader) error {
	if c.cfg.Speed <= 0 {
		return nil
	}
	current := h.TsEvent
	if c.cfg.UseRecvTime {
		current = h.TsRecv
	}
	if current <= 0 {
		return nil
	}
	if c.prevTS > 0 {
		if delta := current - c.prevTS; delta > 0 {
			if err := c.clock.Sleep(ctx, time.Duration(float64(delta)/c.cfg.Speed)); err != nil {
				return err
			}
		}
	}
	c.prevTS = current
	return nil
}

// Play runs every wanted record through handler.
func Play(ctx context.Context, cfg PlaybackConfig, handler func(schema.EventHeader, []byte) error) error {
	if handler == nil {
		return errors.Wrap(exception.ErrNilInstance, "playback handler")
	}
	c, err := Open(cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	for {
		h, payload, err := c.Next(ctx)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := handler(h, payload); err != nil {
			return err
		}
	}
}

// Segments lists WAL files with the given prefix, sorted by name.
func Segments(dir, prefix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix+"-") || !strings.HasSuffix(name, walSuffix) {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	sort.Strings(files)
	return files, nil
}
