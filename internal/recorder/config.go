package recorder

import (
	"time"

	"fxtrader/internal/errors"
	"fxtrader/pkg/exception"
)

const (
	defaultSegmentMaxBytes    int64 = 256 << 20
	defaultSegmentMaxDuration       = time.Hour
	defaultQueueSize                = 4096
	defaultBufferSize               = 64 * 1024
	defaultFilePrefix               = "ticks"
	walSuffix                       = ".wal"
)

// Config controls WAL writer behavior.
type Config struct {
	Dir                string
	FilePrefix         string
	SegmentMaxBytes    int64
	SegmentMaxDuration time.Duration
	QueueSize          int
	BufferSize         int
	FlushInterval      time.Duration
	SyncInterval       time.Duration
}

// DefaultConfig returns a baseline configuration for the WAL writer.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:                dir,
		FilePrefix:         defaultFilePrefix,
		SegmentMaxBytes:    defaultSegmentMaxBytes,
		SegmentMaxDuration: defaultSegmentMaxDuration,
		QueueSize:          defaultQueueSize,
		BufferSize:         defaultBufferSize,
		FlushInterval:      time.Second,
	}
}

func (c Config) withDefaults() Config {
	if c.FilePrefix == "" {
		c.FilePrefix = defaultFilePrefix
	}
	if c.SegmentMaxBytes == 0 {
		c.SegmentMaxBytes = defaultSegmentMaxBytes
	}
	if c.QueueSize == 0 {
		c.QueueSize = defaultQueueSize
	}
	if c.BufferSize == 0 {
		c.BufferSize = defaultBufferSize
	}
	return c
}

// Validate checks if the configuration is usable.
func (c Config) Validate() error {
	switch {
	case c.Dir == "":
		return errors.Wrap(exception.ErrInvalidArgument, "recorder dir is empty")
	case c.FilePrefix == "":
		return errors.Wrap(exception.ErrInvalidArgument, "recorder file prefix is empty")
	case c.SegmentMaxBytes <= 0:
		return errors.Wrapf(exception.ErrInvalidArgument, "recorder segment max bytes %d", c.SegmentMaxBytes)
	case c.QueueSize <= 0:
		return errors.Wrapf(exception.ErrInvalidArgument, "recorder queue size %d", c.QueueSize)
	case c.BufferSize <= 0:
		return errors.Wrapf(exception.ErrInvalidArgument, "recorder buffer size %d", c.BufferSize)
	case c.FlushInterval < 0 || c.SyncInterval < 0:
		return errors.Wrap(exception.ErrInvalidArgument, "recorder flush and sync intervals must be >= 0")
	}
	return nil
}
