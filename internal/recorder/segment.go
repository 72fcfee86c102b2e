package recorder

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fxtrader/internal/schema"
)

// segment is one open WAL file.
type segment struct {
	file     *os.File
	buf      *bufio.Writer
	size     int64
	openedAt time.Time

	header   [recordHeaderSize]byte
	checksum [recordChecksumSize]byte
}

// openSegment creates the next free segment file. Names sort in write order.
func openSegment(cfg Config, id *uint64, now time.Time) (*segment, error) {
	ts := now.UTC().Format("20060102-150405")
	for {
		*id++
		path := filepath.Join(cfg.Dir, fmt.Sprintf("%s-%s-%06d%s", cfg.FilePrefix, ts, *id, walSuffix))
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return &segment{file: f, buf: bufio.NewWriterSize(f, cfg.BufferSize), openedAt: now}, nil
	}
}

func recordSize(payloadLen int) int64 {
	return int64(recordHeaderSize + payloadLen + recordChecksumSize)
}

func (s *segment) full(cfg Config, now time.Time, next int64) bool {
	if cfg.SegmentMaxBytes > 0 && s.size+next > cfg.SegmentMaxBytes {
		return true
	}
	return cfg.SegmentMaxDuration > 0 && now.Sub(s.openedAt) >= cfg.SegmentMaxDuration
}

func (s *segment) write(h schema.EventHeader, payload []byte) error {
	encodeHeader(s.header[:], h, len(payload))
	binary.LittleEndian.PutUint32(s.checksum[:], checksum(s.header[:], payload))

	if _, err := s.buf.Write(s.header[:]); err != nil {
		return err
	}
	if _, err := s.buf.Write(payload); err != nil {
		return err
	}
	if _, err := s.buf.Write(s.checksum[:]); err != nil {
		return err
	}
	s.size += recordSize(len(payload))
	return nil
}

func (s *segment) flush() error {
	if s == nil {
		return nil
	}
	return s.buf.Flush()
}

func (s *segment) sync() error {
	if s == nil {
		return nil
	}
	if err := s.buf.Flush(); err != nil {
		return err
	}
	return s.file.Sync()
}

func (s *segment) close() error {
	if s == nil {
		return nil
	}
	if err := s.sync(); err != nil {
		_ = s.file.Close()
		return err
	}
	return s.file.Close()
}
