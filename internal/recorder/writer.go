package recorder

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"fxtrader/internal/schema"
)

var (
	ErrQueueFull       = errors.New("wal queue full")
	ErrClosed          = errors.New("wal writer closed")
	ErrNotStarted      = errors.New("wal writer not started")
	ErrAlreadyStarted  = errors.New("wal writer already started")
	ErrPayloadTooLarge = errors.New("wal payload too large")
)

const maxPayloadLen = uint64(^uint32(0))

// Writer appends records to rotating WAL segments from a buffered queue.
// Payloads are copied on append so callers may reuse their buffers.
type Writer struct {
	cfg  Config
	ch   chan walRecord
	wg   sync.WaitGroup
	mu   sync.RWMutex
	done bool

	errMu sync.Mutex
	err   error

	started uint32
	written uint64
}

type walRecord struct {
	header  schema.EventHeader
	payload []byte
}

// NewWriter creates a WAL writer and ensures the target directory exists.
func NewWriter(cfg Config) (*Writer, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, err
	}
	return &Writer{cfg: cfg, ch: make(chan walRecord, cfg.QueueSize)}, nil
}

// Start runs the writer loop in a new goroutine.
func (w *Writer) Start(ctx context.Context) error {
	if !atomic.CompareAndSwapUint32(&w.started, 0, 1) {
		return ErrAlreadyStarted
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()
	return nil
}

// Close stops accepting records, writes what is queued and closes the segment.
func (w *Writer) Close() error {
	w.mu.Lock()
	if !w.done {
		w.done = true
		close(w.ch)
	}
	w.mu.Unlock()

	if atomic.LoadUint32(&w.started) == 0 {
		return w.Err()
	}
	w.wg.Wait()
	return w.Err()
}

// Err returns the first error observed by the writer, if any.
func (w *Writer) Err() error {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	return w.err
}

// Written returns the number of records handed to a segment.
func (w *Writer) Written() uint64 {
	return atomic.LoadUint64(&w.written)
}

// TryAppend enqueues a record without blocking.
func (w *Writer) TryAppend(header schema.EventHeader, payload []byte) error {
	if atomic.LoadUint32(&w.started) == 0 {
		return ErrNotStarted
	}
	if err := w.Err(); err != nil {
		return err
	}
	if uint64(len(payload)) > maxPayloadLen {
		return ErrPayloadTooLarge
	}
	if header.Version == 0 {
		header.Version = schema.SchemaVersion
	}

	rec := walRecord{header: header, payload: append([]byte(nil), payload...)}

	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.done {
		return ErrClosed
	}
	select {
	case w.ch <- rec:
		return nil
	default:
		return ErrQueueFull
	}
}

func (w *Writer) run(ctx context.Context) {
	var (
		seg    *segment
		segID  uint64
		flushC <-chan time.Time
		syncC  <-chan time.Time
	)

	if w.cfg.FlushInterval > 0 {
		t := time.NewTicker(w.cfg.FlushInterval)
		defer t.Stop()
		flushC = t.C
	}
	if w.cfg.SyncInterval > 0 {
		t := time.NewTicker(w.cfg.SyncInterval)
		defer t.Stop()
		syncC = t.C
	}

	defer func() {
		w.setErr(seg.close())
	}()

	write := func(rec walRecord) bool {
		now := time.Now().UTC()
		if seg == nil || seg.full(w.cfg, now, recordSize(len(rec.payload))) {
			if err := seg.close(); err != nil {
				w.setErr(err)
				return false
			}
			opened, err := openSegment(w.cfg, &segID, now)
			if err != nil {
				w.setErr(err)
				return false
			}
			seg = opened
		}
		if err := seg.write(rec.header, rec.payload); err != nil {
			w.setErr(err)
			return false
		}
		atomic.AddUint64(&w.written, 1)
		return true
	}

	for {
		select {
		case <-ctx.Done():
			// keep what is already queued
			for {
				select {
				case rec, ok := <-w.ch:
					if !ok || !write(rec) {
						return
					}
				default:
					return
				}
			}
		case rec, ok := <-w.ch:
			if !ok || !write(rec) {
				return
			}
		case <-flushC:
			if err := seg.flush(); err != nil {
				w.setErr(err)
				return
			}
		case <-syncC:
			if err := seg.sync(); err != nil {
				w.setErr(err)
				return
			}
		}
	}
}

func (w *Writer) setErr(err error) {
	if err == nil {
		return
	}
	w.errMu.Lock()
	if w.err == nil {
		w.err = err
	}
	w.errMu.Unlock()
}
