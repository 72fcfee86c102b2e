package recorder

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"

	"fxtrader/internal/schema"
)

var (
	ErrChecksumMismatch = errors.New("wal checksum mismatch")
	ErrTruncated        = errors.New("wal record truncated")
)

// ReaderOptions controls record decoding.
type ReaderOptions struct {
	DisableChecksum bool
	MaxPayloadSize  int
}

// Reader decodes WAL records sequentially.
type Reader struct {
	r       *bufio.Reader
	opts    ReaderOptions
	header  [recordHeaderSize]byte
	sum     [recordChecksumSize]byte
	payload []byte
}

// NewReader wraps an io.Reader with WAL decoding.
func NewReader(r io.Reader, opts ReaderOptions) *Reader {
	return &Reader{r: bufio.NewReader(r), opts: opts}
}

// Next returns the next record header and payload. It returns io.EOF on a
// clean end of stream. The payload is only valid until the next call.
func (r *Reader) Next() (schema.EventHeader, []byte, error) {
	n, err := io.ReadFull(r.r, r.header[:])
	switch {
	case err == io.EOF && n == 0:
		return schema.EventHeader{}, nil, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		return schema.EventHeader{}, nil, ErrTruncated
	case err != nil:
		return schema.EventHeader{}, nil, err
	}

	header, payloadLen, err := decodeRecordHeader(r.header[:])
	if err != nil {
		return header, nil, err
	}
	if r.opts.MaxPayloadSize > 0 && payloadLen > uint32(r.opts.MaxPayloadSize) {
		return header, nil, ErrPayloadTooLarge
	}

	if cap(r.payload) < int(payloadLen) {
		r.payload = make([]byte, payloadLen)
	}
	r.payload = r.payload[:payloadLen]
	if _, err := io.ReadFull(r.r, r.payload); err != nil {
		return header, nil, ErrTruncated
	}
	if _, err := io.ReadFull(r.r, r.sum[:]); err != nil {
		return header, nil, ErrTruncated
	}

	if !r.opts.DisableChecksum && binary.LittleEndian.Uint32(r.sum[:]) != checksum(r.header[:], r.payload) {
		return header, nil, ErrChecksumMismatch
	}
	return header, r.payload, nil
}
