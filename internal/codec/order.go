package codec

import (
	"encoding/binary"
	"time"

	"fxtrader/internal/schema"
)

const (
	OrderPayloadSize  = 16
	SignalPayloadSize = 16
)

// EncodeOrder serializes an order into a fixed-size payload.
func EncodeOrder(dst []byte, o schema.Order) []byte {
	dst = grow(dst, OrderPayloadSize)

	putInstrument(dst[0:6], o.Instrument)
	dst[6] = byte(o.OrderKind)
	dst[7] = byte(o.Side)
	binary.LittleEndian.PutUint64(dst[8:16], uint64(o.Units))

	return dst
}

// DecodeOrder parses a fixed-size order payload.
func DecodeOrder(src []byte) (schema.Order, bool) {
	if len(src) < OrderPayloadSize {
		return schema.Order{}, false
	}
	return schema.Order{
		Instrument: getInstrument(src[0:6]),
		OrderKind:  schema.OrderKind(src[6]),
		Side:       schema.Side(src[7]),
		Units:      int64(binary.LittleEndian.Uint64(src[8:16])),
	}, true
}

// EncodeSignal serializes a signal into a fixed-size payload.
func EncodeSignal(dst []byte, s schema.Signal) []byte {
	dst = grow(dst, SignalPayloadSize)

	putInstrument(dst[0:6], s.Instrument)
	dst[6] = byte(s.OrderKind)
	dst[7] = byte(s.Side)
	binary.LittleEndian.PutUint64(dst[8:16], uint64(s.Time.UnixNano()))

	return dst
}

// DecodeSignal parses a fixed-size signal payload.
func DecodeSignal(src []byte) (schema.Signal, bool) {
	if len(src) < SignalPayloadSize {
		return schema.Signal{}, false
	}
	return schema.Signal{
		Instrument: getInstrument(src[0:6]),
		OrderKind:  schema.OrderKind(src[6]),
		Side:       schema.Side(src[7]),
		Time:       time.Unix(0, int64(binary.LittleEndian.Uint64(src[8:16]))).UTC(),
	}, true
}
