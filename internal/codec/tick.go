package codec

import (
	"encoding/binary"
	"time"

	"fxtrader/internal/schema"
)

const TickPayloadSize = 32

// EncodeTick serializes a tick into a fixed-size payload.
func EncodeTick(dst []byte, tick schema.Tick) []byte {
	dst = grow(dst, TickPayloadSize)

	putInstrument(dst[0:6], tick.Instrument)
	binary.LittleEndian.PutUint16(dst[6:8], 0)
	binary.LittleEndian.PutUint64(dst[8:16], uint64(tick.Time.UnixNano()))
	binary.LittleEndian.PutUint64(dst[16:24], uint64(ScalePrice(tick.Bid)))
	binary.LittleEndian.PutUint64(dst[24:32], uint64(ScalePrice(tick.Ask)))

	return dst
}

// DecodeTick parses a fixed-size tick payload. Times are returned in UTC.
func DecodeTick(src []byte) (schema.Tick, bool) {
	if len(src) < TickPayloadSize {
		return schema.Tick{}, false
	}
	return schema.Tick{
		Instrument: getInstrument(src[0:6]),
		Time:       time.Unix(0, int64(binary.LittleEndian.Uint64(src[8:16]))).UTC(),
		Bid:        UnscalePrice(int64(binary.LittleEndian.Uint64(src[16:24]))),
		Ask:        UnscalePrice(int64(binary.LittleEndian.Uint64(src[24:32]))),
	}, true
}
