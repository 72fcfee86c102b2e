package schema

// SchemaVersion is the current recorded event schema version.
const SchemaVersion uint16 = 1

// EventType defines the category of an event stored in the WAL.
type EventType uint16

const (
	EventUnknown EventType = iota
	EventTick
	EventSignal
	EventOrder
)

func (t EventType) String() string {
	switch t {
	case EventTick:
		return "Tick"
	case EventSignal:
		return "Signal"
	case EventOrder:
		return "Order"
	default:
		return "Unknown"
	}
}

// EventHeader is the common metadata attached to every recorded event.
type EventHeader struct {
	Type    EventType
	Version uint16
	Source  uint16
	Flags   uint16
	Seq     uint64
	TsEvent int64
	TsRecv  int64
	TraceID uint64
}

// NewHeader builds a header with the current schema version.
func NewHeader(eventType EventType, source uint16, seq uint64, tsEvent, tsRecv int64) EventHeader {
	return EventHeader{
		Type:    eventType,
		Version: SchemaVersion,
		Source:  source,
		Seq:     seq,
		TsEvent: tsEvent,
		TsRecv:  tsRecv,
	}
}
