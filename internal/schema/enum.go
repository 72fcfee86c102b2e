package schema

import "strings"

// Side buy, sell
type Side uint8

const (
	_side_beg Side = iota
	SideBuy
	SideSell
	_side_end
)

func (s Side) IsAvailable() bool {
	return s > _side_beg && s < _side_end
}

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "buy"
	case SideSell:
		return "sell"
	default:
		return "unknown"
	}
}

// PositionSide returns the exposure a signal of this side opens.
func (s Side) PositionSide() PositionSide {
	if s == SideSell {
		return PositionShort
	}
	return PositionLong
}

// ParseSide accepts "buy" / "sell" in any case.
func ParseSide(s string) (Side, bool) {
	switch strings.ToLower(s) {
	case "buy":
		return SideBuy, true
	case "sell":
		return SideSell, true
	default:
		return 0, false
	}
}

// PositionSide long, short
type PositionSide uint8

const (
	_position_side_beg PositionSide = iota
	PositionLong
	PositionShort
	_position_side_end
)

func (s PositionSide) IsAvailable() bool {
	return s > _position_side_beg && s < _position_side_end
}

// Sign is +1 for long and -1 for short.
func (s PositionSide) Sign() int64 {
	if s == PositionShort {
		return -1
	}
	return 1
}

// Opposite returns the other side.
func (s PositionSide) Opposite() PositionSide {
	if s == PositionShort {
		return PositionLong
	}
	return PositionShort
}

// Side returns the signal side that grows a position of this side.
func (s PositionSide) Side() Side {
	if s == PositionShort {
		return SideSell
	}
	return SideBuy
}

func (s PositionSide) String() string {
	switch s {
	case PositionLong:
		return "long"
	case PositionShort:
		return "short"
	default:
		return "none"
	}
}

// ParsePositionSide accepts "long" / "short"; anything else is reported as unavailable.
func ParsePositionSide(s string) (PositionSide, bool) {
	switch strings.ToLower(s) {
	case "long":
		return PositionLong, true
	case "short":
		return PositionShort, true
	default:
		return 0, false
	}
}

// OrderKind market
type OrderKind uint8

const (
	_order_kind_beg OrderKind = iota
	OrderMarket
	_order_kind_end
)

func (k OrderKind) IsAvailable() bool {
	return k > _order_kind_beg && k < _order_kind_end
}

func (k OrderKind) String() string {
	if k == OrderMarket {
		return "market"
	}
	return "unknown"
}

// Kind tick, signal, order
type Kind uint8

const (
	_kind_beg Kind = iota
	KindTick
	KindSignal
	KindOrder
	_kind_end
)

func (k Kind) IsAvailable() bool {
	return k > _kind_beg && k < _kind_end
}

func (k Kind) String() string {
	switch k {
	case KindTick:
		return "TICK"
	case KindSignal:
		return "SIGNAL"
	case KindOrder:
		return "ORDER"
	default:
		return "UNKNOWN"
	}
}
