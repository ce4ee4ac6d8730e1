package enum

import "fmt"

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

// Opposite returns the other side. Unknown sides are returned unchanged.
func (s Side) Opposite() Side {
	switch s {
	case SideBuy:
		return SideSell
	case SideSell:
		return SideBuy
	default:
		return s
	}
}

// PositionSide is the side of exposure a fill of this order side opens.
func (s Side) PositionSide() PositionSide {
	switch s {
	case SideBuy:
		return PositionSideLong
	case SideSell:
		return PositionSideShort
	default:
		return _position_side_beg
	}
}

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "buy"
	case SideSell:
		return "sell"
	default:
		return fmt.Sprintf("side(%d)", uint8(s))
	}
}

// ParseSide accepts "buy" or "sell".
func ParseSide(s string) (Side, bool) {
	switch s {
	case "buy", "Buy", "BUY":
		return SideBuy, true
	case "sell", "Sell", "SELL":
		return SideSell, true
	default:
		return _side_beg, false
	}
}

// PositionSide long, short
type PositionSide uint8

const (
	_position_side_beg PositionSide = iota
	PositionSideLong
	PositionSideShort
	_position_side_end
)

func (s PositionSide) IsAvailable() bool {
	return s > _position_side_beg && s < _position_side_end
}

// OrderSide is the order side that adds to this position.
func (s PositionSide) OrderSide() Side {
	switch s {
	case PositionSideLong:
		return SideBuy
	case PositionSideShort:
		return SideSell
	default:
		return _side_beg
	}
}

func (s PositionSide) String() string {
	switch s {
	case PositionSideLong:
		return "long"
	case PositionSideShort:
		return "short"
	default:
		return fmt.Sprintf("position_side(%d)", uint8(s))
	}
}
