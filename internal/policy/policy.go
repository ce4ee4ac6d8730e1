// Package policy decides whether, and at what price, an order fills when the
// price of its symbol moves from one tick to the next.
//
// A fill never assumes a better price than the market allowed: when the
// condition already held on the previous tick the order fills at the previous
// price, when it is crossed during the current tick it fills at the threshold.
package policy

import (
	"fmt"

	"github.com/shopspring/decimal"

	"backtest/internal/model/enum"
)

// Kind limit, market, stop limit, stop market, trailing stop
type Kind uint8

const (
	_kind_beg Kind = iota
	KindLimit
	KindMarket
	KindStopLimit
	KindStopMarket
	KindTrailingStop
	_kind_end
)

func (k Kind) IsAvailable() bool {
	return k > _kind_beg && k < _kind_end
}

func (k Kind) String() string {
	switch k {
	case KindLimit:
		return "limit"
	case KindMarket:
		return "market"
	case KindStopLimit:
		return "stop_limit"
	case KindStopMarket:
		return "stop_market"
	case KindTrailingStop:
		return "trailing_stop"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParseKind accepts the names returned by Kind.String.
func ParseKind(s string) (Kind, bool) {
	for k := _kind_beg + 1; k < _kind_end; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return _kind_beg, false
}

// Policy is one of Limit, Market, StopLimit, StopMarket or TrailingStop.
type Policy interface {
	Kind() Kind
	policy()
}

// Executor is a policy whose decision depends only on the tick pair.
type Executor interface {
	Policy
	TryExecute(side enum.Side, prev, next decimal.Decimal) (decimal.Decimal, bool)
}

var (
	_ Executor = Limit{}
	_ Executor = Market{}
	_ Executor = StopLimit{}
	_ Executor = StopMarket{}
	_ Policy   = TrailingStop{}
)

type crossing uint8

const (
	crossNone crossing = iota
	// crossPast means the level was already reached on the previous tick.
	crossPast
	// crossWithin means the level was reached during this tick.
	crossWithin
)

// crossDown checks a level approached from above.
func crossDown(prev, next, level decimal.Decimal) crossing {
	if prev.LessThanOrEqual(level) {
		return crossPast
	}
	if next.LessThanOrEqual(level) {
		return crossWithin
	}
	return crossNone
}

// crossUp checks a level approached from below.
func crossUp(prev, next, level decimal.Decimal) crossing {
	if prev.GreaterThanOrEqual(level) {
		return crossPast
	}
	if next.GreaterThanOrEqual(level) {
		return crossWithin
	}
	return crossNone
}
