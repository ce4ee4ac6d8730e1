package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"backtest/internal/model/enum"
)

// OrderStatus is one of Open, Rejected, Canceled or Executed.
// Every status except Open is terminal.
type OrderStatus interface {
	IsTerminal() bool
	String() string
	orderStatus()
}

var (
	_ OrderStatus = Open{}
	_ OrderStatus = Rejected{}
	_ OrderStatus = Canceled{}
	_ OrderStatus = Executed{}
)

// Open is the initial live state.
type Open struct {
	OCOID OCOID
}

func (Open) IsTerminal() bool { return false }
func (Open) orderStatus()     {}

func (s Open) String() string {
	if s.OCOID == "" {
		return "open"
	}
	return "open(oco=" + string(s.OCOID) + ")"
}

// Rejected is set at creation when a business rule refuses the order.
type Rejected struct {
	ClosedAt time.Time
	Cause    enum.RejectionCause
}

func (Rejected) IsTerminal() bool { return true }
func (Rejected) orderStatus()     {}

func (s Rejected) String() string {
	return fmt.Sprintf("rejected(%s)", s.Cause)
}

// Canceled is set by an explicit cancel or an executed OCO sibling.
type Canceled struct {
	ClosedAt time.Time
}

func (Canceled) IsTerminal() bool { return true }
func (Canceled) orderStatus()     {}
func (Canceled) String() string   { return "canceled" }

// Executed is set when the order fills.
type Executed struct {
	ClosedAt       time.Time
	ExecutionPrice decimal.Decimal
}

func (Executed) IsTerminal() bool { return true }
func (Executed) orderStatus()     {}

func (s Executed) String() string {
	return "executed@" + s.ExecutionPrice.String()
}

// ClosedAt returns the instant a terminal status was reached.
func ClosedAt(s OrderStatus) (time.Time, bool) {
	switch v := s.(type) {
	case Rejected:
		return v.ClosedAt, true
	case Canceled:
		return v.ClosedAt, true
	case Executed:
		return v.ClosedAt, true
	default:
		return time.Time{}, false
	}
}
