package model

import (
	"time"

	"github.com/shopspring/decimal"

	"backtest/internal/model/enum"
	"backtest/internal/policy"
)

// Order is a hypothetical order owned by a broker.
type Order struct {
	ID        OrderID
	Params    Params
	Policy    policy.Policy
	CreatedAt time.Time
	Status    OrderStatus
}

// IsOpen reports whether the order can still fill or be canceled.
func (o Order) IsOpen() bool {
	_, ok := o.Status.(Open)
	return ok
}

// OCOID returns the group of an open order, or the empty value.
func (o Order) OCOID() OCOID {
	if s, ok := o.Status.(Open); ok {
		return s.OCOID
	}
	return ""
}

// Execution is the immutable record of one order fill.
type Execution struct {
	ID         ExecutionID
	OrderID    OrderID
	BrokerID   string
	Instrument enum.Instrument
	Symbol     string
	Quantity   decimal.Decimal
	Lots       decimal.NullDecimal
	Side       enum.Side
	Price      decimal.Decimal
	Timestamp  time.Time
}

// Key returns the position key the execution affects.
func (e Execution) Key() PositionKey {
	return PositionKey{
		BrokerID:   e.BrokerID,
		Instrument: e.Instrument,
		Symbol:     e.Symbol,
	}
}

// Position is open exposure on one (broker, instrument, symbol).
type Position struct {
	ID           PositionID
	BrokerID     string
	Instrument   enum.Instrument
	Symbol       string
	Side         enum.PositionSide
	Quantity     decimal.Decimal
	AveragePrice decimal.Decimal
	// PnL is the net mark-to-market profit at the last observed price.
	PnL decimal.Decimal
}

// Key returns the position key.
func (p Position) Key() PositionKey {
	return PositionKey{
		BrokerID:   p.BrokerID,
		Instrument: p.Instrument,
		Symbol:     p.Symbol,
	}
}

// Notional is AveragePrice * Quantity.
func (p Position) Notional() decimal.Decimal {
	return p.AveragePrice.Mul(p.Quantity)
}
