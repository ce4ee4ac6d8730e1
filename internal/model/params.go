package model

import (
	"github.com/shopspring/decimal"

	"backtest/internal/model/enum"
)

// Params describes what an order trades.
type Params struct {
	BrokerID   string
	Instrument enum.Instrument
	Symbol     string
	Quantity   decimal.Decimal
	// Lots is informational; Quantity is authoritative.
	Lots decimal.NullDecimal
	Side enum.Side
}

// Key returns the position key the order trades against.
func (p Params) Key() PositionKey {
	return PositionKey{
		BrokerID:   p.BrokerID,
		Instrument: p.Instrument,
		Symbol:     p.Symbol,
	}
}

// PositionKey identifies at most one open position.
type PositionKey struct {
	BrokerID   string
	Instrument enum.Instrument
	Symbol     string
}
