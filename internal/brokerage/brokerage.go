// Package brokerage turns an entry/exit pair into gross and net PnL.
package brokerage

import (
	"github.com/shopspring/decimal"

	"backtest/internal/model/enum"
	"backtest/internal/model/precision"
)

// Result is the PnL of closing quantity at exit.
type Result struct {
	Gross decimal.Decimal
	Net   decimal.Decimal
}

// Fee is Gross - Net.
func (r Result) Fee() decimal.Decimal {
	return r.Gross.Sub(r.Net)
}

// Func computes PnL for a position side. It must be pure.
type Func func(side enum.PositionSide, entry, exit, quantity decimal.Decimal) Result

// Gross is the price-based PnL without fees.
func Gross(side enum.PositionSide, entry, exit, quantity decimal.Decimal) decimal.Decimal {
	switch side {
	case enum.PositionSideShort:
		return entry.Sub(exit).Mul(quantity)
	default:
		return exit.Sub(entry).Mul(quantity)
	}
}

// Zero charges nothing.
func Zero() Func {
	return func(side enum.PositionSide, entry, exit, quantity decimal.Decimal) Result {
		g := Gross(side, entry, exit, quantity)
		return Result{Gross: g, Net: g}
	}
}

// PercentFee charges rate on the turnover of both legs.
func PercentFee(rate decimal.Decimal) Func {
	return func(side enum.PositionSide, entry, exit, quantity decimal.Decimal) Result {
		g := Gross(side, entry, exit, quantity)
		fee := precision.Round(entry.Add(exit).Mul(quantity).Mul(rate))
		return Result{Gross: g, Net: g.Sub(fee)}
	}
}
