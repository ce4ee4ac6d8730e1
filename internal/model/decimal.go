package model

import (
	"github.com/shopspring/decimal"

	"backtest/internal/model/precision"
)

// Div divides a by b and rounds the quotient half-even to
// precision.Digits significant digits.
func Div(a, b decimal.Decimal) decimal.Decimal {
	return precision.Div(a, b)
}

// Mul multiplies a by b without rounding.
func Mul(a, b decimal.Decimal) decimal.Decimal {
	return a.Mul(b)
}

// MinZero returns d when it is negative, otherwise zero.
func MinZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return d
	}
	return decimal.Zero
}
