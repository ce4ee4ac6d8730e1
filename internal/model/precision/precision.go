// Package precision rounds engine arithmetic to a fixed number of
// significant digits, half-even.
package precision

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Digits is the number of significant digits a rounded value keeps.
const Digits = 7

// divScale is the number of fractional digits an intermediate quotient
// carries before rounding.
const divScale = 34

// Round rounds d half-even to Digits significant digits.
func Round(d decimal.Decimal) decimal.Decimal {
	if d.IsZero() {
		return decimal.Zero
	}
	// digits left of the decimal point; negative for values below 0.1
	intDigits := len(new(big.Int).Abs(d.Coefficient()).String()) + int(d.Exponent())
	return d.RoundBank(int32(Digits - intDigits))
}

// Div divides a by b and rounds the quotient with Round.
func Div(a, b decimal.Decimal) decimal.Decimal {
	return Round(a.DivRound(b, divScale))
}
