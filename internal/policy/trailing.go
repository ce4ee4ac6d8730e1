package policy

import (
	"github.com/shopspring/decimal"

	"backtest/internal/model/enum"
	"backtest/internal/model/precision"
	"backtest/pkg/exception"
)

// TrailingStop follows the best price seen by Callback (a fraction, 0.02 = 2%)
// and fills at market once price reverses across the trailing level after
// ActivationPrice has been reached.
type TrailingStop struct {
	Callback        decimal.Decimal
	ActivationPrice decimal.Decimal
}

// NewTrailingStop requires 0 < callback < 1.
func NewTrailingStop(callback, activationPrice decimal.Decimal) (TrailingStop, error) {
	if !callback.IsPositive() || callback.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return TrailingStop{}, exception.ErrPolicyInvalidCallback
	}
	return TrailingStop{Callback: callback, ActivationPrice: activationPrice}, nil
}

func (TrailingStop) Kind() Kind { return KindTrailingStop }
func (TrailingStop) policy()    {}

// TrailingState is the per-order state of a trailing stop. It is owned by a
// Book, never by the policy value.
type TrailingState struct {
	Activated bool
	Stop      decimal.NullDecimal
}

// TryExecute advances st by one tick.
//
// A buy tracks the lowest price seen and sits Callback above it; it activates
// when price falls to ActivationPrice. A sell mirrors this. The level only
// ever moves toward the market.
func (t TrailingStop) TryExecute(side enum.Side, prev, next decimal.Decimal, st *TrailingState) (decimal.Decimal, bool) {
	one := decimal.NewFromInt(1)

	switch side {
	case enum.SideBuy:
		if !st.Activated && crossDown(prev, next, t.ActivationPrice) != crossNone {
			st.Activated = true
		}
		candidate := precision.Round(decimal.Min(prev, next).Mul(one.Add(t.Callback)))
		if !st.Stop.Valid || candidate.LessThan(st.Stop.Decimal) {
			st.Stop = decimal.NewNullDecimal(candidate)
		}
		if st.Activated && next.GreaterThanOrEqual(st.Stop.Decimal) {
			return next, true
		}
	case enum.SideSell:
		if !st.Activated && crossUp(prev, next, t.ActivationPrice) != crossNone {
			st.Activated = true
		}
		candidate := precision.Round(decimal.Max(prev, next).Mul(one.Sub(t.Callback)))
		if !st.Stop.Valid || candidate.GreaterThan(st.Stop.Decimal) {
			st.Stop = decimal.NewNullDecimal(candidate)
		}
		if st.Activated && next.LessThanOrEqual(st.Stop.Decimal) {
			return next, true
		}
	}
	return decimal.Zero, false
}
