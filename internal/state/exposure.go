package state

import (
	"fmt"

	"github.com/shopspring/decimal"

	"backtest/internal/model"
	"backtest/internal/model/enum"
)

// ExposureReducer folds executions into a signed net quantity per position
// key, independently of the broker's position bookkeeping.
type ExposureReducer struct {
	net map[model.PositionKey]decimal.Decimal
}

// NewExposureReducer creates an empty reducer.
func NewExposureReducer() *ExposureReducer {
	return &ExposureReducer{net: make(map[model.PositionKey]decimal.Decimal)}
}

// Apply updates the exposure and returns the new signed quantity.
func (r *ExposureReducer) Apply(exec model.Execution) decimal.Decimal {
	key := exec.Key()
	current := r.net[key]
	var next decimal.Decimal
	switch exec.Side {
	case enum.SideBuy:
		next = current.Add(exec.Quantity)
	case enum.SideSell:
		next = current.Sub(exec.Quantity)
	default:
		next = current
	}
	if next.IsZero() {
		delete(r.net, key)
	} else {
		r.net[key] = next
	}
	return next
}

// Net returns the signed quantity of key; long is positive.
func (r *ExposureReducer) Net(key model.PositionKey) decimal.Decimal {
	return r.net[key]
}

// Count returns the number of keys with non-zero exposure.
func (r *ExposureReducer) Count() int {
	return len(r.net)
}

// Reconcile checks that positions carry exactly the reduced exposure.
func (r *ExposureReducer) Reconcile(positions []model.Position) error {
	if len(positions) != len(r.net) {
		return fmt.Errorf("exposure count mismatch: executions=%d positions=%d", len(r.net), len(positions))
	}
	for _, pos := range positions {
		signed := pos.Quantity
		if pos.Side == enum.PositionSideShort {
			signed = signed.Neg()
		}
		want, ok := r.net[pos.Key()]
		if !ok {
			return fmt.Errorf("position %d %s has no executions", pos.ID, pos.Symbol)
		}
		if !want.Equal(signed) {
			return fmt.Errorf("exposure mismatch: symbol=%s executions=%s position=%s", pos.Symbol, want, signed)
		}
	}
	return nil
}
