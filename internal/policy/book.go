package policy

import (
	"github.com/shopspring/decimal"

	"backtest/internal/model/enum"
)

// Book holds the mutable per-order state of stateful policies, keyed by order id.
type Book struct {
	trailing map[uint64]*TrailingState
}

// NewBook creates an empty book.
func NewBook() *Book {
	return &Book{trailing: make(map[uint64]*TrailingState)}
}

// Register prepares state for a new order.
func (b *Book) Register(id uint64, p Policy) {
	if _, ok := p.(TrailingStop); ok {
		b.trailing[id] = &TrailingState{}
	}
}

// Forget drops the state of an order that can no longer fill.
func (b *Book) Forget(id uint64) {
	delete(b.trailing, id)
}

// TryExecute evaluates p for order id on the tick pair.
func (b *Book) TryExecute(id uint64, p Policy, side enum.Side, prev, next decimal.Decimal) (decimal.Decimal, bool) {
	switch v := p.(type) {
	case TrailingStop:
		st, ok := b.trailing[id]
		if !ok {
			st = &TrailingState{}
			b.trailing[id] = st
		}
		return v.TryExecute(side, prev, next, st)
	case Executor:
		return v.TryExecute(side, prev, next)
	default:
		return decimal.Zero, false
	}
}

// BoundPrice returns the price an order is expected to fill at, used for
// cost and margin. ok is false when the market price must be used instead.
func (b *Book) BoundPrice(id uint64, p Policy) (decimal.Decimal, bool) {
	switch v := p.(type) {
	case Limit:
		return v.Price, true
	case StopLimit:
		return v.Price, true
	case TrailingStop:
		if st, ok := b.trailing[id]; ok && st.Stop.Valid {
			return st.Stop.Decimal, true
		}
		return decimal.Zero, false
	default:
		return decimal.Zero, false
	}
}

// Trailing returns a copy of the trailing state of order id.
func (b *Book) Trailing(id uint64) (TrailingState, bool) {
	st, ok := b.trailing[id]
	if !ok {
		return TrailingState{}, false
	}
	return *st, true
}
