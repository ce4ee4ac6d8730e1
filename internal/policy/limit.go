package policy

import (
	"github.com/shopspring/decimal"

	"backtest/internal/model/enum"
)

// Limit fills at Price or better.
type Limit struct {
	Price decimal.Decimal
}

// NewLimit returns a limit policy.
func NewLimit(price decimal.Decimal) Limit {
	return Limit{Price: price}
}

func (Limit) Kind() Kind { return KindLimit }
func (Limit) policy()    {}

// TryExecute fills a buy once price falls to Price and a sell once it rises to Price.
func (l Limit) TryExecute(side enum.Side, prev, next decimal.Decimal) (decimal.Decimal, bool) {
	var c crossing
	switch side {
	case enum.SideBuy:
		c = crossDown(prev, next, l.Price)
	case enum.SideSell:
		c = crossUp(prev, next, l.Price)
	}

	switch c {
	case crossPast:
		return prev, true
	case crossWithin:
		return l.Price, true
	default:
		return decimal.Zero, false
	}
}

// Market fills on the next tick at that tick's price.
type Market struct{}

// NewMarket returns a market policy.
func NewMarket() Market {
	return Market{}
}

func (Market) Kind() Kind { return KindMarket }
func (Market) policy()    {}

func (Market) TryExecute(_ enum.Side, _, next decimal.Decimal) (decimal.Decimal, bool) {
	return next, true
}
