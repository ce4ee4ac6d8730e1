package policy

import (
	"github.com/shopspring/decimal"

	"backtest/internal/errors"
	"backtest/internal/model/enum"
	"backtest/pkg/exception"
)

// StopLimit arms once Trigger is crossed and never fills beyond Price.
type StopLimit struct {
	Trigger decimal.Decimal
	Price   decimal.Decimal
}

// NewStopLimit requires Trigger <= Price for a buy and Trigger >= Price for a sell.
func NewStopLimit(side enum.Side, trigger, price decimal.Decimal) (StopLimit, error) {
	switch side {
	case enum.SideBuy:
		if trigger.GreaterThan(price) {
			return StopLimit{}, errors.Wrap(exception.ErrPolicyInvalidStopLimit, "buy trigger "+trigger.String()+" > price "+price.String())
		}
	case enum.SideSell:
		if trigger.LessThan(price) {
			return StopLimit{}, errors.Wrap(exception.ErrPolicyInvalidStopLimit, "sell trigger "+trigger.String()+" < price "+price.String())
		}
	default:
		return StopLimit{}, exception.ErrBrokerInvalidSide
	}
	return StopLimit{Trigger: trigger, Price: price}, nil
}

func (StopLimit) Kind() Kind { return KindStopLimit }
func (StopLimit) policy()    {}

// TryExecute fills a buy once price rises to Trigger, capped at Price,
// and a sell once price falls to Trigger, floored at Price.
func (s StopLimit) TryExecute(side enum.Side, prev, next decimal.Decimal) (decimal.Decimal, bool) {
	switch side {
	case enum.SideBuy:
		switch crossUp(prev, next, s.Trigger) {
		case crossPast:
			return decimal.Min(prev, s.Price), true
		case crossWithin:
			return decimal.Min(next, s.Price), true
		}
	case enum.SideSell:
		switch crossDown(prev, next, s.Trigger) {
		case crossPast:
			return decimal.Max(prev, s.Price), true
		case crossWithin:
			return decimal.Max(next, s.Price), true
		}
	}
	return decimal.Zero, false
}

// StopMarket fills at market once Trigger is crossed.
type StopMarket struct {
	Trigger decimal.Decimal
}

// NewStopMarket returns a stop market policy.
func NewStopMarket(trigger decimal.Decimal) StopMarket {
	return StopMarket{Trigger: trigger}
}

func (StopMarket) Kind() Kind { return KindStopMarket }
func (StopMarket) policy()    {}

// TryExecute fills a buy once price rises to Trigger and a sell once it falls to Trigger.
func (s StopMarket) TryExecute(side enum.Side, prev, next decimal.Decimal) (decimal.Decimal, bool) {
	var c crossing
	switch side {
	case enum.SideBuy:
		c = crossUp(prev, next, s.Trigger)
	case enum.SideSell:
		c = crossDown(prev, next, s.Trigger)
	}

	switch c {
	case crossPast:
		return prev, true
	case crossWithin:
		return next, true
	default:
		return decimal.Zero, false
	}
}
