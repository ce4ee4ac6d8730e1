package broker

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"

	"backtest/internal/errors"
	"backtest/internal/model"
	"backtest/internal/policy"
	"backtest/internal/risk"
	"backtest/pkg/exception"
)

// NewOrder registers an order and classifies it as Open or Rejected.
// A rejection is reported through the order status, not the error. Pass an
// empty ocoID for an order outside any one-cancels-other group. The order is
// stamped with the current instant.
func (b *Broker) NewOrder(params model.Params, p policy.Policy, ocoID model.OCOID) (model.OrderID, error) {
	return b.NewOrderAt(b.currentInstant, params, p, ocoID)
}

// NewOrderAt is NewOrder for an order placed at instant, which must not be
// before the current instant. Ticks keep driving the current instant.
func (b *Broker) NewOrderAt(instant time.Time, params model.Params, p policy.Policy, ocoID model.OCOID) (model.OrderID, error) {
	start := time.Now()
	defer func() {
		b.cfg.Metrics.ObserveOrder(time.Since(start))
	}()

	if !params.Quantity.IsPositive() {
		return 0, errors.Wrap(exception.ErrBrokerInvalidQuantity, "quantity "+params.Quantity.String())
	}
	if !params.Side.IsAvailable() {
		return 0, exception.ErrBrokerInvalidSide
	}
	if p == nil {
		return 0, exception.ErrBrokerNilPolicy
	}
	if instant.Before(b.currentInstant) {
		return 0, errors.Wrap(exception.ErrBrokerTimeReversed,
			fmt.Sprintf("order at %s, current %s", instant.Format(time.RFC3339Nano), b.currentInstant.Format(time.RFC3339Nano)))
	}

	// a new order has no policy state yet, so its bound price is static
	cost, margin, err := b.orderCost(0, params, p)
	if err != nil {
		return 0, err
	}

	decision := b.risk.Evaluate(risk.Request{
		Cost:            cost,
		Margin:          margin,
		AvailableMargin: b.AvailableMargin(),
	})

	order := &model.Order{
		ID:        model.OrderID(b.orderIDs.Next()),
		Params:    params,
		Policy:    p,
		CreatedAt: instant,
	}

	if decision.Action == risk.ActionReject {
		order.Status = model.Rejected{ClosedAt: instant, Cause: decision.Cause}
		b.cfg.Metrics.IncOrderRejected(decision.Cause)
		logs.Infof("order %d rejected: %s, cost %s, margin %s, available %s",
			order.ID, decision.Cause, cost, margin, b.AvailableMargin())
	} else {
		order.Status = model.Open{OCOID: ocoID}
		b.policies.Register(uint64(order.ID), p)
		b.cfg.Metrics.IncOrderOpened()
	}

	b.orders.add(order)
	b.publishOrder(order)
	b.updateUsedMargin()

	return order.ID, nil
}

// CancelOrder cancels an open order. Canceling an order that is already
// terminal is a no-op.
func (b *Broker) CancelOrder(id model.OrderID) error {
	o, ok := b.orders.get(id)
	if !ok {
		return errors.Wrap(exception.ErrBrokerUnknownOrder, fmt.Sprintf("order %d", id))
	}
	if !o.IsOpen() {
		return nil
	}
	b.cancel(o)
	b.updateUsedMargin()
	return nil
}

func (b *Broker) cancel(o *model.Order) {
	if err := b.orders.close(o, model.Canceled{ClosedAt: b.currentInstant}); err != nil {
		return
	}
	b.policies.Forget(uint64(o.ID))
	b.cfg.Metrics.IncOrderCanceled()
	b.publishOrder(o)
}

// newExposure is the part of an order's quantity that would open exposure
// rather than offset an opposite position.
func (b *Broker) newExposure(params model.Params) decimal.Decimal {
	qty := params.Quantity
	pos, ok := b.positionIndex[params.Key()]
	if ok && pos.Side != params.Side.PositionSide() {
		qty = qty.Sub(pos.Quantity)
	}
	if qty.IsNegative() {
		return decimal.Zero
	}
	return qty
}

// orderCost returns the notional and margin an order would hold.
// Orders that only offset an existing position cost nothing.
func (b *Broker) orderCost(id model.OrderID, params model.Params, p policy.Policy) (cost, margin decimal.Decimal, err error) {
	exposure := b.newExposure(params)
	if !exposure.IsPositive() {
		return decimal.Zero, decimal.Zero, nil
	}

	ref, ok := b.policies.BoundPrice(uint64(id), p)
	if !ok {
		ref, ok = b.lastPrices[params.Symbol]
		if !ok {
			return decimal.Zero, decimal.Zero, errors.Wrap(exception.ErrBrokerNoPrice, "symbol "+params.Symbol)
		}
	}

	cost = ref.Mul(exposure)
	margin = model.Div(cost, b.cfg.Leverage)
	return cost, margin, nil
}
