package broker

import (
	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"

	"backtest/internal/model"
)

// updateUsedMargin recomputes margin from scratch:
//
//	used = sum(notional/leverage - min(pnl, 0)) over positions
//	     + sum(order margin) over open orders
//
// Unrealized losses hold extra margin, gains never release any.
func (b *Broker) updateUsedMargin() {
	used := decimal.Zero
	for _, pos := range b.positions {
		used = used.Add(b.positionMargin(pos))
	}
	for _, o := range b.orders.open("") {
		_, margin, err := b.orderCost(o.ID, o.Params, o.Policy)
		if err != nil {
			logs.Errorf("order %d margin, err: %+v", o.ID, err)
			continue
		}
		used = used.Add(margin)
	}
	b.usedMargin = used

	m := Margin{
		Balance:   b.account.Balance(),
		Used:      used,
		Available: b.AvailableMargin(),
	}
	if !m.equal(b.lastMargin) {
		b.lastMargin = m
		b.publish(Event{Kind: EventMarginUpdated, Margin: m})
	}

	if m.Available.LessThan(b.cfg.MinimumMaintenanceMargin) {
		call := MarginCall{
			Instant:  b.currentInstant,
			Margin:   m,
			Required: b.cfg.MinimumMaintenanceMargin,
		}
		b.cfg.Metrics.IncMarginCall()
		logs.Errorf("margin call at %s: available %s < required %s", b.currentInstant, m.Available, call.Required)
		b.publish(Event{Kind: EventMarginCall, Margin: m})
		b.cfg.OnMarginCall(call)
	}
}

func (b *Broker) positionMargin(pos *model.Position) decimal.Decimal {
	return model.Div(pos.Notional(), b.cfg.Leverage).Sub(model.MinZero(pos.PnL))
}
