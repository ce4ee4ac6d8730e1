package broker

import (
	"github.com/shopspring/decimal"

	"backtest/internal/model"
	"backtest/internal/model/enum"
)

// applyExecution folds one execution into the position of its key.
// market is the price positions are marked at.
func (b *Broker) applyExecution(exec model.Execution, market decimal.Decimal) {
	key := exec.Key()
	side := exec.Side.PositionSide()

	pos, ok := b.positionIndex[key]
	if !ok {
		b.openPosition(key, side, exec.Quantity, exec.Price, market)
		return
	}

	if pos.Side == side {
		qty := pos.Quantity.Add(exec.Quantity)
		notional := pos.AveragePrice.Mul(pos.Quantity).Add(exec.Price.Mul(exec.Quantity))
		pos.AveragePrice = model.Div(notional, qty)
		pos.Quantity = qty
		pos.PnL = b.pnl(pos, market)
		b.publishPosition(EventPositionUpdated, pos)
		return
	}

	remaining := pos.Quantity.Sub(exec.Quantity)
	switch remaining.Sign() {
	case 0:
		b.realize(pos, exec.Price, pos.Quantity)
		b.closePosition(pos)
	case 1:
		b.realize(pos, exec.Price, exec.Quantity)
		pos.Quantity = remaining
		pos.PnL = b.pnl(pos, market)
		b.publishPosition(EventPositionUpdated, pos)
	default:
		b.realize(pos, exec.Price, pos.Quantity)
		b.closePosition(pos)
		b.openPosition(key, side, remaining.Neg(), exec.Price, market)
	}
}

func (b *Broker) openPosition(key model.PositionKey, side enum.PositionSide, qty, price, market decimal.Decimal) {
	pos := &model.Position{
		ID:           model.PositionID(b.positionIDs.Next()),
		BrokerID:     key.BrokerID,
		Instrument:   key.Instrument,
		Symbol:       key.Symbol,
		Side:         side,
		Quantity:     qty,
		AveragePrice: price,
	}
	pos.PnL = b.pnl(pos, market)
	b.positions = append(b.positions, pos)
	b.positionIndex[key] = pos
	b.publishPosition(EventPositionUpdated, pos)
}

func (b *Broker) closePosition(pos *model.Position) {
	delete(b.positionIndex, pos.Key())
	for i, p := range b.positions {
		if p == pos {
			b.positions = append(b.positions[:i], b.positions[i+1:]...)
			break
		}
	}
	b.cfg.Metrics.IncPositionClosed()
	b.publishPosition(EventPositionClosed, pos)
}

// realize posts the net PnL of closing qty of pos at exit.
func (b *Broker) realize(pos *model.Position, exit, qty decimal.Decimal) {
	result := b.cfg.Brokerage(pos.Side, pos.AveragePrice, exit, qty)
	b.account.AddTransaction(b.currentInstant, result.Net)
}

func (b *Broker) pnl(pos *model.Position, market decimal.Decimal) decimal.Decimal {
	return b.cfg.Brokerage(pos.Side, pos.AveragePrice, market, pos.Quantity).Net
}

func (b *Broker) markPositions(symbol string, price decimal.Decimal) {
	for _, pos := range b.positions {
		if pos.Symbol != symbol {
			continue
		}
		pnl := b.pnl(pos, price)
		if pnl.Equal(pos.PnL) {
			continue
		}
		pos.PnL = pnl
		b.publishPosition(EventPositionUpdated, pos)
	}
}
