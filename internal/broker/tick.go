package broker

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"backtest/internal/errors"
	"backtest/internal/model"
	"backtest/pkg/exception"
)

// NewPrice feeds one price of symbol at instant. Every open order on the
// symbol is tested against the move from the last observed price; fills
// update positions and cancel OCO siblings. instant must not be before the
// previous call's instant, for any symbol.
func (b *Broker) NewPrice(instant time.Time, symbol string, price decimal.Decimal) error {
	if instant.Before(b.currentInstant) {
		return errors.Wrap(exception.ErrBrokerTimeReversed,
			fmt.Sprintf("%s: %s < %s", symbol, instant.Format(time.RFC3339Nano), b.currentInstant.Format(time.RFC3339Nano)))
	}

	start := time.Now()
	b.currentInstant = instant

	prev, ok := b.lastPrices[symbol]
	if !ok {
		prev = price
	}

	for _, o := range b.orders.open(symbol) {
		// an OCO sibling filled earlier in this tick
		if !o.IsOpen() {
			continue
		}
		fill, ok := b.policies.TryExecute(uint64(o.ID), o.Policy, o.Params.Side, prev, price)
		if !ok {
			continue
		}
		b.execute(o, fill, price)
	}

	b.lastPrices[symbol] = price
	b.markPositions(symbol, price)
	b.updateUsedMargin()

	b.cfg.Metrics.ObserveTick(time.Since(start))
	return nil
}

// NewCandle feeds one bar. With replayFullBar the bar is replayed as open,
// both extremes and close so intrabar touches fill; otherwise only the close
// is fed. Every tick is stamped with the bar's open time.
func (b *Broker) NewCandle(symbol string, candle model.Candle, replayFullBar bool) error {
	if !replayFullBar {
		return b.NewPrice(candle.OpenTime, symbol, candle.Close)
	}
	for _, price := range candle.Ticks() {
		if err := b.NewPrice(candle.OpenTime, symbol, price); err != nil {
			return err
		}
	}
	return nil
}

func (b *Broker) execute(o *model.Order, fill, market decimal.Decimal) {
	oco := o.OCOID()
	if err := b.orders.close(o, model.Executed{ClosedAt: b.currentInstant, ExecutionPrice: fill}); err != nil {
		return
	}
	b.policies.Forget(uint64(o.ID))

	exec := model.Execution{
		ID:         model.ExecutionID(b.executionIDs.Next()),
		OrderID:    o.ID,
		BrokerID:   o.Params.BrokerID,
		Instrument: o.Params.Instrument,
		Symbol:     o.Params.Symbol,
		Quantity:   o.Params.Quantity,
		Lots:       o.Params.Lots,
		Side:       o.Params.Side,
		Price:      fill,
		Timestamp:  b.currentInstant,
	}
	b.executions = append(b.executions, exec)
	b.cfg.Metrics.IncExecution()

	b.publishOrder(o)
	b.publish(Event{Kind: EventExecutionAdded, Execution: exec})

	b.applyExecution(exec, market)

	if oco == "" {
		return
	}
	for _, sibling := range b.orders.open("") {
		if sibling.OCOID() == oco {
			b.cancel(sibling)
		}
	}
}
