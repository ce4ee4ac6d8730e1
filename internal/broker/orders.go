package broker

import (
	"errors"

	"backtest/internal/model"
)

var errInvalidTransition = errors.New("invalid order state transition")

// orderBook stores orders and guards the Open -> terminal transition.
type orderBook struct {
	orders []*model.Order
	index  map[model.OrderID]*model.Order
}

func newOrderBook() *orderBook {
	return &orderBook{index: make(map[model.OrderID]*model.Order)}
}

func (ob *orderBook) add(o *model.Order) {
	ob.orders = append(ob.orders, o)
	ob.index[o.ID] = o
}

func (ob *orderBook) get(id model.OrderID) (*model.Order, bool) {
	o, ok := ob.index[id]
	return o, ok
}

// close moves an open order into a terminal status exactly once.
func (ob *orderBook) close(o *model.Order, status model.OrderStatus) error {
	if !o.IsOpen() || !status.IsTerminal() {
		return errInvalidTransition
	}
	o.Status = status
	return nil
}

// open returns the open orders, optionally filtered by symbol, in creation order.
func (ob *orderBook) open(symbol string) []*model.Order {
	var out []*model.Order
	for _, o := range ob.orders {
		if !o.IsOpen() {
			continue
		}
		if symbol != "" && o.Params.Symbol != symbol {
			continue
		}
		out = append(out, o)
	}
	return out
}

func (ob *orderBook) snapshot() []model.Order {
	out := make([]model.Order, 0, len(ob.orders))
	for _, o := range ob.orders {
		out = append(out, *o)
	}
	return out
}
