// Package broker is the backtest matching engine. It owns the order
// lifecycle, fills open orders against a time-ordered price stream, keeps one
// position per (broker, instrument, symbol), accounts margin and posts
// realized PnL to an account ledger.
//
// A Broker is not safe for concurrent use; route every call through one
// goroutine. Only its account may be read from elsewhere.
package broker

import (
	"time"

	"github.com/shopspring/decimal"

	"backtest/internal/account"
	"backtest/internal/brokerage"
	"backtest/internal/errors"
	"backtest/internal/model"
	"backtest/internal/obs"
	"backtest/internal/policy"
	"backtest/internal/risk"
	"backtest/pkg/exception"
)

// Config is fixed for the lifetime of a broker.
type Config struct {
	// Leverage divides notional into margin. Defaults to 1.
	Leverage decimal.Decimal
	// MinimumOrderValue rejects orders opening less notional. Zero disables it.
	MinimumOrderValue decimal.Decimal
	// MinimumMaintenanceMargin triggers OnMarginCall when available margin drops below it.
	MinimumMaintenanceMargin decimal.Decimal
	OnMarginCall             func(MarginCall)
	// Brokerage computes net PnL. Defaults to brokerage.Zero.
	Brokerage brokerage.Func
	// Publisher receives every state change. Optional.
	Publisher Publisher
	Metrics   *obs.Metrics
}

func (c Config) withDefaults() Config {
	if c.Leverage.IsZero() {
		c.Leverage = decimal.NewFromInt(1)
	}
	if c.OnMarginCall == nil {
		c.OnMarginCall = func(MarginCall) {}
	}
	if c.Brokerage == nil {
		c.Brokerage = brokerage.Zero()
	}
	return c
}

// Validate checks if the configuration is usable.
func (c Config) Validate() error {
	if !c.Leverage.IsPositive() {
		return errors.Wrap(exception.ErrBrokerInvalidConfig, "leverage must be > 0")
	}
	if c.MinimumOrderValue.IsNegative() {
		return errors.Wrap(exception.ErrBrokerInvalidConfig, "minimum order value must be >= 0")
	}
	return nil
}

// Broker is a simulated broker for one account.
type Broker struct {
	cfg      Config
	account  *account.Account
	risk     *risk.Engine
	policies *policy.Book

	orderIDs     model.IDGenerator
	executionIDs model.IDGenerator
	positionIDs  model.IDGenerator

	orders        *orderBook
	executions    []model.Execution
	positions     []*model.Position
	positionIndex map[model.PositionKey]*model.Position

	usedMargin     decimal.Decimal
	lastMargin     Margin
	currentInstant time.Time
	lastPrices     map[string]decimal.Decimal
}

// New creates a broker that posts realized PnL to acc.
func New(acc *account.Account, cfg Config) (*Broker, error) {
	if acc == nil {
		return nil, exception.ErrBrokerNilAccount
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Broker{
		cfg:           cfg,
		account:       acc,
		risk:          risk.NewEngine(risk.Config{MinimumOrderValue: cfg.MinimumOrderValue}),
		policies:      policy.NewBook(),
		orders:        newOrderBook(),
		positionIndex: make(map[model.PositionKey]*model.Position),
		lastPrices:    make(map[string]decimal.Decimal),
	}, nil
}

// Account returns the ledger the broker posts to.
func (b *Broker) Account() *account.Account {
	return b.account
}

// CurrentInstant is the latest instant passed to NewPrice.
func (b *Broker) CurrentInstant() time.Time {
	return b.currentInstant
}

// LastPrice returns the last observed price of symbol.
func (b *Broker) LastPrice(symbol string) (decimal.Decimal, bool) {
	p, ok := b.lastPrices[symbol]
	return p, ok
}

// UsedMargin is the margin held by positions and open orders.
func (b *Broker) UsedMargin() decimal.Decimal {
	return b.usedMargin
}

// AvailableMargin is the balance not held as margin.
func (b *Broker) AvailableMargin() decimal.Decimal {
	return b.account.Balance().Sub(b.usedMargin)
}

// Orders returns every order in creation order.
func (b *Broker) Orders() []model.Order {
	return b.orders.snapshot()
}

// Order returns one order.
func (b *Broker) Order(id model.OrderID) (model.Order, bool) {
	o, ok := b.orders.get(id)
	if !ok {
		return model.Order{}, false
	}
	return *o, true
}

// Executions returns every execution in fill order.
func (b *Broker) Executions() []model.Execution {
	out := make([]model.Execution, len(b.executions))
	copy(out, b.executions)
	return out
}

// ExecutionsSince returns a copy of the executions after the first n.
func (b *Broker) ExecutionsSince(n int) []model.Execution {
	if n < 0 {
		n = 0
	}
	if n >= len(b.executions) {
		return nil
	}
	out := make([]model.Execution, len(b.executions)-n)
	copy(out, b.executions[n:])
	return out
}

// Positions returns the open positions in creation order.
func (b *Broker) Positions() []model.Position {
	out := make([]model.Position, 0, len(b.positions))
	for _, p := range b.positions {
		out = append(out, *p)
	}
	return out
}

// Position returns the open position for key.
func (b *Broker) Position(key model.PositionKey) (model.Position, bool) {
	p, ok := b.positionIndex[key]
	if !ok {
		return model.Position{}, false
	}
	return *p, true
}

// TrailingState exposes the trailing stop state of an open order.
func (b *Broker) TrailingState(id model.OrderID) (policy.TrailingState, bool) {
	return b.policies.Trailing(uint64(id))
}
