// Package risk classifies a new order against margin and minimum order value
// rules. A denial is a normal outcome, never an error.
package risk

import (
	"github.com/shopspring/decimal"

	"backtest/internal/model/enum"
)

// Config defines static order limits.
type Config struct {
	MinimumOrderValue decimal.Decimal `json:"minimumOrderValue" yaml:"minimumOrderValue"`
}

// Action is the outcome of a risk decision.
type Action uint8

const (
	ActionUnknown Action = iota
	ActionAllow
	ActionReject
)

// Request is what an order would cost if it filled.
type Request struct {
	// Cost is the notional of the exposure the order opens.
	Cost decimal.Decimal
	// Margin is the capital the order reserves.
	Margin          decimal.Decimal
	AvailableMargin decimal.Decimal
}

// Decision is the result of Evaluate.
type Decision struct {
	Action Action
	Cause  enum.RejectionCause
	Cost   decimal.Decimal
	Margin decimal.Decimal
}

// Engine evaluates risk decisions.
type Engine struct {
	cfg Config
}

// NewEngine creates a risk engine with static limits.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Config returns the limits the engine was built with.
func (e *Engine) Config() Config {
	return e.cfg
}

// Evaluate applies the checks in order: closing orders are always allowed,
// then margin, then minimum order value.
func (e *Engine) Evaluate(req Request) Decision {
	decision := Decision{
		Action: ActionAllow,
		Cost:   req.Cost,
		Margin: req.Margin,
	}

	if req.Margin.IsZero() {
		return decision
	}

	if req.Margin.GreaterThan(req.AvailableMargin) {
		decision.Action = ActionReject
		decision.Cause = enum.RejectionCauseMarginShortfall
		return decision
	}

	if req.Cost.LessThan(e.cfg.MinimumOrderValue) {
		decision.Action = ActionReject
		decision.Cause = enum.RejectionCauseLessThanMinimumOrderValue
		return decision
	}

	return decision
}
