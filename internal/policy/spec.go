package policy

import (
	"github.com/shopspring/decimal"

	"backtest/internal/model/enum"
	"backtest/pkg/exception"
)

// Spec is the serializable description of a policy, as found in config
// files and recorded order events.
type Spec struct {
	Kind       string          `json:"kind" yaml:"kind"`
	Price      decimal.Decimal `json:"price" yaml:"price"`
	Trigger    decimal.Decimal `json:"trigger" yaml:"trigger"`
	Callback   decimal.Decimal `json:"callback" yaml:"callback"`
	Activation decimal.Decimal `json:"activation" yaml:"activation"`
}

// Build validates the spec for an order side and returns the policy.
func (s Spec) Build(side enum.Side) (Policy, error) {
	kind, ok := ParseKind(s.Kind)
	if !ok {
		return nil, exception.ErrPolicyUnknownKind
	}
	switch kind {
	case KindLimit:
		if !s.Price.IsPositive() {
			return nil, exception.ErrPolicyInvalidPrice
		}
		return NewLimit(s.Price), nil
	case KindMarket:
		return NewMarket(), nil
	case KindStopLimit:
		if !s.Price.IsPositive() || !s.Trigger.IsPositive() {
			return nil, exception.ErrPolicyInvalidPrice
		}
		return NewStopLimit(side, s.Trigger, s.Price)
	case KindStopMarket:
		if !s.Trigger.IsPositive() {
			return nil, exception.ErrPolicyInvalidPrice
		}
		return NewStopMarket(s.Trigger), nil
	case KindTrailingStop:
		return NewTrailingStop(s.Callback, s.Activation)
	default:
		return nil, exception.ErrPolicyUnknownKind
	}
}

// SpecOf describes p.
func SpecOf(p Policy) Spec {
	switch v := p.(type) {
	case Limit:
		return Spec{Kind: KindLimit.String(), Price: v.Price}
	case Market:
		return Spec{Kind: KindMarket.String()}
	case StopLimit:
		return Spec{Kind: KindStopLimit.String(), Trigger: v.Trigger, Price: v.Price}
	case StopMarket:
		return Spec{Kind: KindStopMarket.String(), Trigger: v.Trigger}
	case TrailingStop:
		return Spec{Kind: KindTrailingStop.String(), Callback: v.Callback, Activation: v.ActivationPrice}
	default:
		return Spec{}
	}
}
