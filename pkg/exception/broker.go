package exception

import "errors"

var (
	ErrBrokerInvalidQuantity = errors.New("broker: quantity must be > 0")
	ErrBrokerInvalidSide     = errors.New("broker: invalid order side")
	ErrBrokerNilPolicy       = errors.New("broker: nil execution policy")
	ErrBrokerTimeReversed    = errors.New("broker: instant is before current instant")
	ErrBrokerNoPrice         = errors.New("broker: no price observed for symbol")
	ErrBrokerUnknownOrder    = errors.New("broker: order not found")
	ErrBrokerNilAccount      = errors.New("broker: nil account")
	ErrBrokerInvalidConfig   = errors.New("broker: invalid config")
)

var (
	ErrPolicyInvalidStopLimit = errors.New("policy: stop limit trigger is on the wrong side of price")
	ErrPolicyInvalidCallback  = errors.New("policy: trailing stop callback must be in (0, 1)")
	ErrPolicyInvalidPrice     = errors.New("policy: price must be > 0")
	ErrPolicyUnknownKind      = errors.New("policy: unknown kind")
)
