package enum

import "fmt"

// RejectionCause margin shortfall, less than minimum order value
type RejectionCause uint8

const (
	_rejection_cause_beg RejectionCause = iota
	RejectionCauseMarginShortfall
	RejectionCauseLessThanMinimumOrderValue
	_rejection_cause_end
)

func (c RejectionCause) IsAvailable() bool {
	return c > _rejection_cause_beg && c < _rejection_cause_end
}

func (c RejectionCause) String() string {
	switch c {
	case RejectionCauseMarginShortfall:
		return "margin_shortfall"
	case RejectionCauseLessThanMinimumOrderValue:
		return "less_than_minimum_order_value"
	default:
		return fmt.Sprintf("rejection_cause(%d)", uint8(c))
	}
}
