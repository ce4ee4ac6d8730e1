package risk

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"backtest/internal/model/enum"
)

func TestEvaluate(t *testing.T) {
	engine := NewEngine(Config{MinimumOrderValue: decimal.NewFromInt(1000)})

	cases := []struct {
		name   string
		req    Request
		action Action
		cause  enum.RejectionCause
	}{
		{
			name:   "closing order skips every check",
			req:    Request{Cost: decimal.Zero, Margin: decimal.Zero, AvailableMargin: decimal.NewFromInt(-10)},
			action: ActionAllow,
		},
		{
			name:   "margin shortfall",
			req:    Request{Cost: decimal.NewFromInt(200_000), Margin: decimal.NewFromInt(200_000), AvailableMargin: decimal.NewFromInt(10_000)},
			action: ActionReject,
			cause:  enum.RejectionCauseMarginShortfall,
		},
		{
			name:   "below minimum value",
			req:    Request{Cost: decimal.NewFromInt(200), Margin: decimal.NewFromInt(200), AvailableMargin: decimal.NewFromInt(10_000)},
			action: ActionReject,
			cause:  enum.RejectionCauseLessThanMinimumOrderValue,
		},
		{
			name:   "margin exactly available",
			req:    Request{Cost: decimal.NewFromInt(10_000), Margin: decimal.NewFromInt(10_000), AvailableMargin: decimal.NewFromInt(10_000)},
			action: ActionAllow,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decision := engine.Evaluate(tc.req)
			assert.Equal(t, tc.action, decision.Action)
			assert.Equal(t, tc.cause, decision.Cause)
		})
	}
}
