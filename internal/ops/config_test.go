package ops

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backtest/internal/model/enum"
	"backtest/pkg/exception"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const yamlConfig = `
account:
  initialBalance: 10000
broker:
  leverage: 2
  minimumOrderValue: 500
  replayFullBar: true
brokerage:
  kind: percent
  rate: 0.0005
orders:
  - at: 2024-03-04T09:20:00Z
    symbol: ABC
    side: sell
    quantity: 10
    policy:
      kind: stop_market
      trigger: 195
    oco: exit
  - at: 2024-03-04T09:15:00Z
    symbol: ABC
    instrument: futures
    side: buy
    quantity: 10
    lots: 1
    policy:
      kind: limit
      price: 200.05
`

func TestLoadYAML(t *testing.T) {
	loaded, err := Load(writeFile(t, "run.yaml", yamlConfig))
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(10000).Equal(loaded.InitialBalance))
	assert.True(t, decimal.NewFromInt(2).Equal(loaded.Broker.Leverage))
	assert.True(t, decimal.NewFromInt(500).Equal(loaded.Broker.MinimumOrderValue))
	assert.True(t, loaded.ReplayFullBar)
	require.NotNil(t, loaded.Broker.Brokerage)

	result := loaded.Broker.Brokerage(enum.PositionSideLong, decimal.NewFromInt(100), decimal.NewFromInt(110), decimal.NewFromInt(10))
	assert.Equal(t, "100", result.Gross.String())
	assert.Equal(t, "98.95", result.Net.String())

	require.Len(t, loaded.Orders, 2)
	first := loaded.Orders[0]
	assert.Equal(t, uint64(2), first.Ref)
	assert.Equal(t, time.Date(2024, 3, 4, 9, 15, 0, 0, time.UTC), first.At)
	assert.Equal(t, enum.InstrumentFutures, first.Params.Instrument)
	assert.Equal(t, enum.SideBuy, first.Params.Side)
	assert.Equal(t, "sim", first.Params.BrokerID)
	assert.True(t, first.Params.Lots.Valid)
	assert.Equal(t, "200.05", first.Spec.Price.String())

	second := loaded.Orders[1]
	assert.Equal(t, uint64(1), second.Ref)
	assert.Equal(t, enum.InstrumentEquity, second.Params.Instrument)
	assert.False(t, second.Params.Lots.Valid)
	assert.Equal(t, "exit", second.OCO)
}

func TestLoadJSONDefaults(t *testing.T) {
	loaded, err := Load(writeFile(t, "run.json", `{
		"orders": [{"at": "2024-03-04T09:15:00+05:30", "symbol": "ABC", "side": "buy", "quantity": "1", "policy": {"kind": "market"}}]
	}`))
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(defaultInitialBalance).Equal(loaded.InitialBalance))
	assert.True(t, decimal.NewFromInt(1).Equal(loaded.Broker.Leverage))
	assert.False(t, loaded.ReplayFullBar)
	require.Len(t, loaded.Orders, 1)
	assert.Equal(t, time.UTC, loaded.Orders[0].At.Location())
	assert.Equal(t, 3, loaded.Orders[0].At.Hour())
}

const cancelConfig = `
orders:
  - at: 2024-03-04T09:15:00Z
    symbol: ABC
    side: buy
    quantity: 10
    policy:
      kind: limit
      price: 90
  - at: 2024-03-04T09:17:00Z
    symbol: ABC
    side: buy
    quantity: 5
    policy:
      kind: limit
      price: 95
cancels:
  - at: 2024-03-04T09:17:00Z
    order: 1
  - at: 2024-03-04T09:16:00Z
    order: 1
`

func TestLoadCancelsAndScript(t *testing.T) {
	loaded, err := Load(writeFile(t, "run.yml", cancelConfig))
	require.NoError(t, err)

	require.Len(t, loaded.Cancels, 2)
	assert.Equal(t, uint64(1), loaded.Cancels[0].Ref)
	assert.Equal(t, time.Date(2024, 3, 4, 9, 16, 0, 0, time.UTC), loaded.Cancels[0].At)

	script := loaded.Script()
	require.Len(t, script, 4)
	require.NotNil(t, script[0].Order)
	assert.Equal(t, uint64(1), script[0].Order.Ref)
	require.NotNil(t, script[1].Cancel)
	assert.Equal(t, 16, script[1].At.Minute())
	// an order and a cancel at the same instant keep the order first
	require.NotNil(t, script[2].Order)
	assert.Equal(t, uint64(2), script[2].Order.Ref)
	require.NotNil(t, script[3].Cancel)
	assert.Equal(t, 17, script[3].At.Minute())
}

func TestLoadInvalid(t *testing.T) {
	cases := []struct {
		name    string
		content string
		target  error
	}{
		{name: "negative leverage", content: `{"broker": {"leverage": -1}}`},
		{name: "unknown brokerage", content: `{"brokerage": {"kind": "flat"}}`},
		{name: "rate too large", content: `{"brokerage": {"kind": "percent", "rate": 1}}`},
		{name: "unknown side", content: `{"orders": [{"at": "2024-03-04T09:15:00Z", "symbol": "A", "side": "hold", "quantity": 1, "policy": {"kind": "market"}}]}`},
		{name: "zero quantity", content: `{"orders": [{"at": "2024-03-04T09:15:00Z", "symbol": "A", "side": "buy", "quantity": 0, "policy": {"kind": "market"}}]}`},
		{name: "missing at", content: `{"orders": [{"symbol": "A", "side": "buy", "quantity": 1, "policy": {"kind": "market"}}]}`},
		{
			name:    "stop limit on wrong side",
			content: `{"orders": [{"at": "2024-03-04T09:15:00Z", "symbol": "A", "side": "buy", "quantity": 1, "policy": {"kind": "stop_limit", "trigger": 110, "price": 100}}]}`,
			target:  exception.ErrPolicyInvalidStopLimit,
		},
		{
			name:    "unknown policy",
			content: `{"orders": [{"at": "2024-03-04T09:15:00Z", "symbol": "A", "side": "buy", "quantity": 1, "policy": {"kind": "iceberg"}}]}`,
			target:  exception.ErrPolicyUnknownKind,
		},
		{name: "cancel unknown order", content: `{"cancels": [{"at": "2024-03-04T09:15:00Z", "order": 1}]}`},
		{
			name:    "cancel before order",
			content: `{"orders": [{"at": "2024-03-04T09:15:00Z", "symbol": "A", "side": "buy", "quantity": 1, "policy": {"kind": "market"}}], "cancels": [{"at": "2024-03-04T09:14:00Z", "order": 1}]}`,
		},
		{name: "malformed", content: `{"orders": [`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "run.json", tc.content))
			require.Error(t, err)
			if tc.target != nil {
				require.ErrorIs(t, err, tc.target)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
