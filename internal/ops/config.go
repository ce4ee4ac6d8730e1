// Package ops loads backtest run configuration.
package ops

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"backtest/internal/broker"
	"backtest/internal/brokerage"
	"backtest/internal/model"
	"backtest/internal/model/enum"
	"backtest/internal/policy"
)

// FileConfig mirrors the config file layout. JSON and YAML share the same
// field names.
type FileConfig struct {
	Account   AccountConfig   `json:"account" yaml:"account"`
	Broker    BrokerConfig    `json:"broker" yaml:"broker"`
	Brokerage BrokerageConfig `json:"brokerage" yaml:"brokerage"`
	Orders    []OrderConfig   `json:"orders" yaml:"orders"`
	Cancels   []CancelConfig  `json:"cancels" yaml:"cancels"`
}

// AccountConfig describes the starting ledger.
type AccountConfig struct {
	InitialBalance decimal.Decimal `json:"initialBalance" yaml:"initialBalance"`
}

// BrokerConfig describes broker limits.
type BrokerConfig struct {
	Leverage                 decimal.Decimal `json:"leverage" yaml:"leverage"`
	MinimumOrderValue        decimal.Decimal `json:"minimumOrderValue" yaml:"minimumOrderValue"`
	MinimumMaintenanceMargin decimal.Decimal `json:"minimumMaintenanceMargin" yaml:"minimumMaintenanceMargin"`
	ReplayFullBar            bool            `json:"replayFullBar" yaml:"replayFullBar"`
}

// BrokerageConfig selects the PnL function.
type BrokerageConfig struct {
	// Kind is "zero" (default) or "percent".
	Kind string          `json:"kind" yaml:"kind"`
	Rate decimal.Decimal `json:"rate" yaml:"rate"`
}

// OrderConfig is one scripted order.
type OrderConfig struct {
	At         time.Time        `json:"at" yaml:"at"`
	BrokerID   string           `json:"brokerId" yaml:"brokerId"`
	Instrument string           `json:"instrument" yaml:"instrument"`
	Symbol     string           `json:"symbol" yaml:"symbol"`
	Side       string           `json:"side" yaml:"side"`
	Quantity   decimal.Decimal  `json:"quantity" yaml:"quantity"`
	Lots       *decimal.Decimal `json:"lots" yaml:"lots"`
	Policy     policy.Spec      `json:"policy" yaml:"policy"`
	OCO        string           `json:"oco" yaml:"oco"`
}

// CancelConfig is one scripted cancel.
type CancelConfig struct {
	At time.Time `json:"at" yaml:"at"`
	// Order is the 1-based position of the canceled order in orders.
	Order uint64 `json:"order" yaml:"order"`
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	InitialBalance decimal.Decimal
	// Broker has no callbacks, publisher or metrics set.
	Broker        broker.Config
	ReplayFullBar bool
	// Orders are sorted by At; orders at the same instant keep file order.
	Orders []ScriptedOrder
	// Cancels are sorted by At.
	Cancels []ScriptedCancel
}

// ScriptedOrder is a validated scripted order. Ref is its 1-based position
// in the config file.
type ScriptedOrder struct {
	Ref    uint64
	At     time.Time
	Params model.Params
	Spec   policy.Spec
	OCO    string
}

// ScriptedCancel cancels the scripted order with Ref.
type ScriptedCancel struct {
	Ref uint64
	At  time.Time
}

// ScriptedAction is either an order or a cancel.
type ScriptedAction struct {
	At     time.Time
	Order  *ScriptedOrder
	Cancel *ScriptedCancel
}

// Script merges orders and cancels by time. At the same instant orders
// come first.
func (l Loaded) Script() []ScriptedAction {
	actions := make([]ScriptedAction, 0, len(l.Orders)+len(l.Cancels))
	o, c := 0, 0
	for o < len(l.Orders) || c < len(l.Cancels) {
		if c == len(l.Cancels) || (o < len(l.Orders) && !l.Cancels[c].At.Before(l.Orders[o].At)) {
			actions = append(actions, ScriptedAction{At: l.Orders[o].At, Order: &l.Orders[o]})
			o++
			continue
		}
		actions = append(actions, ScriptedAction{At: l.Cancels[c].At, Cancel: &l.Cancels[c]})
		c++
	}
	return actions
}

const defaultInitialBalance = 100_000

func (c FileConfig) withDefaults() FileConfig {
	if c.Account.InitialBalance.IsZero() {
		c.Account.InitialBalance = decimal.NewFromInt(defaultInitialBalance)
	}
	if c.Broker.Leverage.IsZero() {
		c.Broker.Leverage = decimal.NewFromInt(1)
	}
	if c.Brokerage.Kind == "" {
		c.Brokerage.Kind = "zero"
	}
	for i := range c.Orders {
		if c.Orders[i].BrokerID == "" {
			c.Orders[i].BrokerID = "sim"
		}
		if c.Orders[i].Instrument == "" {
			c.Orders[i].Instrument = enum.InstrumentEquity.String()
		}
	}
	return c
}

// Validate checks if the configuration is usable.
func (c FileConfig) Validate() error {
	if !c.Account.InitialBalance.IsPositive() {
		return fmt.Errorf("invalid config: account.initialBalance must be > 0")
	}
	if !c.Broker.Leverage.IsPositive() {
		return fmt.Errorf("invalid config: broker.leverage must be > 0")
	}
	if c.Broker.MinimumOrderValue.IsNegative() {
		return fmt.Errorf("invalid config: broker.minimumOrderValue must be >= 0")
	}
	switch c.Brokerage.Kind {
	case "zero":
	case "percent":
		if c.Brokerage.Rate.IsNegative() || c.Brokerage.Rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			return fmt.Errorf("invalid config: brokerage.rate must be in [0, 1)")
		}
	default:
		return fmt.Errorf("invalid config: unknown brokerage.kind %q", c.Brokerage.Kind)
	}
	return nil
}

// Load reads a JSON or YAML config file, chosen by extension.
func Load(path string) (Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, err
	}

	var cfg FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return Loaded{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return Resolve(cfg)
}

// Resolve applies defaults, validates and builds the runtime config.
func Resolve(cfg FileConfig) (Loaded, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return Loaded{}, err
	}

	orders := make([]ScriptedOrder, 0, len(cfg.Orders))
	for i, oc := range cfg.Orders {
		order, err := resolveOrder(uint64(i+1), oc)
		if err != nil {
			return Loaded{}, fmt.Errorf("order %d: %w", i+1, err)
		}
		orders = append(orders, order)
	}
	cancels := make([]ScriptedCancel, 0, len(cfg.Cancels))
	for i, cc := range cfg.Cancels {
		if cc.Order == 0 || cc.Order > uint64(len(orders)) {
			return Loaded{}, fmt.Errorf("cancel %d: unknown order %d", i+1, cc.Order)
		}
		if cc.At.IsZero() {
			return Loaded{}, fmt.Errorf("cancel %d: at is empty", i+1)
		}
		if cc.At.Before(orders[cc.Order-1].At) {
			return Loaded{}, fmt.Errorf("cancel %d: before order %d is placed", i+1, cc.Order)
		}
		cancels = append(cancels, ScriptedCancel{Ref: cc.Order, At: cc.At.UTC()})
	}

	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].At.Before(orders[j].At)
	})
	sort.SliceStable(cancels, func(i, j int) bool {
		return cancels[i].At.Before(cancels[j].At)
	})

	return Loaded{
		InitialBalance: cfg.Account.InitialBalance,
		Broker: broker.Config{
			Leverage:                 cfg.Broker.Leverage,
			MinimumOrderValue:        cfg.Broker.MinimumOrderValue,
			MinimumMaintenanceMargin: cfg.Broker.MinimumMaintenanceMargin,
			Brokerage:                resolveBrokerage(cfg.Brokerage),
		},
		ReplayFullBar: cfg.Broker.ReplayFullBar,
		Orders:        orders,
		Cancels:       cancels,
	}, nil
}

func resolveBrokerage(cfg BrokerageConfig) brokerage.Func {
	if cfg.Kind == "percent" {
		return brokerage.PercentFee(cfg.Rate)
	}
	return brokerage.Zero()
}

func resolveOrder(ref uint64, cfg OrderConfig) (ScriptedOrder, error) {
	if cfg.Symbol == "" {
		return ScriptedOrder{}, fmt.Errorf("symbol is empty")
	}
	if cfg.At.IsZero() {
		return ScriptedOrder{}, fmt.Errorf("at is empty")
	}
	side, ok := enum.ParseSide(cfg.Side)
	if !ok {
		return ScriptedOrder{}, fmt.Errorf("unknown side %q", cfg.Side)
	}
	instrument, ok := enum.ParseInstrument(cfg.Instrument)
	if !ok {
		return ScriptedOrder{}, fmt.Errorf("unknown instrument %q", cfg.Instrument)
	}
	if !cfg.Quantity.IsPositive() {
		return ScriptedOrder{}, fmt.Errorf("quantity must be > 0")
	}
	if _, err := cfg.Policy.Build(side); err != nil {
		return ScriptedOrder{}, err
	}

	params := model.Params{
		BrokerID:   cfg.BrokerID,
		Instrument: instrument,
		Symbol:     cfg.Symbol,
		Quantity:   cfg.Quantity,
		Side:       side,
	}
	if cfg.Lots != nil {
		params.Lots = decimal.NewNullDecimal(*cfg.Lots)
	}
	return ScriptedOrder{
		Ref:    ref,
		At:     cfg.At.UTC(),
		Params: params,
		Spec:   cfg.Policy,
		OCO:    cfg.OCO,
	}, nil
}
