// Package mdg generates synthetic bars for backtests without recorded data.
package mdg

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"backtest/internal/model"
)

// Config controls the random walk.
type Config struct {
	Seed      int64
	Start     time.Time
	Interval  time.Duration
	BasePrice decimal.Decimal
	// MaxMove is the largest close-to-close move as a fraction of price.
	MaxMove decimal.Decimal
	// TickSize is the price grid every generated price sits on.
	TickSize decimal.Decimal
}

func (c Config) withDefaults() Config {
	if c.Interval == 0 {
		c.Interval = time.Minute
	}
	if c.Start.IsZero() {
		c.Start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	if c.BasePrice.IsZero() {
		c.BasePrice = decimal.NewFromInt(100)
	}
	if c.MaxMove.IsZero() {
		c.MaxMove = decimal.RequireFromString("0.01")
	}
	if c.TickSize.IsZero() {
		c.TickSize = decimal.RequireFromString("0.05")
	}
	return c
}

// Validate checks if the configuration is usable.
func (c Config) Validate() error {
	if c.Interval < 0 {
		return fmt.Errorf("invalid generator config: Interval must be > 0")
	}
	if !c.BasePrice.IsPositive() {
		return fmt.Errorf("invalid generator config: BasePrice must be > 0")
	}
	if !c.MaxMove.IsPositive() || c.MaxMove.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("invalid generator config: MaxMove must be in (0, 1)")
	}
	if !c.TickSize.IsPositive() {
		return fmt.Errorf("invalid generator config: TickSize must be > 0")
	}
	return nil
}

// Generator produces a deterministic random walk of bars for one seed.
type Generator struct {
	cfg   Config
	rng   *rand.Rand
	price decimal.Decimal
	index int
}

// NewGenerator validates cfg and creates a generator.
func NewGenerator(cfg Config) (*Generator, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Generator{
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(cfg.Seed)),
		price: cfg.BasePrice,
	}, nil
}

// Next returns the next bar. Its open is the previous close.
func (g *Generator) Next() model.Candle {
	open := g.price
	closing := g.move(open)
	high := decimal.Max(open, closing)
	low := decimal.Min(open, closing)
	high = decimal.Max(high, g.move(high))
	low = decimal.Min(low, g.move(low))

	c := model.Candle{
		OpenTime: g.cfg.Start.Add(time.Duration(g.index) * g.cfg.Interval),
		Open:     open,
		High:     high,
		Low:      low,
		Close:    closing,
		Volume:   decimal.NewFromInt(1 + g.rng.Int63n(1000)),
	}
	g.price = closing
	g.index++
	return c
}

// move returns price shifted by a random fraction of at most MaxMove,
// snapped to the tick grid and never below one tick.
func (g *Generator) move(price decimal.Decimal) decimal.Decimal {
	fraction := decimal.NewFromFloat(g.rng.Float64()*2 - 1).Mul(g.cfg.MaxMove)
	next := price.Add(price.Mul(fraction))
	next = next.Div(g.cfg.TickSize).Round(0).Mul(g.cfg.TickSize)
	if next.LessThan(g.cfg.TickSize) {
		return g.cfg.TickSize
	}
	return next
}
