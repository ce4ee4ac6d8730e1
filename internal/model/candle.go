package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle is one OHLC bar.
type Candle struct {
	OpenTime time.Time
	Open     decimal.Decimal
	High     decimal.Decimal
	Low      decimal.Decimal
	Close    decimal.Decimal
	Volume   decimal.Decimal
}

// IsBullish reports whether the bar closed at or above its open.
func (c Candle) IsBullish() bool {
	return c.Close.GreaterThanOrEqual(c.Open)
}

// Ticks expands the bar into the prices a full-bar replay visits, in order.
// A bullish bar visits the low before the high, a bearish bar the reverse.
func (c Candle) Ticks() [4]decimal.Decimal {
	if c.IsBullish() {
		return [4]decimal.Decimal{c.Open, c.Low, c.High, c.Close}
	}
	return [4]decimal.Decimal{c.Open, c.High, c.Low, c.Close}
}

// Tick is one observed price.
type Tick struct {
	Instant time.Time
	Symbol  string
	Price   decimal.Decimal
}
