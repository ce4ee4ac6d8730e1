package schema

import (
	"time"

	"github.com/shopspring/decimal"

	"backtest/internal/model"
	"backtest/internal/policy"
)

// FlagReplayFullBar on an EventCandle header replays open, extremes and close.
const FlagReplayFullBar uint16 = 1 << 0

// Tick is the payload for EventTick.
type Tick struct {
	Symbol string
	Price  decimal.Decimal
}

// Candle is the payload for EventCandle. The header instant is the bar's
// open time.
type Candle struct {
	Symbol string
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume decimal.Decimal
}

// Bar converts the payload into a candle opening at openTime.
func (c Candle) Bar(openTime time.Time) model.Candle {
	return model.Candle{
		OpenTime: openTime,
		Open:     c.Open,
		High:     c.High,
		Low:      c.Low,
		Close:    c.Close,
		Volume:   c.Volume,
	}
}

// Order is the payload for EventOrder. Ref is chosen by the recorder and
// lets later cancels name the order before the broker assigns its id.
type Order struct {
	Ref    uint64
	Params model.Params
	Policy policy.Spec
	OCO    string
}

// Cancel is the payload for EventCancel.
type Cancel struct {
	Ref uint64
}
