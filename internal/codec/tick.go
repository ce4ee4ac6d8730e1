package codec

import "backtest/internal/schema"

// EncodeTick serializes a tick payload, reusing dst when possible.
func EncodeTick(dst []byte, tick schema.Tick) []byte {
	e := newEncoder(dst)
	e.putString(tick.Symbol)
	e.putDecimal(tick.Price)
	return e.buf
}

// DecodeTick parses a tick payload.
func DecodeTick(src []byte) (schema.Tick, error) {
	d := decoder{src: src}
	tick := schema.Tick{
		Symbol: d.string(),
		Price:  d.decimal(),
	}
	if d.err != nil {
		return schema.Tick{}, d.err
	}
	return tick, nil
}

// EncodeCandle serializes a candle payload, reusing dst when possible.
func EncodeCandle(dst []byte, candle schema.Candle) []byte {
	e := newEncoder(dst)
	e.putString(candle.Symbol)
	e.putDecimal(candle.Open)
	e.putDecimal(candle.High)
	e.putDecimal(candle.Low)
	e.putDecimal(candle.Close)
	e.putDecimal(candle.Volume)
	return e.buf
}

// DecodeCandle parses a candle payload.
func DecodeCandle(src []byte) (schema.Candle, error) {
	d := decoder{src: src}
	candle := schema.Candle{
		Symbol: d.string(),
		Open:   d.decimal(),
		High:   d.decimal(),
		Low:    d.decimal(),
		Close:  d.decimal(),
		Volume: d.decimal(),
	}
	if d.err != nil {
		return schema.Candle{}, d.err
	}
	return candle, nil
}
