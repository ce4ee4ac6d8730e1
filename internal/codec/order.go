package codec

import (
	"backtest/internal/model"
	"backtest/internal/model/enum"
	"backtest/internal/policy"
	"backtest/internal/schema"
)

// EncodeOrder serializes an order payload, reusing dst when possible.
func EncodeOrder(dst []byte, order schema.Order) []byte {
	e := newEncoder(dst)
	e.putUvarint(order.Ref)

	p := order.Params
	e.putString(p.BrokerID)
	e.putByte(byte(p.Instrument))
	e.putString(p.Symbol)
	e.putDecimal(p.Quantity)
	e.putNullDecimal(p.Lots)
	e.putByte(byte(p.Side))

	s := order.Policy
	e.putString(s.Kind)
	e.putDecimal(s.Price)
	e.putDecimal(s.Trigger)
	e.putDecimal(s.Callback)
	e.putDecimal(s.Activation)

	e.putString(order.OCO)
	return e.buf
}

// DecodeOrder parses an order payload.
func DecodeOrder(src []byte) (schema.Order, error) {
	d := decoder{src: src}
	order := schema.Order{
		Ref: d.uvarint(),
		Params: model.Params{
			BrokerID:   d.string(),
			Instrument: enum.Instrument(d.byte()),
			Symbol:     d.string(),
			Quantity:   d.decimal(),
			Lots:       d.nullDecimal(),
			Side:       enum.Side(d.byte()),
		},
		Policy: policy.Spec{
			Kind:       d.string(),
			Price:      d.decimal(),
			Trigger:    d.decimal(),
			Callback:   d.decimal(),
			Activation: d.decimal(),
		},
		OCO: d.string(),
	}
	if d.err != nil {
		return schema.Order{}, d.err
	}
	return order, nil
}

// EncodeCancel serializes a cancel payload, reusing dst when possible.
func EncodeCancel(dst []byte, cancel schema.Cancel) []byte {
	e := newEncoder(dst)
	e.putUvarint(cancel.Ref)
	return e.buf
}

// DecodeCancel parses a cancel payload.
func DecodeCancel(src []byte) (schema.Cancel, error) {
	d := decoder{src: src}
	cancel := schema.Cancel{Ref: d.uvarint()}
	if d.err != nil {
		return schema.Cancel{}, d.err
	}
	return cancel, nil
}
