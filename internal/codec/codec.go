// Package codec serializes schema payloads for the WAL.
//
// Fields are appended in declaration order. Integers are uvarints, strings
// are length-prefixed and decimals are stored as their exact string form so
// no precision is lost across a record/replay cycle.
package codec

import (
	"encoding/binary"
	stderrors "errors"

	"github.com/shopspring/decimal"

	"backtest/internal/errors"
)

var (
	ErrShortPayload   = stderrors.New("codec: payload too short")
	ErrInvalidDecimal = stderrors.New("codec: invalid decimal")
)

type encoder struct {
	buf []byte
}

func newEncoder(dst []byte) *encoder {
	return &encoder{buf: dst[:0]}
}

func (e *encoder) putUvarint(v uint64) {
	e.buf = binary.AppendUvarint(e.buf, v)
}

func (e *encoder) putByte(b byte) {
	e.buf = append(e.buf, b)
}

func (e *encoder) putString(s string) {
	e.putUvarint(uint64(len(s)))
	e.buf = append(e.buf, s...)
}

func (e *encoder) putDecimal(d decimal.Decimal) {
	e.putString(d.String())
}

func (e *encoder) putNullDecimal(d decimal.NullDecimal) {
	if !d.Valid {
		e.putByte(0)
		return
	}
	e.putByte(1)
	e.putDecimal(d.Decimal)
}

// decoder keeps the first error; later reads return zero values.
type decoder struct {
	src []byte
	err error
}

func (d *decoder) uvarint() uint64 {
	if d.err != nil {
		return 0
	}
	v, n := binary.Uvarint(d.src)
	if n <= 0 {
		d.err = ErrShortPayload
		return 0
	}
	d.src = d.src[n:]
	return v
}

func (d *decoder) byte() byte {
	if d.err != nil {
		return 0
	}
	if len(d.src) == 0 {
		d.err = ErrShortPayload
		return 0
	}
	b := d.src[0]
	d.src = d.src[1:]
	return b
}

func (d *decoder) string() string {
	n := d.uvarint()
	if d.err != nil {
		return ""
	}
	if uint64(len(d.src)) < n {
		d.err = ErrShortPayload
		return ""
	}
	s := string(d.src[:n])
	d.src = d.src[n:]
	return s
}

func (d *decoder) decimal() decimal.Decimal {
	s := d.string()
	if d.err != nil {
		return decimal.Zero
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		d.err = errors.Wrap(ErrInvalidDecimal, s)
		return decimal.Zero
	}
	return v
}

func (d *decoder) nullDecimal() decimal.NullDecimal {
	if d.byte() == 0 || d.err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d.decimal())
}
