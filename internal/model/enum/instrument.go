package enum

import "fmt"

// Instrument equity, futures, options, index
type Instrument uint8

const (
	_instrument_beg Instrument = iota
	InstrumentEquity
	InstrumentFutures
	InstrumentOptions
	InstrumentIndex
	_instrument_end
)

func (i Instrument) IsAvailable() bool {
	return i > _instrument_beg && i < _instrument_end
}

func (i Instrument) String() string {
	switch i {
	case InstrumentEquity:
		return "equity"
	case InstrumentFutures:
		return "futures"
	case InstrumentOptions:
		return "options"
	case InstrumentIndex:
		return "index"
	default:
		return fmt.Sprintf("instrument(%d)", uint8(i))
	}
}

// ParseInstrument accepts the lower-case names returned by String.
func ParseInstrument(s string) (Instrument, bool) {
	for i := _instrument_beg + 1; i < _instrument_end; i++ {
		if i.String() == s {
			return i, true
		}
	}
	return _instrument_beg, false
}
