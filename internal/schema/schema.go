// Package schema defines the events a backtest log records.
package schema

import "time"

// SchemaVersion is the current event schema version.
const SchemaVersion uint16 = 1

// EventType defines the category of an event stored in the WAL.
type EventType uint16

const (
	EventUnknown EventType = iota
	EventTick
	EventCandle
	EventOrder
	EventCancel
)

func (t EventType) String() string {
	switch t {
	case EventTick:
		return "tick"
	case EventCandle:
		return "candle"
	case EventOrder:
		return "order"
	case EventCancel:
		return "cancel"
	default:
		return "unknown"
	}
}

// EventHeader is the common metadata attached to every event.
type EventHeader struct {
	Type    EventType
	Version uint16
	Flags   uint16
	Seq     uint64
	// Instant is the simulated time of the event in unix nanoseconds.
	Instant int64
}

// NewHeader builds a header with the current schema version.
func NewHeader(eventType EventType, seq uint64, instant time.Time) EventHeader {
	return EventHeader{
		Type:    eventType,
		Version: SchemaVersion,
		Seq:     seq,
		Instant: instant.UnixNano(),
	}
}

// Time returns Instant as UTC time.
func (h EventHeader) Time() time.Time {
	return time.Unix(0, h.Instant).UTC()
}
