package broker

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"

	"backtest/internal/model"
)

// EventKind order updated, execution added, position updated, position closed, margin updated, margin call
type EventKind uint8

const (
	EventUnknown EventKind = iota
	EventOrderUpdated
	EventExecutionAdded
	EventPositionUpdated
	EventPositionClosed
	EventMarginUpdated
	EventMarginCall
)

func (k EventKind) String() string {
	switch k {
	case EventOrderUpdated:
		return "order_updated"
	case EventExecutionAdded:
		return "execution_added"
	case EventPositionUpdated:
		return "position_updated"
	case EventPositionClosed:
		return "position_closed"
	case EventMarginUpdated:
		return "margin_updated"
	case EventMarginCall:
		return "margin_call"
	default:
		return "unknown"
	}
}

// Event is one broker state change. Only the field matching Kind is set.
type Event struct {
	Kind      EventKind
	Instant   time.Time
	Order     model.Order
	Execution model.Execution
	Position  model.Position
	Margin    Margin
}

// Margin is the margin state after an update.
type Margin struct {
	Balance   decimal.Decimal
	Used      decimal.Decimal
	Available decimal.Decimal
}

func (m Margin) equal(o Margin) bool {
	return m.Balance.Equal(o.Balance) && m.Used.Equal(o.Used) && m.Available.Equal(o.Available)
}

// MarginCall is passed to Config.OnMarginCall.
type MarginCall struct {
	Instant time.Time
	Margin  Margin
	// Required is the configured minimum maintenance margin.
	Required decimal.Decimal
}

// Publisher accepts events without blocking. *bus.Queue[Event] satisfies it.
type Publisher interface {
	TryPublish(Event) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(Event) error

func (f PublisherFunc) TryPublish(e Event) error {
	return f(e)
}

// NewOCOID returns a fresh one-cancels-other group token.
func NewOCOID() model.OCOID {
	return model.OCOID(uuid.NewString())
}

func (b *Broker) publish(e Event) {
	if b.cfg.Publisher == nil {
		return
	}
	e.Instant = b.currentInstant
	if err := b.cfg.Publisher.TryPublish(e); err != nil {
		b.cfg.Metrics.IncEventDrop()
		logs.Errorf("publish %s event, err: %+v", e.Kind, err)
	}
}

func (b *Broker) publishOrder(o *model.Order) {
	b.publish(Event{Kind: EventOrderUpdated, Order: *o})
}

func (b *Broker) publishPosition(kind EventKind, p *model.Position) {
	b.publish(Event{Kind: kind, Position: *p})
}
