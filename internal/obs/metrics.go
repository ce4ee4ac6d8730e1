package obs

import (
	"sync/atomic"
	"time"

	"backtest/internal/model/enum"
)

const maxRejectionCause = int(enum.RejectionCauseLessThanMinimumOrderValue)

// Metrics collects lightweight counters and latency stats of a broker.
type Metrics struct {
	ordersOpened   uint64
	ordersCanceled uint64
	ordersExecuted uint64
	rejections     [maxRejectionCause + 1]uint64
	executions     uint64
	positionsShut  uint64
	marginCalls    uint64
	eventDrops     uint64

	tickLatency  LatencyStats
	orderLatency LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	OrdersOpened    uint64
	OrdersCanceled  uint64
	OrdersExecuted  uint64
	Rejections      map[enum.RejectionCause]uint64
	Executions      uint64
	PositionsClosed uint64
	MarginCalls     uint64
	EventDrops      uint64
	TickLatency     LatencySnapshot
	OrderLatency    LatencySnapshot
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// IncOrderOpened records an accepted order.
func (m *Metrics) IncOrderOpened() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.ordersOpened, 1)
}

// IncOrderRejected records a rejected order by cause.
func (m *Metrics) IncOrderRejected(cause enum.RejectionCause) {
	if m == nil {
		return
	}
	idx := int(cause)
	if idx >= 0 && idx < len(m.rejections) {
		atomic.AddUint64(&m.rejections[idx], 1)
	}
}

// IncOrderCanceled records a canceled order.
func (m *Metrics) IncOrderCanceled() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.ordersCanceled, 1)
}

// IncExecution records an executed order and its execution.
func (m *Metrics) IncExecution() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.ordersExecuted, 1)
	atomic.AddUint64(&m.executions, 1)
}

// IncPositionClosed records a fully closed position.
func (m *Metrics) IncPositionClosed() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.positionsShut, 1)
}

// IncMarginCall records a margin call.
func (m *Metrics) IncMarginCall() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.marginCalls, 1)
}

// IncEventDrop records an outbound event the publisher refused.
func (m *Metrics) IncEventDrop() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.eventDrops, 1)
}

// ObserveTick measures the processing time of one price tick.
func (m *Metrics) ObserveTick(d time.Duration) {
	if m == nil {
		return
	}
	m.tickLatency.Observe(d)
}

// ObserveOrder measures the processing time of one order submission.
func (m *Metrics) ObserveOrder(d time.Duration) {
	if m == nil {
		return
	}
	m.orderLatency.Observe(d)
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	rejections := make(map[enum.RejectionCause]uint64)
	for i := range m.rejections {
		if v := atomic.LoadUint64(&m.rejections[i]); v > 0 {
			rejections[enum.RejectionCause(i)] = v
		}
	}
	return Snapshot{
		OrdersOpened:    atomic.LoadUint64(&m.ordersOpened),
		OrdersCanceled:  atomic.LoadUint64(&m.ordersCanceled),
		OrdersExecuted:  atomic.LoadUint64(&m.ordersExecuted),
		Rejections:      rejections,
		Executions:      atomic.LoadUint64(&m.executions),
		PositionsClosed: atomic.LoadUint64(&m.positionsShut),
		MarginCalls:     atomic.LoadUint64(&m.marginCalls),
		EventDrops:      atomic.LoadUint64(&m.eventDrops),
		TickLatency:     m.tickLatency.Snapshot(),
		OrderLatency:    m.orderLatency.Snapshot(),
	}
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		min := atomic.LoadUint64(&l.min)
		if min != 0 && nanos >= min {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, min, nanos) {
			break
		}
	}

	for {
		max := atomic.LoadUint64(&l.max)
		if nanos <= max {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, max, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	sum := atomic.LoadUint64(&l.sum)
	min := atomic.LoadUint64(&l.min)
	max := atomic.LoadUint64(&l.max)
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(min),
		Max:   time.Duration(max),
		Avg:   time.Duration(sum / count),
	}
}
