package broker

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backtest/internal/account"
	"backtest/internal/bus"
	"backtest/internal/model"
	"backtest/internal/model/enum"
	"backtest/internal/obs"
	"backtest/internal/policy"
	"backtest/pkg/exception"
)

const symbol = "NSE:RELIANCE"

var t0 = time.Date(2024, 3, 4, 9, 15, 0, 0, time.UTC)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func at(minutes int) time.Time {
	return t0.Add(time.Duration(minutes) * time.Minute)
}

func params(side enum.Side, qty string) model.Params {
	return model.Params{
		BrokerID:   "sim",
		Instrument: enum.InstrumentEquity,
		Symbol:     symbol,
		Quantity:   d(qty),
		Side:       side,
	}
}

func newBroker(t *testing.T, balance string, cfg Config) *Broker {
	t.Helper()
	b, err := New(account.New(d(balance)), cfg)
	require.NoError(t, err)
	return b
}

func tick(t *testing.T, b *Broker, minute int, price string) {
	t.Helper()
	require.NoError(t, b.NewPrice(at(minute), symbol, d(price)))
	assertMarginBalanced(t, b)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.Truef(t, d(want).Equal(got), "want %s, got %s %v", want, got, msgAndArgs)
}

func assertMarginBalanced(t *testing.T, b *Broker) {
	t.Helper()
	assert.True(t, b.AvailableMargin().Add(b.UsedMargin()).Equal(b.Account().Balance()))
}

func TestLimitBuyScenario(t *testing.T) {
	b := newBroker(t, "10000", Config{})
	tick(t, b, 0, "205")

	id, err := b.NewOrder(params(enum.SideBuy, "10"), policy.NewLimit(d("200")), "")
	require.NoError(t, err)

	order, ok := b.Order(id)
	require.True(t, ok)
	require.IsType(t, model.Open{}, order.Status)
	assertDecimal(t, "2000", b.UsedMargin())
	assertDecimal(t, "8000", b.AvailableMargin())

	tick(t, b, 1, "195")
	tick(t, b, 2, "205")

	order, _ = b.Order(id)
	status, ok := order.Status.(model.Executed)
	require.True(t, ok, order.Status.String())
	assertDecimal(t, "200", status.ExecutionPrice)
	assert.Equal(t, at(1), status.ClosedAt)

	require.Len(t, b.Positions(), 1)
	executions := b.Executions()
	require.Len(t, executions, 1)
	assertDecimal(t, "200", executions[0].Price)

	pos := b.Positions()[0]
	assert.Equal(t, enum.PositionSideLong, pos.Side)
	assertDecimal(t, "200", pos.AveragePrice)
	assertDecimal(t, "50", pos.PnL)
	assertDecimal(t, "2000", b.UsedMargin())
}

func TestMarginShortfall(t *testing.T) {
	b := newBroker(t, "10000", Config{})
	tick(t, b, 0, "205")

	id, err := b.NewOrder(params(enum.SideBuy, "1000"), policy.NewLimit(d("200")), "")
	require.NoError(t, err)

	order, _ := b.Order(id)
	status, ok := order.Status.(model.Rejected)
	require.True(t, ok)
	assert.Equal(t, enum.RejectionCauseMarginShortfall, status.Cause)

	tick(t, b, 1, "150")
	assert.Empty(t, b.Executions())
	assert.Empty(t, b.Positions())
	assert.True(t, b.UsedMargin().IsZero())
}

func TestLessThanMinimumOrderValue(t *testing.T) {
	b := newBroker(t, "10000", Config{MinimumOrderValue: d("1000")})
	tick(t, b, 0, "205")

	id, err := b.NewOrder(params(enum.SideBuy, "1"), policy.NewLimit(d("200")), "")
	require.NoError(t, err)

	order, _ := b.Order(id)
	status, ok := order.Status.(model.Rejected)
	require.True(t, ok)
	assert.Equal(t, enum.RejectionCauseLessThanMinimumOrderValue, status.Cause)
}

func TestOCOStopAndTarget(t *testing.T) {
	b := newBroker(t, "10000", Config{})
	tick(t, b, 0, "205")

	_, err := b.NewOrder(params(enum.SideBuy, "10"), policy.NewLimit(d("200")), "")
	require.NoError(t, err)
	tick(t, b, 1, "200")
	require.Len(t, b.Positions(), 1)

	oco := NewOCOID()
	stopID, err := b.NewOrder(params(enum.SideSell, "10"), policy.NewStopMarket(d("195")), oco)
	require.NoError(t, err)
	targetID, err := b.NewOrder(params(enum.SideSell, "10"), policy.NewLimit(d("210")), oco)
	require.NoError(t, err)

	// closing orders hold no margin
	assertDecimal(t, "2000", b.UsedMargin())

	tick(t, b, 2, "200")
	tick(t, b, 3, "195")

	stop, _ := b.Order(stopID)
	executed, ok := stop.Status.(model.Executed)
	require.True(t, ok, stop.Status.String())
	assertDecimal(t, "195", executed.ExecutionPrice)

	target, _ := b.Order(targetID)
	canceled, ok := target.Status.(model.Canceled)
	require.True(t, ok, target.Status.String())
	assert.Equal(t, executed.ClosedAt, canceled.ClosedAt)

	assert.Empty(t, b.Positions())
	assert.True(t, b.UsedMargin().IsZero())

	txs := b.Account().Transactions()
	require.Len(t, txs, 1)
	assertDecimal(t, "-50", txs[0].Value)
	assertDecimal(t, "9950", b.Account().Balance())

	// the canceled sibling never fills later
	tick(t, b, 4, "215")
	target, _ = b.Order(targetID)
	assert.IsType(t, model.Canceled{}, target.Status)
	assert.Len(t, b.Executions(), 2)
}

func TestCancelOrderIsIdempotent(t *testing.T) {
	b := newBroker(t, "10000", Config{})
	tick(t, b, 0, "100")

	id, err := b.NewOrder(params(enum.SideBuy, "10"), policy.NewLimit(d("90")), "")
	require.NoError(t, err)
	assertDecimal(t, "900", b.UsedMargin())

	tick(t, b, 1, "99")
	require.NoError(t, b.CancelOrder(id))
	assert.True(t, b.UsedMargin().IsZero())

	tick(t, b, 5, "80")
	require.NoError(t, b.CancelOrder(id))

	order, _ := b.Order(id)
	canceled, ok := order.Status.(model.Canceled)
	require.True(t, ok)
	assert.Equal(t, at(1), canceled.ClosedAt)
	assert.Empty(t, b.Executions())
}

func TestCancelUnknownOrder(t *testing.T) {
	b := newBroker(t, "10000", Config{})
	require.ErrorIs(t, b.CancelOrder(42), exception.ErrBrokerUnknownOrder)
}

func TestCallerContractViolations(t *testing.T) {
	b := newBroker(t, "10000", Config{})

	_, err := b.NewOrder(params(enum.SideBuy, "0"), policy.NewMarket(), "")
	require.ErrorIs(t, err, exception.ErrBrokerInvalidQuantity)

	_, err = b.NewOrder(params(enum.SideBuy, "-1"), policy.NewMarket(), "")
	require.ErrorIs(t, err, exception.ErrBrokerInvalidQuantity)

	_, err = b.NewOrder(params(enum.SideBuy, "1"), policy.NewMarket(), "")
	require.ErrorIs(t, err, exception.ErrBrokerNoPrice)

	tick(t, b, 5, "100")
	err = b.NewPrice(at(4), symbol, d("101"))
	require.ErrorIs(t, err, exception.ErrBrokerTimeReversed)

	// equal instants are allowed
	tick(t, b, 5, "101")
	assert.Empty(t, b.Orders())
}

func TestPositionMergeReduceFlip(t *testing.T) {
	b := newBroker(t, "100000", Config{})
	tick(t, b, 0, "200")

	_, err := b.NewOrder(params(enum.SideBuy, "10"), policy.NewMarket(), "")
	require.NoError(t, err)
	tick(t, b, 1, "200")

	_, err = b.NewOrder(params(enum.SideBuy, "10"), policy.NewMarket(), "")
	require.NoError(t, err)
	tick(t, b, 2, "210")

	pos := b.Positions()[0]
	assertDecimal(t, "20", pos.Quantity)
	assertDecimal(t, "205", pos.AveragePrice)
	assertDecimal(t, "100", pos.PnL)
	firstID := pos.ID

	// partial close keeps the position id and realizes the closed part
	_, err = b.NewOrder(params(enum.SideSell, "5"), policy.NewMarket(), "")
	require.NoError(t, err)
	tick(t, b, 3, "215")

	pos = b.Positions()[0]
	assert.Equal(t, firstID, pos.ID)
	assertDecimal(t, "15", pos.Quantity)
	assertDecimal(t, "205", pos.AveragePrice)
	txs := b.Account().Transactions()
	require.Len(t, txs, 1)
	assertDecimal(t, "50", txs[0].Value)

	// selling more than held flips to short at the fill price
	_, err = b.NewOrder(params(enum.SideSell, "20"), policy.NewMarket(), "")
	require.NoError(t, err)
	tick(t, b, 4, "220")

	positions := b.Positions()
	require.Len(t, positions, 1)
	pos = positions[0]
	assert.NotEqual(t, firstID, pos.ID)
	assert.Equal(t, enum.PositionSideShort, pos.Side)
	assertDecimal(t, "5", pos.Quantity)
	assertDecimal(t, "220", pos.AveragePrice)

	txs = b.Account().Transactions()
	require.Len(t, txs, 2)
	assertDecimal(t, "225", txs[1].Value)
	assertDecimal(t, "100275", b.Account().Balance())
}

func TestFlipOrderMarginOnlyCountsNewExposure(t *testing.T) {
	b := newBroker(t, "10000", Config{})
	tick(t, b, 0, "100")

	_, err := b.NewOrder(params(enum.SideBuy, "10"), policy.NewMarket(), "")
	require.NoError(t, err)
	tick(t, b, 1, "100")
	assertDecimal(t, "1000", b.UsedMargin())

	_, err = b.NewOrder(params(enum.SideSell, "15"), policy.NewLimit(d("120")), "")
	require.NoError(t, err)
	// 1000 for the position + 5 * 120 for the flip
	assertDecimal(t, "1600", b.UsedMargin())
}

func TestDivisionsKeepSevenSignificantDigits(t *testing.T) {
	b := newBroker(t, "100000", Config{Leverage: d("3")})
	tick(t, b, 0, "200")

	_, err := b.NewOrder(params(enum.SideBuy, "10"), policy.NewMarket(), "")
	require.NoError(t, err)
	tick(t, b, 1, "200")

	_, err = b.NewOrder(params(enum.SideBuy, "3"), policy.NewMarket(), "")
	require.NoError(t, err)
	tick(t, b, 2, "201")

	pos := b.Positions()[0]
	assertDecimal(t, "13", pos.Quantity)
	// 2603 / 13
	assertDecimal(t, "200.2308", pos.AveragePrice)

	other := newBroker(t, "100000", Config{Leverage: d("3")})
	require.NoError(t, other.NewPrice(at(0), symbol, d("150")))
	_, err = other.NewOrder(params(enum.SideBuy, "1"), policy.NewLimit(d("100")), "")
	require.NoError(t, err)
	assertDecimal(t, "33.33333", other.UsedMargin())
	assertMarginBalanced(t, other)
}

func TestExactCloseRoundTrip(t *testing.T) {
	b := newBroker(t, "10000", Config{})
	tick(t, b, 0, "100")

	_, err := b.NewOrder(params(enum.SideSell, "10"), policy.NewMarket(), "")
	require.NoError(t, err)
	tick(t, b, 1, "100")
	require.Len(t, b.Positions(), 1)
	assert.Equal(t, enum.PositionSideShort, b.Positions()[0].Side)

	_, err = b.NewOrder(params(enum.SideBuy, "10"), policy.NewMarket(), "")
	require.NoError(t, err)
	tick(t, b, 2, "90")

	assert.Empty(t, b.Positions())
	txs := b.Account().Transactions()
	require.Len(t, txs, 1)
	assertDecimal(t, "100", txs[0].Value)
	assert.Equal(t, at(2), txs[0].Instant)
}

func TestMarginCall(t *testing.T) {
	var calls []MarginCall
	b := newBroker(t, "1000", Config{
		OnMarginCall: func(c MarginCall) {
			calls = append(calls, c)
		},
	})
	tick(t, b, 0, "100")

	_, err := b.NewOrder(params(enum.SideBuy, "10"), policy.NewMarket(), "")
	require.NoError(t, err)
	tick(t, b, 1, "90")
	assertDecimal(t, "900", b.UsedMargin())
	assert.Empty(t, calls)

	tick(t, b, 2, "50")
	// 900 notional + 400 unrealized loss
	assertDecimal(t, "1300", b.UsedMargin())
	require.Len(t, calls, 1)
	assertDecimal(t, "-300", calls[0].Margin.Available)
	assert.Equal(t, at(2), calls[0].Instant)
}

func TestLeverage(t *testing.T) {
	b := newBroker(t, "1000", Config{Leverage: d("5")})
	tick(t, b, 0, "100")

	id, err := b.NewOrder(params(enum.SideBuy, "40"), policy.NewLimit(d("100")), "")
	require.NoError(t, err)
	order, _ := b.Order(id)
	assert.IsType(t, model.Open{}, order.Status)
	assertDecimal(t, "800", b.UsedMargin())
}

func TestInvalidConfig(t *testing.T) {
	_, err := New(account.New(d("1")), Config{Leverage: d("-1")})
	require.ErrorIs(t, err, exception.ErrBrokerInvalidConfig)

	_, err = New(nil, Config{})
	require.ErrorIs(t, err, exception.ErrBrokerNilAccount)
}

func TestNewCandle(t *testing.T) {
	candle := model.Candle{
		OpenTime: at(1),
		Open:     d("100"),
		High:     d("102"),
		Low:      d("94"),
		Close:    d("101"),
	}

	t.Run("full bar touches the low", func(t *testing.T) {
		b := newBroker(t, "10000", Config{})
		tick(t, b, 0, "100")
		id, err := b.NewOrder(params(enum.SideBuy, "1"), policy.NewLimit(d("95")), "")
		require.NoError(t, err)

		require.NoError(t, b.NewCandle(symbol, candle, true))
		order, _ := b.Order(id)
		executed, ok := order.Status.(model.Executed)
		require.True(t, ok)
		assertDecimal(t, "95", executed.ExecutionPrice)
		assert.Equal(t, at(1), executed.ClosedAt)

		last, ok := b.LastPrice(symbol)
		require.True(t, ok)
		assertDecimal(t, "101", last)
	})

	t.Run("close only", func(t *testing.T) {
		b := newBroker(t, "10000", Config{})
		tick(t, b, 0, "100")
		id, err := b.NewOrder(params(enum.SideBuy, "1"), policy.NewLimit(d("95")), "")
		require.NoError(t, err)

		require.NoError(t, b.NewCandle(symbol, candle, false))
		order, _ := b.Order(id)
		assert.True(t, order.IsOpen())
	})
}

func TestTrailingStopMargin(t *testing.T) {
	b := newBroker(t, "10000", Config{})
	tick(t, b, 0, "100")

	ts, err := policy.NewTrailingStop(d("0.1"), d("110"))
	require.NoError(t, err)
	id, err := b.NewOrder(params(enum.SideSell, "10"), ts, "")
	require.NoError(t, err)
	// no trailing level yet, the market price is used
	assertDecimal(t, "1000", b.UsedMargin())

	tick(t, b, 1, "120")
	st, ok := b.TrailingState(id)
	require.True(t, ok)
	require.True(t, st.Activated)
	assertDecimal(t, "108", st.Stop.Decimal)
	assertDecimal(t, "1080", b.UsedMargin())

	tick(t, b, 2, "105")
	order, _ := b.Order(id)
	executed, ok := order.Status.(model.Executed)
	require.True(t, ok)
	assertDecimal(t, "105", executed.ExecutionPrice)

	_, ok = b.TrailingState(id)
	assert.False(t, ok)
}

func TestOrdersOnOtherSymbolsAreUntouched(t *testing.T) {
	b := newBroker(t, "10000", Config{})
	require.NoError(t, b.NewPrice(at(0), "OTHER", d("10")))
	tick(t, b, 0, "100")

	p := params(enum.SideBuy, "1")
	p.Symbol = "OTHER"
	id, err := b.NewOrder(p, policy.NewLimit(d("9")), "")
	require.NoError(t, err)

	tick(t, b, 1, "5")
	order, _ := b.Order(id)
	assert.True(t, order.IsOpen())
}

func TestPublishAndMetrics(t *testing.T) {
	queue := bus.NewQueue[Event](128)
	metrics := obs.NewMetrics()
	b := newBroker(t, "10000", Config{Publisher: queue, Metrics: metrics})
	tick(t, b, 0, "100")

	_, err := b.NewOrder(params(enum.SideBuy, "10"), policy.NewMarket(), "")
	require.NoError(t, err)
	_, err = b.NewOrder(params(enum.SideBuy, "1000"), policy.NewMarket(), "")
	require.NoError(t, err)
	tick(t, b, 1, "101")

	queue.Close()
	counts := make(map[EventKind]int)
	queue.Run(t.Context(), func(e Event) {
		counts[e.Kind]++
	})

	assert.Equal(t, 3, counts[EventOrderUpdated])
	assert.Equal(t, 1, counts[EventExecutionAdded])
	assert.Equal(t, 1, counts[EventPositionUpdated])
	assert.Positive(t, counts[EventMarginUpdated])

	snap := metrics.Snapshot()
	assert.Equal(t, uint64(1), snap.OrdersOpened)
	assert.Equal(t, uint64(1), snap.Rejections[enum.RejectionCauseMarginShortfall])
	assert.Equal(t, uint64(1), snap.Executions)
	assert.Equal(t, uint64(2), snap.TickLatency.Count)
}

func TestTerminalStatusNeverChanges(t *testing.T) {
	b := newBroker(t, "100000", Config{})
	tick(t, b, 0, "100")

	oco := NewOCOID()
	var ids []model.OrderID
	for _, price := range []string{"99", "98", "97"} {
		id, err := b.NewOrder(params(enum.SideBuy, "1"), policy.NewLimit(d(price)), oco)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	prices := []string{"99.5", "98.5", "96", "95", "110"}
	seen := make(map[model.OrderID]model.OrderStatus)
	for i, price := range prices {
		tick(t, b, i+1, price)
		for _, id := range ids {
			order, _ := b.Order(id)
			if prev, ok := seen[id]; ok {
				require.Equal(t, prev, order.Status)
			}
			if order.Status.IsTerminal() {
				seen[id] = order.Status
			}
		}
	}

	executed := 0
	for _, id := range ids {
		order, _ := b.Order(id)
		if _, ok := order.Status.(model.Executed); ok {
			executed++
		}
	}
	assert.Equal(t, 1, executed)
}

func TestNewOrderAtStampsInstant(t *testing.T) {
	b := newBroker(t, "10000", Config{})

	early, err := b.NewOrderAt(at(0), params(enum.SideBuy, "1"), policy.NewLimit(d("90")), "")
	require.NoError(t, err)
	o, _ := b.Order(early)
	assert.Equal(t, at(0), o.CreatedAt)

	tick(t, b, 1, "100")
	id, err := b.NewOrderAt(at(2), params(enum.SideBuy, "1"), policy.NewLimit(d("95")), "")
	require.NoError(t, err)
	o, _ = b.Order(id)
	assert.Equal(t, at(2), o.CreatedAt)
	assert.Equal(t, at(1), b.CurrentInstant())

	_, err = b.NewOrderAt(at(0), params(enum.SideBuy, "1"), policy.NewLimit(d("95")), "")
	require.ErrorIs(t, err, exception.ErrBrokerTimeReversed)

	rejected, err := b.NewOrderAt(at(3), params(enum.SideBuy, "1000"), policy.NewMarket(), "")
	require.NoError(t, err)
	o, _ = b.Order(rejected)
	assert.Equal(t, model.Rejected{ClosedAt: at(3), Cause: enum.RejectionCauseMarginShortfall}, o.Status)
}

func TestExecutionsSince(t *testing.T) {
	b := newBroker(t, "10000", Config{})
	tick(t, b, 0, "100")

	for i := 1; i <= 3; i++ {
		_, err := b.NewOrder(params(enum.SideBuy, "1"), policy.NewMarket(), "")
		require.NoError(t, err)
		tick(t, b, i, "100")
	}

	require.Len(t, b.Executions(), 3)
	assert.Len(t, b.ExecutionsSince(0), 3)
	tail := b.ExecutionsSince(2)
	require.Len(t, tail, 1)
	assert.Equal(t, b.Executions()[2].OrderID, tail[0].OrderID)
	assert.Empty(t, b.ExecutionsSince(3))
	assert.Empty(t, b.ExecutionsSince(10))
}

func BenchmarkNewPrice(b *testing.B) {
	br, err := New(account.New(decimal.NewFromInt(1_000_000)), Config{})
	require.NoError(b, err)
	require.NoError(b, br.NewPrice(t0, symbol, decimal.NewFromInt(100)))
	for i := 0; i < 100; i++ {
		_, err := br.NewOrder(params(enum.SideBuy, "1"), policy.NewLimit(decimal.NewFromInt(int64(10+i%50))), "")
		require.NoError(b, err)
	}

	price := decimal.NewFromInt(100)
	for b.Loop() {
		_ = br.NewPrice(t0, symbol, price)
	}
}
