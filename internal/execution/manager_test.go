package execution

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/berinsbackup-web/AITradingBot/internal/broker"
	"github.com/berinsbackup-web/AITradingBot/internal/risk"
)

type mockBroker struct {
	mock.Mock
}

func (m *mockBroker) Name() string { return "mock" }

func (m *mockBroker) SubmitOrder(ctx context.Context, req broker.SubmitRequest) (*broker.OrderReport, error) {
	args := m.Called(ctx, req)
	if rep := args.Get(0); rep != nil {
		return rep.(*broker.OrderReport), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBroker) CancelOrder(ctx context.Context, symbol, orderID string) error {
	args := m.Called(ctx, symbol, orderID)
	return args.Error(0)
}

func (m *mockBroker) Positions(ctx context.Context) ([]broker.PositionInfo, error) {
	args := m.Called(ctx)
	if pos := args.Get(0); pos != nil {
		return pos.([]broker.PositionInfo), args.Error(1)
	}
	return nil, args.Error(1)
}

func newTestGate(limits risk.Limits) *risk.Gate {
	analytics := risk.NewAnalytics(100000, 0.95, 0)
	return risk.NewGate(nil, limits, analytics)
}

func newTestManager(b broker.Broker, limits risk.Limits, opts ...Option) *Manager {
	return NewManager(b, newTestGate(limits), ManagerConfig{
		DedupeWindow: 10 * time.Second,
		StaleTimeout: 5 * time.Minute,
	}, opts...)
}

func fullFillReport(id string, qty, price float64) *broker.OrderReport {
	return &broker.OrderReport{
		OrderID: id,
		Status:  "FILLED",
		Fills:   []broker.Fill{{Qty: qty, Price: price, Timestamp: time.Now()}},
	}
}

func TestPlaceOrderFullFillUpdatesPosition(t *testing.T) {
	mb := &mockBroker{}
	mb.On("SubmitOrder", mock.Anything, mock.Anything).Return(fullFillReport("b-1", 2, 30000), nil).Once()

	m := newTestManager(mb, risk.Limits{})
	placed := m.PlaceOrder(context.Background(), NewOrder("BTCUSDT", 2, SideBuy, TypeMarket, 0))

	assert.Equal(t, StatusFilled, placed.Status)
	assert.Equal(t, "b-1", placed.BrokerOrderID)
	assert.Equal(t, 2.0, placed.FilledQty)
	assert.InDelta(t, 30000.0, placed.AvgFillPrice, 1e-9)

	pos := m.Position("BTCUSDT")
	assert.Equal(t, 2.0, pos.Net())
	mb.AssertExpectations(t)
}

func TestPlaceOrderDuplicateRejected(t *testing.T) {
	mb := &mockBroker{}
	mb.On("SubmitOrder", mock.Anything, mock.Anything).Return(fullFillReport("b-1", 1, 100), nil).Once()

	m := newTestManager(mb, risk.Limits{})
	first := m.PlaceOrder(context.Background(), NewOrder("ETHUSDT", 1, SideBuy, TypeLimit, 100))
	require.Equal(t, StatusFilled, first.Status)

	second := m.PlaceOrder(context.Background(), NewOrder("ETHUSDT", 1, SideBuy, TypeLimit, 100))
	assert.Equal(t, StatusRejected, second.Status)
	assert.Contains(t, second.RejectReason, "duplicate")

	mb.AssertNumberOfCalls(t, "SubmitOrder", 1)
}

func TestPlaceOrderPanicStopRejects(t *testing.T) {
	mb := &mockBroker{}
	gate := newTestGate(risk.Limits{})
	gate.TriggerPanic("test halt")

	m := NewManager(mb, gate, ManagerConfig{})
	placed := m.PlaceOrder(context.Background(), NewOrder("BTCUSDT", 1, SideBuy, TypeMarket, 0))

	assert.Equal(t, StatusRejected, placed.Status)
	assert.Contains(t, placed.RejectReason, "panic")
	mb.AssertNotCalled(t, "SubmitOrder", mock.Anything, mock.Anything)
}

func TestPlaceOrderSymbolCapRejects(t *testing.T) {
	mb := &mockBroker{}
	m := newTestManager(mb, risk.Limits{MaxPositionSize: map[string]float64{"BTCUSDT": 5}})

	placed := m.PlaceOrder(context.Background(), NewOrder("BTCUSDT", 10, SideBuy, TypeLimit, 100))
	assert.Equal(t, StatusRejected, placed.Status)
	mb.AssertNotCalled(t, "SubmitOrder", mock.Anything, mock.Anything)
}

func TestPlaceOrderValueCapRejects(t *testing.T) {
	mb := &mockBroker{}
	m := newTestManager(mb, risk.Limits{MaxSingleOrderValue: 500})

	placed := m.PlaceOrder(context.Background(), NewOrder("BTCUSDT", 10, SideBuy, TypeLimit, 100))
	assert.Equal(t, StatusRejected, placed.Status)
	assert.Contains(t, placed.RejectReason, "cap")
}

func TestPlaceOrderBrokerErrorRejects(t *testing.T) {
	mb := &mockBroker{}
	mb.On("SubmitOrder", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset")).Once()

	m := newTestManager(mb, risk.Limits{})
	placed := m.PlaceOrder(context.Background(), NewOrder("BTCUSDT", 1, SideBuy, TypeMarket, 0))

	assert.Equal(t, StatusRejected, placed.Status)
	assert.Contains(t, placed.RejectReason, "broker submit failed")

	// the failed attempt must not poison the dedupe table
	mb.On("SubmitOrder", mock.Anything, mock.Anything).Return(fullFillReport("b-2", 1, 100), nil).Once()
	retry := m.PlaceOrder(context.Background(), NewOrder("BTCUSDT", 1, SideBuy, TypeMarket, 0))
	assert.Equal(t, StatusFilled, retry.Status)
}

func TestPlaceOrderUninterpretableReportGoesUnknown(t *testing.T) {
	mb := &mockBroker{}
	mb.On("SubmitOrder", mock.Anything, mock.Anything).
		Return(&broker.OrderReport{OrderID: "b-9", Status: "???"}, nil).Once()

	m := newTestManager(mb, risk.Limits{})
	placed := m.PlaceOrder(context.Background(), NewOrder("BTCUSDT", 1, SideBuy, TypeMarket, 0))

	assert.Equal(t, StatusUnknown, placed.Status)
	assert.True(t, placed.Status.Terminal())
	assert.Equal(t, 0.0, m.Position("BTCUSDT").Net())
}

func TestPlaceOrderPartialFillsWeightedAverage(t *testing.T) {
	mb := &mockBroker{}
	mb.On("SubmitOrder", mock.Anything, mock.Anything).Return(&broker.OrderReport{
		OrderID: "b-3",
		Fills: []broker.Fill{
			{Qty: 4, Price: 100},
			{Qty: 6, Price: 110},
		},
	}, nil).Once()

	m := newTestManager(mb, risk.Limits{})
	placed := m.PlaceOrder(context.Background(), NewOrder("BTCUSDT", 10, SideBuy, TypeLimit, 105))

	assert.Equal(t, StatusFilled, placed.Status)
	assert.InDelta(t, 106.0, placed.AvgFillPrice, 1e-9)
	assert.Len(t, placed.Fills, 2)
}

func TestSweepStaleOrders(t *testing.T) {
	now := time.Now()
	clock := now
	mb := &mockBroker{}
	mb.On("SubmitOrder", mock.Anything, mock.Anything).
		Return(&broker.OrderReport{OrderID: "b-4", Fills: []broker.Fill{{Qty: 1, Price: 100, Timestamp: now}}}, nil).Once()
	mb.On("CancelOrder", mock.Anything, "BTCUSDT", "b-4").Return(nil).Once()

	m := newTestManager(mb, risk.Limits{}, WithClock(func() time.Time { return clock }))
	placed := m.PlaceOrder(context.Background(), NewOrder("BTCUSDT", 3, SideBuy, TypeLimit, 100))
	require.Equal(t, StatusPartial, placed.Status)

	clock = now.Add(30 * time.Second)
	assert.Equal(t, 0, m.SweepStaleOrders(context.Background(), time.Minute))

	clock = now.Add(2 * time.Minute)
	assert.Equal(t, 1, m.SweepStaleOrders(context.Background(), time.Minute))
	assert.Empty(t, m.ActiveOrders())
	mb.AssertExpectations(t)
}

func TestSweepWaitsForInFlightPlacement(t *testing.T) {
	now := time.Now()
	var clockMu sync.Mutex
	clock := now
	nowFn := func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		return clock
	}
	advance := func(d time.Duration) {
		clockMu.Lock()
		clock = now.Add(d)
		clockMu.Unlock()
	}

	submitStarted := make(chan struct{})
	release := make(chan struct{})
	mb := &mockBroker{}
	mb.On("SubmitOrder", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(submitStarted)
			<-release
		}).
		Return(fullFillReport("b-7", 2, 100), nil).Once()

	m := newTestManager(mb, risk.Limits{}, WithClock(nowFn))
	placedCh := make(chan Order, 1)
	go func() {
		placedCh <- m.PlaceOrder(context.Background(), NewOrder("BTCUSDT", 2, SideBuy, TypeMarket, 0))
	}()

	<-submitStarted
	advance(10 * time.Minute)

	sweepDone := make(chan int, 1)
	go func() {
		sweepDone <- m.SweepStaleOrders(context.Background(), time.Minute)
	}()
	time.Sleep(20 * time.Millisecond)
	select {
	case n := <-sweepDone:
		t.Fatalf("sweep ran during in-flight placement (cancelled=%d)", n)
	default:
	}

	close(release)
	placed := <-placedCh
	assert.Equal(t, StatusFilled, placed.Status)
	assert.Equal(t, 2.0, m.Position("BTCUSDT").Net())
	assert.Equal(t, 0, <-sweepDone)
	mb.AssertNotCalled(t, "CancelOrder", mock.Anything, mock.Anything, mock.Anything)
}

func TestApplyReportIgnoresTerminalOrder(t *testing.T) {
	mb := &mockBroker{}
	m := newTestManager(mb, risk.Limits{})

	o := NewOrder("BTCUSDT", 2, SideBuy, TypeMarket, 0)
	o.Status = StatusCancelled
	m.applyReport(context.Background(), o, &broker.OrderReport{
		OrderID: "b-8",
		Fills:   []broker.Fill{{Qty: 2, Price: 100}},
	})

	assert.Equal(t, StatusCancelled, o.Status)
	assert.Equal(t, 0.0, o.FilledQty)
	assert.Equal(t, 0.0, m.Position("BTCUSDT").Net())
}

func TestTerminalOrdersPruned(t *testing.T) {
	mb := &mockBroker{}
	mb.On("SubmitOrder", mock.Anything, mock.Anything).Return(fullFillReport("b-1", 1, 100), nil).Once()

	m := newTestManager(mb, risk.Limits{})
	first := m.PlaceOrder(context.Background(), NewOrder("BTCUSDT", 1, SideBuy, TypeMarket, 0))
	require.Equal(t, StatusFilled, first.Status)
	second := m.PlaceOrder(context.Background(), NewOrder("BTCUSDT", 1, SideBuy, TypeMarket, 0))
	require.Equal(t, StatusRejected, second.Status)

	m.mu.Lock()
	assert.Empty(t, m.orders)
	assert.Empty(t, m.bySymbol)
	m.mu.Unlock()

	// pruning the book never touches positions
	assert.Equal(t, 1.0, m.Position("BTCUSDT").Net())
}

func TestCancelOrderNoActive(t *testing.T) {
	mb := &mockBroker{}
	m := newTestManager(mb, risk.Limits{})
	assert.False(t, m.CancelOrder(context.Background(), "BTCUSDT"))
}

func TestMarketDepthLastWriteWins(t *testing.T) {
	mb := &mockBroker{}
	m := newTestManager(mb, risk.Limits{})

	m.UpdateMarketDepth(DepthSnapshot{Symbol: "BTCUSDT", BidPrice: 99, AskPrice: 101})
	m.UpdateMarketDepth(DepthSnapshot{Symbol: "BTCUSDT", BidPrice: 100, AskPrice: 101})

	snap, ok := m.MarketDepth("BTCUSDT")
	require.True(t, ok)
	assert.Equal(t, 100.0, snap.BidPrice)
	assert.InDelta(t, 1.0, snap.Spread(), 1e-9)

	_, ok = m.MarketDepth("ETHUSDT")
	assert.False(t, ok)
}
