package trader

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"

	"github.com/berinsbackup-web/AITradingBot/internal/execution"
	"github.com/berinsbackup-web/AITradingBot/internal/logger"
	"github.com/berinsbackup-web/AITradingBot/internal/pipeline"
)

// LifecycleState is the orchestrator's coarse state machine:
// CREATED -> RUNNING -> SHUTTING_DOWN -> STOPPED. Transitions are
// one-way.
type LifecycleState int32

const (
	StateCreated LifecycleState = iota
	StateRunning
	StateShuttingDown
	StateStopped
)

func (s LifecycleState) String() string {
	switch s {
	case StateCreated:
		return "CREATED"
	case StateRunning:
		return "RUNNING"
	case StateShuttingDown:
		return "SHUTTING_DOWN"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

var (
	ErrNotRunning     = errors.New("orchestrator not running")
	ErrAlreadyStarted = errors.New("orchestrator already started")
)

// OrderPlacer is the slice of the execution manager the orchestrator
// needs.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, o *execution.Order) execution.Order
}

const tradeBuffer = 256

// Orchestrator owns the strategy's execution context. Trade ticks are
// processed strictly in arrival order on a single worker; market data
// callbacks are serialized separately so a slow strategy never
// reorders trades.
type Orchestrator struct {
	strategy Strategy
	exec     OrderPlacer
	queue    *pipeline.Queue
	disp     *pipeline.Dispatcher

	state   atomic.Int32
	tradeCh chan pipeline.TradeTick
	mdMu    sync.Mutex

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator wires itself into disp for trade and market-data
// events. The queue is consumed once Start is called.
func NewOrchestrator(strategy Strategy, exec OrderPlacer, queue *pipeline.Queue, disp *pipeline.Dispatcher) *Orchestrator {
	o := &Orchestrator{
		strategy: strategy,
		exec:     exec,
		queue:    queue,
		disp:     disp,
		tradeCh:  make(chan pipeline.TradeTick, tradeBuffer),
	}
	disp.Register(pipeline.EventTrade, func(ev pipeline.Event) error {
		if ev.Trade == nil {
			return nil
		}
		return o.OnTrade(*ev.Trade)
	})
	disp.Register(pipeline.EventMarketData, func(ev pipeline.Event) error {
		if ev.MarketData == nil {
			return nil
		}
		return o.OnMarketData(*ev.MarketData)
	})
	return o
}

func (o *Orchestrator) State() LifecycleState {
	return LifecycleState(o.state.Load())
}

// Start moves CREATED -> RUNNING and spawns the dispatch and trade
// workers. Calling Start twice returns ErrAlreadyStarted.
func (o *Orchestrator) Start(ctx context.Context) error {
	if !o.state.CompareAndSwap(int32(StateCreated), int32(StateRunning)) {
		return ErrAlreadyStarted
	}
	ctx, o.cancel = context.WithCancel(ctx)

	o.wg.Add(2)
	go o.dispatchLoop(ctx)
	go o.tradeWorker(ctx)

	logger.Infof("trader: orchestrator running (strategy=%s)", o.strategy.Name())
	return nil
}

func (o *Orchestrator) dispatchLoop(ctx context.Context) {
	defer o.wg.Done()
	o.queue.Run(ctx, o.disp.Dispatch)
}

func (o *Orchestrator) tradeWorker(ctx context.Context) {
	defer o.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case tick := <-o.tradeCh:
			o.processTrade(ctx, tick)
		}
	}
}

// OnTrade enqueues a tick for ordered processing. Ticks arriving when
// the orchestrator is not RUNNING are refused.
func (o *Orchestrator) OnTrade(tick pipeline.TradeTick) error {
	if o.State() != StateRunning {
		return ErrNotRunning
	}
	select {
	case o.tradeCh <- tick:
		return nil
	default:
		logger.Warnf("trader: trade buffer full, dropping tick for %s", tick.Symbol)
		return nil
	}
}

func (o *Orchestrator) OnMarketData(snap pipeline.MarketDataSnapshot) error {
	if o.State() != StateRunning {
		return ErrNotRunning
	}
	o.mdMu.Lock()
	defer o.mdMu.Unlock()
	return o.strategy.OnMarketData(context.Background(), snap)
}

func (o *Orchestrator) processTrade(ctx context.Context, tick pipeline.TradeTick) {
	qty, err := o.strategy.OnTrade(ctx, tick)
	if err != nil {
		logger.Errorf("trader: strategy %s failed on trade for %s: %v", o.strategy.Name(), tick.Symbol, err)
		return
	}
	if qty == 0 {
		return
	}

	side := execution.SideBuy
	if qty < 0 {
		side = execution.SideSell
		qty = math.Abs(qty)
	}
	order := execution.NewOrder(tick.Symbol, qty, side, execution.TypeMarket, 0)
	placed := o.exec.PlaceOrder(ctx, order)
	logger.Infof("trader: strategy %s placed %s %v %s -> %s",
		o.strategy.Name(), side, qty, tick.Symbol, placed.Status)
}

// Shutdown moves RUNNING -> SHUTTING_DOWN, stops the workers, waits
// for them and lands in STOPPED. Safe to call once; later calls are
// no-ops.
func (o *Orchestrator) Shutdown() {
	if !o.state.CompareAndSwap(int32(StateRunning), int32(StateShuttingDown)) {
		return
	}
	logger.Infof("trader: orchestrator shutting down")
	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
	o.state.Store(int32(StateStopped))
	logger.Infof("trader: orchestrator stopped")
}
