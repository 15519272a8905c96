package execution

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/berinsbackup-web/AITradingBot/internal/broker"
	"github.com/berinsbackup-web/AITradingBot/internal/logger"
	"github.com/berinsbackup-web/AITradingBot/internal/pkg/circuit"
	"github.com/berinsbackup-web/AITradingBot/internal/risk"
)

// VolatilityProvider answers the current volatility estimate for a
// symbol, used by the cost model. ok is false when no estimate exists
// yet.
type VolatilityProvider interface {
	Volatility(symbol string) (vol float64, ok bool)
}

// Archiver persists orders that reached a terminal state.
type Archiver interface {
	ArchiveOrder(ctx context.Context, o *Order) error
}

// Position aggregates filled quantity per symbol, long and short legs
// tracked separately.
type Position struct {
	Symbol string
	Long   float64
	Short  float64
}

func (p Position) Net() float64 { return p.Long - p.Short }

// ManagerConfig tunes the lifecycle manager. Zero values fall back to
// the defaults applied in NewManager.
type ManagerConfig struct {
	SimulatedLatency  time.Duration // artificial delay before each submission
	DedupeWindow      time.Duration
	DefaultSpread     float64 // used when no depth snapshot exists
	DefaultVolatility float64 // used when the provider has no estimate
	SlippageEnabled   bool
	StaleTimeout      time.Duration
	LatencyLookback   int
}

// Manager owns every order from placement to terminal state. Orders
// for different symbols proceed concurrently; orders for the same
// symbol are serialized.
type Manager struct {
	cfg     ManagerConfig
	broker  broker.Broker
	gate    *risk.Gate
	deduper *Deduper
	cost    *CostModel
	latency *Compensator
	depth   *depthCache

	breaker *circuit.CircuitBreaker
	vol     VolatilityProvider
	archive Archiver

	mu        sync.Mutex
	orders    map[string]*Order   // by order ID
	bySymbol  map[string][]string // symbol -> order IDs, placement order
	positions map[string]*Position

	symLocks sync.Map // symbol -> *sync.Mutex
	now      func() time.Time
}

type Option func(*Manager)

// WithClock overrides the time source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithArchiver(a Archiver) Option {
	return func(m *Manager) { m.archive = a }
}

func WithBreaker(cb *circuit.CircuitBreaker) Option {
	return func(m *Manager) { m.breaker = cb }
}

func WithVolatilityProvider(p VolatilityProvider) Option {
	return func(m *Manager) { m.vol = p }
}

func WithCostModel(c *CostModel) Option {
	return func(m *Manager) { m.cost = c }
}

func NewManager(b broker.Broker, gate *risk.Gate, cfg ManagerConfig, opts ...Option) *Manager {
	m := &Manager{
		cfg:       cfg,
		broker:    b,
		gate:      gate,
		deduper:   NewDeduper(cfg.DedupeWindow),
		cost:      NewCostModel(0),
		latency:   NewCompensator(cfg.LatencyLookback),
		depth:     newDepthCache(),
		orders:    make(map[string]*Order),
		bySymbol:  make(map[string][]string),
		positions: make(map[string]*Position),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Latency() *Compensator { return m.latency }

func (m *Manager) symbolLock(symbol string) *sync.Mutex {
	v, _ := m.symLocks.LoadOrStore(symbol, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// PlaceOrder runs the full placement pipeline: risk gate, dedupe,
// slippage adjustment, broker submission and fill application. It
// always returns a snapshot of the order in its final state; a
// rejected or failed placement comes back with StatusRejected and a
// reason, never an error. Placements for the same symbol are
// serialized.
func (m *Manager) PlaceOrder(ctx context.Context, o *Order) (placed Order) {
	lock := m.symbolLock(o.Symbol)
	lock.Lock()
	defer lock.Unlock()

	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("execution: panic during placement of %s: %v", o.ID, r)
			m.reject(ctx, o, fmt.Sprintf("internal error: %v", r))
			placed = o.snapshot()
		}
	}()

	now := m.now()
	o.PlacedAt = now
	m.track(o)

	decision := m.gate.Evaluate(ctx, risk.OrderView{
		Symbol: o.Symbol,
		Side:   string(o.Side),
		Qty:    o.Qty,
		Price:  o.Price,
	})
	if !decision.Allowed {
		m.reject(ctx, o, decision.Reason)
		return o.snapshot()
	}

	key := KeyFor(o.Symbol, o.Side, o.Qty, o.Type, o.Price)
	if m.deduper.ShouldReject(key, now) {
		m.reject(ctx, o, "duplicate order inside dedupe window")
		return o.snapshot()
	}

	if m.breaker != nil && !m.breaker.Allow() {
		m.reject(ctx, o, "broker circuit open")
		return o.snapshot()
	}

	price := o.Price
	if m.cfg.SlippageEnabled && o.Type == TypeLimit {
		slip := m.cost.EstimateSlippage(o.Qty, m.avgSpread(o.Symbol), m.volatility(o.Symbol))
		price = AdjustLimitPrice(o.Side, o.Price, slip)
		logger.Debugf("execution: %s %s limit %.8f adjusted to %.8f (slippage=%.8f)",
			o.Side, o.Symbol, o.Price, price, slip)
	}

	if m.cfg.SimulatedLatency > 0 {
		if err := sleepCtx(ctx, m.cfg.SimulatedLatency); err != nil {
			m.reject(ctx, o, "placement cancelled while waiting")
			return o.snapshot()
		}
	}

	start := m.now()
	report, err := m.broker.SubmitOrder(ctx, broker.SubmitRequest{
		Symbol:         o.Symbol,
		Qty:            o.Qty,
		Side:           string(o.Side),
		OrderType:      string(o.Type),
		Price:          price,
		IdempotencyKey: string(key),
	})
	m.latency.Record(m.now().Sub(start))

	if err != nil {
		if m.breaker != nil {
			m.breaker.RecordFailure()
		}
		m.reject(ctx, o, fmt.Sprintf("broker submit failed: %v", err))
		return o.snapshot()
	}
	if m.breaker != nil {
		m.breaker.RecordSuccess()
	}

	m.deduper.RecordAccepted(key, now)
	m.applyReport(ctx, o, report)
	return o.snapshot()
}

// applyReport interprets the broker's answer. Itemized fills win over
// the aggregate; an answer with neither leaves the order UNKNOWN for
// out-of-band reconciliation. An order that reached a terminal state
// while the call was in flight is left untouched.
func (m *Manager) applyReport(ctx context.Context, o *Order, report *broker.OrderReport) {
	m.mu.Lock()
	if o.Status.Terminal() {
		m.mu.Unlock()
		logger.Warnf("execution: dropping broker report for terminal order %s (status=%s, broker_id=%q)",
			o.ID, o.Status, report.OrderID)
		return
	}
	o.BrokerOrderID = report.OrderID

	applied := false
	for _, f := range report.Fills {
		ts := f.Timestamp
		if ts.IsZero() {
			ts = m.now()
		}
		if err := o.ApplyFill(f.Qty, f.Price, ts); err != nil {
			logger.Warnf("execution: dropping fill %v@%v on %s: %v", f.Qty, f.Price, o.ID, err)
			continue
		}
		applied = true
	}
	if !applied && report.FilledQty > 0 {
		price := report.FillPrice
		if price == 0 {
			price = o.Price
		}
		if err := o.ApplyFill(report.FilledQty, price, m.now()); err != nil {
			logger.Warnf("execution: dropping aggregate fill on %s: %v", o.ID, err)
		} else {
			applied = true
		}
	}

	if applied {
		m.applyPositionLocked(o.Symbol, o.Side, o.FilledQty)
	} else {
		o.Status = StatusUnknown
		o.LastUpdate = m.now()
		logger.Warnf("execution: broker response for %s uninterpretable (broker_id=%q status=%q), marking UNKNOWN",
			o.ID, report.OrderID, report.Status)
	}
	terminal := o.Status.Terminal()
	m.mu.Unlock()

	if terminal {
		m.archiveOrder(ctx, o)
		m.untrack(o)
	}
}

func (m *Manager) applyPositionLocked(symbol string, side Side, qty float64) {
	pos, ok := m.positions[symbol]
	if !ok {
		pos = &Position{Symbol: symbol}
		m.positions[symbol] = pos
	}
	if side == SideBuy {
		pos.Long += qty
	} else {
		pos.Short += qty
	}
}

func (m *Manager) track(o *Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.orders[o.ID]; exists {
		return
	}
	m.orders[o.ID] = o
	m.bySymbol[o.Symbol] = append(m.bySymbol[o.Symbol], o.ID)
}

func (m *Manager) reject(ctx context.Context, o *Order, reason string) {
	m.mu.Lock()
	if !o.Status.Terminal() {
		o.Status = StatusRejected
		o.RejectReason = reason
		o.LastUpdate = m.now()
	}
	m.mu.Unlock()
	logger.Warnf("execution: order %s (%s %v %s) rejected: %s", o.ID, o.Side, o.Qty, o.Symbol, reason)
	m.archiveOrder(ctx, o)
	m.untrack(o)
}

// untrack drops a terminal order from the live book; the archive is
// its home from here on. Positions are unaffected.
func (m *Manager) untrack(o *Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.orders, o.ID)
	ids := m.bySymbol[o.Symbol]
	for i, id := range ids {
		if id == o.ID {
			m.bySymbol[o.Symbol] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(m.bySymbol[o.Symbol]) == 0 {
		delete(m.bySymbol, o.Symbol)
	}
}

func (m *Manager) archiveOrder(ctx context.Context, o *Order) {
	if m.archive == nil {
		return
	}
	if err := m.archive.ArchiveOrder(ctx, o); err != nil {
		logger.Errorf("execution: archiving order %s failed: %v", o.ID, err)
	}
}

// CancelOrder cancels the most recently placed non-terminal order for
// symbol. It reports whether a cancellation was issued.
func (m *Manager) CancelOrder(ctx context.Context, symbol string) bool {
	lock := m.symbolLock(symbol)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	var target *Order
	ids := m.bySymbol[symbol]
	for i := len(ids) - 1; i >= 0; i-- {
		if o := m.orders[ids[i]]; o != nil && !o.Status.Terminal() {
			target = o
			break
		}
	}
	m.mu.Unlock()

	if target == nil {
		logger.Debugf("execution: no active order to cancel for %s", symbol)
		return false
	}
	return m.cancel(ctx, target)
}

func (m *Manager) cancel(ctx context.Context, o *Order) bool {
	if o.BrokerOrderID != "" {
		if err := m.broker.CancelOrder(ctx, o.Symbol, o.BrokerOrderID); err != nil {
			logger.Errorf("execution: broker cancel of %s failed: %v", o.ID, err)
			return false
		}
	}
	m.mu.Lock()
	o.Status = StatusCancelled
	o.LastUpdate = m.now()
	m.mu.Unlock()
	logger.Infof("execution: order %s cancelled (filled %v/%v)", o.ID, o.FilledQty, o.Qty)
	m.archiveOrder(ctx, o)
	m.untrack(o)
	return true
}

// SweepStaleOrders cancels every non-terminal order quiet for longer
// than timeout (falling back to the configured stale timeout) and
// returns how many were cancelled.
func (m *Manager) SweepStaleOrders(ctx context.Context, timeout time.Duration) int {
	if timeout <= 0 {
		timeout = m.cfg.StaleTimeout
	}
	if timeout <= 0 {
		return 0
	}

	now := m.now()
	m.mu.Lock()
	var stale []*Order
	for _, o := range m.orders {
		if o.IsStale(now, timeout) {
			stale = append(stale, o)
		}
	}
	m.mu.Unlock()

	cancelled := 0
	for _, o := range stale {
		// The symbol lock keeps the sweep out of an in-flight
		// placement; re-check once we hold it, since the placement may
		// have finished the order while we waited.
		lock := m.symbolLock(o.Symbol)
		lock.Lock()
		m.mu.Lock()
		ok := !o.Status.Terminal() && o.IsStale(now, timeout)
		last := o.LastUpdate
		if last.IsZero() {
			last = o.PlacedAt
		}
		m.mu.Unlock()
		if !ok {
			lock.Unlock()
			continue
		}
		logger.Warnf("execution: order %s stale (last update %s ago), cancelling",
			o.ID, now.Sub(last).Round(time.Second))
		if m.cancel(ctx, o) {
			cancelled++
		}
		lock.Unlock()
	}
	return cancelled
}

// UpdateMarketDepth installs the latest best bid/ask for a symbol.
func (m *Manager) UpdateMarketDepth(snap DepthSnapshot) {
	if snap.At.IsZero() {
		snap.At = m.now()
	}
	m.depth.put(snap)
}

func (m *Manager) MarketDepth(symbol string) (DepthSnapshot, bool) {
	return m.depth.get(symbol)
}

func (m *Manager) avgSpread(symbol string) float64 {
	if snap, ok := m.depth.get(symbol); ok {
		if s := snap.Spread(); s > 0 {
			return s
		}
	}
	return m.cfg.DefaultSpread
}

func (m *Manager) volatility(symbol string) float64 {
	if m.vol != nil {
		if v, ok := m.vol.Volatility(symbol); ok {
			return v
		}
	}
	return m.cfg.DefaultVolatility
}

// Position returns the aggregate position for a symbol.
func (m *Manager) Position(symbol string) Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	if pos, ok := m.positions[symbol]; ok {
		return *pos
	}
	return Position{Symbol: symbol}
}

func (m *Manager) Positions() []Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Position, 0, len(m.positions))
	for _, pos := range m.positions {
		out = append(out, *pos)
	}
	return out
}

// ActiveOrders returns snapshots of every non-terminal order.
func (m *Manager) ActiveOrders() []Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Order
	for _, o := range m.orders {
		if !o.Status.Terminal() {
			out = append(out, o.snapshot())
		}
	}
	return out
}

// BrokerPositions asks the venue directly, bypassing the local book.
func (m *Manager) BrokerPositions(ctx context.Context) ([]broker.PositionInfo, error) {
	return m.broker.Positions(ctx)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
