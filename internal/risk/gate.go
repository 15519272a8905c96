// Package risk implements the pre-trade gate and portfolio risk
// analytics. The gate is consulted on every order placement; its
// panic flag and limits are readable by any number of concurrent
// placements without lock contention.
package risk

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/berinsbackup-web/AITradingBot/internal/logger"
)

// Limits are the operator-managed guard rails read on every
// placement. The whole struct is replaced atomically on update so
// readers never observe a torn value.
type Limits struct {
	MaxSingleOrderValue float64
	MaxPositionSize     map[string]float64
}

func (l Limits) clone() Limits {
	out := Limits{MaxSingleOrderValue: l.MaxSingleOrderValue}
	if len(l.MaxPositionSize) > 0 {
		out.MaxPositionSize = make(map[string]float64, len(l.MaxPositionSize))
		for sym, v := range l.MaxPositionSize {
			out.MaxPositionSize[sym] = v
		}
	}
	return out
}

// PositionSizer reports the risk-managed maximum order size for a
// symbol. Implementations may answer from memory or from a remote
// call; taking a context covers both calling conventions.
type PositionSizer interface {
	PositionSize(ctx context.Context, symbol string) (float64, error)
}

// SizerFunc adapts a plain function to PositionSizer.
type SizerFunc func(ctx context.Context, symbol string) (float64, error)

func (f SizerFunc) PositionSize(ctx context.Context, symbol string) (float64, error) {
	return f(ctx, symbol)
}

// Decision is the outcome of a pre-trade evaluation.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision { return Decision{Allowed: true} }

func reject(format string, args ...any) Decision {
	return Decision{Reason: fmt.Sprintf(format, args...)}
}

// OrderView is the slice of an order the gate needs to judge it.
type OrderView struct {
	Symbol string
	Side   string
	Qty    float64
	Price  float64 // 0 when unknown
}

// Gate evaluates orders against the panic flag, the position-sizing
// provider and the configured limits.
type Gate struct {
	sizer     PositionSizer
	analytics *Analytics
	limits    atomic.Value // Limits
	panicFlag atomic.Bool
}

func NewGate(sizer PositionSizer, limits Limits, analytics *Analytics) *Gate {
	g := &Gate{sizer: sizer, analytics: analytics}
	g.limits.Store(limits.clone())
	return g
}

// Analytics exposes the drawdown/VaR tracker owned by this gate.
func (g *Gate) Analytics() *Analytics { return g.analytics }

// UpdateLimits swaps the guard rails; concurrent evaluations see
// either the old or the new set, never a mix.
func (g *Gate) UpdateLimits(l Limits) {
	g.limits.Store(l.clone())
	logger.Infof("risk: limits updated (max_single_order_value=%.2f, per-symbol caps=%d)",
		l.MaxSingleOrderValue, len(l.MaxPositionSize))
}

func (g *Gate) CurrentLimits() Limits {
	return g.limits.Load().(Limits)
}

// TriggerPanic halts all new order placement until cleared.
func (g *Gate) TriggerPanic(reason string) {
	g.panicFlag.Store(true)
	logger.Errorf("PANIC STOP TRIGGERED: %s", reason)
}

func (g *Gate) ClearPanic() {
	g.panicFlag.Store(false)
	logger.Infof("risk: panic stop cleared")
}

func (g *Gate) PanicActive() bool {
	return g.panicFlag.Load()
}

// Evaluate applies the pre-trade checks in order: panic stop, sizing
// provider, per-symbol cap, single-order value cap. The value cap is
// skipped when no price is known.
func (g *Gate) Evaluate(ctx context.Context, o OrderView) Decision {
	if g.panicFlag.Load() {
		return reject("panic stop active")
	}

	if g.sizer != nil {
		maxQty, err := g.sizer.PositionSize(ctx, o.Symbol)
		if err != nil {
			return reject("position size lookup failed for %s: %v", o.Symbol, err)
		}
		if maxQty > 0 && o.Qty > maxQty {
			return reject("qty %v exceeds risk-managed position size %v for %s", o.Qty, maxQty, o.Symbol)
		}
	}

	limits := g.CurrentLimits()
	if cap := limits.MaxPositionSize[o.Symbol]; cap > 0 && o.Qty > cap {
		return reject("qty %v exceeds configured position cap %v for %s", o.Qty, cap, o.Symbol)
	}
	if limits.MaxSingleOrderValue > 0 && o.Price != 0 {
		if math.Abs(o.Price*o.Qty) > limits.MaxSingleOrderValue {
			return reject("order value %.2f exceeds single-order cap %.2f",
				math.Abs(o.Price*o.Qty), limits.MaxSingleOrderValue)
		}
	}
	return allow()
}
