package risk

import (
	"errors"
	"math"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/berinsbackup-web/AITradingBot/internal/logger"
)

// Analytics tracks the equity curve and a returns sample and derives
// drawdown, Value-at-Risk and Expected Shortfall at a configured
// confidence level.
type Analytics struct {
	mu         sync.Mutex
	capital    float64
	confidence float64
	maxDDLimit float64
	curve      []equityPoint
	returns    []float64
}

type equityPoint struct {
	at    time.Time
	value float64
}

func NewAnalytics(initialCapital, confidenceLevel, maxDrawdownLimit float64) *Analytics {
	if confidenceLevel <= 0 || confidenceLevel >= 1 {
		confidenceLevel = 0.95
	}
	if initialCapital <= 0 {
		initialCapital = 100000
	}
	return &Analytics{
		capital:    initialCapital,
		confidence: confidenceLevel,
		maxDDLimit: maxDrawdownLimit,
	}
}

// UpdateEquity appends a point to the equity curve. Keys must be
// chronologically non-decreasing; an out-of-order point is dropped.
func (a *Analytics) UpdateEquity(at time.Time, value float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if n := len(a.curve); n > 0 && at.Before(a.curve[n-1].at) {
		logger.Warnf("risk: dropping out-of-order equity point at %s", at.Format(time.RFC3339))
		return
	}
	a.curve = append(a.curve, equityPoint{at: at, value: value})
}

// LastEquity returns the most recent equity value, or the initial
// capital when no point has been recorded yet.
func (a *Analytics) LastEquity() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if n := len(a.curve); n > 0 {
		return a.curve[n-1].value
	}
	return a.capital
}

// MaxDrawdown returns the worst peak-to-current decline over the
// equity curve as a fraction of the peak.
func (a *Analytics) MaxDrawdown() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	var peak, worst float64
	for _, p := range a.curve {
		if p.value > peak {
			peak = p.value
		}
		if peak > 0 {
			if dd := (peak - p.value) / peak; dd > worst {
				worst = dd
			}
		}
	}
	return worst
}

// DrawdownExceeded reports whether the drawdown limit has been
// breached.
func (a *Analytics) DrawdownExceeded() bool {
	return a.maxDDLimit > 0 && a.MaxDrawdown() > a.maxDDLimit
}

// AddReturn appends one period return to the sample used by the risk
// report.
func (a *Analytics) AddReturn(r float64) {
	a.mu.Lock()
	a.returns = append(a.returns, r)
	a.mu.Unlock()
}

// ValueAtRisk computes the Gaussian VaR of the sample: the negated
// confidence-quantile of a normal fitted to mean and stdev. An empty
// sample yields 0.
func (a *Analytics) ValueAtRisk(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	mu, sigma := meanStd(returns)
	z := distuv.UnitNormal.Quantile(1 - a.confidence)
	return -(mu + sigma*z)
}

// ExpectedShortfall averages the worst (1-confidence) fraction of the
// sorted sample. Empty samples, and samples too small for a non-empty
// tail, yield 0.
func (a *Analytics) ExpectedShortfall(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	sorted := append([]float64(nil), returns...)
	sort.Float64s(sorted)
	cutoff := int((1 - a.confidence) * float64(len(sorted)))
	if cutoff <= 0 {
		return 0
	}
	var sum float64
	for _, r := range sorted[:cutoff] {
		sum += r
	}
	return -sum / float64(cutoff)
}

// DynamicPositionSize derives a maximum order size from the capital at
// risk per trade and the stop-loss distance at the current price.
func (a *Analytics) DynamicPositionSize(riskPerTrade, stopLossPct, currentPrice float64) (float64, error) {
	if currentPrice <= 0 {
		return 0, errors.New("risk: invalid current price for position sizing")
	}
	if riskPerTrade <= 0 {
		riskPerTrade = 0.005
	}
	if stopLossPct <= 0 {
		stopLossPct = 0.02
	}
	riskAmount := a.capital * riskPerTrade
	return riskAmount / (stopLossPct * currentPrice), nil
}

// Report is the operator-facing risk summary.
type Report struct {
	CurrentValue        float64 `json:"current_value"`
	MaxDrawdown         float64 `json:"max_drawdown"`
	DrawdownExceeded    bool    `json:"drawdown_exceeded"`
	ValueAtRisk         float64 `json:"value_at_risk"`
	ExpectedShortfall   float64 `json:"expected_shortfall"`
	TotalReturns        float64 `json:"total_returns"`
	Panic               bool    `json:"panic"`
	MaxSingleOrderValue float64 `json:"max_single_order_value"`
	WinRate             float64 `json:"win_rate"`
	AvgProfit           float64 `json:"avg_profit"`
	TotalTrades         int     `json:"total_trades"`
}

// Report assembles the summary from the recorded returns sample.
func (a *Analytics) Report(panicActive bool, limits Limits, perf *PerformanceTracker) Report {
	a.mu.Lock()
	sample := append([]float64(nil), a.returns...)
	a.mu.Unlock()

	var total float64
	for _, r := range sample {
		total += r
	}
	rep := Report{
		CurrentValue:        a.LastEquity(),
		MaxDrawdown:         a.MaxDrawdown(),
		DrawdownExceeded:    a.DrawdownExceeded(),
		ValueAtRisk:         a.ValueAtRisk(sample),
		ExpectedShortfall:   a.ExpectedShortfall(sample),
		TotalReturns:        total,
		Panic:               panicActive,
		MaxSingleOrderValue: limits.MaxSingleOrderValue,
	}
	if perf != nil {
		rep.WinRate = perf.WinRate()
		rep.AvgProfit = perf.AvgProfit()
		rep.TotalTrades = perf.TotalTrades()
	}
	return rep
}

// meanStd computes the mean and population standard deviation, the
// same convention the VaR formula assumes.
func meanStd(sample []float64) (mu, sigma float64) {
	n := float64(len(sample))
	for _, v := range sample {
		mu += v
	}
	mu /= n
	var ss float64
	for _, v := range sample {
		d := v - mu
		ss += d * d
	}
	sigma = math.Sqrt(ss / n)
	return mu, sigma
}
