package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueAtRiskEmptyAndDegenerate(t *testing.T) {
	a := NewAnalytics(100000, 0.95, 0)
	assert.Equal(t, 0.0, a.ValueAtRisk(nil))
	// zero variance, zero mean: VaR collapses to 0
	assert.InDelta(t, 0.0, a.ValueAtRisk([]float64{0, 0, 0, 0}), 1e-12)
}

func TestValueAtRiskGaussian(t *testing.T) {
	a := NewAnalytics(100000, 0.95, 0)
	returns := []float64{0.01, -0.02, 0.015, -0.005, 0.002, -0.01, 0.008, -0.003}
	v := a.ValueAtRisk(returns)
	// losses in the sample, so the 95% VaR must be a positive loss figure
	assert.Greater(t, v, 0.0)
}

func TestExpectedShortfall(t *testing.T) {
	a := NewAnalytics(100000, 0.9, 0)
	assert.Equal(t, 0.0, a.ExpectedShortfall(nil))

	// 20 returns, 10% tail -> worst 2
	returns := make([]float64, 20)
	for i := range returns {
		returns[i] = 0.01
	}
	returns[0] = -0.10
	returns[1] = -0.06
	es := a.ExpectedShortfall(returns)
	assert.InDelta(t, 0.08, es, 1e-9)
}

func TestExpectedShortfallTinySample(t *testing.T) {
	a := NewAnalytics(100000, 0.95, 0)
	// 5 samples at 95%: the tail is empty
	assert.Equal(t, 0.0, a.ExpectedShortfall([]float64{-0.1, 0.1, 0.2, -0.2, 0.0}))
}

func TestMaxDrawdown(t *testing.T) {
	a := NewAnalytics(100000, 0.95, 0.15)
	base := time.Now()
	for i, v := range []float64{100, 120, 90, 110, 80} {
		a.UpdateEquity(base.Add(time.Duration(i)*time.Minute), v)
	}
	// peak 120 -> trough 80
	assert.InDelta(t, (120.0-80.0)/120.0, a.MaxDrawdown(), 1e-9)
	assert.True(t, a.DrawdownExceeded())
	assert.Equal(t, 80.0, a.LastEquity())
}

func TestUpdateEquityDropsOutOfOrder(t *testing.T) {
	a := NewAnalytics(100000, 0.95, 0)
	base := time.Now()
	a.UpdateEquity(base, 100)
	a.UpdateEquity(base.Add(-time.Minute), 1) // dropped
	assert.Equal(t, 100.0, a.LastEquity())
}

func TestDynamicPositionSize(t *testing.T) {
	a := NewAnalytics(100000, 0.95, 0)
	size, err := a.DynamicPositionSize(0.01, 0.05, 200)
	require.NoError(t, err)
	// 100000*0.01 / (0.05*200)
	assert.InDelta(t, 100.0, size, 1e-9)

	_, err = a.DynamicPositionSize(0.01, 0.05, 0)
	assert.Error(t, err)
}

func TestReport(t *testing.T) {
	a := NewAnalytics(100000, 0.95, 0)
	a.AddReturn(0.01)
	a.AddReturn(-0.02)
	perf := NewPerformanceTracker()
	perf.RecordTrade(0.01)
	perf.RecordTrade(-0.02)

	rep := a.Report(true, Limits{MaxSingleOrderValue: 5000}, perf)
	assert.True(t, rep.Panic)
	assert.Equal(t, 5000.0, rep.MaxSingleOrderValue)
	assert.InDelta(t, -0.01, rep.TotalReturns, 1e-9)
	assert.Equal(t, 2, rep.TotalTrades)
	assert.InDelta(t, 0.5, rep.WinRate, 1e-9)
}
