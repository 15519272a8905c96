package risk

import "sync"

// PerformanceTracker keeps simple win/loss counters over completed
// trades for the risk report.
type PerformanceTracker struct {
	mu     sync.Mutex
	trades int
	wins   int
	losses int
	profit float64
}

func NewPerformanceTracker() *PerformanceTracker {
	return &PerformanceTracker{}
}

// RecordTrade counts one completed trade by its profit percentage.
func (p *PerformanceTracker) RecordTrade(profitPct float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.trades++
	if profitPct > 0 {
		p.wins++
	} else {
		p.losses++
	}
	p.profit += profitPct
}

func (p *PerformanceTracker) WinRate() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.trades == 0 {
		return 0
	}
	return float64(p.wins) / float64(p.trades)
}

func (p *PerformanceTracker) AvgProfit() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.trades == 0 {
		return 0
	}
	return p.profit / float64(p.trades)
}

func (p *PerformanceTracker) TotalTrades() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.trades
}
