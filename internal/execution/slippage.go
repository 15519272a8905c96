package execution

import (
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

const (
	sizePenaltyRate = 0.00015
	volPenaltyRate  = 0.35
)

// CostModel estimates execution cost from order size, spread and
// volatility: a randomized baseline in [avgSpread, 2*avgSpread] plus
// linear size and volatility penalties.
type CostModel struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewCostModel seeds the baseline randomization; pass 0 for a
// time-based seed, or a fixed seed for reproducible runs.
func NewCostModel(seed int64) *CostModel {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &CostModel{rng: rand.New(rand.NewSource(seed))}
}

// EstimateSlippage is a pure function of its inputs apart from the
// baseline draw.
func (m *CostModel) EstimateSlippage(size, avgSpread, volatility float64) float64 {
	m.mu.Lock()
	u := m.rng.Float64()
	m.mu.Unlock()
	baseline := avgSpread * (1 + u)
	return baseline + size*sizePenaltyRate + volatility*volPenaltyRate
}

// AdjustLimitPrice moves a limit price against the requester: buys pay
// price*(1+slippage), sells receive price*(1-slippage). Market orders
// are never adjusted by this model. Decimal math keeps repeated
// adjustments free of float drift.
func AdjustLimitPrice(side Side, price, slippage float64) float64 {
	if price == 0 {
		return price
	}
	p := decimal.NewFromFloat(price)
	s := decimal.NewFromFloat(slippage)
	one := decimal.NewFromInt(1)
	switch side {
	case SideBuy:
		p = p.Mul(one.Add(s))
	case SideSell:
		p = p.Mul(one.Sub(s))
	}
	out, _ := p.Float64()
	return out
}
