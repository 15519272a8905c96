package execution

import (
	"sync"
	"time"
)

// DepthSnapshot is the most recent best bid/ask for a symbol.
// Last-write-wins; no history is retained.
type DepthSnapshot struct {
	Symbol   string
	BidPrice float64
	BidQty   float64
	AskPrice float64
	AskQty   float64
	At       time.Time
}

// Spread returns the absolute ask-bid spread, 0 when either side is
// missing.
func (s DepthSnapshot) Spread() float64 {
	if s.BidPrice <= 0 || s.AskPrice <= 0 {
		return 0
	}
	return s.AskPrice - s.BidPrice
}

// depthCache holds snapshots under a dedicated lock so depth updates
// never contend with order state mutation.
type depthCache struct {
	mu    sync.RWMutex
	books map[string]DepthSnapshot
}

func newDepthCache() *depthCache {
	return &depthCache{books: make(map[string]DepthSnapshot)}
}

func (c *depthCache) put(snap DepthSnapshot) {
	c.mu.Lock()
	c.books[snap.Symbol] = snap
	c.mu.Unlock()
}

func (c *depthCache) get(symbol string) (DepthSnapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap, ok := c.books[symbol]
	return snap, ok
}
