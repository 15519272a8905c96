package risk

import (
	"context"
	"sync"
)

// TableSizer is a concurrency-safe per-symbol size table. Entries are
// typically produced by Analytics.DynamicPositionSize and refreshed by
// an operator or a strategy runner. A missing entry means "no cap".
type TableSizer struct {
	mu    sync.RWMutex
	sizes map[string]float64
}

func NewTableSizer() *TableSizer {
	return &TableSizer{sizes: make(map[string]float64)}
}

func (s *TableSizer) Set(symbol string, size float64) {
	s.mu.Lock()
	s.sizes[symbol] = size
	s.mu.Unlock()
}

func (s *TableSizer) PositionSize(_ context.Context, symbol string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sizes[symbol], nil
}
