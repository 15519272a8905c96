// Package market maintains rolling per-symbol statistics derived from
// the OHLC stream, currently an ATR-based volatility estimate consumed
// by the execution cost model.
package market

import (
	"sync"

	"github.com/markcheno/go-talib"

	"github.com/berinsbackup-web/AITradingBot/internal/logger"
	"github.com/berinsbackup-web/AITradingBot/internal/pipeline"
)

const (
	defaultMaxBars   = 200
	defaultATRPeriod = 14
)

type series struct {
	highs  []float64
	lows   []float64
	closes []float64
}

// Stats accumulates OHLC bars per symbol and answers volatility
// queries as ATR normalized by the last close.
type Stats struct {
	mu        sync.RWMutex
	maxBars   int
	atrPeriod int
	symbols   map[string]*series
}

func NewStats(maxBars, atrPeriod int) *Stats {
	if maxBars <= 0 {
		maxBars = defaultMaxBars
	}
	if atrPeriod <= 0 {
		atrPeriod = defaultATRPeriod
	}
	return &Stats{
		maxBars:   maxBars,
		atrPeriod: atrPeriod,
		symbols:   make(map[string]*series),
	}
}

// HandleBar is a pipeline handler for OHLC events.
func (s *Stats) HandleBar(ev pipeline.Event) error {
	if ev.Bar == nil {
		return nil
	}
	s.AddBar(*ev.Bar)
	return nil
}

func (s *Stats) AddBar(bar pipeline.Bar) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sr, ok := s.symbols[bar.Symbol]
	if !ok {
		sr = &series{}
		s.symbols[bar.Symbol] = sr
	}
	sr.highs = append(sr.highs, bar.High)
	sr.lows = append(sr.lows, bar.Low)
	sr.closes = append(sr.closes, bar.Close)
	if len(sr.closes) > s.maxBars {
		sr.highs = sr.highs[len(sr.highs)-s.maxBars:]
		sr.lows = sr.lows[len(sr.lows)-s.maxBars:]
		sr.closes = sr.closes[len(sr.closes)-s.maxBars:]
	}
}

// Volatility returns ATR(atrPeriod)/lastClose for symbol, or ok=false
// when there is not yet enough history.
func (s *Stats) Volatility(symbol string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sr, ok := s.symbols[symbol]
	if !ok || len(sr.closes) <= s.atrPeriod {
		return 0, false
	}
	lastClose := sr.closes[len(sr.closes)-1]
	if lastClose <= 0 {
		return 0, false
	}

	atr := talib.Atr(sr.highs, sr.lows, sr.closes, s.atrPeriod)
	last := atr[len(atr)-1]
	if last <= 0 {
		logger.Debugf("market: ATR not ready for %s", symbol)
		return 0, false
	}
	return last / lastClose, true
}

// BarCount reports retained history for symbol.
func (s *Stats) BarCount(symbol string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sr, ok := s.symbols[symbol]; ok {
		return len(sr.closes)
	}
	return 0
}
