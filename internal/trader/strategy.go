// Package trader runs the strategy loop: it pulls market events off
// the pipeline, feeds them to the active strategy and routes the
// resulting orders to the execution core.
package trader

import (
	"context"

	"github.com/berinsbackup-web/AITradingBot/internal/pipeline"
)

// Strategy is the decision-making half of the trader. OnTrade returns
// the desired market order quantity: positive buys, negative sells,
// zero stands pat. Callbacks for one symbol are invoked in event
// order.
type Strategy interface {
	Name() string
	OnTrade(ctx context.Context, tick pipeline.TradeTick) (float64, error)
	OnMarketData(ctx context.Context, snap pipeline.MarketDataSnapshot) error
}

// Passive is a strategy that observes everything and trades nothing.
// Useful for dry runs and as the default when no strategy is wired.
type Passive struct{}

func (Passive) Name() string { return "passive" }

func (Passive) OnTrade(context.Context, pipeline.TradeTick) (float64, error) { return 0, nil }

func (Passive) OnMarketData(context.Context, pipeline.MarketDataSnapshot) error { return nil }
