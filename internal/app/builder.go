// Package app wires the bot together from configuration and runs the
// long-lived components under one errgroup.
package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/berinsbackup-web/AITradingBot/internal/broker"
	"github.com/berinsbackup-web/AITradingBot/internal/config"
	"github.com/berinsbackup-web/AITradingBot/internal/execution"
	"github.com/berinsbackup-web/AITradingBot/internal/feed"
	"github.com/berinsbackup-web/AITradingBot/internal/logger"
	"github.com/berinsbackup-web/AITradingBot/internal/market"
	"github.com/berinsbackup-web/AITradingBot/internal/pipeline"
	"github.com/berinsbackup-web/AITradingBot/internal/pkg/circuit"
	"github.com/berinsbackup-web/AITradingBot/internal/risk"
	"github.com/berinsbackup-web/AITradingBot/internal/store/sqlite"
	"github.com/berinsbackup-web/AITradingBot/internal/trader"
	adminhttp "github.com/berinsbackup-web/AITradingBot/internal/transport/http"
)

// App holds every long-lived component built from the configuration.
type App struct {
	cfg        *config.Config
	configPath string

	gate         *risk.Gate
	perf         *risk.PerformanceTracker
	manager      *execution.Manager
	queue        *pipeline.Queue
	dispatcher   *pipeline.Dispatcher
	orchestrator *trader.Orchestrator
	stats        *market.Stats
	archive      *sqlite.Store
	feed         *feed.Client
	http         *adminhttp.Server
}

// Build assembles the bot. strategy may be nil, in which case the
// passive strategy is used.
func Build(cfg *config.Config, configPath string, strategy trader.Strategy) (*App, error) {
	a := &App{cfg: cfg, configPath: configPath}

	b, err := buildBroker(cfg.Broker)
	if err != nil {
		return nil, err
	}
	logger.Infof("app: broker backend %s", b.Name())

	analytics := risk.NewAnalytics(cfg.Risk.InitialCapital, cfg.Risk.ConfidenceLevel, cfg.Risk.MaxDrawdownLimit)
	sizer := risk.NewTableSizer()
	a.perf = risk.NewPerformanceTracker()
	a.gate = risk.NewGate(sizer, risk.Limits{
		MaxSingleOrderValue: cfg.Risk.MaxSingleOrderValue,
		MaxPositionSize:     cfg.Risk.MaxPositionSize,
	}, analytics)

	a.stats = market.NewStats(0, 0)

	a.archive, err = sqlite.NewStore(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("opening order archive: %w", err)
	}

	breaker := circuit.NewCircuitBreaker("broker",
		cfg.Execution.BreakerThreshold, cfg.Execution.BreakerTimeout())

	a.manager = execution.NewManager(b, a.gate, execution.ManagerConfig{
		SimulatedLatency:  cfg.Execution.SimulatedLatency(),
		DedupeWindow:      cfg.Execution.DedupeWindow(),
		DefaultSpread:     cfg.Execution.DefaultSpread,
		DefaultVolatility: cfg.Execution.DefaultVolatility,
		SlippageEnabled:   cfg.Execution.SlippageEnabled,
		StaleTimeout:      cfg.Execution.StaleTimeout(),
		LatencyLookback:   cfg.Execution.LatencyLookback,
	},
		execution.WithArchiver(a.archive),
		execution.WithBreaker(breaker),
		execution.WithVolatilityProvider(a.stats),
	)

	a.queue = pipeline.NewQueue(cfg.Feed.QueueSize)
	a.dispatcher = pipeline.NewDispatcher()
	a.dispatcher.Register(pipeline.EventOHLC, a.stats.HandleBar)
	// Refresh the risk-managed size cap from the latest trade price.
	// Registered before the orchestrator so the cap is current when the
	// strategy's order hits the gate.
	a.dispatcher.Register(pipeline.EventTrade, func(ev pipeline.Event) error {
		if ev.Trade == nil || ev.Trade.Price <= 0 {
			return nil
		}
		size, err := analytics.DynamicPositionSize(cfg.Risk.RiskPerTrade, cfg.Risk.StopLossPct, ev.Trade.Price)
		if err != nil {
			return err
		}
		sizer.Set(ev.Trade.Symbol, size)
		return nil
	})
	a.dispatcher.Register(pipeline.EventQuote, func(ev pipeline.Event) error {
		if ev.Quote == nil {
			return nil
		}
		a.manager.UpdateMarketDepth(execution.DepthSnapshot{
			Symbol:   ev.Quote.Symbol,
			BidPrice: ev.Quote.BidPrice,
			BidQty:   ev.Quote.BidQty,
			AskPrice: ev.Quote.AskPrice,
			AskQty:   ev.Quote.AskQty,
			At:       ev.Quote.At,
		})
		return nil
	})

	if strategy == nil {
		strategy = trader.Passive{}
	}
	a.orchestrator = trader.NewOrchestrator(strategy, a.manager, a.queue, a.dispatcher)

	if cfg.Feed.URL != "" {
		a.feed = feed.NewClient(cfg.Feed.URL, cfg.Feed.Symbols, a.queue)
	}
	if cfg.HTTP.Enabled {
		a.http = adminhttp.NewServer(cfg.HTTP.Addr, a.manager, a.gate, a.perf, a.archive)
	}
	return a, nil
}

func (a *App) Manager() *execution.Manager { return a.manager }

func (a *App) Gate() *risk.Gate { return a.gate }

func buildBroker(cfg config.BrokerConfig) (broker.Broker, error) {
	switch strings.ToLower(cfg.Mode) {
	case "paper":
		return broker.NewPaper(), nil
	case "binance":
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("BINANCE_API_KEY")
		}
		apiSecret := cfg.APISecret
		if apiSecret == "" {
			apiSecret = os.Getenv("BINANCE_API_SECRET")
		}
		if apiKey == "" || apiSecret == "" {
			return nil, fmt.Errorf("binance mode requires api_key/api_secret (config or BINANCE_API_KEY/BINANCE_API_SECRET)")
		}
		return broker.NewBinance(broker.BinanceConfig{
			APIKey:      apiKey,
			APISecret:   apiSecret,
			BaseURL:     cfg.BaseURL,
			HTTPTimeout: cfg.HTTPTimeout(),
		}), nil
	default:
		return nil, fmt.Errorf("unknown broker mode %q", cfg.Mode)
	}
}
