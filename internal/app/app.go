package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/berinsbackup-web/AITradingBot/internal/config"
	"github.com/berinsbackup-web/AITradingBot/internal/logger"
	"github.com/berinsbackup-web/AITradingBot/internal/risk"
)

// Run starts every component and blocks until ctx is cancelled or a
// component fails. Shutdown order: orchestrator drains first, then the
// archive closes.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if err := a.orchestrator.Start(ctx); err != nil {
		return err
	}
	g.Go(func() error {
		<-ctx.Done()
		a.orchestrator.Shutdown()
		a.queue.Close()
		return nil
	})

	if a.http != nil {
		g.Go(func() error {
			return a.http.Start(ctx)
		})
	}

	if a.feed != nil {
		g.Go(func() error {
			err := a.feed.Run(ctx)
			if ctx.Err() != nil {
				return nil
			}
			return err
		})
	}

	g.Go(func() error {
		return a.sweepLoop(ctx)
	})

	g.Go(func() error {
		err := config.Watch(ctx, a.configPath, a.applyReload)
		if ctx.Err() != nil {
			return nil
		}
		return err
	})

	err := g.Wait()
	if cerr := a.archive.Close(); cerr != nil {
		logger.Errorf("app: closing order archive: %v", cerr)
	}
	logger.Infof("app: stopped")
	return err
}

// sweepLoop periodically cancels stale orders.
func (a *App) sweepLoop(ctx context.Context) error {
	interval := a.cfg.Execution.SweepInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := a.manager.SweepStaleOrders(ctx, 0); n > 0 {
				logger.Infof("app: sweep cancelled %d stale orders", n)
			}
		}
	}
}

// applyReload picks up risk limit changes from a rewritten config
// file. Only the risk section is hot; everything else needs a restart.
func (a *App) applyReload(cfg *config.Config) {
	a.gate.UpdateLimits(risk.Limits{
		MaxSingleOrderValue: cfg.Risk.MaxSingleOrderValue,
		MaxPositionSize:     cfg.Risk.MaxPositionSize,
	})
}
