package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/polycopy/internal/domain"
	"github.com/alanyoungcy/polycopy/internal/executor"
	"github.com/alanyoungcy/polycopy/internal/replay"
	"github.com/alanyoungcy/polycopy/internal/server"
	"github.com/alanyoungcy/polycopy/internal/server/handler"
	"github.com/alanyoungcy/polycopy/internal/server/ws"
	"github.com/alanyoungcy/polycopy/internal/service"
	"github.com/alanyoungcy/polycopy/internal/sizing"
)

// CopyMode runs copy passes in a loop, alongside the HTTP API and the stats
// cron when enabled.
func (a *App) CopyMode(ctx context.Context, deps *Dependencies) error {
	copySvc, t, err := a.buildCopy(ctx, deps)
	if err != nil {
		return fmt.Errorf("copy mode: %w", err)
	}

	loop := executor.NewLoop(copySvc, deps.LockManager, deps.Notifier, executor.Config{
		Interval: a.cfg.Copy.Interval(),
		Backoff: executor.Backoff{
			Initial: a.cfg.Copy.BackoffInitial.Duration,
			Max:     a.cfg.Copy.BackoffMax.Duration,
			Factor:  a.cfg.Copy.BackoffFactor,
		},
		AlertAfter: a.cfg.Copy.AlertAfterFailures,
		LockKey:    lockKey(t.signer.Address().Hex()),
		LockTTL:    a.cfg.Copy.LockTTL.Duration,
	}, a.logger)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := loop.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("copy loop: %w", err)
	})

	if a.cfg.Stats.Enabled {
		job := NewStatsJob(deps.Data, deps.StatsStore, []string{strings.ToLower(a.cfg.Copy.Target)}, a.logger)
		g.Go(func() error { return job.Run(ctx, a.cfg.Stats.Cron) })
	}

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, loop)
	}

	return g.Wait()
}

// OnceMode runs a single pass under the signer lock and prints its report
// as JSON.
func (a *App) OnceMode(ctx context.Context, deps *Dependencies) error {
	copySvc, t, err := a.buildCopy(ctx, deps)
	if err != nil {
		return fmt.Errorf("once mode: %w", err)
	}

	report, err := runLocked(ctx, deps.LockManager, lockKey(t.signer.Address().Hex()), a.cfg.Copy.LockTTL.Duration, copySvc, a.logger)
	if err != nil {
		return fmt.Errorf("once mode: %w", err)
	}
	return writeReport(a.out, report)
}

// LeaderboardMode prints the currently active top traders.
func (a *App) LeaderboardMode(ctx context.Context, deps *Dependencies) error {
	traders := service.NewTraderService(deps.Leaderboard, deps.Data, a.logger)
	active, err := traders.TopActiveTraders(ctx, a.cfg.Copy.TopTradersLimit, a.cfg.Copy.ValueThreshold)
	if err != nil {
		return fmt.Errorf("leaderboard mode: %w", err)
	}
	return writeTraderTable(a.out, active)
}

// buildCopy validates the target if configured and assembles the copy
// service from the wired dependencies.
func (a *App) buildCopy(ctx context.Context, deps *Dependencies) (*service.CopyService, *trading, error) {
	c := a.cfg.Copy
	target := strings.ToLower(c.Target)

	if c.ValidateTarget {
		traders := service.NewTraderService(deps.Leaderboard, deps.Data, a.logger)
		if err := traders.ValidateTarget(ctx, target, c.TopTradersLimit, c.ValueThreshold); err != nil {
			return nil, nil, err
		}
	}

	epoch, err := domain.ParseEpoch(c.Epoch)
	if err != nil {
		return nil, nil, err
	}
	budget, err := sizing.ParseBudgetMode(c.BudgetMode)
	if err != nil {
		return nil, nil, err
	}

	t, closeTrading, err := wireTrading(ctx, a.cfg, deps, a.logger)
	if err != nil {
		return nil, nil, err
	}
	a.closers = append(a.closers, closeTrading)

	ingest := service.NewIngestService(deps.Data, deps.ActivityStore, deps.PositionStore, deps.StatsStore, deps.Archiver,
		service.IngestConfig{
			ActivityPageSize:   c.ActivityPageSize,
			ActivityMaxRecords: c.ActivityMaxRecords,
			PositionLimit:      c.PositionLimit,
		}, a.logger)

	cd := service.CopyDeps{
		Ingester:   ingest,
		Selector:   replay.NewSelector(deps.ActivityStore, nil, a.logger),
		Collateral: t.collateral,
		Builder:    t.builder,
		Submitter:  t.clob,
		Orders:     deps.OrderStore,
		Audit:      deps.AuditStore,
		Bus:        deps.SignalBus,
		Archiver:   deps.Archiver,
		Notifier:   deps.Notifier,
	}
	if deps.Gamma != nil {
		cd.Router = deps.Gamma
	}

	svc, err := service.NewCopyService(cd, service.CopyConfig{
		Target:         target,
		Epoch:          epoch,
		OrderType:      domain.OrderType(strings.ToUpper(c.OrderType)),
		BudgetMode:     budget,
		DryRun:         c.DryRun,
		SkipReplicated: c.SkipReplicated,
	}, a.logger)
	if err != nil {
		return nil, nil, err
	}

	a.logger.InfoContext(ctx, "copy configured",
		slog.String("target", target),
		slog.String("epoch", epoch.String()),
		slog.String("maker", t.builder.Maker()),
		slog.String("budget_mode", string(budget)),
		slog.Bool("dry_run", c.DryRun),
	)
	return svc, t, nil
}

// startHTTPServer adds the API server and websocket hub to g. The server is
// shut down gracefully when ctx is cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, loop *executor.Loop) {
	hub := ws.NewHub(deps.SignalBus, a.logger, ws.Config{
		Mode:      a.cfg.Mode,
		Target:    a.cfg.Copy.Target,
		StartedAt: time.Now().UTC(),
		Status:    func() any { return loop.Status() },
	})
	g.Go(func() error {
		if err := hub.Run(ctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	traders := service.NewTraderService(deps.Leaderboard, deps.Data, a.logger)
	handlers := server.Handlers{
		Health:    handler.NewHealthHandler(deps.Pingers, a.logger),
		Status:    handler.NewStatusHandler(a.cfg.Mode, a.cfg.Copy.Target, a.cfg.Copy.Epoch, a.cfg.Copy.DryRun, loop),
		Activity:  handler.NewActivityHandler(deps.ActivityStore, a.logger),
		Positions: handler.NewPositionHandler(deps.PositionStore, a.logger),
		Orders:    handler.NewOrderHandler(deps.OrderStore, deps.AuditStore, a.logger),
		Traders:   handler.NewTraderHandler(traders, a.cfg.Copy.ValueThreshold, a.logger),
	}
	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  time.Second,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

// runLocked runs one pass while holding key, refreshing the lease for as long
// as the pass runs.
func runLocked(ctx context.Context, locks domain.LockManager, key string, ttl time.Duration, runner executor.PassRunner, logger *slog.Logger) (domain.PassReport, error) {
	lock, err := locks.Acquire(ctx, key, ttl)
	if err != nil {
		return domain.PassReport{}, err
	}
	defer lock.Release()

	passCtx, stop := executor.Keepalive(ctx, lock, ttl, logger)
	defer stop()

	report, err := runner.RunPass(passCtx)
	if err != nil {
		if cause := context.Cause(passCtx); errors.Is(cause, domain.ErrLockLost) {
			return report, fmt.Errorf("pass aborted: %w", cause)
		}
		return report, err
	}
	return report, nil
}

// lockKey is the per-signer lock that keeps one loop per signing key.
func lockKey(signer string) string {
	return "copy:" + strings.ToLower(signer)
}

func writeReport(w io.Writer, report domain.PassReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func writeTraderTable(w io.Writer, traders []domain.ActiveTrader) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tWALLET\tNAME\tPROFIT\tVALUE\tTRADES")
	for i, t := range traders {
		name := t.Name
		if name == "" {
			name = t.Pseudonym
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.2f\t%.2f\t%d\n",
			i+1, t.ProxyWallet, name, t.Amount, t.CurrentValue, t.Trades)
	}
	return tw.Flush()
}
