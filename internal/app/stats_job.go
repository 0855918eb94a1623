package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/alanyoungcy/polycopy/internal/domain"
	"github.com/alanyoungcy/polycopy/internal/service"
)

// StatsJob snapshots the traded count and position value of a set of
// wallets on a cron schedule, independently of the copy passes.
type StatsJob struct {
	stats   service.TraderStats
	store   domain.TraderStatsStore
	wallets []string
	logger  *slog.Logger
}

// NewStatsJob creates a StatsJob for wallets.
func NewStatsJob(stats service.TraderStats, store domain.TraderStatsStore, wallets []string, logger *slog.Logger) *StatsJob {
	return &StatsJob{
		stats:   stats,
		store:   store,
		wallets: wallets,
		logger:  logger.With(slog.String("component", "stats")),
	}
}

// Snapshot stores one traded and one value snapshot per wallet. Every
// wallet is attempted; the failures are joined.
func (j *StatsJob) Snapshot(ctx context.Context) error {
	var errs []error
	for _, w := range j.wallets {
		if err := j.snapshotWallet(ctx, w); err != nil {
			j.logger.WarnContext(ctx, "stats: snapshot failed",
				slog.String("wallet", w),
				slog.String("error", err.Error()),
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (j *StatsJob) snapshotWallet(ctx context.Context, wallet string) error {
	traded, err := j.stats.Traded(ctx, wallet)
	if err == nil {
		err = traded.Err
	}
	if err != nil {
		return fmt.Errorf("stats: traded %s: %w", wallet, err)
	}
	if err := j.store.InsertTraded(ctx, traded.Value); err != nil {
		return fmt.Errorf("stats: store traded %s: %w", wallet, err)
	}

	value, err := j.stats.Value(ctx, wallet)
	if err == nil {
		err = value.Err
	}
	if err != nil {
		return fmt.Errorf("stats: value %s: %w", wallet, err)
	}
	if err := j.store.InsertValue(ctx, value.Value); err != nil {
		return fmt.Errorf("stats: store value %s: %w", wallet, err)
	}

	j.logger.DebugContext(ctx, "stats: snapshot stored",
		slog.String("wallet", wallet),
		slog.Int("traded", traded.Value.Traded),
		slog.Float64("value", value.Value.Value),
	)
	return nil
}

// Run schedules Snapshot with spec (six fields, seconds first) and blocks
// until ctx is cancelled. Runs never overlap.
func (j *StatsJob) Run(ctx context.Context, spec string) error {
	c := cron.New(
		cron.WithSeconds(),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := c.AddFunc(spec, func() { _ = j.Snapshot(ctx) }); err != nil {
		return fmt.Errorf("stats: schedule %q: %w", spec, err)
	}

	c.Start()
	j.logger.InfoContext(ctx, "stats: cron started", slog.String("spec", spec))

	<-ctx.Done()
	<-c.Stop().Done()
	j.logger.Info("stats: cron stopped")
	return nil
}
