package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/polycopy/internal/domain"
	"github.com/alanyoungcy/polycopy/internal/normalize"
)

// TraderData fetches and normalizes a wallet's records from the data API.
type TraderData interface {
	Activity(ctx context.Context, wallet string, pageSize, maxRecords int) ([]normalize.Result[domain.ActivityRecord], error)
	Positions(ctx context.Context, wallet string, limit int) ([]normalize.Result[domain.PositionRecord], error)
	Traded(ctx context.Context, wallet string) (normalize.Result[domain.TradedCount], error)
	Value(ctx context.Context, wallet string) (normalize.Result[domain.ValueSnapshot], error)
}

// IngestConfig bounds how much of a wallet's history is fetched per pass.
type IngestConfig struct {
	ActivityPageSize   int
	ActivityMaxRecords int
	PositionLimit      int
}

// IngestService stores a trader's activity, positions and stats snapshots.
type IngestService struct {
	data      TraderData
	activity  domain.ActivityStore
	positions domain.PositionStore
	stats     domain.TraderStatsStore
	archiver  domain.PassArchiver
	cfg       IngestConfig
	logger    *slog.Logger
}

// NewIngestService creates an IngestService. archiver may be nil.
func NewIngestService(
	data TraderData,
	activity domain.ActivityStore,
	positions domain.PositionStore,
	stats domain.TraderStatsStore,
	archiver domain.PassArchiver,
	cfg IngestConfig,
	logger *slog.Logger,
) *IngestService {
	if cfg.ActivityPageSize <= 0 {
		cfg.ActivityPageSize = 500
	}
	if cfg.PositionLimit <= 0 {
		cfg.PositionLimit = 500
	}
	return &IngestService{
		data:      data,
		activity:  activity,
		positions: positions,
		stats:     stats,
		archiver:  archiver,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "ingest")),
	}
}

// StoreTraderData fetches every source for wallet and persists what it can.
// A source that cannot be fetched is marked failed and skipped; malformed
// records are dropped and rejected rows skipped. Only context cancellation
// is returned as an error.
func (s *IngestService) StoreTraderData(ctx context.Context, wallet string) (domain.IngestReport, error) {
	var report domain.IngestReport

	steps := []struct {
		name string
		run  func(context.Context, string) (domain.IngestCounts, error)
		out  *domain.IngestCounts
	}{
		{"activity", s.storeActivity, &report.Activity},
		{"positions", s.storePositions, &report.Positions},
		{"traded", s.storeTraded, &report.Traded},
		{"value", s.storeValue, &report.Value},
	}
	for _, step := range steps {
		counts, err := step.run(ctx, wallet)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return report, fmt.Errorf("ingest: %s: %w", step.name, ctxErr)
			}
			counts.Failed = true
			s.logger.WarnContext(ctx, "ingest: source skipped",
				slog.String("source", step.name),
				slog.String("wallet", wallet),
				slog.String("error", err.Error()),
			)
		}
		*step.out = counts
	}

	s.logger.InfoContext(ctx, "ingest: trader data stored",
		slog.String("wallet", wallet),
		slog.Int("activity_inserted", report.Activity.Inserted),
		slog.Int("activity_duplicates", report.Activity.Duplicates),
		slog.Int("activity_skipped", report.Activity.Skipped),
		slog.Int("activity_dropped", report.Activity.Dropped),
		slog.Int("positions_inserted", report.Positions.Inserted),
	)
	return report, nil
}

func (s *IngestService) storeActivity(ctx context.Context, wallet string) (domain.IngestCounts, error) {
	results, err := s.data.Activity(ctx, wallet, s.cfg.ActivityPageSize, s.cfg.ActivityMaxRecords)
	counts := domain.IngestCounts{Fetched: len(results)}
	if err != nil && len(results) == 0 {
		return counts, err
	}
	if err != nil {
		// Keep the pages that did arrive.
		s.logger.WarnContext(ctx, "ingest: activity truncated",
			slog.String("wallet", wallet),
			slog.Int("fetched", len(results)),
			slog.String("error", err.Error()),
		)
	}

	records, dropped := normalize.Collect(ctx, results, s.logger)
	counts.Dropped = dropped
	if len(records) == 0 {
		return counts, nil
	}

	res, err := s.activity.UpsertBatch(ctx, records)
	applyUpsert(&counts, res)
	if err != nil {
		return counts, err
	}
	s.logSkipped(ctx, "activity", res)

	if s.archiver != nil {
		if key, err := s.archiver.ArchiveActivity(ctx, wallet, records); err != nil {
			s.logger.WarnContext(ctx, "ingest: archive activity failed",
				slog.String("wallet", wallet),
				slog.String("error", err.Error()),
			)
		} else {
			s.logger.DebugContext(ctx, "ingest: activity archived", slog.String("key", key))
		}
	}
	return counts, nil
}

func (s *IngestService) storePositions(ctx context.Context, wallet string) (domain.IngestCounts, error) {
	results, err := s.data.Positions(ctx, wallet, s.cfg.PositionLimit)
	if err != nil {
		return domain.IngestCounts{}, err
	}
	counts := domain.IngestCounts{Fetched: len(results)}
	records, dropped := normalize.Collect(ctx, results, s.logger)
	counts.Dropped = dropped
	if len(records) == 0 {
		return counts, nil
	}

	res, err := s.positions.InsertBatch(ctx, records)
	applyUpsert(&counts, res)
	if err != nil {
		return counts, err
	}
	s.logSkipped(ctx, "positions", res)
	return counts, nil
}

func (s *IngestService) storeTraded(ctx context.Context, wallet string) (domain.IngestCounts, error) {
	r, err := s.data.Traded(ctx, wallet)
	if err != nil {
		return domain.IngestCounts{}, err
	}
	counts := domain.IngestCounts{Fetched: 1}
	t, dropped := normalize.Collect(ctx, []normalize.Result[domain.TradedCount]{r}, s.logger)
	if dropped > 0 {
		counts.Dropped = dropped
		return counts, nil
	}
	return counts, s.insertSnapshot(ctx, &counts, func() error { return s.stats.InsertTraded(ctx, t[0]) })
}

func (s *IngestService) storeValue(ctx context.Context, wallet string) (domain.IngestCounts, error) {
	r, err := s.data.Value(ctx, wallet)
	if err != nil {
		return domain.IngestCounts{}, err
	}
	counts := domain.IngestCounts{Fetched: 1}
	v, dropped := normalize.Collect(ctx, []normalize.Result[domain.ValueSnapshot]{r}, s.logger)
	if dropped > 0 {
		counts.Dropped = dropped
		return counts, nil
	}
	return counts, s.insertSnapshot(ctx, &counts, func() error { return s.stats.InsertValue(ctx, v[0]) })
}

// insertSnapshot runs a single-row insert, counting a rejected row as skipped.
func (s *IngestService) insertSnapshot(ctx context.Context, counts *domain.IngestCounts, insert func() error) error {
	err := insert()
	if err == nil {
		counts.Inserted = 1
		return nil
	}
	var pe *domain.PersistenceError
	if errors.As(err, &pe) || ctx.Err() == nil {
		counts.Skipped = 1
		s.logger.WarnContext(ctx, "ingest: snapshot skipped", slog.String("error", err.Error()))
		return nil
	}
	return err
}

func (s *IngestService) logSkipped(ctx context.Context, source string, res domain.UpsertResult) {
	for _, err := range res.Errors {
		s.logger.WarnContext(ctx, "ingest: record skipped",
			slog.String("source", source),
			slog.String("error", err.Error()),
		)
	}
}

func applyUpsert(c *domain.IngestCounts, res domain.UpsertResult) {
	c.Inserted = res.Inserted
	c.Duplicates = res.Duplicates
	c.Skipped = res.Skipped
}
