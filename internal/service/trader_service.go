package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/polycopy/internal/domain"
	"github.com/alanyoungcy/polycopy/internal/normalize"
)

// Leaderboard lists traders ranked by profit.
type Leaderboard interface {
	Profit(ctx context.Context, limit int) ([]normalize.Result[domain.Trader], error)
}

// TraderStats fetches per-wallet stats from the data API.
type TraderStats interface {
	Traded(ctx context.Context, wallet string) (normalize.Result[domain.TradedCount], error)
	Value(ctx context.Context, wallet string) (normalize.Result[domain.ValueSnapshot], error)
}

// DefaultValueThreshold is the minimum open position value of an active trader.
const DefaultValueThreshold = 100000.0

// TraderService ranks leaderboard traders by how active they currently are.
type TraderService struct {
	board  Leaderboard
	stats  TraderStats
	logger *slog.Logger
}

// NewTraderService creates a TraderService.
func NewTraderService(board Leaderboard, stats TraderStats, logger *slog.Logger) *TraderService {
	return &TraderService{
		board:  board,
		stats:  stats,
		logger: logger.With(slog.String("component", "traders")),
	}
}

// TopActiveTraders returns the leaderboard's top limit traders whose current
// value exceeds threshold, in leaderboard order. Entries whose stats cannot
// be fetched are skipped.
func (s *TraderService) TopActiveTraders(ctx context.Context, limit int, threshold float64) ([]domain.ActiveTrader, error) {
	results, err := s.board.Profit(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("traders: leaderboard: %w", err)
	}
	traders, _ := normalize.Collect(ctx, results, s.logger)

	active := make([]domain.ActiveTrader, 0, len(traders))
	for _, t := range traders {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("traders: %w", err)
		}
		at, ok := s.enrich(ctx, t)
		if !ok || at.CurrentValue <= threshold {
			continue
		}
		active = append(active, at)
	}
	return active, nil
}

func (s *TraderService) enrich(ctx context.Context, t domain.Trader) (domain.ActiveTrader, bool) {
	skip := func(what string, err error) (domain.ActiveTrader, bool) {
		s.logger.WarnContext(ctx, "traders: skipping entry",
			slog.String("wallet", t.ProxyWallet),
			slog.String("stat", what),
			slog.String("error", err.Error()),
		)
		return domain.ActiveTrader{}, false
	}

	value, err := s.stats.Value(ctx, t.ProxyWallet)
	if err == nil {
		err = value.Err
	}
	if err != nil {
		return skip("value", err)
	}
	traded, err := s.stats.Traded(ctx, t.ProxyWallet)
	if err == nil {
		err = traded.Err
	}
	if err != nil {
		return skip("traded", err)
	}
	return domain.ActiveTrader{
		Trader:       t,
		CurrentValue: value.Value.Value,
		Trades:       traded.Value.Traded,
	}, true
}

// ValidateTarget checks that wallet is one of the top limit active traders.
// The comparison ignores address case.
func (s *TraderService) ValidateTarget(ctx context.Context, wallet string, limit int, threshold float64) error {
	active, err := s.TopActiveTraders(ctx, limit, threshold)
	if err != nil {
		return err
	}
	for _, t := range active {
		if strings.EqualFold(t.ProxyWallet, wallet) {
			return nil
		}
	}
	return fmt.Errorf("traders: %s is not among the top %d active traders: %w", wallet, limit, ErrUnknownTarget)
}
