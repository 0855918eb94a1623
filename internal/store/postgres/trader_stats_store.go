package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

// TraderStatsStore implements domain.TraderStatsStore using PostgreSQL.
type TraderStatsStore struct {
	pool *pgxpool.Pool
}

// NewTraderStatsStore creates a new TraderStatsStore backed by the given pool.
func NewTraderStatsStore(pool *pgxpool.Pool) *TraderStatsStore {
	return &TraderStatsStore{pool: pool}
}

// InsertTraded appends a traded-count snapshot.
func (s *TraderStatsStore) InsertTraded(ctx context.Context, t domain.TradedCount) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO traded_user ("user", traded) VALUES ($1, $2)`, walletKey(t.User), t.Traded)
	if err != nil {
		if ctx.Err() == nil {
			return persistErr("traded_user", t.User, err)
		}
		return fmt.Errorf("postgres: insert traded %s: %w", t.User, err)
	}
	return nil
}

// InsertValue appends a value snapshot.
func (s *TraderStatsStore) InsertValue(ctx context.Context, v domain.ValueSnapshot) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO value_user ("user", value) VALUES ($1, $2)`, walletKey(v.User), v.Value)
	if err != nil {
		if ctx.Err() == nil {
			return persistErr("value_user", v.User, err)
		}
		return fmt.Errorf("postgres: insert value %s: %w", v.User, err)
	}
	return nil
}

// LatestValue returns the newest value snapshot for wallet.
func (s *TraderStatsStore) LatestValue(ctx context.Context, wallet string) (domain.ValueSnapshot, error) {
	var v domain.ValueSnapshot
	err := s.pool.QueryRow(ctx, `
		SELECT "user", value, captured_at FROM value_user
		WHERE "user" = $1
		ORDER BY captured_at DESC, id DESC LIMIT 1`, walletKey(wallet),
	).Scan(&v.User, &v.Value, &v.CapturedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ValueSnapshot{}, domain.ErrNotFound
		}
		return domain.ValueSnapshot{}, fmt.Errorf("postgres: latest value for %s: %w", wallet, err)
	}
	return v, nil
}
