package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

// PositionStore implements domain.PositionStore using PostgreSQL.
type PositionStore struct {
	pool *pgxpool.Pool
}

// NewPositionStore creates a new PositionStore backed by the given pool.
func NewPositionStore(pool *pgxpool.Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

const positionCols = `proxy_wallet, asset, condition_id, size, avg_price,
	initial_value, current_value, cash_pnl, percent_pnl, total_bought,
	realized_pnl, percent_realized_pnl, cur_price, redeemable, mergeable,
	title, slug, icon, event_slug, outcome, outcome_index,
	opposite_outcome, opposite_asset, end_date, negative_risk`

// InsertBatch appends one snapshot row per record. Failed rows are skipped.
func (s *PositionStore) InsertBatch(ctx context.Context, records []domain.PositionRecord) (domain.UpsertResult, error) {
	const query = `INSERT INTO user_position (` + positionCols + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24, $25)`

	var res domain.UpsertResult
	for _, p := range records {
		_, err := s.pool.Exec(ctx, query,
			walletKey(p.ProxyWallet), p.Asset, p.ConditionID, p.Size, p.AvgPrice,
			p.InitialValue, p.CurrentValue, p.CashPnl, p.PercentPnl, p.TotalBought,
			p.RealizedPnl, p.PercentRealizedPnl, p.CurPrice, p.Redeemable, p.Mergeable,
			p.Title, p.Slug, p.Icon, p.EventSlug, p.Outcome, p.OutcomeIndex,
			p.OppositeOutcome, p.OppositeAsset, p.EndDate, p.NegativeRisk,
		)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, fmt.Errorf("postgres: insert positions: %w", ctxErr)
			}
			res.Skipped++
			res.Errors = append(res.Errors, persistErr("user_position", p.ProxyWallet+"|"+p.Asset, err))
			continue
		}
		res.Inserted++
	}
	return res, nil
}

// Latest returns the most recent snapshot of each asset held by wallet.
func (s *PositionStore) Latest(ctx context.Context, wallet string) ([]domain.PositionRecord, error) {
	query := `
		SELECT DISTINCT ON (asset) id, ` + positionCols + `, captured_at
		FROM user_position
		WHERE proxy_wallet = $1
		ORDER BY asset, captured_at DESC, id DESC`

	rows, err := s.pool.Query(ctx, query, walletKey(wallet))
	if err != nil {
		return nil, fmt.Errorf("postgres: latest positions for %s: %w", wallet, err)
	}
	defer rows.Close()

	var list []domain.PositionRecord
	for rows.Next() {
		var p domain.PositionRecord
		if err := rows.Scan(&p.ID,
			&p.ProxyWallet, &p.Asset, &p.ConditionID, &p.Size, &p.AvgPrice,
			&p.InitialValue, &p.CurrentValue, &p.CashPnl, &p.PercentPnl, &p.TotalBought,
			&p.RealizedPnl, &p.PercentRealizedPnl, &p.CurPrice, &p.Redeemable, &p.Mergeable,
			&p.Title, &p.Slug, &p.Icon, &p.EventSlug, &p.Outcome, &p.OutcomeIndex,
			&p.OppositeOutcome, &p.OppositeAsset, &p.EndDate, &p.NegativeRisk,
			&p.CapturedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan position: %w", err)
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: position rows: %w", err)
	}
	return list, nil
}
