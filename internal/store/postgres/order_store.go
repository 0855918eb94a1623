package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

// OrderStore implements domain.OrderStore using PostgreSQL.
type OrderStore struct {
	pool *pgxpool.Pool
}

// NewOrderStore creates a new OrderStore backed by the given pool.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// Record inserts the outcome of one replicated order.
func (s *OrderStore) Record(ctx context.Context, rec domain.OrderRecord) error {
	makerAmount, takerAmount := rec.MakerAmount, rec.TakerAmount
	if makerAmount == "" {
		makerAmount = "0"
	}
	if takerAmount == "" {
		takerAmount = "0"
	}

	const query = `
		INSERT INTO copy_orders (
			pass_id, source_wallet, source_tx_hash, asset, condition_id,
			order_hash, maker, side, maker_amount, taker_amount,
			nonce, status, exchange_id, message
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9::text::numeric, $10::text::numeric,
			$11, $12, $13, $14
		)`

	_, err := s.pool.Exec(ctx, query,
		rec.PassID, walletKey(rec.SourceWallet), rec.SourceTxHash, rec.Asset, rec.ConditionID,
		rec.OrderHash, rec.Maker, rec.Side, makerAmount, takerAmount,
		int64(rec.Nonce), string(rec.Status), rec.ExchangeID, rec.Message,
	)
	if err != nil {
		return fmt.Errorf("postgres: record order %s: %w", rec.OrderHash, err)
	}
	return nil
}

// ReplicatedSources returns the source keys (domain.SourceKey) of every
// activity already copied from sourceWallet with a submitted order.
func (s *OrderStore) ReplicatedSources(ctx context.Context, sourceWallet string) (map[string]bool, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT source_tx_hash, asset FROM copy_orders
		WHERE source_wallet = $1 AND status = $2`,
		walletKey(sourceWallet), string(domain.OrderStatusSubmitted),
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: replicated sources for %s: %w", sourceWallet, err)
	}
	defer rows.Close()

	seen := make(map[string]bool)
	for rows.Next() {
		var txHash, asset string
		if err := rows.Scan(&txHash, &asset); err != nil {
			return nil, fmt.Errorf("postgres: scan replicated source: %w", err)
		}
		seen[domain.SourceKey(txHash, asset)] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: replicated source rows: %w", err)
	}
	return seen, nil
}

const orderSelectCols = `id, pass_id, source_wallet, source_tx_hash, asset, condition_id,
	order_hash, maker, side, maker_amount::text, taker_amount::text,
	nonce, status, exchange_id, message, created_at`

// ListRecent returns copy orders newest first.
func (s *OrderStore) ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.OrderRecord, error) {
	query := `SELECT ` + orderSelectCols + ` FROM copy_orders WHERE 1=1`
	args := []any{}
	argIdx := 1

	if opts.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY created_at DESC, id DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, limit)
	argIdx++
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list copy orders: %w", err)
	}
	defer rows.Close()

	var list []domain.OrderRecord
	for rows.Next() {
		var r domain.OrderRecord
		var nonce int64
		var status string
		if err := rows.Scan(&r.ID, &r.PassID, &r.SourceWallet, &r.SourceTxHash, &r.Asset, &r.ConditionID,
			&r.OrderHash, &r.Maker, &r.Side, &r.MakerAmount, &r.TakerAmount,
			&nonce, &status, &r.ExchangeID, &r.Message, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan copy order: %w", err)
		}
		r.Nonce = uint64(nonce)
		r.Status = domain.OrderStatus(status)
		list = append(list, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: copy order rows: %w", err)
	}
	return list, nil
}
