package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

// ActivityStore implements domain.ActivityStore using PostgreSQL.
type ActivityStore struct {
	pool *pgxpool.Pool
}

// NewActivityStore creates a new ActivityStore backed by the given pool.
func NewActivityStore(pool *pgxpool.Pool) *ActivityStore {
	return &ActivityStore{pool: pool}
}

const activitySelectCols = `proxy_wallet, timestamp, condition_id, type, size, usdc_size,
	transaction_hash, price, asset, side, outcome_index,
	title, slug, icon, event_slug, outcome,
	name, pseudonym, bio, profile_image, profile_image_optimized`

const insertActivity = `
	INSERT INTO activity_user (` + activitySelectCols + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	ON CONFLICT (proxy_wallet, transaction_hash, asset) DO NOTHING`

// UpsertBatch writes each record in its own statement. Rows that already
// exist under their natural key are counted as duplicates; rows the database
// refuses are counted as skipped and described in the result's Errors. Only a
// cancelled context aborts the batch.
func (s *ActivityStore) UpsertBatch(ctx context.Context, records []domain.ActivityRecord) (domain.UpsertResult, error) {
	var res domain.UpsertResult
	for _, r := range records {
		tag, err := s.pool.Exec(ctx, insertActivity,
			walletKey(r.ProxyWallet), r.Timestamp, r.ConditionID, string(r.Type), r.Size, r.UsdcSize,
			r.TransactionHash, r.Price, r.Asset, string(r.Side), r.OutcomeIndex,
			r.Title, r.Slug, r.Icon, r.EventSlug, r.Outcome,
			r.Name, r.Pseudonym, r.Bio, r.ProfileImage, r.ProfileImageOptimized,
		)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, fmt.Errorf("postgres: upsert activity: %w", ctxErr)
			}
			res.Skipped++
			res.Errors = append(res.Errors, persistErr("activity_user", r.NaturalKey(), err))
			continue
		}
		if tag.RowsAffected() == 0 {
			res.Duplicates++
		} else {
			res.Inserted++
		}
	}
	return res, nil
}

// ListSince returns, for each condition traded by wallet after cutoff, the
// row that best represents the wallet's current intent: a BUY wins over other
// sides, then the latest timestamp. BUY rows come first, newest first.
func (s *ActivityStore) ListSince(ctx context.Context, wallet string, cutoff int64) ([]domain.ActivityRecord, error) {
	query := `
		SELECT ` + activitySelectCols + ` FROM (
			SELECT DISTINCT ON (condition_id) ` + activitySelectCols + `, id
			FROM activity_user
			WHERE proxy_wallet = $1 AND timestamp > $2
			ORDER BY condition_id, (side = 'BUY') DESC, timestamp DESC, id DESC
		) latest
		ORDER BY (side = 'BUY') DESC, timestamp DESC, id DESC`

	rows, err := s.pool.Query(ctx, query, walletKey(wallet), cutoff)
	if err != nil {
		return nil, fmt.Errorf("postgres: list activity since %d: %w", cutoff, err)
	}
	return scanActivityRows(rows)
}

// ListByWallet returns a wallet's activity newest first. ListOpts.Since and
// Until bound the activity timestamp.
func (s *ActivityStore) ListByWallet(ctx context.Context, wallet string, opts domain.ListOpts) ([]domain.ActivityRecord, error) {
	query := `SELECT ` + activitySelectCols + ` FROM activity_user WHERE proxy_wallet = $1`
	args := []any{walletKey(wallet)}
	argIdx := 2

	if opts.Since != nil {
		query += fmt.Sprintf(" AND timestamp >= $%d", argIdx)
		args = append(args, opts.Since.Unix())
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND timestamp <= $%d", argIdx)
		args = append(args, opts.Until.Unix())
		argIdx++
	}

	query += " ORDER BY timestamp DESC, id DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list activity for %s: %w", wallet, err)
	}
	return scanActivityRows(rows)
}

func scanActivityRows(rows pgx.Rows) ([]domain.ActivityRecord, error) {
	defer rows.Close()

	var list []domain.ActivityRecord
	for rows.Next() {
		var r domain.ActivityRecord
		var typ, side string
		if err := rows.Scan(
			&r.ProxyWallet, &r.Timestamp, &r.ConditionID, &typ, &r.Size, &r.UsdcSize,
			&r.TransactionHash, &r.Price, &r.Asset, &side, &r.OutcomeIndex,
			&r.Title, &r.Slug, &r.Icon, &r.EventSlug, &r.Outcome,
			&r.Name, &r.Pseudonym, &r.Bio, &r.ProfileImage, &r.ProfileImageOptimized,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan activity: %w", err)
		}
		r.Type = domain.ActivityType(typ)
		r.Side = domain.Side(side)
		list = append(list, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: activity rows: %w", err)
	}
	return list, nil
}

func persistErr(table, key string, err error) error {
	if isConstraintViolation(err) {
		err = fmt.Errorf("violates %s: %w", constraintName(err), err)
	}
	return &domain.PersistenceError{Table: table, Key: key, Err: err}
}

// walletKey is the stored form of an address: trimmed and lowercased, so
// lookups and the natural key ignore the casing the API happened to return.
func walletKey(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
