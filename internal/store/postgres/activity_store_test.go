package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

const wallet = "0x56687bf447db6ffa42ffe2204a05edaa20f55839"

func trade(tx, condition, asset string, side domain.Side, size float64, ts int64) domain.ActivityRecord {
	return domain.ActivityRecord{
		ProxyWallet:     wallet,
		Timestamp:       ts,
		ConditionID:     condition,
		Type:            domain.ActivityTrade,
		Size:            size,
		UsdcSize:        size / 2,
		TransactionHash: tx,
		Price:           0.5,
		Asset:           asset,
		Side:            side,
		Title:           "Will it rain?",
	}
}

func TestActivityStore_UpsertBatchIsIdempotent(t *testing.T) {
	client := setupTestDB(t)
	store := NewActivityStore(client.Pool())
	ctx := context.Background()

	batch := []domain.ActivityRecord{
		trade("0xaa01", "cond-a", "tok-a", domain.SideBuy, 50, 1000),
		trade("0xaa02", "cond-a", "tok-a", domain.SideBuy, 80, 2000),
	}

	first, err := store.UpsertBatch(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Inserted)
	assert.Zero(t, first.Duplicates)

	second, err := store.UpsertBatch(ctx, batch)
	require.NoError(t, err)
	assert.Zero(t, second.Inserted)
	assert.Equal(t, 2, second.Duplicates)
	assert.Zero(t, second.Skipped)

	rows, err := store.ListByWallet(ctx, wallet, domain.ListOpts{})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestActivityStore_WalletCaseIsNotPartOfIdentity(t *testing.T) {
	client := setupTestDB(t)
	store := NewActivityStore(client.Pool())
	ctx := context.Background()

	rec := trade("0xbb01", "cond-b", "tok-b", domain.SideBuy, 10, 1000)
	shouted := rec
	shouted.ProxyWallet = "0x56687BF447DB6FFA42FFE2204A05EDAA20F55839"

	res, err := store.UpsertBatch(ctx, []domain.ActivityRecord{shouted, rec})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, 1, res.Duplicates)

	rows, err := store.ListByWallet(ctx, shouted.ProxyWallet, domain.ListOpts{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, wallet, rows[0].ProxyWallet)
}

func TestActivityStore_UpsertBatchSkipsInvalidRows(t *testing.T) {
	client := setupTestDB(t)
	store := NewActivityStore(client.Pool())
	ctx := context.Background()

	badHash := trade("not-a-hash", "cond-a", "tok-a", domain.SideBuy, 1, 1000)
	longTitle := trade("0xbb02", "cond-b", "tok-b", domain.SideBuy, 1, 1000)
	longTitle.Title = strings.Repeat("x", 501)
	good := trade("0xbb03", "cond-c", "tok-c", domain.SideBuy, 1, 1000)

	res, err := store.UpsertBatch(ctx, []domain.ActivityRecord{badHash, longTitle, good})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, 2, res.Skipped)
	require.Len(t, res.Errors, 2)

	var perr *domain.PersistenceError
	require.True(t, errors.As(res.Errors[0], &perr))
	assert.Equal(t, "activity_user", perr.Table)
}

func TestActivityStore_ListSince(t *testing.T) {
	client := setupTestDB(t)
	store := NewActivityStore(client.Pool())
	ctx := context.Background()

	_, err := store.UpsertBatch(ctx, []domain.ActivityRecord{
		trade("0x01", "cond-a", "tok-a", domain.SideBuy, 50, 1000),
		trade("0x02", "cond-a", "tok-a", domain.SideBuy, 80, 2000),
		trade("0x03", "cond-b", "tok-b", domain.SideSell, 10, 2000),
		trade("0x04", "cond-c", "tok-c", domain.SideBuy, 5, 3000),
		trade("0x05", "cond-c", "tok-c", domain.SideSell, 5, 3500),
		trade("0x06", "cond-d", "tok-d", domain.SideBuy, 7, 100),
	})
	require.NoError(t, err)

	rows, err := store.ListSince(ctx, wallet, 500)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// BUY rows first, newest first; a BUY beats a later SELL in the same condition.
	assert.Equal(t, "cond-c", rows[0].ConditionID)
	assert.Equal(t, domain.SideBuy, rows[0].Side)
	assert.Equal(t, "cond-a", rows[1].ConditionID)
	assert.Equal(t, 80.0, rows[1].Size)
	assert.Equal(t, "cond-b", rows[2].ConditionID)
	assert.Equal(t, domain.SideSell, rows[2].Side)

	// Strictly greater than the cutoff.
	rows, err = store.ListSince(ctx, wallet, 3000)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, domain.SideSell, rows[0].Side)

	rows, err = store.ListSince(ctx, strings.ToUpper(wallet), 10_000)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestActivityStore_ListByWalletPaging(t *testing.T) {
	client := setupTestDB(t)
	store := NewActivityStore(client.Pool())
	ctx := context.Background()

	_, err := store.UpsertBatch(ctx, []domain.ActivityRecord{
		trade("0x11", "cond-a", "tok-a", domain.SideBuy, 1, 1000),
		trade("0x12", "cond-b", "tok-b", domain.SideBuy, 1, 2000),
		trade("0x13", "cond-c", "tok-c", domain.SideBuy, 1, 3000),
	})
	require.NoError(t, err)

	since := time.Unix(2000, 0)
	rows, err := store.ListByWallet(ctx, wallet, domain.ListOpts{Since: &since, Limit: 1})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(3000), rows[0].Timestamp)

	rows, err = store.ListByWallet(ctx, wallet, domain.ListOpts{Since: &since, Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(2000), rows[0].Timestamp)
}
