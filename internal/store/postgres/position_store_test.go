package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

func TestPositionStore_LatestPicksNewestSnapshot(t *testing.T) {
	client := setupTestDB(t)
	store := NewPositionStore(client.Pool())
	ctx := context.Background()

	older := domain.PositionRecord{ProxyWallet: wallet, Asset: "tok-a", ConditionID: "cond-a", Size: 10, CurPrice: 0.4}
	res, err := store.InsertBatch(ctx, []domain.PositionRecord{older})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)

	newer := older
	newer.Size = 25
	other := domain.PositionRecord{ProxyWallet: wallet, Asset: "tok-b", ConditionID: "cond-b", Size: 3}
	res, err = store.InsertBatch(ctx, []domain.PositionRecord{newer, other})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Inserted)

	latest, err := store.Latest(ctx, wallet)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "tok-a", latest[0].Asset)
	assert.Equal(t, 25.0, latest[0].Size)
	assert.False(t, latest[0].CapturedAt.IsZero())
}

func TestPositionStore_MissingAssetIsSkipped(t *testing.T) {
	client := setupTestDB(t)
	store := NewPositionStore(client.Pool())

	res, err := store.InsertBatch(context.Background(), []domain.PositionRecord{
		{ProxyWallet: wallet, ConditionID: "cond-a"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	assert.Zero(t, res.Inserted)
}

func TestTraderStatsStore(t *testing.T) {
	client := setupTestDB(t)
	store := NewTraderStatsStore(client.Pool())
	ctx := context.Background()

	_, err := store.LatestValue(ctx, wallet)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	require.NoError(t, store.InsertTraded(ctx, domain.TradedCount{User: wallet, Traded: 12}))
	require.NoError(t, store.InsertValue(ctx, domain.ValueSnapshot{User: wallet, Value: 100}))
	require.NoError(t, store.InsertValue(ctx, domain.ValueSnapshot{User: wallet, Value: 250.5}))

	v, err := store.LatestValue(ctx, wallet)
	require.NoError(t, err)
	assert.Equal(t, 250.5, v.Value)

	err = store.InsertTraded(ctx, domain.TradedCount{User: wallet, Traded: -1})
	var perr *domain.PersistenceError
	assert.True(t, errors.As(err, &perr))
}
