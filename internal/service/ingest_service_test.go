package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polycopy/internal/domain"
	"github.com/alanyoungcy/polycopy/internal/normalize"
)

func activityResult(tx string) normalize.Result[domain.ActivityRecord] {
	return normalize.Result[domain.ActivityRecord]{Value: domain.ActivityRecord{
		ProxyWallet:     target,
		Timestamp:       1700000000,
		ConditionID:     "c-" + tx,
		Type:            domain.ActivityTrade,
		TransactionHash: tx,
		Asset:           "1",
		Side:            domain.SideBuy,
	}}
}

func badResult[T any]() normalize.Result[T] {
	return normalize.Result[T]{Err: &domain.NormalizationError{Kind: "activity", Field: "timestamp", Reason: "missing"}}
}

type ingestHarness struct {
	data      *fakeTraderData
	activity  *fakeActivityStore
	positions *fakePositionStore
	stats     *fakeStatsStore
	archiver  *fakeArchiver
	svc       *IngestService
}

func newIngestHarness() *ingestHarness {
	h := &ingestHarness{
		data: &fakeTraderData{
			activity: []normalize.Result[domain.ActivityRecord]{
				activityResult("0x01"), activityResult("0x02"), badResult[domain.ActivityRecord](),
			},
			positions: []normalize.Result[domain.PositionRecord]{
				{Value: domain.PositionRecord{ProxyWallet: target, Asset: "1"}},
			},
			traded: normalize.Result[domain.TradedCount]{Value: domain.TradedCount{User: target, Traded: 4}},
			value:  normalize.Result[domain.ValueSnapshot]{Value: domain.ValueSnapshot{User: target, Value: 12.5}},
		},
		activity:  &fakeActivityStore{},
		positions: &fakePositionStore{},
		stats:     &fakeStatsStore{},
		archiver:  &fakeArchiver{},
	}
	h.svc = NewIngestService(h.data, h.activity, h.positions, h.stats, h.archiver, IngestConfig{}, discardLogger())
	return h
}

func TestIngestService_StoresEverySource(t *testing.T) {
	h := newIngestHarness()
	report, err := h.svc.StoreTraderData(context.Background(), target)
	require.NoError(t, err)

	assert.Equal(t, domain.IngestCounts{Fetched: 3, Dropped: 1, Inserted: 2}, report.Activity)
	assert.Equal(t, domain.IngestCounts{Fetched: 1, Inserted: 1}, report.Positions)
	assert.Equal(t, domain.IngestCounts{Fetched: 1, Inserted: 1}, report.Traded)
	assert.Equal(t, domain.IngestCounts{Fetched: 1, Inserted: 1}, report.Value)
	assert.Equal(t, 2, h.archiver.activity)
	assert.Len(t, h.stats.traded, 1)
	assert.Len(t, h.stats.values, 1)
}

func TestIngestService_IsIdempotent(t *testing.T) {
	h := newIngestHarness()
	_, err := h.svc.StoreTraderData(context.Background(), target)
	require.NoError(t, err)

	report, err := h.svc.StoreTraderData(context.Background(), target)
	require.NoError(t, err)
	assert.Zero(t, report.Activity.Inserted)
	assert.Equal(t, 2, report.Activity.Duplicates)
	assert.Len(t, h.activity.seen, 2)
}

func TestIngestService_SkipsFailedSources(t *testing.T) {
	h := newIngestHarness()
	h.data.activityErr = &domain.TransientFetchError{Source: "data-api/activity", StatusCode: 503}
	h.data.activity = nil
	h.data.valueErr = &domain.TransientFetchError{Source: "data-api/value", StatusCode: 500}

	report, err := h.svc.StoreTraderData(context.Background(), target)
	require.NoError(t, err)
	assert.True(t, report.Activity.Failed)
	assert.True(t, report.Value.Failed)
	assert.False(t, report.Positions.Failed)
	assert.Equal(t, 1, report.Positions.Inserted)
	assert.Equal(t, 1, report.Traded.Inserted)
}

func TestIngestService_KeepsPartialActivity(t *testing.T) {
	h := newIngestHarness()
	h.data.activityErr = &domain.TransientFetchError{Source: "data-api/activity", StatusCode: 429}

	report, err := h.svc.StoreTraderData(context.Background(), target)
	require.NoError(t, err)
	assert.False(t, report.Activity.Failed)
	assert.Equal(t, 2, report.Activity.Inserted)
}

func TestIngestService_CountsSkippedRows(t *testing.T) {
	h := newIngestHarness()
	h.activity.bad = map[string]bool{"0x02": true}
	h.stats.valueErr = &domain.PersistenceError{Table: "value_user", Key: target, Err: errors.New("check violation")}

	report, err := h.svc.StoreTraderData(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Activity.Inserted)
	assert.Equal(t, 1, report.Activity.Skipped)
	assert.Equal(t, 1, report.Value.Skipped)
	assert.False(t, report.Value.Failed)
}

func TestIngestService_DropsMalformedSnapshot(t *testing.T) {
	h := newIngestHarness()
	h.data.traded = badResult[domain.TradedCount]()

	report, err := h.svc.StoreTraderData(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Traded.Dropped)
	assert.Empty(t, h.stats.traded)
}

func TestIngestService_CancelledContext(t *testing.T) {
	h := newIngestHarness()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.svc.StoreTraderData(ctx, target)
	assert.ErrorIs(t, err, context.Canceled)
}
