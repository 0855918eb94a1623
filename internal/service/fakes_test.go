package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/polycopy/internal/domain"
	"github.com/alanyoungcy/polycopy/internal/normalize"
	"github.com/alanyoungcy/polycopy/internal/order"
	"github.com/alanyoungcy/polycopy/internal/replay"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeIngester struct {
	calls int
	err   error
}

func (f *fakeIngester) StoreTraderData(context.Context, string) (domain.IngestReport, error) {
	f.calls++
	return domain.IngestReport{Activity: domain.IngestCounts{Fetched: 3, Inserted: 3}}, f.err
}

type fakeSelector struct {
	candidates []domain.ReplayCandidate
	err        error
}

func (f *fakeSelector) Select(context.Context, string, domain.Epoch) (replay.Selection, error) {
	return replay.Selection{Candidates: f.candidates}, f.err
}

type fakeCollateral struct {
	available decimal.Decimal
	err       error
}

func (f fakeCollateral) Collateral(context.Context) (decimal.Decimal, error) {
	return f.available, f.err
}

type builtOrder struct {
	asset   string
	size    decimal.Decimal
	negRisk bool
}

type fakeBuilder struct {
	fail  map[string]error
	built []builtOrder
}

func (f *fakeBuilder) Maker() string { return "0x00000000000000000000000000000000000000aa" }

func (f *fakeBuilder) Build(_ context.Context, c domain.ReplayCandidate, size decimal.Decimal, opts order.Options) (domain.SignedOrder, error) {
	if err := f.fail[c.Asset]; err != nil {
		return domain.SignedOrder{}, err
	}
	f.built = append(f.built, builtOrder{asset: c.Asset, size: size, negRisk: opts.NegRisk})
	return domain.SignedOrder{
		OrderRequest: domain.OrderRequest{
			TokenID:     c.Asset,
			Maker:       f.Maker(),
			Side:        domain.OrderSideFor(c.Side),
			MakerAmount: order.BaseUnits(size),
			TakerAmount: big.NewInt(0),
			Nonce:       uint64(len(f.built)),
		},
		Hash: "0xhash-" + c.Asset,
	}, nil
}

type fakeSubmitter struct {
	results map[string]domain.OrderResult
	err     error
	posted  []domain.SignedOrder
	types   []domain.OrderType
}

func (f *fakeSubmitter) PostOrder(_ context.Context, o domain.SignedOrder, t domain.OrderType) (domain.OrderResult, error) {
	f.posted = append(f.posted, o)
	f.types = append(f.types, t)
	if f.err != nil {
		return domain.OrderResult{}, f.err
	}
	if res, ok := f.results[o.TokenID]; ok {
		return res, nil
	}
	return domain.OrderResult{Success: true, OrderID: "ex-" + o.TokenID, Status: "live"}, nil
}

type fakeRouter map[string]bool

func (f fakeRouter) NegRisk(_ context.Context, conditionID string) (bool, error) {
	v, ok := f[conditionID]
	if !ok {
		return false, domain.ErrNotFound
	}
	return v, nil
}

type fakeOrders struct {
	mu         sync.Mutex
	records    []domain.OrderRecord
	replicated map[string]bool
}

func (f *fakeOrders) Record(_ context.Context, rec domain.OrderRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeOrders) ReplicatedSources(context.Context, string) (map[string]bool, error) {
	return f.replicated, nil
}

func (f *fakeOrders) ListRecent(context.Context, domain.ListOpts) ([]domain.OrderRecord, error) {
	return f.records, nil
}

type fakeAudit struct {
	events []string
}

func (f *fakeAudit) Log(_ context.Context, event string, _ map[string]any) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeAudit) List(context.Context, string, domain.ListOpts) ([]domain.AuditEntry, error) {
	return nil, nil
}

type fakeBus struct {
	channels []string
}

func (f *fakeBus) Publish(_ context.Context, channel string, _ []byte) error {
	f.channels = append(f.channels, channel)
	return nil
}

func (f *fakeBus) Subscribe(context.Context, string) (<-chan []byte, error) {
	return nil, errors.New("not supported")
}

type fakeNotifier struct {
	events []string
}

func (f *fakeNotifier) Notify(_ context.Context, event, _, _ string) error {
	f.events = append(f.events, event)
	return nil
}

type fakeArchiver struct {
	passes   []domain.PassReport
	activity int
}

func (f *fakeArchiver) ArchivePass(_ context.Context, r domain.PassReport) (string, error) {
	f.passes = append(f.passes, r)
	return "passes/" + r.ID + ".json", nil
}

func (f *fakeArchiver) ArchiveActivity(_ context.Context, _ string, records []domain.ActivityRecord) (string, error) {
	f.activity += len(records)
	return "activity.jsonl", nil
}

// Ingest fakes.

type fakeTraderData struct {
	activity    []normalize.Result[domain.ActivityRecord]
	activityErr error
	positions   []normalize.Result[domain.PositionRecord]
	traded      normalize.Result[domain.TradedCount]
	value       normalize.Result[domain.ValueSnapshot]
	valueErr    error
	tradedErr   error
	values      map[string]float64
}

func (f *fakeTraderData) Activity(context.Context, string, int, int) ([]normalize.Result[domain.ActivityRecord], error) {
	return f.activity, f.activityErr
}

func (f *fakeTraderData) Positions(context.Context, string, int) ([]normalize.Result[domain.PositionRecord], error) {
	return f.positions, nil
}

func (f *fakeTraderData) Traded(_ context.Context, wallet string) (normalize.Result[domain.TradedCount], error) {
	if f.values != nil {
		return normalize.Result[domain.TradedCount]{Value: domain.TradedCount{User: wallet, Traded: 7}}, f.tradedErr
	}
	return f.traded, f.tradedErr
}

func (f *fakeTraderData) Value(_ context.Context, wallet string) (normalize.Result[domain.ValueSnapshot], error) {
	if f.values != nil {
		v, ok := f.values[wallet]
		if !ok {
			return normalize.Result[domain.ValueSnapshot]{}, &domain.TransientFetchError{Source: "data-api/value", StatusCode: 500}
		}
		return normalize.Result[domain.ValueSnapshot]{Value: domain.ValueSnapshot{User: wallet, Value: v}}, nil
	}
	return f.value, f.valueErr
}

type fakeActivityStore struct {
	seen map[string]bool
	bad  map[string]bool
}

func (f *fakeActivityStore) UpsertBatch(ctx context.Context, records []domain.ActivityRecord) (domain.UpsertResult, error) {
	var res domain.UpsertResult
	if f.seen == nil {
		f.seen = make(map[string]bool)
	}
	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if f.bad[r.TransactionHash] {
			res.Skipped++
			res.Errors = append(res.Errors, &domain.PersistenceError{Table: "activity_user", Key: r.NaturalKey(), Err: errors.New("check violation")})
			continue
		}
		if f.seen[r.NaturalKey()] {
			res.Duplicates++
			continue
		}
		f.seen[r.NaturalKey()] = true
		res.Inserted++
	}
	return res, nil
}

func (f *fakeActivityStore) ListSince(context.Context, string, int64) ([]domain.ActivityRecord, error) {
	return nil, nil
}

func (f *fakeActivityStore) ListByWallet(context.Context, string, domain.ListOpts) ([]domain.ActivityRecord, error) {
	return nil, nil
}

type fakePositionStore struct {
	inserted int
}

func (f *fakePositionStore) InsertBatch(_ context.Context, records []domain.PositionRecord) (domain.UpsertResult, error) {
	f.inserted += len(records)
	return domain.UpsertResult{Inserted: len(records)}, nil
}

func (f *fakePositionStore) Latest(context.Context, string) ([]domain.PositionRecord, error) {
	return nil, nil
}

type fakeStatsStore struct {
	traded   []domain.TradedCount
	values   []domain.ValueSnapshot
	valueErr error
}

func (f *fakeStatsStore) InsertTraded(_ context.Context, t domain.TradedCount) error {
	f.traded = append(f.traded, t)
	return nil
}

func (f *fakeStatsStore) InsertValue(_ context.Context, v domain.ValueSnapshot) error {
	if f.valueErr != nil {
		return f.valueErr
	}
	f.values = append(f.values, v)
	return nil
}

func (f *fakeStatsStore) LatestValue(context.Context, string) (domain.ValueSnapshot, error) {
	return domain.ValueSnapshot{}, domain.ErrNotFound
}

type fakeLeaderboard struct {
	traders []normalize.Result[domain.Trader]
	err     error
	limit   int
}

func (f *fakeLeaderboard) Profit(_ context.Context, limit int) ([]normalize.Result[domain.Trader], error) {
	f.limit = limit
	return f.traders, f.err
}
