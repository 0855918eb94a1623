package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// UpsertResult reports the outcome of a best-effort batch write. Skipped rows
// failed individually and are described in Errors; Duplicates already
// existed under their natural key.
type UpsertResult struct {
	Inserted   int
	Duplicates int
	Skipped    int
	Errors     []error
}

// Add folds another result into r.
func (r *UpsertResult) Add(o UpsertResult) {
	r.Inserted += o.Inserted
	r.Duplicates += o.Duplicates
	r.Skipped += o.Skipped
	r.Errors = append(r.Errors, o.Errors...)
}

// ActivityStore persists the append-only activity ledger.
type ActivityStore interface {
	UpsertBatch(ctx context.Context, records []ActivityRecord) (UpsertResult, error)
	ListSince(ctx context.Context, wallet string, cutoff int64) ([]ActivityRecord, error)
	ListByWallet(ctx context.Context, wallet string, opts ListOpts) ([]ActivityRecord, error)
}

// PositionStore persists position snapshots.
type PositionStore interface {
	InsertBatch(ctx context.Context, records []PositionRecord) (UpsertResult, error)
	Latest(ctx context.Context, wallet string) ([]PositionRecord, error)
}

// TraderStatsStore persists traded-count and value snapshots.
type TraderStatsStore interface {
	InsertTraded(ctx context.Context, t TradedCount) error
	InsertValue(ctx context.Context, v ValueSnapshot) error
	LatestValue(ctx context.Context, wallet string) (ValueSnapshot, error)
}

// OrderStore records the outcome of every replicated order.
type OrderStore interface {
	Record(ctx context.Context, rec OrderRecord) error
	ReplicatedSources(ctx context.Context, sourceWallet string) (map[string]bool, error)
	ListRecent(ctx context.Context, opts ListOpts) ([]OrderRecord, error)
}

// SourceKey identifies the activity a copy order was replicated from.
func SourceKey(txHash, asset string) string {
	return txHash + "|" + asset
}

// AuditEntry is one row of the audit log.
type AuditEntry struct {
	ID        int64          `json:"id"`
	Event     string         `json:"event"`
	Detail    map[string]any `json:"detail"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Event names used by the copy pipeline.
const (
	AuditPassCompleted = "pass_completed"
	AuditPassFailed    = "pass_failed"
	AuditOrder         = "order"
)

// AuditStore appends operational events.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, event string, opts ListOpts) ([]AuditEntry, error)
}
