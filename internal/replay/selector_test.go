package replay

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

// fakeReader mimics the store's cutoff filter but returns rows unordered.
type fakeReader struct {
	rows      []domain.ActivityRecord
	err       error
	gotCutoff int64
}

func (f *fakeReader) ListSince(_ context.Context, _ string, cutoff int64) ([]domain.ActivityRecord, error) {
	f.gotCutoff = cutoff
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.ActivityRecord
	for _, r := range f.rows {
		if r.Timestamp > cutoff {
			out = append(out, r)
		}
	}
	return out, nil
}

func row(condition string, side domain.Side, size float64, ts int64) domain.ActivityRecord {
	return domain.ActivityRecord{
		ProxyWallet:     "0xtarget",
		ConditionID:     condition,
		Type:            domain.ActivityTrade,
		Side:            side,
		Size:            size,
		Price:           0.42,
		Asset:           "tok-" + condition,
		TransactionHash: "0x" + condition,
		Timestamp:       ts,
	}
}

func newSelector(r ActivityReader, now time.Time) *Selector {
	return NewSelector(r, func() time.Time { return now }, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSelect_Scenario(t *testing.T) {
	now := utc(2026, 10, 17, 12, 0)
	t0 := now.Add(-30 * time.Minute).Unix()
	t1 := now.Add(-10 * time.Minute).Unix()

	reader := &fakeReader{rows: []domain.ActivityRecord{
		row("A", domain.SideBuy, 50, t0),
		row("B", domain.SideSell, 10, t1),
		row("A", domain.SideBuy, 80, t1),
	}}

	sel, err := newSelector(reader, now).Select(context.Background(), "0xtarget", domain.EpochHour)
	require.NoError(t, err)
	assert.Equal(t, now.Add(-time.Hour).Unix(), reader.gotCutoff)
	require.Len(t, sel.Candidates, 1)

	c := sel.Candidates[0]
	assert.Equal(t, "A", c.ConditionID)
	assert.True(t, c.Size.Equal(decimal.NewFromInt(80)))
	assert.Equal(t, domain.SideBuy, c.Side)
	assert.Equal(t, "0xtarget", c.SourceWallet)
}

func TestSelect_EmptyEpochIsNotAnError(t *testing.T) {
	now := utc(2026, 10, 17, 12, 0)
	reader := &fakeReader{rows: []domain.ActivityRecord{row("A", domain.SideBuy, 1, now.Add(-2*time.Hour).Unix())}}

	sel, err := newSelector(reader, now).Select(context.Background(), "0xtarget", domain.EpochHour)
	require.NoError(t, err)
	assert.Empty(t, sel.Candidates)
}

func TestSelect_StoreErrorPropagates(t *testing.T) {
	reader := &fakeReader{err: errors.New("connection refused")}
	_, err := newSelector(reader, time.Now()).Select(context.Background(), "0xtarget", domain.EpochDay)
	assert.ErrorContains(t, err, "connection refused")
}

func TestCandidates_OrderAndFilter(t *testing.T) {
	rows := []domain.ActivityRecord{
		row("A", domain.SideBuy, 1, 100),
		row("B", domain.SideBuy, 2, 300),
		row("C", domain.SideBuy, 3, 200),
		row("C", domain.SideBuy, 4, 150),
		row("D", domain.SideSell, 5, 400),
		row("E", domain.SideBuy, 6, 50),
	}
	redeem := row("F", domain.SideBuy, 7, 500)
	redeem.Type = domain.ActivityRedeem
	rows = append(rows, redeem)

	got := Candidates(rows, 50)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"B", "C", "A"}, []string{got[0].ConditionID, got[1].ConditionID, got[2].ConditionID})
	assert.True(t, got[1].Size.Equal(decimal.NewFromInt(3)))
}

func TestSelect_EpochMonotonicity(t *testing.T) {
	now := utc(2026, 3, 31, 12, 0)
	var rows []domain.ActivityRecord
	for i, age := range []time.Duration{
		10 * time.Minute, 5 * time.Hour, 20 * time.Hour, 10 * 24 * time.Hour,
		40 * 24 * time.Hour, 200 * 24 * time.Hour, 400 * 24 * time.Hour,
	} {
		rows = append(rows, row(string(rune('a'+i)), domain.SideBuy, 1, now.Add(-age).Unix()))
	}
	reader := &fakeReader{rows: rows}
	s := newSelector(reader, now)

	var prev map[string]bool
	for _, e := range []domain.Epoch{domain.EpochHour, domain.EpochDay, domain.EpochMonth, domain.EpochYear} {
		sel, err := s.Select(context.Background(), "0xtarget", e)
		require.NoError(t, err)
		set := map[string]bool{}
		for _, c := range sel.Candidates {
			set[c.ConditionID] = true
		}
		for k := range prev {
			assert.True(t, set[k], "%s result misses %s", e, k)
		}
		prev = set
	}
	assert.Len(t, prev, 6)
}
