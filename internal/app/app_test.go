package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polycopy/internal/domain"
	"github.com/alanyoungcy/polycopy/internal/normalize"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeStats struct {
	failWallet string
}

func (f fakeStats) Traded(_ context.Context, wallet string) (normalize.Result[domain.TradedCount], error) {
	if wallet == f.failWallet {
		return normalize.Result[domain.TradedCount]{}, errors.New("boom")
	}
	return normalize.Result[domain.TradedCount]{Value: domain.TradedCount{User: wallet, Traded: 12}}, nil
}

func (f fakeStats) Value(_ context.Context, wallet string) (normalize.Result[domain.ValueSnapshot], error) {
	return normalize.Result[domain.ValueSnapshot]{Value: domain.ValueSnapshot{User: wallet, Value: 2500.5}}, nil
}

type memStatsStore struct {
	traded []domain.TradedCount
	values []domain.ValueSnapshot
}

func (m *memStatsStore) InsertTraded(_ context.Context, t domain.TradedCount) error {
	m.traded = append(m.traded, t)
	return nil
}

func (m *memStatsStore) InsertValue(_ context.Context, v domain.ValueSnapshot) error {
	m.values = append(m.values, v)
	return nil
}

func (m *memStatsStore) LatestValue(_ context.Context, wallet string) (domain.ValueSnapshot, error) {
	for i := len(m.values) - 1; i >= 0; i-- {
		if m.values[i].User == wallet {
			return m.values[i], nil
		}
	}
	return domain.ValueSnapshot{}, domain.ErrNotFound
}

func TestStatsJob_Snapshot(t *testing.T) {
	store := &memStatsStore{}
	job := NewStatsJob(fakeStats{failWallet: "0xbad"}, store, []string{"0xaaa", "0xbad", "0xccc"}, testLogger)

	err := job.Snapshot(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "stats: traded 0xbad")

	require.Len(t, store.traded, 2)
	require.Len(t, store.values, 2)
	assert.Equal(t, "0xaaa", store.traded[0].User)
	assert.Equal(t, "0xccc", store.values[1].User)
	assert.Equal(t, 2500.5, store.values[1].Value)
}

func TestStatsJob_RunRejectsBadSpec(t *testing.T) {
	job := NewStatsJob(fakeStats{}, &memStatsStore{}, nil, testLogger)
	err := job.Run(context.Background(), "every tuesday")
	assert.ErrorContains(t, err, "stats: schedule")
}

func TestStatsJob_RunStopsOnCancel(t *testing.T) {
	store := &memStatsStore{}
	job := NewStatsJob(fakeStats{}, store, []string{"0xaaa"}, testLogger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- job.Run(ctx, "* * * * * *") }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("stats job did not stop")
	}
}

func TestWriteTraderTable(t *testing.T) {
	var buf bytes.Buffer
	err := writeTraderTable(&buf, []domain.ActiveTrader{
		{Trader: domain.Trader{ProxyWallet: "0xaaa", Name: "alice", Amount: 1234.5}, CurrentValue: 200000, Trades: 40},
		{Trader: domain.Trader{ProxyWallet: "0xbbb", Pseudonym: "Quiet-Otter", Amount: 99}, CurrentValue: 150000.25, Trades: 3},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "RANK"))
	assert.Contains(t, lines[1], "alice")
	assert.Contains(t, lines[1], "1234.50")
	assert.Contains(t, lines[2], "Quiet-Otter")
	assert.Contains(t, lines[2], "150000.25")
}

func TestWriteReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, domain.PassReport{Target: "0xaaa"}))
	assert.Contains(t, buf.String(), "0xaaa")
}

func TestLockKeyIsLowercased(t *testing.T) {
	assert.Equal(t, "copy:0xabcdef", lockKey("0xABCdef"))
}

func TestNeedsBackends(t *testing.T) {
	assert.True(t, needsBackends("copy"))
	assert.True(t, needsBackends("once"))
	assert.False(t, needsBackends("leaderboard"))
}

type countingLock struct {
	mu        sync.Mutex
	refreshes int
	lost      bool
	released  bool
}

func (l *countingLock) Refresh(context.Context, time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lost {
		return domain.ErrLockLost
	}
	l.refreshes++
	return nil
}

func (l *countingLock) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.released = true
}

func (l *countingLock) snapshot() (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.refreshes, l.released
}

type singleLock struct {
	lock *countingLock
	keys []string
}

func (s *singleLock) Acquire(_ context.Context, key string, _ time.Duration) (domain.Lock, error) {
	s.keys = append(s.keys, key)
	return s.lock, nil
}

type passFunc func(ctx context.Context) (domain.PassReport, error)

func (f passFunc) RunPass(ctx context.Context) (domain.PassReport, error) { return f(ctx) }

func TestRunLocked_RefreshesDuringSlowPass(t *testing.T) {
	lock := &countingLock{}
	locks := &singleLock{lock: lock}
	runner := passFunc(func(ctx context.Context) (domain.PassReport, error) {
		time.Sleep(200 * time.Millisecond)
		return domain.PassReport{Target: "0xaaa"}, ctx.Err()
	})

	report, err := runLocked(context.Background(), locks, "copy:0xabc", 60*time.Millisecond, runner, testLogger)
	require.NoError(t, err)
	assert.Equal(t, "0xaaa", report.Target)
	assert.Equal(t, []string{"copy:0xabc"}, locks.keys)

	refreshes, released := lock.snapshot()
	assert.GreaterOrEqual(t, refreshes, 3)
	assert.True(t, released)
}

func TestRunLocked_AbortsWhenLockLost(t *testing.T) {
	lock := &countingLock{lost: true}
	runner := passFunc(func(ctx context.Context) (domain.PassReport, error) {
		select {
		case <-ctx.Done():
			return domain.PassReport{}, ctx.Err()
		case <-time.After(2 * time.Second):
			return domain.PassReport{}, nil
		}
	})

	_, err := runLocked(context.Background(), &singleLock{lock: lock}, "copy:0xabc", 30*time.Millisecond, runner, testLogger)
	assert.ErrorIs(t, err, domain.ErrLockLost)
	_, released := lock.snapshot()
	assert.True(t, released)
}
