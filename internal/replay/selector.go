package replay

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

// ActivityReader is the slice of the record store the selector needs.
type ActivityReader interface {
	ListSince(ctx context.Context, wallet string, cutoff int64) ([]domain.ActivityRecord, error)
}

// Selector turns a wallet's recent activity into replay candidates.
type Selector struct {
	activity ActivityReader
	now      func() time.Time
	logger   *slog.Logger
}

// NewSelector creates a Selector reading from activity. A nil clock means
// time.Now.
func NewSelector(activity ActivityReader, now func() time.Time, logger *slog.Logger) *Selector {
	if now == nil {
		now = time.Now
	}
	return &Selector{
		activity: activity,
		now:      now,
		logger:   logger.With(slog.String("component", "replay")),
	}
}

// Selection is the outcome of one Select call.
type Selection struct {
	Cutoff     time.Time
	Candidates []domain.ReplayCandidate
}

// Select returns the latest BUY per condition traded by wallet inside the
// epoch, newest first. No activity yields an empty selection.
func (s *Selector) Select(ctx context.Context, wallet string, epoch domain.Epoch) (Selection, error) {
	cutoff, err := Cutoff(s.now(), epoch)
	if err != nil {
		return Selection{}, err
	}

	rows, err := s.activity.ListSince(ctx, wallet, cutoff.Unix())
	if err != nil {
		return Selection{}, fmt.Errorf("replay: list activity since %s: %w", cutoff.Format(time.RFC3339), err)
	}

	candidates := Candidates(rows, cutoff.Unix())
	s.logger.DebugContext(ctx, "replay: selected candidates",
		slog.String("wallet", wallet),
		slog.String("epoch", epoch.String()),
		slog.Time("cutoff", cutoff),
		slog.Int("rows", len(rows)),
		slog.Int("candidates", len(candidates)),
	)
	return Selection{Cutoff: cutoff, Candidates: candidates}, nil
}

// Candidates applies the eligibility rules to activity rows without assuming
// any ordering: only BUY trades after cutoff qualify, and each condition keeps
// its most recent BUY. The result is ordered newest first.
func Candidates(rows []domain.ActivityRecord, cutoff int64) []domain.ReplayCandidate {
	latest := make(map[string]domain.ActivityRecord)
	for _, r := range rows {
		if r.Side != domain.SideBuy || r.Timestamp <= cutoff {
			continue
		}
		if r.Type != "" && r.Type != domain.ActivityTrade {
			continue
		}
		prev, seen := latest[r.ConditionID]
		if !seen || r.Timestamp > prev.Timestamp {
			latest[r.ConditionID] = r
		}
	}

	out := make([]domain.ReplayCandidate, 0, len(latest))
	for _, r := range latest {
		out = append(out, domain.CandidateFromActivity(r))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp > out[j].Timestamp
		}
		return out[i].ConditionID < out[j].ConditionID
	})
	return out
}
