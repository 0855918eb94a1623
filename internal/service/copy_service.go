// Package service holds the copy-trading pipeline: ingest a target's records,
// select and size replay candidates, then build, sign and submit orders.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/polycopy/internal/domain"
	"github.com/alanyoungcy/polycopy/internal/order"
	"github.com/alanyoungcy/polycopy/internal/replay"
	"github.com/alanyoungcy/polycopy/internal/sizing"
)

// ErrUnknownTarget is returned when the copy target is not an active trader.
var ErrUnknownTarget = errors.New("unknown copy target")

// Notification events.
const (
	EventInsufficientFunds = "insufficient_funds"
	EventOrderSubmitted    = "order_submitted"
	EventOrderRejected     = "order_rejected"
	EventLoopFailing       = "loop_failing"
)

// Ingester stores a wallet's latest records.
type Ingester interface {
	StoreTraderData(ctx context.Context, wallet string) (domain.IngestReport, error)
}

// CandidateSelector picks replay candidates for a wallet and epoch.
type CandidateSelector interface {
	Select(ctx context.Context, wallet string, epoch domain.Epoch) (replay.Selection, error)
}

// CollateralSource reports the replicator's spendable collateral.
type CollateralSource interface {
	Collateral(ctx context.Context) (decimal.Decimal, error)
}

// OrderBuilder builds and signs one order.
type OrderBuilder interface {
	Build(ctx context.Context, c domain.ReplayCandidate, size decimal.Decimal, opts order.Options) (domain.SignedOrder, error)
	Maker() string
}

// OrderSubmitter posts a signed order to the exchange.
type OrderSubmitter interface {
	PostOrder(ctx context.Context, o domain.SignedOrder, orderType domain.OrderType) (domain.OrderResult, error)
}

// MarketRouter reports whether a market trades on the neg-risk exchange.
type MarketRouter interface {
	NegRisk(ctx context.Context, conditionID string) (bool, error)
}

// Notifier delivers operator alerts.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// CopyConfig selects what a pass copies and how.
type CopyConfig struct {
	Target         string
	Epoch          domain.Epoch
	OrderType      domain.OrderType
	BudgetMode     sizing.BudgetMode
	DryRun         bool
	SkipReplicated bool
}

// CopyDeps are the collaborators of a CopyService. Router, Bus, Archiver and
// Notifier are optional.
type CopyDeps struct {
	Ingester   Ingester
	Selector   CandidateSelector
	Collateral CollateralSource
	Builder    OrderBuilder
	Submitter  OrderSubmitter
	Router     MarketRouter
	Orders     domain.OrderStore
	Audit      domain.AuditStore
	Bus        domain.SignalBus
	Archiver   domain.PassArchiver
	Notifier   Notifier
}

// CopyService runs replication passes against a single target.
type CopyService struct {
	deps   CopyDeps
	cfg    CopyConfig
	now    func() time.Time
	logger *slog.Logger
}

// NewCopyService creates a CopyService.
func NewCopyService(deps CopyDeps, cfg CopyConfig, logger *slog.Logger) (*CopyService, error) {
	if deps.Ingester == nil || deps.Selector == nil || deps.Collateral == nil ||
		deps.Builder == nil || deps.Orders == nil || deps.Audit == nil {
		return nil, errors.New("copy: missing required dependency")
	}
	if deps.Submitter == nil && !cfg.DryRun {
		return nil, errors.New("copy: an order submitter is required unless dry_run is set")
	}
	if cfg.Target == "" {
		return nil, errors.New("copy: target wallet is required")
	}
	if cfg.Epoch == "" {
		cfg.Epoch = domain.EpochDay
	}
	if cfg.OrderType == "" {
		cfg.OrderType = domain.OrderTypeGTC
	}
	if cfg.BudgetMode == "" {
		cfg.BudgetMode = sizing.BudgetPerOrder
	}
	return &CopyService{
		deps:   deps,
		cfg:    cfg,
		now:    time.Now,
		logger: logger.With(slog.String("component", "copy")),
	}, nil
}

// Target returns the wallet being copied.
func (s *CopyService) Target() string { return s.cfg.Target }

// RunPass executes one full pipeline pass. Per-source fetch problems,
// malformed records and per-candidate signing or submission failures are
// contained in the returned report; insufficient collateral, store read
// failures and cancellation fail the pass.
func (s *CopyService) RunPass(ctx context.Context) (domain.PassReport, error) {
	report := domain.PassReport{
		ID:        uuid.NewString(),
		Target:    s.cfg.Target,
		Epoch:     s.cfg.Epoch,
		StartedAt: s.now().UTC(),
		DryRun:    s.cfg.DryRun,
	}
	logger := s.logger.With(slog.String("pass_id", report.ID))

	err := s.runPass(ctx, &report, logger)
	report.FinishedAt = s.now().UTC()
	if err != nil {
		s.audit(ctx, domain.AuditPassFailed, map[string]any{
			"pass_id": report.ID,
			"target":  report.Target,
			"error":   err.Error(),
		})
		return report, err
	}

	s.audit(ctx, domain.AuditPassCompleted, map[string]any{
		"pass_id":    report.ID,
		"target":     report.Target,
		"candidates": report.Candidates,
		"submitted":  report.Submitted,
		"rejected":   report.Rejected,
		"failed":     report.Failed,
	})
	s.publish(ctx, domain.ChannelPasses, report)
	if s.deps.Archiver != nil {
		if key, err := s.deps.Archiver.ArchivePass(ctx, report); err != nil {
			logger.WarnContext(ctx, "copy: archive pass failed", slog.String("error", err.Error()))
		} else {
			logger.DebugContext(ctx, "copy: pass archived", slog.String("key", key))
		}
	}

	logger.InfoContext(ctx, "copy: pass completed",
		slog.String("target", report.Target),
		slog.String("epoch", report.Epoch.String()),
		slog.String("collateral", report.Collateral.String()),
		slog.Int("candidates", report.Candidates),
		slog.Int("already_replicated", report.Replicated),
		slog.Int("submitted", report.Submitted),
		slog.Int("rejected", report.Rejected),
		slog.Int("failed", report.Failed),
		slog.Duration("duration", report.FinishedAt.Sub(report.StartedAt)),
	)
	return report, nil
}

func (s *CopyService) runPass(ctx context.Context, report *domain.PassReport, logger *slog.Logger) error {
	ingest, err := s.deps.Ingester.StoreTraderData(ctx, s.cfg.Target)
	report.Ingest = ingest
	if err != nil {
		return fmt.Errorf("copy: store trader data: %w", err)
	}

	// Collateral is read once, before anything is sized.
	available, err := s.deps.Collateral.Collateral(ctx)
	if err != nil {
		return fmt.Errorf("copy: read collateral: %w", err)
	}
	report.Collateral = available
	maker := s.deps.Builder.Maker()
	if err := sizing.CheckCollateral(maker, available); err != nil {
		s.notify(ctx, EventInsufficientFunds, "Insufficient funds", err.Error())
		return fmt.Errorf("copy: %w", err)
	}

	sel, err := s.deps.Selector.Select(ctx, s.cfg.Target, s.cfg.Epoch)
	if err != nil {
		return fmt.Errorf("copy: select candidates: %w", err)
	}
	report.Cutoff = sel.Cutoff
	candidates := sel.Candidates
	report.Candidates = len(candidates)

	if s.cfg.SkipReplicated && len(candidates) > 0 {
		done, err := s.deps.Orders.ReplicatedSources(ctx, s.cfg.Target)
		if err != nil {
			return fmt.Errorf("copy: load replicated sources: %w", err)
		}
		fresh := candidates[:0:0]
		for _, c := range candidates {
			if done[domain.SourceKey(c.SourceTxHash, c.Asset)] {
				report.Replicated++
				continue
			}
			fresh = append(fresh, c)
		}
		candidates = fresh
	}

	plan := sizing.Plan(candidates, available, s.cfg.BudgetMode)
	report.Sized = len(plan)
	logger.DebugContext(ctx, "copy: candidates sized",
		slog.Int("selected", report.Candidates),
		slog.Int("sized", report.Sized),
		slog.String("budget_mode", string(s.cfg.BudgetMode)),
	)

	for _, sc := range plan {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("copy: %w", err)
		}
		outcome := s.replicate(ctx, report.ID, sc, logger)
		switch outcome.Status {
		case domain.OrderStatusSubmitted:
			report.Submitted++
		case domain.OrderStatusRejected:
			report.Rejected++
		case domain.OrderStatusFailed:
			report.Failed++
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}
	return nil
}

// replicate builds, signs and submits one sized candidate. Every failure is
// confined to the returned outcome.
func (s *CopyService) replicate(ctx context.Context, passID string, sc domain.SizedCandidate, logger *slog.Logger) domain.CandidateOutcome {
	c := sc.Candidate
	outcome := domain.CandidateOutcome{
		ConditionID:  c.ConditionID,
		Asset:        c.Asset,
		SourceTxHash: c.SourceTxHash,
		Size:         sc.Size,
	}
	rec := domain.OrderRecord{
		PassID:       passID,
		SourceWallet: c.SourceWallet,
		SourceTxHash: c.SourceTxHash,
		Asset:        c.Asset,
		ConditionID:  c.ConditionID,
		Maker:        s.deps.Builder.Maker(),
		Side:         string(c.Side),
	}
	fail := func(stage string, err error) domain.CandidateOutcome {
		logger.ErrorContext(ctx, "copy: candidate failed",
			slog.String("stage", stage),
			slog.String("condition_id", c.ConditionID),
			slog.String("asset", c.Asset),
			slog.String("error", err.Error()),
		)
		outcome.Status = domain.OrderStatusFailed
		outcome.Error = err.Error()
		rec.Status = domain.OrderStatusFailed
		rec.Message = stage + ": " + err.Error()
		s.record(ctx, rec, logger)
		return outcome
	}

	var opts order.Options
	if s.deps.Router != nil {
		negRisk, err := s.deps.Router.NegRisk(ctx, c.ConditionID)
		if err != nil {
			return fail("route", err)
		}
		opts.NegRisk = negRisk
	}

	signed, err := s.deps.Builder.Build(ctx, c, sc.Size, opts)
	if err != nil {
		return fail("build", err)
	}
	outcome.OrderHash = signed.Hash
	rec.OrderHash = signed.Hash
	rec.Side = signed.Side.String()
	rec.MakerAmount = signed.MakerAmount.String()
	rec.TakerAmount = signed.TakerAmount.String()
	rec.Nonce = signed.Nonce

	if s.cfg.DryRun {
		outcome.Status = domain.OrderStatusDryRun
		rec.Status = domain.OrderStatusDryRun
		s.record(ctx, rec, logger)
		logger.InfoContext(ctx, "copy: dry run order built",
			slog.String("order_hash", signed.Hash),
			slog.String("asset", c.Asset),
			slog.String("size", sc.Size.String()),
		)
		return outcome
	}

	res, err := s.deps.Submitter.PostOrder(ctx, signed, s.cfg.OrderType)
	if err != nil {
		return fail("submit", err)
	}
	rec.ExchangeID = res.OrderID
	rec.Message = res.Message
	if res.Success {
		outcome.Status = domain.OrderStatusSubmitted
		rec.Status = domain.OrderStatusSubmitted
	} else {
		outcome.Status = domain.OrderStatusRejected
		outcome.Error = res.Message
		rec.Status = domain.OrderStatusRejected
	}
	s.record(ctx, rec, logger)

	logger.InfoContext(ctx, "copy: order "+string(outcome.Status),
		slog.String("order_hash", signed.Hash),
		slog.String("exchange_id", res.OrderID),
		slog.String("asset", c.Asset),
		slog.String("size", sc.Size.String()),
		slog.String("message", res.Message),
	)
	msg := fmt.Sprintf("%s %s of %s (%s)", rec.Side, sc.Size.String(), c.Asset, c.Title)
	if res.Success {
		s.notify(ctx, EventOrderSubmitted, "Copy order submitted", msg)
	} else {
		s.notify(ctx, EventOrderRejected, "Copy order rejected", msg+": "+res.Message)
	}
	return outcome
}

// record persists the order outcome and fans it out to the audit log and
// the event bus. Failures here are logged only.
func (s *CopyService) record(ctx context.Context, rec domain.OrderRecord, logger *slog.Logger) {
	rec.CreatedAt = s.now().UTC()
	if err := s.deps.Orders.Record(ctx, rec); err != nil {
		logger.ErrorContext(ctx, "copy: record order failed",
			slog.String("order_hash", rec.OrderHash),
			slog.String("error", err.Error()),
		)
	}
	s.audit(ctx, domain.AuditOrder, map[string]any{
		"pass_id":        rec.PassID,
		"order_hash":     rec.OrderHash,
		"source_tx_hash": rec.SourceTxHash,
		"asset":          rec.Asset,
		"status":         string(rec.Status),
		"message":        rec.Message,
	})
	s.publish(ctx, domain.ChannelOrders, rec)
}

func (s *CopyService) audit(ctx context.Context, event string, detail map[string]any) {
	if err := s.deps.Audit.Log(ctx, event, detail); err != nil {
		s.logger.WarnContext(ctx, "copy: audit log failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

func (s *CopyService) publish(ctx context.Context, channel string, v any) {
	if s.deps.Bus == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.deps.Bus.Publish(ctx, channel, payload); err != nil {
		s.logger.WarnContext(ctx, "copy: publish event failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
}

func (s *CopyService) notify(ctx context.Context, event, title, message string) {
	if s.deps.Notifier == nil {
		return
	}
	if err := s.deps.Notifier.Notify(ctx, event, title, message); err != nil {
		s.logger.WarnContext(ctx, "copy: notify failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}
