// Package executor runs copy passes back to back for unattended operation.
// A failing or panicking pass is logged and retried after a backoff; only
// context cancellation stops the loop.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/alanyoungcy/polycopy/internal/domain"
	"github.com/alanyoungcy/polycopy/internal/service"
)

// PassRunner executes one pipeline pass.
type PassRunner interface {
	RunPass(ctx context.Context) (domain.PassReport, error)
}

// State is the loop's externally visible state.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateWaiting State = "waiting"
	StateBackoff State = "backoff"
	StateStopped State = "stopped"
)

// Config controls pacing and locking.
type Config struct {
	// Interval is the wait between successful passes.
	Interval time.Duration
	Backoff  Backoff
	// AlertAfter sends a loop_failing notification when consecutive
	// failures reach this count. Zero disables the alert.
	AlertAfter int
	// LockKey is held for the lifetime of Run, e.g. "copy:<signer>", and
	// refreshed every LockTTL/3 while passes run and between them.
	LockKey string
	LockTTL time.Duration
}

// Status is a snapshot of the loop.
type Status struct {
	State               State              `json:"state"`
	Passes              int                `json:"passes"`
	Failures            int                `json:"failures"`
	ConsecutiveFailures int                `json:"consecutiveFailures"`
	LastError           string             `json:"lastError,omitempty"`
	LastPassAt          time.Time          `json:"lastPassAt,omitzero"`
	NextPassAt          time.Time          `json:"nextPassAt,omitzero"`
	LastReport          *domain.PassReport `json:"lastReport,omitempty"`
}

// Loop repeats passes until its context is cancelled.
type Loop struct {
	runner   PassRunner
	locks    domain.LockManager
	notifier service.Notifier
	cfg      Config
	logger   *slog.Logger

	// sleep waits for d or until ctx ends.
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time

	mu     sync.RWMutex
	status Status
}

// NewLoop creates a Loop. locks and notifier may be nil.
func NewLoop(runner PassRunner, locks domain.LockManager, notifier service.Notifier, cfg Config, logger *slog.Logger) *Loop {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 2 * time.Minute
	}
	cfg.Backoff = cfg.Backoff.withDefaults()
	return &Loop{
		runner:   runner,
		locks:    locks,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "executor")),
		sleep:    sleepCtx,
		now:      time.Now,
		status:   Status{State: StateIdle},
	}
}

// Status returns a copy of the current loop status.
func (l *Loop) Status() Status {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.status
}

// Run executes passes until ctx is cancelled. It returns domain.ErrLockHeld
// if another loop holds the lock for the same signing key, and ctx.Err()
// on shutdown.
func (l *Loop) Run(ctx context.Context) error {
	var lock domain.Lock
	if l.locks != nil && l.cfg.LockKey != "" {
		var err error
		lock, err = l.locks.Acquire(ctx, l.cfg.LockKey, l.cfg.LockTTL)
		if err != nil {
			return fmt.Errorf("executor: acquire %s: %w", l.cfg.LockKey, err)
		}
		defer func() { lock.Release() }()
	}

	l.logger.InfoContext(ctx, "executor: loop started",
		slog.Duration("interval", l.cfg.Interval),
		slog.String("lock", l.cfg.LockKey),
	)
	defer func() {
		l.setState(StateStopped)
		l.logger.Info("executor: loop stopped")
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		// The keepalive spans the pass and the wait after it, so the lease
		// never lapses while this loop still owns the signing key.
		var err error
		stop := func() {}
		if lock, err = l.holdLock(ctx, lock); err == nil {
			passCtx := ctx
			if lock != nil {
				passCtx, stop = Keepalive(ctx, lock, l.cfg.LockTTL, l.logger)
			}
			_, err = l.RunOnce(passCtx)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			stop()
			return ctxErr
		}

		wait, state := l.cfg.Interval, StateWaiting
		if err != nil {
			failures := l.Status().ConsecutiveFailures
			wait, state = l.cfg.Backoff.Delay(failures), StateBackoff
			l.logger.WarnContext(ctx, "executor: backing off",
				slog.Int("consecutive_failures", failures),
				slog.Duration("delay", wait),
			)
			if l.cfg.AlertAfter > 0 && failures == l.cfg.AlertAfter {
				l.alert(ctx, failures, err)
			}
		}

		l.mu.Lock()
		l.status.State = state
		l.status.NextPassAt = l.now().Add(wait)
		l.mu.Unlock()

		err = l.sleep(ctx, wait)
		stop()
		if err != nil {
			return err
		}
	}
}

// holdLock refreshes the loop lock, re-acquiring it if it expired.
func (l *Loop) holdLock(ctx context.Context, lock domain.Lock) (domain.Lock, error) {
	if lock == nil {
		return nil, nil
	}
	err := lock.Refresh(ctx, l.cfg.LockTTL)
	if err == nil {
		return lock, nil
	}
	l.logger.WarnContext(ctx, "executor: lock lost, re-acquiring",
		slog.String("lock", l.cfg.LockKey),
		slog.String("error", err.Error()),
	)
	fresh, acqErr := l.locks.Acquire(ctx, l.cfg.LockKey, l.cfg.LockTTL)
	if acqErr != nil {
		l.recordFailure(fmt.Errorf("executor: re-acquire %s: %w", l.cfg.LockKey, acqErr))
		return lock, acqErr
	}
	return fresh, nil
}

// RunOnce executes a single pass, converting a panic into an error. The
// outcome is reflected in Status. A pass cut short by Keepalive returns an
// error matching domain.ErrLockLost.
func (l *Loop) RunOnce(ctx context.Context) (report domain.PassReport, err error) {
	l.setState(StateRunning)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("executor: pass panicked: %v", r)
			l.logger.ErrorContext(ctx, "executor: pass panicked",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
		}
		if err != nil {
			if cause := context.Cause(ctx); errors.Is(cause, domain.ErrLockLost) {
				err = fmt.Errorf("executor: pass aborted: %w", cause)
			}
			l.recordFailure(err)
			if !errors.Is(err, context.Canceled) {
				l.logger.ErrorContext(ctx, "executor: pass failed",
					slog.String("error", err.Error()),
					slog.Int("consecutive_failures", l.Status().ConsecutiveFailures),
				)
			}
			return
		}
		l.recordSuccess(report)
	}()

	return l.runner.RunPass(ctx)
}

func (l *Loop) recordSuccess(report domain.PassReport) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.status.Passes++
	l.status.ConsecutiveFailures = 0
	l.status.LastError = ""
	l.status.LastPassAt = l.now().UTC()
	l.status.LastReport = &report
}

func (l *Loop) recordFailure(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.status.Passes++
	l.status.Failures++
	l.status.ConsecutiveFailures++
	l.status.LastError = err.Error()
	l.status.LastPassAt = l.now().UTC()
}

func (l *Loop) setState(s State) {
	l.mu.Lock()
	l.status.State = s
	l.mu.Unlock()
}

func (l *Loop) alert(ctx context.Context, failures int, err error) {
	if l.notifier == nil {
		return
	}
	msg := fmt.Sprintf("%d consecutive failed passes; last error: %v", failures, err)
	if nerr := l.notifier.Notify(ctx, service.EventLoopFailing, "Copy loop failing", msg); nerr != nil {
		l.logger.WarnContext(ctx, "executor: alert failed", slog.String("error", nerr.Error()))
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
