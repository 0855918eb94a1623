package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

// Keepalive refreshes lock every ttl/3 until stop is called. The returned
// context is cancelled as soon as a refresh fails, with a cause matching
// domain.ErrLockLost, so a pass never outlives the lease it started under.
// stop blocks until the refresher has exited.
func Keepalive(ctx context.Context, lock domain.Lock, ttl time.Duration, logger *slog.Logger) (context.Context, func()) {
	kctx, cancel := context.WithCancelCause(ctx)
	every := max(ttl/3, time.Millisecond)
	done := make(chan struct{})

	go func() {
		defer close(done)
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-kctx.Done():
				return
			case <-t.C:
			}

			rctx, rcancel := context.WithTimeout(kctx, every)
			err := lock.Refresh(rctx, ttl)
			rcancel()
			if err == nil {
				continue
			}
			if kctx.Err() != nil {
				return
			}
			if !errors.Is(err, domain.ErrLockLost) {
				err = fmt.Errorf("%w: %w", domain.ErrLockLost, err)
			}
			logger.WarnContext(ctx, "executor: lock refresh failed, aborting pass",
				slog.String("error", err.Error()),
			)
			cancel(err)
			return
		}
	}()

	return kctx, func() {
		cancel(nil)
		<-done
	}
}
