package order

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

// maxNonceAttempts bounds how far a nonce is bumped looking for a free slot.
const maxNonceAttempts = 64

// NonceSequencer hands out nonces that are unique per (maker, asset). The
// default candidate is wall-clock seconds; a clash with an earlier nonce for
// the same pair bumps it forward. An optional registry extends uniqueness
// across processes.
type NonceSequencer struct {
	mu       sync.Mutex
	last     map[string]uint64
	registry domain.NonceRegistry
	ttl      time.Duration
}

// NewNonceSequencer creates a sequencer. registry may be nil.
func NewNonceSequencer(registry domain.NonceRegistry, ttl time.Duration) *NonceSequencer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &NonceSequencer{last: make(map[string]uint64), registry: registry, ttl: ttl}
}

// Next returns a nonce >= want that no earlier call issued for the pair.
func (n *NonceSequencer) Next(ctx context.Context, maker, asset string, want uint64) (uint64, error) {
	key := strings.ToLower(maker) + "|" + asset

	n.mu.Lock()
	defer n.mu.Unlock()

	nonce := want
	if last, ok := n.last[key]; ok && nonce <= last {
		nonce = last + 1
	}

	for range maxNonceAttempts {
		if n.registry == nil {
			n.last[key] = nonce
			return nonce, nil
		}
		ok, err := n.registry.Reserve(ctx, maker, asset, nonce, n.ttl)
		if err != nil {
			return 0, fmt.Errorf("order: reserve nonce: %w", err)
		}
		if ok {
			n.last[key] = nonce
			return nonce, nil
		}
		nonce++
	}
	return 0, fmt.Errorf("order: %s after %d attempts: %w", key, maxNonceAttempts, domain.ErrNonceExhausted)
}
