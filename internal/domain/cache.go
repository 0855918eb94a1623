package domain

import (
	"context"
	"time"
)

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string, limit int, window time.Duration) error
}

// Lock is a held distributed lock.
type Lock interface {
	// Refresh extends the lock TTL; it fails if the lock was lost.
	Refresh(ctx context.Context, ttl time.Duration) error
	Release()
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lock, error)
}

// NonceRegistry reserves (maker, asset, nonce) triples across processes.
type NonceRegistry interface {
	Reserve(ctx context.Context, maker, asset string, nonce uint64, ttl time.Duration) (bool, error)
}

// SignalBus provides pub/sub for operational events.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// Bus channels.
const (
	ChannelPasses = "copy:passes"
	ChannelOrders = "copy:orders"
)
