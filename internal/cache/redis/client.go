// Package redis implements the cross-process coordination the copy loop
// needs on top of go-redis/v9: the per-signer lock, the data-API rate
// limiter, the nonce registry and the event bus.
package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultPoolSize    = 10
	defaultMaxRetries  = 3
	defaultDialTimeout = 5 * time.Second
	clientName         = "polycopy"
)

// ClientConfig mirrors the [redis] config section. Zero values fall back to
// the same defaults the config loader uses.
type ClientConfig struct {
	Addr        string
	Password    string
	DB          int
	PoolSize    int
	MaxRetries  int
	DialTimeout time.Duration
	TLSEnabled  bool
}

// options converts cfg to go-redis options. Every connection is tagged with
// CLIENT SETNAME so lock holders show up in CLIENT LIST.
func (cfg ClientConfig) options() *redis.Options {
	opts := &redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		ClientName:  clientName,
		PoolSize:    cfg.PoolSize,
		MaxRetries:  cfg.MaxRetries,
		DialTimeout: cfg.DialTimeout,
	}
	if opts.PoolSize <= 0 {
		opts.PoolSize = defaultPoolSize
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = defaultDialTimeout
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opts
}

// Client is the shared connection behind LockManager, RateLimiter,
// NonceRegistry and SignalBus.
type Client struct {
	rdb *redis.Client
}

// New connects to Redis and fails fast if the server does not answer a ping
// within the dial timeout, so a copy run never starts without its lock
// backend.
func New(ctx context.Context, cfg ClientConfig) (*Client, error) {
	opts := cfg.options()
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, opts.DialTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: connect %s: %w", cfg.Addr, err)
	}
	return &Client{rdb: rdb}, nil
}

// Ping reports liveness for the /health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// Underlying exposes the driver to the lock, limiter, registry and bus.
func (c *Client) Underlying() *redis.Client {
	return c.rdb
}
