package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

// NonceRegistry implements domain.NonceRegistry with one SET NX key per
// reserved (maker, asset, nonce).
type NonceRegistry struct {
	rdb *redis.Client
}

// NewNonceRegistry creates a NonceRegistry backed by the given Client.
func NewNonceRegistry(c *Client) *NonceRegistry {
	return &NonceRegistry{rdb: c.Underlying()}
}

func nonceKey(maker, asset string, nonce uint64) string {
	return "nonce:" + strings.ToLower(maker) + ":" + asset + ":" + strconv.FormatUint(nonce, 10)
}

// Reserve claims nonce for (maker, asset) for ttl. It returns false when the
// nonce is already taken.
func (r *NonceRegistry) Reserve(ctx context.Context, maker, asset string, nonce uint64, ttl time.Duration) (bool, error) {
	ok, err := r.rdb.SetNX(ctx, nonceKey(maker, asset, nonce), time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis: reserve nonce %d for %s: %w", nonce, asset, err)
	}
	return ok, nil
}

var _ domain.NonceRegistry = (*NonceRegistry)(nil)
