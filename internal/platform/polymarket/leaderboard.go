package polymarket

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/alanyoungcy/polycopy/internal/domain"
	"github.com/alanyoungcy/polycopy/internal/normalize"
)

// LeaderboardClient reads the profit leaderboard
// (https://lb-api.polymarket.com).
type LeaderboardClient struct {
	req *requester
}

// NewLeaderboardClient creates a leaderboard client.
func NewLeaderboardClient(cfg HTTPConfig) *LeaderboardClient {
	return &LeaderboardClient{req: newRequester("lb-api", cfg)}
}

// Profit returns the all-time profit leaderboard, best first.
func (c *LeaderboardClient) Profit(ctx context.Context, limit int) ([]normalize.Result[domain.Trader], error) {
	q := url.Values{}
	q.Set("window", "all")
	q.Set("limit", strconv.Itoa(limit))

	body, _, err := c.req.do(ctx, http.MethodGet, "/profit", q, nil, nil)
	if err != nil {
		return nil, err
	}
	results, err := normalize.Traders(body)
	if err != nil {
		return nil, &domain.TransientFetchError{Source: "lb-api/profit", Err: err}
	}
	return results, nil
}
