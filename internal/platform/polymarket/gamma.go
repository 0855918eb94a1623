package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

// GammaClient looks up market metadata on the Gamma API
// (https://gamma-api.polymarket.com). Answers are cached for the process
// lifetime since the neg-risk flag of a market never changes.
type GammaClient struct {
	req *requester

	mu      sync.Mutex
	negRisk map[string]bool
}

// NewGammaClient creates a Gamma API client.
func NewGammaClient(cfg HTTPConfig) *GammaClient {
	return &GammaClient{req: newRequester("gamma", cfg), negRisk: make(map[string]bool)}
}

// NegRisk reports whether the market for conditionID settles on the
// neg-risk exchange.
func (g *GammaClient) NegRisk(ctx context.Context, conditionID string) (bool, error) {
	g.mu.Lock()
	v, ok := g.negRisk[conditionID]
	g.mu.Unlock()
	if ok {
		return v, nil
	}

	q := url.Values{}
	q.Set("condition_ids", conditionID)
	body, _, err := g.req.do(ctx, http.MethodGet, "/markets", q, nil, nil)
	if err != nil {
		return false, fmt.Errorf("polymarket/gamma: market %s: %w", conditionID, err)
	}
	var markets []gammaMarket
	if err := json.Unmarshal(body, &markets); err != nil {
		return false, fmt.Errorf("polymarket/gamma: decode markets: %w", err)
	}
	for _, m := range markets {
		if m.ConditionID == conditionID {
			g.mu.Lock()
			g.negRisk[conditionID] = m.NegRisk
			g.mu.Unlock()
			return m.NegRisk, nil
		}
	}
	return false, fmt.Errorf("polymarket/gamma: market %s: %w", conditionID, domain.ErrNotFound)
}
