// Package polymarket holds the REST and JSON-RPC clients for the Polymarket
// data API, leaderboard, Gamma, the CLOB and the Polygon collateral token.
package polymarket

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

// DefaultTimeout bounds every gateway call when no timeout is configured.
const DefaultTimeout = 15 * time.Second

// maxBodyBytes caps how much of a response is read.
const maxBodyBytes = 16 << 20

// HTTPConfig is shared by every REST client in this package.
type HTTPConfig struct {
	BaseURL string
	Timeout time.Duration
	// Limiter, when set, throttles requests to RequestsPerSecond under
	// the limiter key "ratelimit:<source>".
	Limiter           domain.RateLimiter
	RequestsPerSecond int
	HTTPClient        *http.Client
}

type requester struct {
	source  string
	baseURL string
	timeout time.Duration
	limiter domain.RateLimiter
	rps     int
	client  *http.Client
}

func newRequester(source string, cfg HTTPConfig) *requester {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &requester{
		source:  source,
		baseURL: cfg.BaseURL,
		timeout: timeout,
		limiter: cfg.Limiter,
		rps:     cfg.RequestsPerSecond,
		client:  client,
	}
}

// do sends one request under the per-call timeout. sign, when non-nil, may
// add auth headers; it receives the path without the query string. Any
// failure to obtain a 2xx response is a *domain.TransientFetchError.
func (r *requester) do(ctx context.Context, method, path string, query url.Values, body []byte, sign func(http.Header, string) error) ([]byte, int, error) {
	if r.limiter != nil && r.rps > 0 {
		if err := r.limiter.Wait(ctx, "ratelimit:"+r.source, r.rps, time.Second); err != nil {
			return nil, 0, &domain.TransientFetchError{Source: r.source + path, Err: err}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	target := r.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("polymarket/%s: build request: %w", r.source, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if sign != nil {
		if err := sign(req.Header, string(body)); err != nil {
			return nil, 0, fmt.Errorf("polymarket/%s: sign request: %w", r.source, err)
		}
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, 0, &domain.TransientFetchError{Source: r.source + path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, &domain.TransientFetchError{Source: r.source + path, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return data, resp.StatusCode, &domain.TransientFetchError{
			Source:     r.source + path,
			StatusCode: resp.StatusCode,
			Err:        statusError(resp.StatusCode, data),
		}
	}
	return data, resp.StatusCode, nil
}

// statusError maps non-2xx status codes onto domain sentinels.
func statusError(code int, body []byte) error {
	snippet := string(body)
	if len(snippet) > 256 {
		snippet = snippet[:256]
	}
	switch code {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, snippet)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, snippet)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, snippet)
	default:
		return fmt.Errorf("HTTP %d: %s", code, snippet)
	}
}
