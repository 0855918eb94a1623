package polymarket

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/alanyoungcy/polycopy/internal/domain"
	"github.com/alanyoungcy/polycopy/internal/normalize"
)

// DataClient reads wallet activity, positions and statistics from the
// Polymarket data API (https://data-api.polymarket.com).
type DataClient struct {
	req *requester
	now func() time.Time
}

// NewDataClient creates a data API client.
func NewDataClient(cfg HTTPConfig) *DataClient {
	return &DataClient{req: newRequester("data-api", cfg), now: time.Now}
}

// ActivityPage fetches one page of a wallet's activity.
func (c *DataClient) ActivityPage(ctx context.Context, wallet string, limit, offset int) ([]normalize.Result[domain.ActivityRecord], error) {
	q := url.Values{}
	q.Set("user", wallet)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))

	body, _, err := c.req.do(ctx, http.MethodGet, "/activity", q, nil, nil)
	if err != nil {
		return nil, err
	}
	results, err := normalize.Activities(body)
	if err != nil {
		return nil, &domain.TransientFetchError{Source: "data-api/activity", Err: err}
	}
	return results, nil
}

// Activity pages through a wallet's activity, newest first, until a short
// page or maxRecords items have been read. maxRecords <= 0 means one page.
// A failure after the first page returns what was read so far with the error.
func (c *DataClient) Activity(ctx context.Context, wallet string, pageSize, maxRecords int) ([]normalize.Result[domain.ActivityRecord], error) {
	if pageSize <= 0 {
		pageSize = 500
	}
	if maxRecords <= 0 {
		maxRecords = pageSize
	}

	var all []normalize.Result[domain.ActivityRecord]
	for offset := 0; offset < maxRecords; offset += pageSize {
		limit := min(pageSize, maxRecords-offset)
		page, err := c.ActivityPage(ctx, wallet, limit, offset)
		if err != nil {
			if len(all) > 0 {
				return all, fmt.Errorf("polymarket/data-api: activity page at offset %d: %w", offset, err)
			}
			return nil, err
		}
		all = append(all, page...)
		if len(page) < limit {
			break
		}
	}
	return all, nil
}

// Positions fetches a wallet's open positions.
func (c *DataClient) Positions(ctx context.Context, wallet string, limit int) ([]normalize.Result[domain.PositionRecord], error) {
	q := url.Values{}
	q.Set("user", wallet)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	body, _, err := c.req.do(ctx, http.MethodGet, "/positions", q, nil, nil)
	if err != nil {
		return nil, err
	}
	results, err := normalize.Positions(body)
	if err != nil {
		return nil, &domain.TransientFetchError{Source: "data-api/positions", Err: err}
	}
	return results, nil
}

// Traded fetches how many markets a wallet has traded.
func (c *DataClient) Traded(ctx context.Context, wallet string) (normalize.Result[domain.TradedCount], error) {
	q := url.Values{}
	q.Set("user", wallet)
	body, _, err := c.req.do(ctx, http.MethodGet, "/traded", q, nil, nil)
	if err != nil {
		return normalize.Result[domain.TradedCount]{}, err
	}
	return normalize.TradedCount(body, c.now().UTC()), nil
}

// Value fetches the total value of a wallet's positions.
func (c *DataClient) Value(ctx context.Context, wallet string) (normalize.Result[domain.ValueSnapshot], error) {
	q := url.Values{}
	q.Set("user", wallet)
	body, _, err := c.req.do(ctx, http.MethodGet, "/value", q, nil, nil)
	if err != nil {
		return normalize.Result[domain.ValueSnapshot]{}, err
	}
	return normalize.Value(body, c.now().UTC()), nil
}
