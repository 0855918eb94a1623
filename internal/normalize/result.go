// Package normalize turns raw data-API payloads into domain records. Every
// item yields its own Result, so one malformed record never fails a batch.
package normalize

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// Result is either a normalized value or the reason the item was rejected.
type Result[T any] struct {
	Value T
	Err   error
}

// OK reports whether the item normalized cleanly.
func (r Result[T]) OK() bool { return r.Err == nil }

func ok[T any](v T) Result[T] { return Result[T]{Value: v} }

func fail[T any](err error) Result[T] { return Result[T]{Err: err} }

// Collect keeps the successful values and logs a warning for each dropped item.
func Collect[T any](ctx context.Context, results []Result[T], logger *slog.Logger) ([]T, int) {
	values := make([]T, 0, len(results))
	dropped := 0
	for i, r := range results {
		if r.Err != nil {
			dropped++
			if logger != nil {
				logger.WarnContext(ctx, "normalize: dropping record",
					slog.Int("index", i),
					slog.String("error", r.Err.Error()),
				)
			}
			continue
		}
		values = append(values, r.Value)
	}
	return values, dropped
}

// Each decodes a JSON array and normalizes every element with fn. A payload
// that is not an array is a batch-level error.
func Each[T any](payload []byte, fn func(json.RawMessage) Result[T]) ([]Result[T], error) {
	var items []json.RawMessage
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, fmt.Errorf("normalize: payload is not a JSON array: %w", err)
	}
	out := make([]Result[T], 0, len(items))
	for _, item := range items {
		out = append(out, fn(item))
	}
	return out, nil
}

// single unwraps a payload that may be either an object or an array holding
// one object; the data API returns both shapes for /traded and /value.
func single(payload []byte) (json.RawMessage, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(payload, &items); err == nil {
		if len(items) == 0 {
			return nil, fmt.Errorf("empty list")
		}
		return items[0], nil
	}
	return json.RawMessage(payload), nil
}
