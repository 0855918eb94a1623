package executor

import (
	"math"
	"time"
)

// Backoff computes the wait after consecutive failed passes:
// min(Max, Initial * Factor^(failures-1)).
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
	Factor  float64
}

// DefaultBackoff starts at 5s and doubles up to 5m.
var DefaultBackoff = Backoff{Initial: 5 * time.Second, Max: 5 * time.Minute, Factor: 2}

// Delay returns the wait after the given number of consecutive failures.
// Zero failures means no backoff.
func (b Backoff) Delay(failures int) time.Duration {
	if failures <= 0 {
		return 0
	}
	b = b.withDefaults()
	d := float64(b.Initial) * math.Pow(b.Factor, float64(failures-1))
	if math.IsInf(d, 0) || math.IsNaN(d) || d >= float64(b.Max) {
		return b.Max
	}
	return time.Duration(d)
}

func (b Backoff) withDefaults() Backoff {
	if b.Initial <= 0 {
		b.Initial = DefaultBackoff.Initial
	}
	if b.Max <= 0 {
		b.Max = DefaultBackoff.Max
	}
	if b.Max < b.Initial {
		b.Max = b.Initial
	}
	if b.Factor < 1 {
		b.Factor = DefaultBackoff.Factor
	}
	return b
}
