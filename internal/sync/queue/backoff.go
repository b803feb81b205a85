package queue

import (
	"math"
	"time"
)

// Backoff computes the per-item delay before a retry after a failed attempt.
type Backoff struct {
	Min        time.Duration
	Max        time.Duration
	Multiplier float64
}

// DefaultBackoff returns the default retry curve: 1s, 2s, 4s ... capped at 5m.
func DefaultBackoff() Backoff {
	return Backoff{
		Min:        time.Second,
		Max:        5 * time.Minute,
		Multiplier: 2,
	}
}

// Delay returns the wait after the retryCount-th failure (1-based).
// Formula: Min * Multiplier^(retryCount-1), clamped to [Min, Max].
// A zero Min disables backoff.
func (b Backoff) Delay(retryCount int) time.Duration {
	if b.Min <= 0 || retryCount <= 0 {
		return 0
	}

	mult := b.Multiplier
	if mult < 1 {
		mult = 1
	}

	d := float64(b.Min) * math.Pow(mult, float64(retryCount-1))
	if b.Max > 0 && d > float64(b.Max) {
		return b.Max
	}
	if d > float64(math.MaxInt64) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}
