// Package resilience holds retry delays and time bounds for work against
// GoCardless and the webhook queue.
package resilience

import (
	"math"
	"math/rand"
	"time"
)

// BackoffStrategy returns the delay before retry attempt n (0-indexed)
type BackoffStrategy interface {
	NextDelay(attempt int) time.Duration
}

// ExponentialBackoff doubles (by Multiplier) from BaseDelay up to MaxDelay,
// spread by ±Jitter
type ExponentialBackoff struct {
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
	Jitter     float64
}

// GoCardlessBackoff spaces retried GET requests after 429s, 5xx responses and
// network failures: ~250ms, ~500ms, ~1s, capped at 5s
func GoCardlessBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay:  250 * time.Millisecond,
		MaxDelay:   5 * time.Second,
		Multiplier: 2.0,
		Jitter:     0.2,
	}
}

// TransactionBackoff spaces retries of a Postgres transaction aborted by a
// deadlock or serialization failure
func TransactionBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay:  20 * time.Millisecond,
		MaxDelay:   200 * time.Millisecond,
		Multiplier: 2.0,
		Jitter:     0.5,
	}
}

func (eb *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	delay := math.Min(float64(eb.BaseDelay)*math.Pow(eb.Multiplier, float64(attempt)), float64(eb.MaxDelay))
	delay += (rand.Float64()*2 - 1) * delay * eb.Jitter

	if delay < 0 {
		return eb.BaseDelay
	}
	return time.Duration(delay)
}

// FixedBackoff waits the same delay before every attempt
type FixedBackoff struct {
	Delay time.Duration
}

func (fb *FixedBackoff) NextDelay(int) time.Duration {
	return fb.Delay
}
