package resilience

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExponentialBackoff_NextDelay(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:  250 * time.Millisecond,
		MaxDelay:   5 * time.Second,
		Multiplier: 2.0,
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{-1, 250 * time.Millisecond},
		{0, 250 * time.Millisecond},
		{1, 500 * time.Millisecond},
		{2, time.Second},
		{4, 4 * time.Second},
		{5, 5 * time.Second},
		{20, 5 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, backoff.NextDelay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestGoCardlessBackoff_JitterStaysInBounds(t *testing.T) {
	backoff := GoCardlessBackoff()

	for i := 0; i < 200; i++ {
		delay := backoff.NextDelay(1)
		assert.GreaterOrEqual(t, delay, 400*time.Millisecond)
		assert.LessOrEqual(t, delay, 600*time.Millisecond)
	}
}

func TestFixedBackoff(t *testing.T) {
	backoff := &FixedBackoff{Delay: 10 * time.Millisecond}

	assert.Equal(t, 10*time.Millisecond, backoff.NextDelay(0))
	assert.Equal(t, 10*time.Millisecond, backoff.NextDelay(7))
}
