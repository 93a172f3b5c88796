package gocardless

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 3, Cooldown: time.Minute})
	testErr := errors.New("upstream 503")

	for i := 0; i < 3; i++ {
		assert.Equal(t, testErr, cb.Call(func() error { return testErr }))
	}
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Call(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 2, Cooldown: time.Minute})
	testErr := errors.New("timeout")

	_ = cb.Call(func() error { return testErr })
	_ = cb.Call(func() error { return nil })
	_ = cb.Call(func() error { return testErr })

	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	var transitions []string
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures: 1,
		Cooldown:    time.Second,
		OnStateChange: func(from, to CircuitState) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})
	now := time.Now()
	cb.now = func() time.Time { return now }

	_ = cb.Call(func() error { return errors.New("boom") })
	assert.Equal(t, StateOpen, cb.State())

	now = now.Add(2 * time.Second)

	t.Run("successful probe closes the circuit", func(t *testing.T) {
		err := cb.Call(func() error { return nil })
		assert.NoError(t, err)
		assert.Equal(t, StateClosed, cb.State())
	})

	t.Run("failed probe reopens the circuit", func(t *testing.T) {
		_ = cb.Call(func() error { return errors.New("boom") })
		now = now.Add(2 * time.Second)
		_ = cb.Call(func() error { return errors.New("still down") })
		assert.Equal(t, StateOpen, cb.State())
	})

	assert.Equal(t, []string{
		"closed->open", "open->half-open", "half-open->closed",
		"closed->open", "open->half-open", "half-open->open",
	}, transitions)
}
