package auth_test

import (
	"strings"
	"testing"
	"time"

	"github.com/kevin07696/gocardless-service/internal/auth"
	"github.com/kevin07696/gocardless-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func TestCheckoutTokenManager(t *testing.T) {
	t.Run("short keys are refused", func(t *testing.T) {
		_, err := auth.NewCheckoutTokenManager([]byte("short"), "gocardless-service", 0)
		assert.Error(t, err)
	})

	t.Run("issued token verifies for its order", func(t *testing.T) {
		m, err := auth.NewCheckoutTokenManager(testKey, "gocardless-service", 0)
		require.NoError(t, err)

		token, err := m.Issue("42")
		require.NoError(t, err)
		assert.Equal(t, 3, len(strings.Split(token, ".")))
		assert.NoError(t, m.Verify(token, "42"))
	})

	t.Run("token for another order is rejected", func(t *testing.T) {
		m, err := auth.NewCheckoutTokenManager(testKey, "gocardless-service", 0)
		require.NoError(t, err)

		token, err := m.Issue("42")
		require.NoError(t, err)
		assert.ErrorIs(t, m.Verify(token, "43"), domain.ErrOrderMismatch)
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		m, err := auth.NewCheckoutTokenManager(testKey, "gocardless-service", time.Minute)
		require.NoError(t, err)
		issued := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		m.WithClock(func() time.Time { return issued })

		token, err := m.Issue("42")
		require.NoError(t, err)

		m.WithClock(func() time.Time { return issued.Add(2 * time.Minute) })
		err = m.Verify(token, "42")
		assert.ErrorIs(t, err, domain.ErrValidationFailed)
		assert.Contains(t, err.Error(), "expired")
	})

	t.Run("token signed with another key is rejected", func(t *testing.T) {
		m, err := auth.NewCheckoutTokenManager(testKey, "gocardless-service", 0)
		require.NoError(t, err)
		other, err := auth.NewCheckoutTokenManager([]byte("fedcba9876543210fedcba9876543210"), "gocardless-service", 0)
		require.NoError(t, err)

		token, err := other.Issue("42")
		require.NoError(t, err)
		assert.ErrorIs(t, m.Verify(token, "42"), domain.ErrValidationFailed)
	})

	t.Run("missing token", func(t *testing.T) {
		m, err := auth.NewCheckoutTokenManager(testKey, "gocardless-service", 0)
		require.NoError(t, err)
		assert.ErrorIs(t, m.Verify("", "42"), domain.ErrValidationMissingField)
	})
}

func TestSharedSecret_Matches(t *testing.T) {
	s := auth.NewSharedSecret("cron-secret")
	assert.True(t, s.Matches("cron-secret"))
	assert.False(t, s.Matches("cron-secret "))
	assert.False(t, s.Matches(""))

	assert.False(t, auth.NewSharedSecret("").Matches(""))
	assert.False(t, auth.NewSharedSecret("").Matches("anything"))
}
