package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/kevin07696/gocardless-service/internal/adapters/postgres"
	"github.com/kevin07696/gocardless-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRepository(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := postgres.NewTokenRepository(postgres.NewDBExecutor(pool))

	token := &domain.PaymentToken{
		CustomerID:          "42",
		MandateID:           "MD-OLD",
		Scheme:              "bacs",
		AccountHolderName:   "Ada Lovelace",
		AccountNumberEnding: "11",
		BankName:            "BARCLAYS BANK PLC",
	}
	require.NoError(t, repo.Create(ctx, nil, token))
	require.NotEmpty(t, token.ID)
	assert.Equal(t, domain.GatewayID, token.Gateway)

	t.Run("get and list", func(t *testing.T) {
		got, err := repo.GetByID(ctx, nil, token.ID)
		require.NoError(t, err)
		assert.Equal(t, "MD-OLD", got.MandateID)

		tokens, err := repo.ListByCustomer(ctx, nil, "42")
		require.NoError(t, err)
		assert.Len(t, tokens, 1)

		exists, err := repo.ExistsForCustomer(ctx, nil, "42", "MD-OLD")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("invalid id is not found", func(t *testing.T) {
		_, err := repo.GetByID(ctx, nil, "not-a-uuid")
		assert.ErrorIs(t, err, domain.ErrTokenNotFound)
	})

	t.Run("replace mandate", func(t *testing.T) {
		updated, err := repo.ReplaceMandate(ctx, nil, "MD-OLD", "MD-NEW")
		require.NoError(t, err)
		assert.Equal(t, int64(1), updated)

		got, err := repo.GetByID(ctx, nil, token.ID)
		require.NoError(t, err)
		assert.Equal(t, "MD-NEW", got.MandateID)
	})

	t.Run("delete requires ownership", func(t *testing.T) {
		err := repo.Delete(ctx, nil, "someone-else", token.ID)
		assert.ErrorIs(t, err, domain.ErrTokenNotFound)
	})

	t.Run("delete by mandate", func(t *testing.T) {
		removed, err := repo.DeleteByMandate(ctx, nil, "MD-NEW")
		require.NoError(t, err)
		assert.Equal(t, int64(1), removed)

		_, err = repo.GetByID(ctx, nil, token.ID)
		assert.ErrorIs(t, err, domain.ErrTokenNotFound)
	})
}

func TestCustomerRepository(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := postgres.NewCustomerRepository(postgres.NewDBExecutor(pool))

	remote, err := repo.GetRemoteCustomerID(ctx, nil, "42")
	require.NoError(t, err)
	assert.Empty(t, remote)

	require.NoError(t, repo.SetRemoteCustomerID(ctx, nil, "42", "CU1"))
	require.NoError(t, repo.SetRemoteCustomerID(ctx, nil, "42", "CU2"))

	remote, err = repo.GetRemoteCustomerID(ctx, nil, "42")
	require.NoError(t, err)
	assert.Equal(t, "CU2", remote)
}

func TestStatusCheckScheduler(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	dbExecutor := postgres.NewDBExecutor(pool)
	orders := postgres.NewOrderRepository(dbExecutor)
	scheduler := postgres.NewStatusCheckScheduler(dbExecutor)

	seedOrder(t, orders, &domain.Order{ID: "5001", Total: gbp("1.00")})
	seedOrder(t, orders, &domain.Order{ID: "5002", Total: gbp("1.00")})

	now := time.Now()
	require.NoError(t, scheduler.Schedule(ctx, nil, "5001", now.Add(-time.Hour)))
	require.NoError(t, scheduler.Schedule(ctx, nil, "5002", now.Add(time.Hour)))

	due, err := scheduler.ListDue(ctx, nil, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "5001", due[0].OrderID)

	t.Run("rescheduling moves the run time", func(t *testing.T) {
		require.NoError(t, scheduler.Schedule(ctx, nil, "5001", now.Add(24*time.Hour)))
		due, err := scheduler.ListDue(ctx, nil, now, 10)
		require.NoError(t, err)
		assert.Empty(t, due)
	})

	t.Run("unschedule", func(t *testing.T) {
		require.NoError(t, scheduler.Unschedule(ctx, nil, "5002"))
		scheduled, err := scheduler.IsScheduled(ctx, nil, "5002")
		require.NoError(t, err)
		assert.False(t, scheduled)
	})
}
