package resource_test

import (
	"context"
	"testing"

	"github.com/kevin07696/gocardless-service/internal/domain"
	"github.com/kevin07696/gocardless-service/internal/services/resource"
	"github.com/kevin07696/gocardless-service/test/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Record(t *testing.T) {
	ctx := context.Background()
	order := &domain.Order{ID: "100"}
	snap := &domain.Snapshot{Type: domain.ResourcePayment, ResourceID: "PM1"}

	t.Run("writes and mirrors to subscriptions", func(t *testing.T) {
		store := new(mocks.MockResourceStore)
		subs := new(mocks.MockSubscriptionStrategy)
		recorder := resource.NewRecorder(store, mocks.NewMockLogger()).WithSubscriptions(subs)

		store.On("Put", mock.Anything, mock.Anything, snap).Return(1, nil)
		subs.On("MirrorSnapshot", mock.Anything, mock.Anything, order, snap).Return(nil)

		require.NoError(t, recorder.Record(ctx, nil, order, snap))
		assert.Equal(t, "100", snap.OrderID)
		subs.AssertExpectations(t)
	})

	t.Run("subscription records are not mirrored", func(t *testing.T) {
		store := new(mocks.MockResourceStore)
		subs := new(mocks.MockSubscriptionStrategy)
		recorder := resource.NewRecorder(store, mocks.NewMockLogger()).WithSubscriptions(subs)
		sub := &domain.Order{ID: "101", Kind: domain.OrderKindSubscription}

		store.On("Put", mock.Anything, mock.Anything, mock.Anything).Return(1, nil)

		require.NoError(t, recorder.Record(ctx, nil, sub, &domain.Snapshot{Type: domain.ResourceMandate, ResourceID: "MD1"}))
		subs.AssertNotCalled(t, "MirrorSnapshot", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestRecorder_Link(t *testing.T) {
	ctx := context.Background()
	order := &domain.Order{ID: "100"}

	t.Run("first link wins", func(t *testing.T) {
		store := new(mocks.MockResourceStore)
		recorder := resource.NewRecorder(store, mocks.NewMockLogger())
		store.On("PutIfVersion", mock.Anything, mock.Anything, mock.Anything, 0).Return(1, nil)

		linked, err := recorder.Link(ctx, nil, order, &domain.Snapshot{Type: domain.ResourcePayment, ResourceID: "PM1"})
		require.NoError(t, err)
		assert.True(t, linked)
	})

	t.Run("existing snapshot is left alone", func(t *testing.T) {
		store := new(mocks.MockResourceStore)
		logger := mocks.NewMockLogger()
		recorder := resource.NewRecorder(store, logger)
		store.On("PutIfVersion", mock.Anything, mock.Anything, mock.Anything, 0).Return(0, domain.ErrVersionConflict)

		linked, err := recorder.Link(ctx, nil, order, &domain.Snapshot{Type: domain.ResourcePayment, ResourceID: "PM2"})
		require.NoError(t, err)
		assert.False(t, linked)
		assert.Len(t, logger.InfoCalls, 1)
	})
}
