package mandate_test

import (
	"context"
	"errors"
	"testing"

	"github.com/kevin07696/gocardless-service/internal/domain"
	"github.com/kevin07696/gocardless-service/internal/services/mandate"
	"github.com/kevin07696/gocardless-service/test/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type resolverDeps struct {
	tokens *mocks.MockTokenRepository
	store  *mocks.MockResourceStore
	client *mocks.MockGoCardlessClient
	logger *mocks.MockLogger
}

func newResolver() (*mandate.Resolver, *resolverDeps) {
	deps := &resolverDeps{
		tokens: new(mocks.MockTokenRepository),
		store:  new(mocks.MockResourceStore),
		client: new(mocks.MockGoCardlessClient),
		logger: mocks.NewMockLogger(),
	}
	return mandate.NewResolver(new(mocks.MockDBPort), deps.tokens, deps.store, deps.client, deps.logger), deps
}

func TestResolver_ReplaceMandate(t *testing.T) {
	ctx := context.Background()

	t.Run("updates tokens then snapshots", func(t *testing.T) {
		resolver, deps := newResolver()
		var calls []string
		deps.tokens.On("ReplaceMandate", mock.Anything, mock.Anything, "MD-OLD", "MD-NEW").
			Run(func(mock.Arguments) { calls = append(calls, "tokens") }).
			Return(int64(1), nil)
		deps.store.On("ReplaceMandate", mock.Anything, mock.Anything, "MD-OLD", "MD-NEW").
			Run(func(mock.Arguments) { calls = append(calls, "snapshots") }).
			Return(int64(3), nil)

		require.NoError(t, resolver.ReplaceMandate(ctx, "MD-OLD", "MD-NEW"))
		assert.Equal(t, []string{"tokens", "snapshots"}, calls)
		require.Len(t, deps.logger.InfoCalls, 1)
		assert.Equal(t, 3, deps.logger.InfoCalls[0].Field("snapshots_updated"))
	})

	t.Run("empty new id is a no-op", func(t *testing.T) {
		resolver, deps := newResolver()
		require.NoError(t, resolver.ReplaceMandate(ctx, "MD-OLD", ""))
		deps.tokens.AssertNotCalled(t, "ReplaceMandate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("token failure aborts before snapshots", func(t *testing.T) {
		resolver, deps := newResolver()
		deps.tokens.On("ReplaceMandate", mock.Anything, mock.Anything, "MD-OLD", "MD-NEW").
			Return(int64(0), errors.New("db down"))

		err := resolver.ReplaceMandate(ctx, "MD-OLD", "MD-NEW")
		require.Error(t, err)
		deps.store.AssertNotCalled(t, "ReplaceMandate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		assert.Len(t, deps.logger.ErrorCalls, 1)
	})
}

func TestResolver_SaveCustomerToken(t *testing.T) {
	ctx := context.Background()
	md := &domain.Mandate{ID: "MD1", Scheme: "bacs"}
	md.Links.CustomerBankAccount = "BA1"

	t.Run("stores bank account display data", func(t *testing.T) {
		resolver, deps := newResolver()
		deps.tokens.On("ExistsForCustomer", mock.Anything, mock.Anything, "42", "MD1").Return(false, nil)
		deps.client.On("GetCustomerBankAccount", mock.Anything, "BA1").Return(&domain.CustomerBankAccount{
			ID: "BA1", AccountHolderName: "Ada Lovelace", AccountNumberEnding: "11", BankName: "BARCLAYS BANK PLC",
		}, nil)
		deps.tokens.On("Create", mock.Anything, mock.Anything, mock.MatchedBy(func(token *domain.PaymentToken) bool {
			return token.CustomerID == "42" &&
				token.MandateID == "MD1" &&
				token.Scheme == "bacs" &&
				token.AccountNumberEnding == "11" &&
				token.BankName == "BARCLAYS BANK PLC"
		})).Return(nil)

		require.NoError(t, resolver.SaveCustomerToken(ctx, "42", md))
		deps.tokens.AssertExpectations(t)
	})

	t.Run("guest customers are skipped", func(t *testing.T) {
		resolver, deps := newResolver()
		require.NoError(t, resolver.SaveCustomerToken(ctx, "", md))
		deps.tokens.AssertNotCalled(t, "ExistsForCustomer", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("existing token is not duplicated", func(t *testing.T) {
		resolver, deps := newResolver()
		deps.tokens.On("ExistsForCustomer", mock.Anything, mock.Anything, "42", "MD1").Return(true, nil)

		require.NoError(t, resolver.SaveCustomerToken(ctx, "42", md))
		deps.client.AssertNotCalled(t, "GetCustomerBankAccount", mock.Anything, mock.Anything)
		deps.tokens.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestResolver_RemoveTokens(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes tokens for the mandate", func(t *testing.T) {
		resolver, deps := newResolver()
		deps.tokens.On("DeleteByMandate", mock.Anything, mock.Anything, "MD1").Return(int64(2), nil)

		require.NoError(t, resolver.RemoveTokens(ctx, "MD1"))
		deps.tokens.AssertExpectations(t)
	})

	t.Run("empty mandate link is ignored", func(t *testing.T) {
		resolver, deps := newResolver()
		require.NoError(t, resolver.RemoveTokens(ctx, ""))
		deps.tokens.AssertNotCalled(t, "DeleteByMandate", mock.Anything, mock.Anything, mock.Anything)
	})
}
