// Package mandate keeps saved tokens and stored snapshots pointing at live mandates.
package mandate

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/kevin07696/gocardless-service/internal/domain"
	"github.com/kevin07696/gocardless-service/internal/domain/ports"
	"github.com/kevin07696/gocardless-service/pkg/observability"
)

// Resolver implements ports.MandateResolver
type Resolver struct {
	db     ports.DBPort
	tokens ports.TokenRepository
	store  ports.ResourceStore
	client ports.GoCardlessClient
	logger ports.Logger
}

var _ ports.MandateResolver = (*Resolver)(nil)

// NewResolver creates a new mandate resolver
func NewResolver(
	db ports.DBPort,
	tokens ports.TokenRepository,
	store ports.ResourceStore,
	client ports.GoCardlessClient,
	logger ports.Logger,
) *Resolver {
	return &Resolver{
		db:     db,
		tokens: tokens,
		store:  store,
		client: client,
		logger: logger,
	}
}

// ReplaceMandate rewrites saved tokens first, then every mandate snapshot.
// Replaying the same replacement is a no-op.
func (r *Resolver) ReplaceMandate(ctx context.Context, oldID, newID string) error {
	if oldID == "" || newID == "" || oldID == newID {
		return nil
	}

	var tokensUpdated, snapshotsUpdated int64
	err := r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		if tokensUpdated, err = r.tokens.ReplaceMandate(ctx, tx, oldID, newID); err != nil {
			return fmt.Errorf("replace mandate on tokens: %w", err)
		}
		if snapshotsUpdated, err = r.store.ReplaceMandate(ctx, tx, oldID, newID); err != nil {
			return fmt.Errorf("replace mandate on snapshots: %w", err)
		}
		return nil
	})
	if err != nil {
		r.logger.Error("Mandate replacement failed",
			ports.String("old_mandate_id", oldID),
			ports.String("new_mandate_id", newID),
			ports.Err(err))
		return err
	}

	observability.RecordMandateReplacement()
	r.logger.Info("Mandate replaced",
		ports.String("old_mandate_id", oldID),
		ports.String("new_mandate_id", newID),
		ports.Int("tokens_updated", int(tokensUpdated)),
		ports.Int("snapshots_updated", int(snapshotsUpdated)))
	return nil
}

// SaveCustomerToken stores the mandate with the bank account display data.
// Guests have nowhere to save a token and are skipped.
func (r *Resolver) SaveCustomerToken(ctx context.Context, customerID string, mandate *domain.Mandate) error {
	if customerID == "" || mandate == nil || mandate.ID == "" {
		return nil
	}

	exists, err := r.tokens.ExistsForCustomer(ctx, nil, customerID, mandate.ID)
	if err != nil {
		return fmt.Errorf("check existing token: %w", err)
	}
	if exists {
		return nil
	}

	token := &domain.PaymentToken{
		CustomerID: customerID,
		Gateway:    domain.GatewayID,
		MandateID:  mandate.ID,
		Scheme:     mandate.Scheme,
	}

	if accountID := mandate.Links.CustomerBankAccount; accountID != "" {
		account, err := r.client.GetCustomerBankAccount(ctx, accountID)
		if err != nil {
			return fmt.Errorf("get customer bank account: %w", err)
		}
		token.AccountHolderName = account.AccountHolderName
		token.AccountNumberEnding = account.AccountNumberEnding
		token.BankName = account.BankName
	}

	if err := r.tokens.Create(ctx, nil, token); err != nil {
		return fmt.Errorf("create payment token: %w", err)
	}

	r.logger.Info("Saved payment token",
		ports.String("customer_id", customerID),
		ports.String("mandate_id", mandate.ID),
		ports.String("token_id", token.ID))
	return nil
}

// RemoveTokens deletes tokens backed by a mandate that can no longer be charged
func (r *Resolver) RemoveTokens(ctx context.Context, mandateID string) error {
	if mandateID == "" {
		return nil
	}

	removed, err := r.tokens.DeleteByMandate(ctx, nil, mandateID)
	if err != nil {
		return fmt.Errorf("delete tokens for mandate: %w", err)
	}

	if removed > 0 {
		r.logger.Info("Removed payment tokens for mandate",
			ports.String("mandate_id", mandateID),
			ports.Int("removed", int(removed)))
	}
	return nil
}
