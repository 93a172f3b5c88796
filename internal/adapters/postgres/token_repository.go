package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kevin07696/gocardless-service/internal/domain"
	"github.com/kevin07696/gocardless-service/internal/domain/ports"
)

const tokenColumns = `id, customer_id, gateway, mandate_id, scheme, account_holder_name,
	account_number_ending, bank_name, is_default, created_at`

// TokenRepository implements ports.TokenRepository
type TokenRepository struct {
	pool *pgxpool.Pool
}

var _ ports.TokenRepository = (*TokenRepository)(nil)

// NewTokenRepository creates a new payment token repository
func NewTokenRepository(db ports.DBPort) *TokenRepository {
	return &TokenRepository{pool: db.GetDB()}
}

// Create stores a new token, assigning an ID when empty
func (r *TokenRepository) Create(ctx context.Context, tx ports.DBTX, token *domain.PaymentToken) error {
	q := executor(r.pool, tx)

	if token.ID == "" {
		token.ID = uuid.New().String()
	}
	id, err := uuid.Parse(token.ID)
	if err != nil {
		return fmt.Errorf("invalid token ID: %w", err)
	}
	if token.Gateway == "" {
		token.Gateway = domain.GatewayID
	}

	err = q.QueryRow(ctx, `
		INSERT INTO payment_tokens (
			id, customer_id, gateway, mandate_id, scheme, account_holder_name,
			account_number_ending, bank_name, is_default
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`,
		id, token.CustomerID, token.Gateway, token.MandateID, token.Scheme,
		token.AccountHolderName, token.AccountNumberEnding, token.BankName, token.IsDefault,
	).Scan(&token.CreatedAt)
	if err != nil {
		return fmt.Errorf("create payment token: %w", err)
	}
	return nil
}

// GetByID retrieves a token by its ID
func (r *TokenRepository) GetByID(ctx context.Context, db ports.DBTX, id string) (*domain.PaymentToken, error) {
	q := executor(r.pool, db)

	tokenID, err := uuid.Parse(id)
	if err != nil {
		return nil, domain.ErrTokenNotFound
	}

	token, err := scanToken(q.QueryRow(ctx, `SELECT `+tokenColumns+` FROM payment_tokens WHERE id = $1`, tokenID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, fmt.Errorf("get payment token: %w", err)
	}
	return token, nil
}

// ListByCustomer lists a customer's tokens for this gateway, default first
func (r *TokenRepository) ListByCustomer(ctx context.Context, db ports.DBTX, customerID string) ([]*domain.PaymentToken, error) {
	q := executor(r.pool, db)

	rows, err := q.Query(ctx, `
		SELECT `+tokenColumns+` FROM payment_tokens
		WHERE customer_id = $1 AND gateway = $2
		ORDER BY is_default DESC, created_at`, customerID, domain.GatewayID)
	if err != nil {
		return nil, fmt.Errorf("list payment tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*domain.PaymentToken
	for rows.Next() {
		token, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment token: %w", err)
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}

// ExistsForCustomer reports whether the customer already saved the mandate
func (r *TokenRepository) ExistsForCustomer(ctx context.Context, db ports.DBTX, customerID, mandateID string) (bool, error) {
	q := executor(r.pool, db)

	var exists bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM payment_tokens
			WHERE customer_id = $1 AND gateway = $2 AND mandate_id = $3
		)`, customerID, domain.GatewayID, mandateID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check payment token: %w", err)
	}
	return exists, nil
}

// ReplaceMandate points every token holding oldID at newID
func (r *TokenRepository) ReplaceMandate(ctx context.Context, tx ports.DBTX, oldID, newID string) (int64, error) {
	q := executor(r.pool, tx)

	tag, err := q.Exec(ctx, `UPDATE payment_tokens SET mandate_id = $2 WHERE mandate_id = $1`, oldID, newID)
	if err != nil {
		return 0, fmt.Errorf("replace token mandate: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteByMandate removes every token holding the mandate
func (r *TokenRepository) DeleteByMandate(ctx context.Context, tx ports.DBTX, mandateID string) (int64, error) {
	q := executor(r.pool, tx)

	tag, err := q.Exec(ctx, `DELETE FROM payment_tokens WHERE mandate_id = $1`, mandateID)
	if err != nil {
		return 0, fmt.Errorf("delete tokens by mandate: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Delete removes a token owned by the customer
func (r *TokenRepository) Delete(ctx context.Context, tx ports.DBTX, customerID, id string) error {
	q := executor(r.pool, tx)

	tokenID, err := uuid.Parse(id)
	if err != nil {
		return domain.ErrTokenNotFound
	}

	tag, err := q.Exec(ctx, `DELETE FROM payment_tokens WHERE id = $1 AND customer_id = $2`, tokenID, customerID)
	if err != nil {
		return fmt.Errorf("delete payment token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTokenNotFound
	}
	return nil
}

func scanToken(row pgx.Row) (*domain.PaymentToken, error) {
	var (
		t  domain.PaymentToken
		id uuid.UUID
	)
	err := row.Scan(&id, &t.CustomerID, &t.Gateway, &t.MandateID, &t.Scheme, &t.AccountHolderName,
		&t.AccountNumberEnding, &t.BankName, &t.IsDefault, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.ID = id.String()
	return &t, nil
}
