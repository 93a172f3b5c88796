package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kevin07696/gocardless-service/internal/domain/ports"
)

// CustomerRepository implements ports.CustomerRepository
type CustomerRepository struct {
	pool *pgxpool.Pool
}

var _ ports.CustomerRepository = (*CustomerRepository)(nil)

// NewCustomerRepository creates a new customer mapping repository
func NewCustomerRepository(db ports.DBPort) *CustomerRepository {
	return &CustomerRepository{pool: db.GetDB()}
}

// GetRemoteCustomerID returns "" when the customer has no remote counterpart
func (r *CustomerRepository) GetRemoteCustomerID(ctx context.Context, db ports.DBTX, customerID string) (string, error) {
	if customerID == "" {
		return "", nil
	}
	q := executor(r.pool, db)

	var remoteID string
	err := q.QueryRow(ctx, `SELECT remote_customer_id FROM customer_remote_ids WHERE customer_id = $1`, customerID).Scan(&remoteID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("get remote customer id: %w", err)
	}
	return remoteID, nil
}

// SetRemoteCustomerID associates a remote customer with a local customer
func (r *CustomerRepository) SetRemoteCustomerID(ctx context.Context, tx ports.DBTX, customerID, remoteCustomerID string) error {
	q := executor(r.pool, tx)

	_, err := q.Exec(ctx, `
		INSERT INTO customer_remote_ids (customer_id, remote_customer_id)
		VALUES ($1, $2)
		ON CONFLICT (customer_id) DO UPDATE SET
			remote_customer_id = EXCLUDED.remote_customer_id,
			updated_at = NOW()`, customerID, remoteCustomerID)
	if err != nil {
		return fmt.Errorf("set remote customer id: %w", err)
	}
	return nil
}
