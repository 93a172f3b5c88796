package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kevin07696/gocardless-service/internal/domain"
	"github.com/kevin07696/gocardless-service/internal/domain/ports"
)

// StatusCheckScheduler implements ports.StatusCheckScheduler on payment_status_checks
type StatusCheckScheduler struct {
	pool *pgxpool.Pool
}

var _ ports.StatusCheckScheduler = (*StatusCheckScheduler)(nil)

// NewStatusCheckScheduler creates a new deferred status check scheduler
func NewStatusCheckScheduler(db ports.DBPort) *StatusCheckScheduler {
	return &StatusCheckScheduler{pool: db.GetDB()}
}

// Schedule creates or moves the pending check for an order
func (s *StatusCheckScheduler) Schedule(ctx context.Context, tx ports.DBTX, orderID string, runAt time.Time) error {
	q := executor(s.pool, tx)

	_, err := q.Exec(ctx, `
		INSERT INTO payment_status_checks (order_id, run_at)
		VALUES ($1, $2)
		ON CONFLICT (order_id) DO UPDATE SET
			run_at = EXCLUDED.run_at,
			attempts = payment_status_checks.attempts + 1`, orderID, runAt)
	if err != nil {
		return fmt.Errorf("schedule status check: %w", err)
	}
	return nil
}

// Unschedule removes the pending check for an order
func (s *StatusCheckScheduler) Unschedule(ctx context.Context, tx ports.DBTX, orderID string) error {
	q := executor(s.pool, tx)

	if _, err := q.Exec(ctx, `DELETE FROM payment_status_checks WHERE order_id = $1`, orderID); err != nil {
		return fmt.Errorf("unschedule status check: %w", err)
	}
	return nil
}

// IsScheduled reports whether a check is pending for an order
func (s *StatusCheckScheduler) IsScheduled(ctx context.Context, db ports.DBTX, orderID string) (bool, error) {
	q := executor(s.pool, db)

	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM payment_status_checks WHERE order_id = $1)`, orderID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check status check: %w", err)
	}
	return exists, nil
}

// ListDue returns checks whose run time has passed, oldest first
func (s *StatusCheckScheduler) ListDue(ctx context.Context, db ports.DBTX, now time.Time, limit int32) ([]domain.StatusCheck, error) {
	q := executor(s.pool, db)

	rows, err := q.Query(ctx, `
		SELECT order_id, run_at, attempts FROM payment_status_checks
		WHERE run_at <= $1
		ORDER BY run_at
		LIMIT $2`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list due status checks: %w", err)
	}
	defer rows.Close()

	var checks []domain.StatusCheck
	for rows.Next() {
		var c domain.StatusCheck
		if err := rows.Scan(&c.OrderID, &c.RunAt, &c.Attempts); err != nil {
			return nil, fmt.Errorf("scan status check: %w", err)
		}
		checks = append(checks, c)
	}
	return checks, rows.Err()
}
