package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kevin07696/gocardless-service/internal/converters"
	"github.com/kevin07696/gocardless-service/internal/domain"
	"github.com/kevin07696/gocardless-service/internal/domain/ports"
)

const orderColumns = `id, number, customer_id, kind, parent_id, status, payment_method,
	currency, total, items, billing, contains_subscription, pre_order, paid_at,
	transaction_id, stock_reduced, temporary_activated, save_customer_token,
	legacy_subscription_id, version, created_at, updated_at`

// OrderRepository implements ports.OrderRepository
type OrderRepository struct {
	pool *pgxpool.Pool
}

var _ ports.OrderRepository = (*OrderRepository)(nil)

// NewOrderRepository creates a new order repository
func NewOrderRepository(db ports.DBPort) *OrderRepository {
	return &OrderRepository{pool: db.GetDB()}
}

// GetByID retrieves an order by its ID
func (r *OrderRepository) GetByID(ctx context.Context, db ports.DBTX, id string) (*domain.Order, error) {
	q := executor(r.pool, db)

	row := q.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order by id: %w", err)
	}
	return order, nil
}

// Upsert mirrors a host order without touching payment state owned here
func (r *OrderRepository) Upsert(ctx context.Context, tx ports.DBTX, order *domain.Order) error {
	q := executor(r.pool, tx)

	total, err := converters.ToNumeric(order.Total)
	if err != nil {
		return err
	}
	items, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}
	billing, err := json.Marshal(order.Billing)
	if err != nil {
		return fmt.Errorf("marshal billing: %w", err)
	}

	kind := order.Kind
	if kind == "" {
		kind = domain.OrderKindOrder
	}
	status := order.Status
	if status == "" {
		status = domain.OrderStatusPending
	}

	_, err = q.Exec(ctx, `
		INSERT INTO orders (
			id, number, customer_id, kind, parent_id, status, payment_method,
			currency, total, items, billing, contains_subscription, pre_order,
			legacy_subscription_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			number = EXCLUDED.number,
			customer_id = EXCLUDED.customer_id,
			kind = EXCLUDED.kind,
			parent_id = EXCLUDED.parent_id,
			payment_method = EXCLUDED.payment_method,
			currency = EXCLUDED.currency,
			total = EXCLUDED.total,
			items = EXCLUDED.items,
			billing = EXCLUDED.billing,
			contains_subscription = EXCLUDED.contains_subscription,
			pre_order = EXCLUDED.pre_order,
			legacy_subscription_id = COALESCE(EXCLUDED.legacy_subscription_id, orders.legacy_subscription_id),
			version = orders.version + 1,
			updated_at = NOW()`,
		order.ID, order.Number, order.CustomerID, string(kind), converters.ToNullableText(order.ParentID),
		string(status), order.PaymentMethod, order.Currency, total, items, billing,
		order.ContainsSubscription, string(order.PreOrder), converters.ToNullableText(order.LegacySubscriptionID),
	)
	if err != nil {
		return fmt.Errorf("upsert order: %w", err)
	}
	return nil
}

// UpdateStatus sets the order status
func (r *OrderRepository) UpdateStatus(ctx context.Context, tx ports.DBTX, id string, status domain.OrderStatus) error {
	q := executor(r.pool, tx)

	tag, err := q.Exec(ctx, `
		UPDATE orders SET status = $2, version = version + 1, updated_at = NOW()
		WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

// PaymentComplete moves an order in a completable status (see
// domain.CanCompletePayment) to status. The first paid date is kept.
func (r *OrderRepository) PaymentComplete(ctx context.Context, tx ports.DBTX, id, transactionID string, status domain.OrderStatus, paidAt time.Time) (bool, error) {
	q := executor(r.pool, tx)

	tag, err := q.Exec(ctx, `
		UPDATE orders
		SET status = $3,
		    transaction_id = COALESCE($2, transaction_id),
		    paid_at = COALESCE(paid_at, $4),
		    version = version + 1,
		    updated_at = NOW()
		WHERE id = $1 AND status = ANY($5)`,
		id, converters.ToNullableText(transactionID), string(status), paidAt, completableStatuses)
	if err != nil {
		return false, fmt.Errorf("complete order payment: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

var completableStatuses = []string{
	string(domain.OrderStatusPending),
	string(domain.OrderStatusOnHold),
	string(domain.OrderStatusFailed),
	string(domain.OrderStatusCancelled),
	string(domain.OrderStatusPreOrdered),
}

// ReduceStock flags stock as reduced unless it already is
func (r *OrderRepository) ReduceStock(ctx context.Context, tx ports.DBTX, id string) (bool, error) {
	q := executor(r.pool, tx)

	tag, err := q.Exec(ctx, `
		UPDATE orders SET stock_reduced = TRUE, updated_at = NOW()
		WHERE id = $1 AND NOT stock_reduced`, id)
	if err != nil {
		return false, fmt.Errorf("reduce order stock: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// SetTemporaryActivated sets or clears the temporary activation flag
func (r *OrderRepository) SetTemporaryActivated(ctx context.Context, tx ports.DBTX, id string, active bool) error {
	q := executor(r.pool, tx)

	if _, err := q.Exec(ctx, `
		UPDATE orders SET temporary_activated = $2, updated_at = NOW()
		WHERE id = $1`, id, active); err != nil {
		return fmt.Errorf("set temporary activation: %w", err)
	}
	return nil
}

// SetSaveCustomerToken records whether the mandate should be saved as a token
func (r *OrderRepository) SetSaveCustomerToken(ctx context.Context, tx ports.DBTX, id string, save bool) error {
	q := executor(r.pool, tx)

	if _, err := q.Exec(ctx, `
		UPDATE orders SET save_customer_token = $2, updated_at = NOW()
		WHERE id = $1`, id, save); err != nil {
		return fmt.Errorf("set save customer token: %w", err)
	}
	return nil
}

// ListSubscriptionsForOrder returns the subscriptions an order starts or renews.
// A renewal belongs to its parent subscription; any other order owns the
// subscriptions created from it.
func (r *OrderRepository) ListSubscriptionsForOrder(ctx context.Context, db ports.DBTX, order *domain.Order) ([]*domain.Order, error) {
	q := executor(r.pool, db)

	var (
		rows pgx.Rows
		err  error
	)
	if order.IsRenewal() {
		rows, err = q.Query(ctx, `SELECT `+orderColumns+` FROM orders
			WHERE id = $1 AND kind = 'subscription'`, order.ParentID)
	} else {
		rows, err = q.Query(ctx, `SELECT `+orderColumns+` FROM orders
			WHERE parent_id = $1 AND kind = 'subscription'
			ORDER BY created_at`, order.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("list subscriptions for order: %w", err)
	}
	return collectOrders(rows)
}

// GetLastOrderForSubscription returns the latest renewal, or the parent order
// when the subscription has not renewed yet
func (r *OrderRepository) GetLastOrderForSubscription(ctx context.Context, db ports.DBTX, subscriptionID string) (*domain.Order, error) {
	q := executor(r.pool, db)

	row := q.QueryRow(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE (parent_id = $1 AND kind = 'renewal')
		   OR id = (SELECT parent_id FROM orders WHERE id = $1 AND kind = 'subscription')
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, subscriptionID)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get last order for subscription: %w", err)
	}
	return order, nil
}

// GetByLegacySubscriptionID finds the order created for a remote subscription
func (r *OrderRepository) GetByLegacySubscriptionID(ctx context.Context, db ports.DBTX, remoteSubscriptionID string) (*domain.Order, error) {
	q := executor(r.pool, db)

	row := q.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders
		WHERE legacy_subscription_id = $1`, remoteSubscriptionID)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order by legacy subscription: %w", err)
	}
	return order, nil
}

func collectOrders(rows pgx.Rows) ([]*domain.Order, error) {
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return orders, nil
}

// scanOrder reads one row selected with orderColumns
func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o                                    domain.Order
		kind, status, preOrder               string
		parentID, transactionID, legacySubID pgtype.Text
		total                                pgtype.Numeric
		items, billing                       []byte
		paidAt                               pgtype.Timestamptz
	)

	err := row.Scan(
		&o.ID, &o.Number, &o.CustomerID, &kind, &parentID, &status, &o.PaymentMethod,
		&o.Currency, &total, &items, &billing, &o.ContainsSubscription, &preOrder, &paidAt,
		&transactionID, &o.StockReduced, &o.TemporaryActivated, &o.SaveCustomerToken,
		&legacySubID, &o.Version, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	o.Kind = domain.OrderKind(kind)
	o.Status = domain.OrderStatus(status)
	o.PreOrder = domain.PreOrderMode(preOrder)
	o.ParentID = converters.TextOrEmpty(parentID)
	o.TransactionID = converters.TextOrEmpty(transactionID)
	o.LegacySubscriptionID = converters.TextOrEmpty(legacySubID)
	o.PaidAt = converters.TimeOrNil(paidAt)

	if o.Total, err = converters.ToDecimal(total); err != nil {
		return nil, err
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &o.Items); err != nil {
			return nil, fmt.Errorf("unmarshal items: %w", err)
		}
	}
	if len(billing) > 0 {
		if err := json.Unmarshal(billing, &o.Billing); err != nil {
			return nil, fmt.Errorf("unmarshal billing: %w", err)
		}
	}
	return &o, nil
}
