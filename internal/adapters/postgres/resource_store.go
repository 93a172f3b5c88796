package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kevin07696/gocardless-service/internal/domain"
	"github.com/kevin07696/gocardless-service/internal/domain/ports"
)

// ResourceStore implements ports.ResourceStore on the order_resources table
type ResourceStore struct {
	pool   *pgxpool.Pool
	orders *OrderRepository
}

var _ ports.ResourceStore = (*ResourceStore)(nil)

// NewResourceStore creates a new resource store
func NewResourceStore(db ports.DBPort) *ResourceStore {
	return &ResourceStore{
		pool:   db.GetDB(),
		orders: NewOrderRepository(db),
	}
}

// Get returns the snapshot of a resource type held by an order
func (s *ResourceStore) Get(ctx context.Context, db ports.DBTX, orderID string, resourceType domain.ResourceType) (*domain.Snapshot, error) {
	q := executor(s.pool, db)

	var snap domain.Snapshot
	var rt string
	err := q.QueryRow(ctx, `
		SELECT order_id, resource_type, resource_id, status, payload, version, updated_at
		FROM order_resources
		WHERE order_id = $1 AND resource_type = $2`,
		orderID, string(resourceType),
	).Scan(&snap.OrderID, &rt, &snap.ResourceID, &snap.Status, &snap.Payload, &snap.Version, &snap.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrResourceNotFound
		}
		return nil, fmt.Errorf("get resource snapshot: %w", err)
	}
	snap.Type = domain.ResourceType(rt)
	return &snap, nil
}

// Put overwrites the snapshot, last writer wins
func (s *ResourceStore) Put(ctx context.Context, tx ports.DBTX, snapshot *domain.Snapshot) (int, error) {
	q := executor(s.pool, tx)

	payload, err := snapshotPayload(snapshot)
	if err != nil {
		return 0, err
	}

	var version int
	err = q.QueryRow(ctx, `
		INSERT INTO order_resources (order_id, resource_type, resource_id, status, payload)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (order_id, resource_type) DO UPDATE SET
			resource_id = EXCLUDED.resource_id,
			status = EXCLUDED.status,
			payload = EXCLUDED.payload,
			version = order_resources.version + 1,
			updated_at = NOW()
		RETURNING version`,
		snapshot.OrderID, string(snapshot.Type), snapshot.ResourceID, snapshot.Status, payload,
	).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("put resource snapshot: %w", err)
	}
	snapshot.Version = version
	return version, nil
}

// PutIfVersion writes only when the stored version matches expectedVersion.
// An expectedVersion of 0 inserts only when the order holds no such snapshot.
func (s *ResourceStore) PutIfVersion(ctx context.Context, tx ports.DBTX, snapshot *domain.Snapshot, expectedVersion int) (int, error) {
	q := executor(s.pool, tx)

	payload, err := snapshotPayload(snapshot)
	if err != nil {
		return 0, err
	}

	var row pgx.Row
	if expectedVersion == 0 {
		row = q.QueryRow(ctx, `
			INSERT INTO order_resources (order_id, resource_type, resource_id, status, payload)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (order_id, resource_type) DO NOTHING
			RETURNING version`,
			snapshot.OrderID, string(snapshot.Type), snapshot.ResourceID, snapshot.Status, payload)
	} else {
		row = q.QueryRow(ctx, `
			UPDATE order_resources
			SET resource_id = $3, status = $4, payload = $5, version = version + 1, updated_at = NOW()
			WHERE order_id = $1 AND resource_type = $2 AND version = $6
			RETURNING version`,
			snapshot.OrderID, string(snapshot.Type), snapshot.ResourceID, snapshot.Status, payload, expectedVersion)
	}

	var version int
	if err := row.Scan(&version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrVersionConflict
		}
		return 0, fmt.Errorf("put resource snapshot if version: %w", err)
	}
	snapshot.Version = version
	return version, nil
}

// FindOrderByResource resolves a remote resource to the order holding it.
// Orders win over subscriptions; a match found only on a subscription
// resolves to that subscription's last order.
func (s *ResourceStore) FindOrderByResource(ctx context.Context, db ports.DBTX, resourceType domain.ResourceType, resourceID string) (*domain.Order, error) {
	q := executor(s.pool, db)

	row := q.QueryRow(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE id = (
			SELECT r.order_id
			FROM order_resources r
			JOIN orders o ON o.id = r.order_id
			WHERE r.resource_type = $1 AND r.resource_id = $2
			ORDER BY (o.kind = 'subscription'), r.updated_at DESC
			LIMIT 1
		)`, string(resourceType), resourceID)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("find order by resource: %w", err)
	}

	if order.IsSubscription() {
		return s.orders.GetLastOrderForSubscription(ctx, db, order.ID)
	}
	return order, nil
}

// ReplaceMandate rewrites every mandate snapshot holding oldID
func (s *ResourceStore) ReplaceMandate(ctx context.Context, tx ports.DBTX, oldID, newID string) (int64, error) {
	q := executor(s.pool, tx)

	tag, err := q.Exec(ctx, `
		UPDATE order_resources
		SET resource_id = $2,
			payload = jsonb_build_object('id', $2::text),
			version = version + 1,
			updated_at = NOW()
		WHERE resource_type = 'mandate' AND resource_id = $1`, oldID, newID)
	if err != nil {
		return 0, fmt.Errorf("replace mandate snapshots: %w", err)
	}
	return tag.RowsAffected(), nil
}

// AddNote appends an order note
func (s *ResourceStore) AddNote(ctx context.Context, tx ports.DBTX, orderID, note string) error {
	q := executor(s.pool, tx)

	if _, err := q.Exec(ctx, `INSERT INTO order_notes (order_id, note) VALUES ($1, $2)`, orderID, note); err != nil {
		return fmt.Errorf("add order note: %w", err)
	}
	return nil
}

// ListNotes returns an order's notes, oldest first
func (s *ResourceStore) ListNotes(ctx context.Context, db ports.DBTX, orderID string) ([]domain.OrderNote, error) {
	q := executor(s.pool, db)

	rows, err := q.Query(ctx, `
		SELECT order_id, note, created_at FROM order_notes
		WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order notes: %w", err)
	}
	defer rows.Close()

	var notes []domain.OrderNote
	for rows.Next() {
		var n domain.OrderNote
		if err := rows.Scan(&n.OrderID, &n.Note, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order note: %w", err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// AppendEvent records a processed webhook event against an order
func (s *ResourceStore) AppendEvent(ctx context.Context, tx ports.DBTX, orderID string, event *domain.Event) error {
	q := executor(s.pool, tx)

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal webhook event: %w", err)
	}

	if _, err := q.Exec(ctx, `
		INSERT INTO order_webhook_events (order_id, event_id, resource_type, action, payload)
		VALUES ($1, $2, $3, $4, $5)`,
		orderID, event.ID, event.ResourceType, event.Action, payload); err != nil {
		return fmt.Errorf("append webhook event: %w", err)
	}
	return nil
}

// PurgeEvents deletes webhook audit entries recorded before cutoff
func (s *ResourceStore) PurgeEvents(ctx context.Context, db ports.DBTX, cutoff time.Time) (int64, error) {
	q := executor(s.pool, db)

	tag, err := q.Exec(ctx, `DELETE FROM order_webhook_events WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge webhook events: %w", err)
	}
	return tag.RowsAffected(), nil
}

// snapshotPayload reduces mandate snapshots to their id
func snapshotPayload(snapshot *domain.Snapshot) ([]byte, error) {
	if snapshot.Type == domain.ResourceMandate {
		return json.Marshal(map[string]string{"id": snapshot.ResourceID})
	}
	if len(snapshot.Payload) == 0 {
		return []byte("{}"), nil
	}
	return snapshot.Payload, nil
}
