package ports

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx. Repositories take one
// so the same query runs inside or outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, arguments ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, arguments ...interface{}) pgx.Row
}

// DBPort gives services the pool and a unit of work. An order's status,
// its resource snapshots and its status-check row are always written in one
// WithTransaction call.
type DBPort interface {
	GetDB() *pgxpool.Pool

	// WithTransaction runs fn in a transaction, committing when fn returns
	// nil. fn may run more than once if Postgres aborts the transaction with
	// a deadlock or serialization failure, so it must not have side effects
	// outside tx.
	WithTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error
}
