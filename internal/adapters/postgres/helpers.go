package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kevin07696/gocardless-service/internal/domain/ports"
)

// executor returns tx when set, otherwise the pool
func executor(pool *pgxpool.Pool, tx ports.DBTX) ports.DBTX {
	if tx != nil {
		return tx
	}
	return pool
}
