package database

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kevin07696/gocardless-service/pkg/observability"
	"go.uber.org/zap"
)

const applicationName = "gocardless-service"

// PostgreSQLConfig sizes the pool shared by the repositories
type PostgreSQLConfig struct {
	DatabaseURL string

	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration

	// StatementTimeout is set as the session's statement_timeout so a stuck
	// query cannot hold an order row lock past the webhook deadline. Zero
	// leaves the server default.
	StatementTimeout time.Duration
}

func DefaultPostgreSQLConfig(databaseURL string) *PostgreSQLConfig {
	return &PostgreSQLConfig{
		DatabaseURL:      databaseURL,
		MaxConns:         25,
		MinConns:         5,
		MaxConnLifetime:  time.Hour,
		MaxConnIdleTime:  30 * time.Minute,
		StatementTimeout: 15 * time.Second,
	}
}

// PostgreSQLAdapter owns the pgx pool shared by the repositories
type PostgreSQLAdapter struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgreSQLAdapter connects and pings before returning
func NewPostgreSQLAdapter(ctx context.Context, cfg *PostgreSQLConfig, logger *zap.Logger) (*PostgreSQLAdapter, error) {
	poolConfig, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("PostgreSQL adapter initialized",
		zap.String("database", poolConfig.ConnConfig.Database),
		zap.String("host", poolConfig.ConnConfig.Host),
		zap.Uint16("port", poolConfig.ConnConfig.Port),
		zap.Int32("max_conns", cfg.MaxConns),
		zap.Int32("min_conns", cfg.MinConns),
	)

	return &PostgreSQLAdapter{pool: pool, logger: logger}, nil
}

func poolConfig(cfg *PostgreSQLConfig) (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	params := pc.ConnConfig.RuntimeParams
	if params["application_name"] == "" {
		params["application_name"] = applicationName
	}
	if cfg.StatementTimeout > 0 {
		params["statement_timeout"] = strconv.FormatInt(cfg.StatementTimeout.Milliseconds(), 10)
	}
	return pc, nil
}

func (a *PostgreSQLAdapter) Pool() *pgxpool.Pool {
	return a.pool
}

func (a *PostgreSQLAdapter) Close() {
	a.logger.Info("Closing PostgreSQL connection pool")
	a.pool.Close()
}

// StartPoolMonitoring samples the pool every interval until ctx is done,
// publishing the db_pool_connections gauge and warning above 80% use
func (a *PostgreSQLAdapter) StartPoolMonitoring(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				a.samplePool()
			}
		}
	}()

	a.logger.Info("Database connection pool monitoring started", zap.Duration("check_interval", interval))
}

func (a *PostgreSQLAdapter) samplePool() {
	stat := a.pool.Stat()
	total := stat.MaxConns()
	acquired := stat.AcquiredConns()
	observability.RecordDBPool(acquired, stat.IdleConns(), total)

	if total == 0 {
		return
	}
	utilization := float64(acquired) / float64(total) * 100

	switch {
	case utilization > 95:
		a.logger.Error("Database connection pool near exhaustion",
			zap.Float64("utilization_percent", utilization),
			zap.Int32("acquired", acquired),
			zap.Int32("total", total))
	case utilization > 80:
		a.logger.Warn("Database connection pool highly utilized",
			zap.Float64("utilization_percent", utilization),
			zap.Int32("acquired", acquired),
			zap.Int32("total", total))
	}
}
