package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

// HealthStatus represents the health status of the service
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// HealthChecker pings the database (critical) and optional dependencies
// whose failure only degrades the service
type HealthChecker struct {
	dbPool   *pgxpool.Pool
	redis    *redis.Client
	optional []namedCheck
}

type namedCheck struct {
	name string
	fn   func(context.Context) error
}

// NewHealthChecker creates a new HealthChecker. Either dependency may be nil.
func NewHealthChecker(dbPool *pgxpool.Pool, redisClient *redis.Client) *HealthChecker {
	return &HealthChecker{
		dbPool: dbPool,
		redis:  redisClient,
	}
}

// AddOptional registers a dependency whose failure reports "degraded"
// without taking the service out of rotation, such as the Kafka brokers
func (h *HealthChecker) AddOptional(name string, fn func(context.Context) error) {
	h.optional = append(h.optional, namedCheck{name: name, fn: fn})
}

// Check performs health checks and returns the status
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	checks := make(map[string]string)
	overallStatus := statusHealthy

	// Database health check
	if h.dbPool != nil {
		dbCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		if err := h.dbPool.Ping(dbCtx); err != nil {
			checks["database"] = "unhealthy: " + err.Error()
			overallStatus = statusUnhealthy
		} else {
			checks["database"] = "healthy"
		}
	} else {
		checks["database"] = "not configured"
	}

	// Redis backs the scheme cache only, failures are reported as degraded
	if h.redis != nil {
		redisCtx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()

		if err := h.redis.Ping(redisCtx).Err(); err != nil {
			checks["redis"] = "degraded: " + err.Error()
			if overallStatus == statusHealthy {
				overallStatus = statusDegraded
			}
		} else {
			checks["redis"] = "healthy"
		}
	} else {
		checks["redis"] = "not configured"
	}

	for _, c := range h.optional {
		checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := c.fn(checkCtx)
		cancel()

		if err != nil {
			checks[c.name] = statusDegraded + ": " + err.Error()
			if overallStatus == statusHealthy {
				overallStatus = statusDegraded
			}
			continue
		}
		checks[c.name] = statusHealthy
	}

	return HealthStatus{
		Status:    overallStatus,
		Timestamp: time.Now(),
		Checks:    checks,
	}
}

// HealthHandler returns an HTTP handler for health checks
func (h *HealthChecker) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := h.Check(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if status.Status == statusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		json.NewEncoder(w).Encode(status)
	}
}
