package cron

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/kevin07696/gocardless-service/internal/auth"
	"github.com/kevin07696/gocardless-service/internal/domain/ports"
	"github.com/kevin07696/gocardless-service/pkg/resilience"
	"github.com/kevin07696/gocardless-service/pkg/timeutil"
	"go.uber.org/zap"
)

const (
	defaultRetentionDays = 90
	minRetentionDays     = 7
	maxRetentionDays     = 3650
)

// EventPurger deletes webhook audit entries older than a cutoff
type EventPurger interface {
	PurgeEvents(ctx context.Context, db ports.DBTX, cutoff time.Time) (int64, error)
}

// EventCleanupHandler handles the cron job trimming the webhook event log
type EventCleanupHandler struct {
	purger EventPurger
	secret auth.SharedSecret
	logger   *zap.Logger
	timeouts resilience.Timeouts
	now      func() time.Time
}

// NewEventCleanupHandler creates a new event cleanup cron handler
func NewEventCleanupHandler(purger EventPurger, secret auth.SharedSecret, logger *zap.Logger) *EventCleanupHandler {
	return &EventCleanupHandler{
		purger: purger,
		secret: secret,
		logger:   logger,
		timeouts: resilience.DefaultTimeouts(),
		now:      timeutil.Now,
	}
}

// CleanupRequest represents the request body for event log cleanup
type CleanupRequest struct {
	RetentionDays *int `json:"retention_days"`
}

// CleanupResponse represents the response from event log cleanup
type CleanupResponse struct {
	Success     bool   `json:"success"`
	DeletedRows int64  `json:"deleted_rows"`
	CutoffDate  string `json:"cutoff_date"`
	ProcessedAt string `json:"processed_at"`
}

// CleanupEvents handles POST /cron/cleanup-events.
// Default retention is 90 days.
func (h *EventCleanupHandler) CleanupEvents(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("Event cleanup cron job triggered",
		zap.String("remote_addr", r.RemoteAddr),
	)

	if !h.secret.Matches(r.Header.Get(CronSecretHeader)) {
		h.logger.Warn("Unauthorized cron request",
			zap.String("remote_addr", r.RemoteAddr),
		)
		writeError(w, h.logger, http.StatusUnauthorized, "unauthorized")
		return
	}

	retentionDays := defaultRetentionDays
	if r.Body != nil && r.ContentLength > 0 {
		var req CleanupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.logger.Warn("Failed to parse request body, using defaults", zap.Error(err))
		} else if req.RetentionDays != nil {
			retentionDays = *req.RetentionDays
		}
	}

	if retentionDays < minRetentionDays {
		writeError(w, h.logger, http.StatusBadRequest, "retention must be at least 7 days")
		return
	}
	if retentionDays > maxRetentionDays {
		h.logger.Warn("Retention days exceeds maximum, capping to max",
			zap.Int("requested", retentionDays),
			zap.Int("maximum", maxRetentionDays),
		)
		retentionDays = maxRetentionDays
	}

	cutoff := h.now().AddDate(0, 0, -retentionDays)

	ctx, cancel := h.timeouts.CleanupContext(r.Context())
	defer cancel()

	deleted, err := h.purger.PurgeEvents(ctx, nil, cutoff)
	if err != nil {
		h.logger.Error("Failed to purge webhook events",
			zap.Time("cutoff_date", cutoff),
			zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "cleanup failed")
		return
	}

	h.logger.Info("Event cleanup completed",
		zap.Int64("deleted_rows", deleted),
		zap.Int("retention_days", retentionDays),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(CleanupResponse{
		Success:     true,
		DeletedRows: deleted,
		CutoffDate:  timeutil.Timestamp(cutoff),
		ProcessedAt: timeutil.Timestamp(h.now()),
	}); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}
