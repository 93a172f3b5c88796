package cron

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/kevin07696/gocardless-service/internal/auth"
	"github.com/kevin07696/gocardless-service/pkg/resilience"
	"github.com/kevin07696/gocardless-service/pkg/timeutil"
	"go.uber.org/zap"
)

// CronSecretHeader authenticates scheduler calls
const CronSecretHeader = "X-Cron-Secret"

const maxBatchSize = 1000

// StatusChecker runs the scheduled payment status checks
type StatusChecker interface {
	RunDueStatusChecks(ctx context.Context, limit int32) (int, error)
}

// StatusCheckHandler handles cron job endpoints for payment status checks
type StatusCheckHandler struct {
	checker   StatusChecker
	secret    auth.SharedSecret
	batchSize int
	timeouts  resilience.Timeouts
	logger    *zap.Logger
}

// NewStatusCheckHandler creates a new status check cron handler
func NewStatusCheckHandler(checker StatusChecker, secret auth.SharedSecret, batchSize int, logger *zap.Logger) *StatusCheckHandler {
	if batchSize < 1 {
		batchSize = 100
	}
	return &StatusCheckHandler{
		checker:   checker,
		secret:    secret,
		batchSize: batchSize,
		timeouts:  resilience.DefaultTimeouts(),
		logger:    logger,
	}
}

// RunStatusChecksRequest represents the optional request body
type RunStatusChecksRequest struct {
	BatchSize *int `json:"batch_size"`
}

// RunStatusChecksResponse represents the response from a status check run
type RunStatusChecksResponse struct {
	Success     bool   `json:"success"`
	Processed   int    `json:"processed"`
	Error       string `json:"error,omitempty"`
	ProcessedAt string `json:"processed_at"`
}

// RunStatusChecks handles POST /cron/status-checks. Called by the scheduler
// to resolve orders whose payments were left without a final status.
func (h *StatusCheckHandler) RunStatusChecks(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("Status check cron job triggered",
		zap.String("remote_addr", r.RemoteAddr),
		zap.String("user_agent", r.UserAgent()),
	)

	if !h.secret.Matches(r.Header.Get(CronSecretHeader)) {
		h.logger.Warn("Unauthorized cron request",
			zap.String("remote_addr", r.RemoteAddr),
		)
		writeError(w, h.logger, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req RunStatusChecksRequest
	if r.Body != nil && r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.logger.Warn("Failed to parse request body", zap.Error(err))
			// Continue with defaults
		}
	}

	batchSize := h.batchSize
	if req.BatchSize != nil {
		if *req.BatchSize < 1 || *req.BatchSize > maxBatchSize {
			writeError(w, h.logger, http.StatusBadRequest, "batch_size must be between 1 and 1000")
			return
		}
		batchSize = *req.BatchSize
	}

	ctx, cancel := h.timeouts.StatusCheckContext(r.Context())
	defer cancel()

	processed, err := h.checker.RunDueStatusChecks(ctx, int32(batchSize))

	resp := RunStatusChecksResponse{
		Success:     err == nil,
		Processed:   processed,
		ProcessedAt: timeutil.Timestamp(timeutil.Now()),
	}
	status := http.StatusOK
	if err != nil {
		h.logger.Error("Status check run failed",
			zap.Int("processed", processed),
			zap.Error(err))
		resp.Error = "status check run failed"
		status = http.StatusInternalServerError
	} else {
		h.logger.Info("Status check run completed", zap.Int("processed", processed))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// HealthCheck handles GET /cron/health for monitoring
func (h *StatusCheckHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "healthy",
		"time":   timeutil.Timestamp(timeutil.Now()),
	})
}

func writeError(w http.ResponseWriter, logger *zap.Logger, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	resp := map[string]interface{}{
		"success": false,
		"error":   message,
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error("Failed to encode error response", zap.Error(err))
	}
}
