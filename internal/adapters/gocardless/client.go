package gocardless

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kevin07696/gocardless-service/internal/domain"
	"github.com/kevin07696/gocardless-service/internal/domain/ports"
	pkgerrors "github.com/kevin07696/gocardless-service/pkg/errors"
	"github.com/kevin07696/gocardless-service/pkg/observability"
	"github.com/kevin07696/gocardless-service/pkg/resilience"
	"go.uber.org/zap"
)

// Client implements ports.GoCardlessClient over the REST API
type Client struct {
	config     Config
	baseURL    string
	httpClient ports.HTTPClient
	breaker    *CircuitBreaker
	backoff    resilience.BackoffStrategy
	logger     *zap.Logger
}

// NewClient creates a new GoCardless API client with dependency injection
func NewClient(config Config, httpClient ports.HTTPClient, logger *zap.Logger) *Client {
	breakerConfig := DefaultCircuitBreakerConfig()
	breakerConfig.OnStateChange = func(from, to CircuitState) {
		logger.Warn("GoCardless circuit breaker state changed",
			zap.String("from", from.String()),
			zap.String("to", to.String()))
	}

	return &Client{
		config:     config,
		baseURL:    config.baseURL(),
		httpClient: httpClient,
		breaker:    NewCircuitBreaker(breakerConfig),
		backoff:    resilience.GoCardlessBackoff(),
		logger:     logger,
	}
}

// call sends a request wrapped in the {"<key>": {...}} envelope and decodes
// the same envelope key from the response into out
func (c *Client) call(ctx context.Context, operation, method, path, key string, in, out interface{}) error {
	var body interface{}
	if in != nil {
		body = map[string]interface{}{key: in}
	}

	var envelope map[string]json.RawMessage
	if err := c.do(ctx, operation, method, path, body, &envelope); err != nil {
		return err
	}

	raw, ok := envelope[key]
	if !ok {
		return domain.NewDomainError(domain.ErrorCodeUnexpectedResponse,
			fmt.Sprintf("unexpected %s response from GoCardless", key))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return domain.WrapError(domain.ErrorCodeUnexpectedResponse, "error decoding JSON response", err)
	}
	return nil
}

// do performs the request. Idempotent GETs are retried with backoff on
// network errors and 5xx responses; writes are attempted once.
func (c *Client) do(ctx context.Context, operation, method, path string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	attempts := 1
	if method == http.MethodGet {
		attempts += c.config.MaxGetRetries
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.backoff.NextDelay(attempt - 1)):
			}
			c.logger.Debug("Retrying GoCardless request",
				zap.String("operation", operation),
				zap.Int("attempt", attempt+1))
		}

		start := time.Now()
		var apiErr *APIError
		err := c.breaker.Call(func() error {
			sendErr := c.send(ctx, method, path, payload, out)
			// 4xx responses do not count against the breaker
			if errors.As(sendErr, &apiErr) && !apiErr.IsServerError() {
				return nil
			}
			return sendErr
		})
		if err == nil && apiErr != nil && !apiErr.IsServerError() {
			err = apiErr
		}

		observability.RecordGoCardlessRequest(operation, outcomeOf(err), time.Since(start).Seconds())

		if err == nil {
			return nil
		}
		lastErr = err
		if !isRetriable(err) {
			break
		}
	}

	if errors.Is(lastErr, ErrCircuitOpen) {
		return pkgerrors.NewGatewayError("CIRCUIT_OPEN", "GoCardless is temporarily unavailable", pkgerrors.CategoryCircuitOpen, false, lastErr)
	}
	return lastErr
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, out interface{}) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.config.AccessToken)
	req.Header.Set("GoCardless-Version", APIVersion)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("Sending GoCardless request",
		zap.String("method", method),
		zap.String("path", path))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("GoCardless HTTP request error",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err))
		return pkgerrors.NewNetworkError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return pkgerrors.NewNetworkError(fmt.Errorf("read response body: %w", err))
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := parseAPIError(resp.StatusCode, respBody, method, path)
		c.logger.Warn("GoCardless responded with error",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("type", apiErr.Type),
			zap.String("request_id", apiErr.RequestID),
			zap.String("message", apiErr.Message))
		return apiErr
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return domain.WrapError(domain.ErrorCodeUnexpectedResponse, "error decoding JSON response", err)
	}
	return nil
}

func isRetriable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsServerError()
	}
	return pkgerrors.IsRetriable(err)
}

func outcomeOf(err error) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrCircuitOpen):
		return "circuit_open"
	case errors.As(err, &apiErr):
		return "api_error"
	case pkgerrors.IsRetriable(err):
		return "network_error"
	default:
		return "error"
	}
}
