package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var rateLimitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "http_rate_limited_total",
	Help: "Requests rejected by the per-client rate limiter",
}, []string{"scope"})

type bucket struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter keeps one token bucket per (scope, client IP). Webhook
// deliveries and browser checkout completions use different scopes so a
// burst of events from GoCardless never blocks a customer's redirect.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	rate            rate.Limit
	burst           int
	maxSize         int
	cleanupInterval time.Duration
	now             func() time.Time

	stopCh   chan struct{}
	stopOnce sync.Once
	logger   *zap.Logger
}

// NewRateLimiter allows requestsPerSecond per scope and IP, with bursts up
// to burst. Stale buckets are dropped every five minutes until Shutdown.
func NewRateLimiter(requestsPerSecond float64, burst int, logger *zap.Logger) *RateLimiter {
	rl := &RateLimiter{
		buckets:         make(map[string]*bucket),
		rate:            rate.Limit(requestsPerSecond),
		burst:           burst,
		maxSize:         10000,
		cleanupInterval: 5 * time.Minute,
		now:             time.Now,
		stopCh:          make(chan struct{}),
		logger:          logger,
	}

	go rl.cleanupLoop()
	return rl
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.cleanupInterval)
	removed := 0
	for key, b := range rl.buckets {
		if b.lastAccess.Before(cutoff) {
			delete(rl.buckets, key)
			removed++
		}
	}

	if removed > 0 {
		rl.logger.Debug("Rate limiter cleanup",
			zap.Int("removed", removed),
			zap.Int("remaining", len(rl.buckets)))
	}
}

func (rl *RateLimiter) Shutdown() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if b, ok := rl.buckets[key]; ok {
		b.lastAccess = now
		return b.limiter
	}

	if len(rl.buckets) >= rl.maxSize {
		rl.evictOldest()
	}

	b := &bucket{limiter: rate.NewLimiter(rl.rate, rl.burst), lastAccess: now}
	rl.buckets[key] = b
	return b.limiter
}

// evictOldest drops the least recently used bucket. Caller holds mu.
func (rl *RateLimiter) evictOldest() {
	var oldest string
	var oldestTime time.Time
	for key, b := range rl.buckets {
		if oldest == "" || b.lastAccess.Before(oldestTime) {
			oldest, oldestTime = key, b.lastAccess
		}
	}
	delete(rl.buckets, oldest)
}

// Limit returns middleware that rate limits requests under scope
func (rl *RateLimiter) Limit(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)

			res := rl.limiter(scope + "|" + ip).ReserveN(rl.now(), 1)
			if delay := res.DelayFrom(rl.now()); delay > 0 {
				res.CancelAt(rl.now())
				rateLimitedTotal.WithLabelValues(scope).Inc()
				rl.logger.Warn("Rate limit exceeded",
					zap.String("scope", scope),
					zap.String("client_ip", ip),
					zap.String("path", r.URL.Path))

				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
				http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP strips the port so every connection from a host shares a bucket.
// chi's RealIP runs first, so RemoteAddr already reflects X-Forwarded-For.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
