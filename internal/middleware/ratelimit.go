package middleware

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/maternal-risk-advisor/internal/domain"
)

// ClientRateLimiter keeps one token bucket per client. The least recently
// seen clients are evicted once MaxClients buckets exist.
type ClientRateLimiter struct {
	mu       sync.Mutex
	limiters *lru.Cache[string, *rate.Limiter]
	limit    rate.Limit
	burst    int
}

// NewClientRateLimiter creates a limiter from configuration.
func NewClientRateLimiter(cfg domain.RateLimitConfig) (*ClientRateLimiter, error) {
	if cfg.RequestsPerSecond <= 0 {
		return nil, fmt.Errorf("requests per second must be positive, got %v", cfg.RequestsPerSecond)
	}

	size := cfg.MaxClients
	if size <= 0 {
		size = 10000
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	cache, err := lru.New[string, *rate.Limiter](size)
	if err != nil {
		return nil, fmt.Errorf("creating limiter cache: %w", err)
	}

	return &ClientRateLimiter{
		limiters: cache,
		limit:    rate.Limit(cfg.RequestsPerSecond),
		burst:    burst,
	}, nil
}

// Allow reports whether the client may make a request now.
func (l *ClientRateLimiter) Allow(clientID string) bool {
	l.mu.Lock()
	limiter, ok := l.limiters.Get(clientID)
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters.Add(clientID, limiter)
	}
	l.mu.Unlock()

	return limiter.Allow()
}

// Clients returns the number of tracked clients.
func (l *ClientRateLimiter) Clients() int {
	return l.limiters.Len()
}

// RateLimit rejects requests over the per-client rate with 429.
func RateLimit(limiter *ClientRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter.Allow(c.ClientIP()) {
			c.Next()
			return
		}

		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, domain.NewAPIError(
			domain.ErrRateLimit,
			"Too many requests",
			"retry after one second",
			GetCorrelationID(c),
		))
	}
}
