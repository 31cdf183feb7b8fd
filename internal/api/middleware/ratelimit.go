package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/relaytboard/taskboard/internal/logger"
)

// bucket is a token-bucket limiter, refilled continuously at rps tokens
// per second.
type bucket struct {
	tokens     float64
	maxTokens  float64
	refillRate float64
	lastRefill time.Time
	mu         sync.Mutex
}

func newBucket(rps int) *bucket {
	if rps <= 0 {
		rps = 1000
	}
	return &bucket{
		tokens:     float64(rps),
		maxTokens:  float64(rps),
		refillRate: float64(rps),
		lastRefill: time.Now(),
	}
}

func (b *bucket) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.tokens += now.Sub(b.lastRefill).Seconds() * b.refillRate
	if b.tokens > b.maxTokens {
		b.tokens = b.maxTokens
	}
	b.lastRefill = now

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// ClientRateLimiter maintains one token bucket per client identifier
// (X-Forwarded-For, falling back to RemoteAddr).
type ClientRateLimiter struct {
	buckets map[string]*bucket
	rps     int
	mu      sync.RWMutex
}

// NewClientRateLimiter creates a limiter admitting rps requests/second per
// client.
func NewClientRateLimiter(rps int) *ClientRateLimiter {
	return &ClientRateLimiter{buckets: make(map[string]*bucket), rps: rps}
}

func (c *ClientRateLimiter) bucketFor(client string) *bucket {
	c.mu.RLock()
	b, ok := c.buckets[client]
	c.mu.RUnlock()
	if ok {
		return b
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok = c.buckets[client]; ok {
		return b
	}
	b = newBucket(c.rps)
	c.buckets[client] = b
	return b
}

// ClientRateLimit returns middleware enforcing rps requests/second per
// client, identified by X-Forwarded-For or RemoteAddr.
func ClientRateLimit(rps int) func(http.Handler) http.Handler {
	limiter := NewClientRateLimiter(rps)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID := r.Header.Get("X-Forwarded-For")
			if clientID == "" {
				clientID = r.RemoteAddr
			}

			if !limiter.bucketFor(clientID).allow() {
				logger.Warn().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Str("client", clientID).
					Msg("admin API rate limit exceeded")

				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"too many requests"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
