package transport

import (
	"math"
	"math/rand"
	"time"
)

// BackoffPolicy is the exponential-backoff-with-jitter policy the demo
// transport actor uses when a remote delivery attempt fails. It governs
// delivery retries only; tasks themselves are never resubmitted.
type BackoffPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64
	JitterFactor   float64
}

// DefaultBackoffPolicy returns the default delivery-retry policy.
func DefaultBackoffPolicy() BackoffPolicy {
	return BackoffPolicy{
		MaxAttempts:    5,
		InitialBackoff: 250 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		BackoffFactor:  2.0,
		JitterFactor:   0.1,
	}
}

// Backoff calculates the delay before delivery attempt number attempt
// (0-indexed).
func (p BackoffPolicy) Backoff(attempt int) time.Duration {
	if attempt <= 0 {
		return p.InitialBackoff
	}

	backoff := float64(p.InitialBackoff) * math.Pow(p.BackoffFactor, float64(attempt))
	if backoff > float64(p.MaxBackoff) {
		backoff = float64(p.MaxBackoff)
	}

	if p.JitterFactor > 0 {
		jitter := backoff * p.JitterFactor * (rand.Float64()*2 - 1)
		backoff += jitter
	}

	if backoff < 0 {
		backoff = float64(p.InitialBackoff)
	}

	return time.Duration(backoff)
}

// ShouldRetry reports whether another delivery attempt is permitted.
func (p BackoffPolicy) ShouldRetry(attempt int) bool {
	return attempt < p.MaxAttempts
}
