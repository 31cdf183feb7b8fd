package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffPolicy_ShouldRetry(t *testing.T) {
	p := BackoffPolicy{MaxAttempts: 3}

	assert.True(t, p.ShouldRetry(0))
	assert.True(t, p.ShouldRetry(2))
	assert.False(t, p.ShouldRetry(3))
	assert.False(t, p.ShouldRetry(10))
}

func TestBackoffPolicy_Backoff_Grows(t *testing.T) {
	p := BackoffPolicy{
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		BackoffFactor:  2.0,
	}

	assert.Equal(t, 100*time.Millisecond, p.Backoff(0))
	assert.True(t, p.Backoff(3) > p.Backoff(1))
}

func TestBackoffPolicy_Backoff_CapsAtMax(t *testing.T) {
	p := BackoffPolicy{
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     2 * time.Second,
		BackoffFactor:  10.0,
	}

	assert.LessOrEqual(t, p.Backoff(5), 2*time.Second+(2*time.Second/10))
}

func TestConfig_withDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()

	assert.Equal(t, "taskboard:remote", cfg.StreamPrefix)
	assert.Equal(t, "transport", cfg.ConsumerGroup)
	assert.Equal(t, 5*time.Second, cfg.BlockTimeout)
	assert.Equal(t, "taskboard:remote:requests", cfg.requestStream())
	assert.Equal(t, "taskboard:remote:replies", cfg.replyStream())
}
