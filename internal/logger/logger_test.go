package logger

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestInit(t *testing.T) {
	// Test that Init doesn't panic
	Init("info", false)
	assert.NotNil(t, Get())

	Init("debug", true)
	assert.NotNil(t, Get())
}

func TestInit_LogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"invalid", zerolog.InfoLevel}, // Default
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			Init(tt.level, false)
			assert.Equal(t, tt.expected, zerolog.GlobalLevel())
		})
	}
}

func TestWithComponent(t *testing.T) {
	Init("info", false)
	log := WithComponent("board")
	assert.NotNil(t, log)
}

func TestWithTask(t *testing.T) {
	Init("info", false)
	log := WithTask("task-123")
	assert.NotNil(t, log)
}

func TestWithFunc(t *testing.T) {
	Init("info", false)
	log := WithFunc("collatz")
	assert.NotNil(t, log)
}

func TestLevelHelpers(t *testing.T) {
	Init("debug", false)

	assert.NotNil(t, Debug())
	assert.NotNil(t, Info())
	assert.NotNil(t, Warn())
	assert.NotNil(t, Error())
}
