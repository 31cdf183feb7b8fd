package board

import "time"

// MaxSecondaries is the hard cap on secondary executors.
const MaxSecondaries = 10

// DefaultMaxTasks is MAX_TASKS, the default admission limit.
// Tests override it via Config.MaxTasks to exercise admission denial
// without spinning up tens of thousands of goroutines.
const DefaultMaxTasks = 65536

// Config parameterizes a Board at Create time. Zero values for
// MaxTasks/StackSize fall back to the built-in defaults.
type Config struct {
	// Secondaries is the requested secondary-queue count, capped at
	// MaxSecondaries.
	Secondaries int

	// MaxTasks overrides DefaultMaxTasks; 0 means use the default.
	MaxTasks int

	// StackSize is the informational coroutine stack size passed to every
	// task's coroutine.Descriptor.
	StackSize int

	// ReinsertAtHead selects the yield-reinsertion policy. With it set,
	// a yielded task is resumed next unless another executor intervenes.
	ReinsertAtHead bool

	// SignalPrimaryOnSecondaryInsert wakes an idle primary executor when
	// a secondary task is placed, so it can help drain secondaries.
	SignalPrimaryOnSecondaryInsert bool

	// SuppressHelpingUnderPriorityLoad stops the primary from helping a
	// secondary queue while any Priority task is queued or running.
	SuppressHelpingUnderPriorityLoad bool

	// ShutdownTimeout bounds how long Destroy waits for executors to join
	// before giving up and returning anyway; 0 means wait indefinitely.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns the contract's compile-time defaults: reinsert
// yielded tasks at the head, signal the primary on secondary inserts,
// and suppress primary helping while a Priority task is in flight. The
// zero Config disables all three policies; tests use that to pin down
// each policy's effect in isolation.
func DefaultConfig(secondaries int) Config {
	return Config{
		Secondaries:                      secondaries,
		ReinsertAtHead:                   true,
		SignalPrimaryOnSecondaryInsert:   true,
		SuppressHelpingUnderPriorityLoad: true,
	}
}

// withDefaults returns a copy of cfg with zero fields resolved to the
// built-in defaults.
func (cfg Config) withDefaults() Config {
	if cfg.Secondaries > MaxSecondaries {
		cfg.Secondaries = MaxSecondaries
	}
	if cfg.Secondaries < 0 {
		cfg.Secondaries = 0
	}
	if cfg.MaxTasks == 0 {
		cfg.MaxTasks = DefaultMaxTasks
	}
	return cfg
}
