package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaytboard/taskboard/internal/task"
)

func TestRegistry_RegisterAndLookup(t *testing.T) {
	reg := New()
	fn := task.NewFunc("noop", func(*task.Context) {})

	reg.Register("noop", fn)

	got, err := reg.Lookup("noop")
	require.NoError(t, err)
	assert.Same(t, fn, got)
}

func TestRegistry_LookupUnknown(t *testing.T) {
	reg := New()

	_, err := reg.Lookup("missing")
	assert.ErrorContains(t, err, "unregistered task type")
}

func TestRegistry_Names(t *testing.T) {
	reg := New()
	reg.Register("a", task.NewFunc("a", func(*task.Context) {}))
	reg.Register("b", task.NewFunc("b", func(*task.Context) {}))

	assert.ElementsMatch(t, []string{"a", "b"}, reg.Names())
}
