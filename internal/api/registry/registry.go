// Package registry maps symbolic task-type names, the only shape a JSON
// task submission can carry, to the registered task.Func a board embedder
// actually runs. Kept separate from internal/api so both the routes
// package and the handlers package can depend on it without a cycle.
package registry

import (
	"fmt"
	"sync"

	"github.com/relaytboard/taskboard/internal/task"
)

// Registry is a concurrency-safe name -> *task.Func map.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]*task.Func
}

// New creates an empty task-type registry.
func New() *Registry {
	return &Registry{funcs: make(map[string]*task.Func)}
}

// Register adds fn under name, the "type" field submitters use.
func (r *Registry) Register(name string, fn *task.Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = fn
}

// Lookup resolves name to its registered function.
func (r *Registry) Lookup(name string) (*task.Func, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	if !ok {
		return nil, fmt.Errorf("unregistered task type %q", name)
	}
	return fn, nil
}

// Names lists every registered task-type name.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	return names
}
