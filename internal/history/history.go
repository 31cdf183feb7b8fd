// Package history implements the per-function execution-history table:
// one entry per task function, tracking completion counts, mean CPU
// time, and yield statistics, guarded by a single mutex.
package history

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Entry is one function's aggregate execution statistics. Completions is
// always <= Executions; means are updated by incremental averaging at
// task completion.
type Entry struct {
	mu sync.Mutex

	Name        string
	MeanTime    time.Duration
	MeanYield   float64
	Yields      int64
	Executions  int64
	Completions int64
}

// Snapshot is a point-in-time copy of one entry's statistics, safe to
// hold outside the entry's lock.
type Snapshot struct {
	Name        string
	MeanTime    time.Duration
	MeanYield   float64
	Yields      int64
	Executions  int64
	Completions int64
}

func (e *Entry) snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		Name:        e.Name,
		MeanTime:    e.MeanTime,
		MeanYield:   e.MeanYield,
		Yields:      e.Yields,
		Executions:  e.Executions,
		Completions: e.Completions,
	}
}

// RecordYield bumps the running yield total. Called at every yield,
// independent of completion.
func (e *Entry) RecordYield() {
	e.mu.Lock()
	e.Yields++
	e.mu.Unlock()
}

// RecordCompletion folds one completed task's CPU time and yield count
// into the entry's incremental means.
func (e *Entry) RecordCompletion(cpuTime time.Duration, yieldCount int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.Completions++
	n := float64(e.Completions)

	e.MeanTime += time.Duration((float64(cpuTime) - float64(e.MeanTime)) / n)
	e.MeanYield += (float64(yieldCount) - e.MeanYield) / n
}

// Table is the board-wide history table, keyed by a handle (in practice a
// *task.Func pointer) for hot-path lookups, with a parallel name index for
// reporting and fallback lookup. The history package takes the handle as
// `any` rather than importing the task package, which would create an
// import cycle (Task holds a non-owning *Entry back-reference).
type Table struct {
	mu       sync.Mutex
	byHandle map[any]*Entry
	byName   map[string]*Entry
}

// NewTable creates an empty history table.
func NewTable() *Table {
	return &Table{
		byHandle: make(map[any]*Entry),
		byName:   make(map[string]*Entry),
	}
}

// RecordExec looks up the entry for handle/name, creating a zeroed one
// if missing, and increments its execution count. Every task start calls
// this, regardless of whether it ever completes.
func (t *Table) RecordExec(handle any, name string) *Entry {
	t.mu.Lock()
	entry, ok := t.byHandle[handle]
	if !ok {
		if byName, ok := t.byName[name]; ok {
			entry = byName
		} else {
			entry = &Entry{Name: name}
			t.byName[name] = entry
		}
		t.byHandle[handle] = entry
	}
	t.mu.Unlock()

	entry.mu.Lock()
	entry.Executions++
	entry.mu.Unlock()

	return entry
}

// FetchByHandle looks up an entry without creating one.
func (t *Table) FetchByHandle(handle any) (*Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.byHandle[handle]
	return e, ok
}

// ByName looks up an entry by its symbolic function name, the fallback
// path for reporting rather than the scheduling hot path.
func (t *Table) ByName(name string) (*Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.byName[name]
	return e, ok
}

// Entries returns a point-in-time snapshot of every entry, in no
// guaranteed order.
func (t *Table) Entries() []Snapshot {
	t.mu.Lock()
	names := make([]*Entry, 0, len(t.byName))
	for _, e := range t.byName {
		names = append(names, e)
	}
	t.mu.Unlock()

	out := make([]Snapshot, 0, len(names))
	for _, e := range names {
		out = append(out, e.snapshot())
	}
	return out
}

// PrintRecords formats one line per entry: "task 'name' completed C/E
// times, yielding Y times with mean execution time T".
func (t *Table) PrintRecords(w io.Writer) error {
	for _, e := range t.Entries() {
		_, err := fmt.Fprintf(w, "task '%s' completed %d/%d times, yielding %d times with mean execution time %s\n",
			e.Name, e.Completions, e.Executions, e.Yields, e.MeanTime)
		if err != nil {
			return err
		}
	}
	return nil
}
