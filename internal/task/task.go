// Package task defines the scheduler's task model: the coroutine-backed
// unit of work, its priority class and lifecycle state, its history
// linkage, and the per-task Context a running task function uses to
// yield, spawn blocking children, or send remote requests.
package task

import (
	"time"

	"github.com/google/uuid"

	"github.com/relaytboard/taskboard/internal/coroutine"
	"github.com/relaytboard/taskboard/internal/history"
)

// Scheduler is the board-side surface a task's Context uses to place a
// blocking child or a remote-task request. Defined here (rather than
// importing the board package) to avoid an import cycle: board imports
// task, not the reverse.
type Scheduler interface {
	// PlaceBlockingChild builds and enqueues a blocking child of parent,
	// returning the child and whether placement succeeded.
	PlaceBlockingChild(parent *Task, fn *Func, class Class, args any, sizeofArgs int) (*Task, bool)
	// SendRemote enqueues a remote-task request on behalf of caller,
	// returning the record (so the caller's Context can later read back its
	// response data) and whether it was accepted.
	SendRemote(caller *Task, message string, args []byte, sizeofArgs int, blocking bool) (*RemoteTask, bool)
}

// Task is one schedulable unit of work: a coroutine, its placement and
// lifecycle state, and its (non-owning) history linkage.
//
// Invariants: exactly one executor resumes a task at any moment; Running
// implies the task is not present in any ready queue; Completed implies
// it has been removed from all queues and its coroutine destroyed.
type Task struct {
	ID    string
	Kind  Kind
	Class Class
	State Lifecycle

	Func *Func
	Args any
	// ArgsOwned marks an argument passed with a non-zero size, owned by
	// the task for its lifetime. Go's GC reclaims the backing value
	// regardless; the flag records the ownership split rather than
	// driving any manual free.
	ArgsOwned bool

	Coroutine *coroutine.Context
	History   *history.Entry // non-owning back-reference

	// Parent is only set for a KindBlockingChild task: a non-owning
	// back-pointer to the suspended task that spawned it.
	Parent *Task

	// Counted records whether this task's creation incremented the
	// board's concurrency counter, so completion decrements it exactly
	// when it should (blocking children never increment it).
	Counted bool

	CPUTime    time.Duration
	YieldCount int

	ctx *Context
}

// New constructs a task and its coroutine. sched lets the task's Context
// place blocking children / remote requests through the owning board
// without task importing board.
func New(sched Scheduler, fn *Func, class Class, kind Kind, args any, argsOwned bool, stackSize int) *Task {
	t := &Task{
		ID:        uuid.New().String(),
		Kind:      kind,
		Class:     class,
		State:     Initialized,
		Func:      fn,
		Args:      args,
		ArgsOwned: argsOwned,
	}

	tc := &Context{sched: sched, task: t}
	t.ctx = tc

	coro := coroutine.New(coroutine.Descriptor{
		StackSize: stackSize,
		Entry: func(*coroutine.Context) {
			fn.invoke(tc)
		},
	})
	coro.UserData = tc
	tc.yieldFn = coro.Yield

	t.Coroutine = coro

	return t
}

// Context returns the task's coroutine user-data slot, the same value
// passed to its entry function.
func (t *Task) Context() *Context {
	return t.ctx
}

// AddCPUTime accumulates coroutine-resumed wall time, measured by the
// executor around each Resume call.
func (t *Task) AddCPUTime(d time.Duration) {
	t.CPUTime += d
}

func (t *Task) recordYield() {
	t.YieldCount++
	if t.History != nil {
		t.History.RecordYield()
	}
}

// Finalize marks the task Completed and folds its stats into history.
// Called by the executor once, when the coroutine signals finished.
func (t *Task) Finalize() {
	t.State = Completed
	if t.History != nil {
		t.History.RecordCompletion(t.CPUTime, t.YieldCount)
	}
	t.Coroutine.Destroy()
}

// Panicked reports whether the task's coroutine ended via a recovered
// panic rather than a normal return.
func (t *Task) Panicked() (any, bool) {
	return t.Coroutine.Recovered()
}
