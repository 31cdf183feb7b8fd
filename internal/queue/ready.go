// Package queue implements the board's ready queues and message queues:
// FIFOs guarded by a mutex and condition variable. Broadcast wakeups and
// drain-then-observe-close semantics make a sync.Cond, rather than a
// channel, the right primitive here.
package queue

import (
	"container/list"
	"sync"

	"github.com/relaytboard/taskboard/internal/task"
)

// Ready is one class's ready queue: FIFO enqueue at the tail, dequeue at
// the head, with a reinsertion policy for yielded tasks (head by
// default, so a yielded task is resumed again before any task already
// queued behind it).
type Ready struct {
	mu      sync.Mutex
	cond    *sync.Cond
	tasks   *list.List
	closing bool
}

// NewReady creates an empty ready queue.
func NewReady() *Ready {
	r := &Ready{tasks: list.New()}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// PushTail enqueues a newly created task, signalling one waiting
// executor.
func (r *Ready) PushTail(t *task.Task) {
	r.mu.Lock()
	r.tasks.PushBack(t)
	r.mu.Unlock()
	r.cond.Signal()
}

// PushHead enqueues at the head: used for Priority placement and
// for the default yield-reinsertion policy.
func (r *Ready) PushHead(t *task.Task) {
	r.mu.Lock()
	r.tasks.PushFront(t)
	r.mu.Unlock()
	r.cond.Signal()
}

// Len reports the current queue length, used by placement to find the
// shortest secondary queue.
func (r *Ready) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tasks.Len()
}

// Wait blocks until the queue is non-empty or Close is called, then pops
// and returns the head task. It returns ok=false only once the queue has
// been closed and drained.
func (r *Ready) Wait() (t *task.Task, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for r.tasks.Len() == 0 && !r.closing {
		r.cond.Wait()
	}
	if r.tasks.Len() == 0 {
		return nil, false
	}
	return r.popFrontLocked(), true
}

// BlockUntilActivityOrClosed waits for one wakeup (a push, a Nudge, or
// Close) without popping or assuming anything about which queue changed;
// the executor's own dispatch loop re-examines every queue it cares
// about afterward. It returns true once the queue is closed and empty.
func (r *Ready) BlockUntilActivityOrClosed() (closed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tasks.Len() == 0 && !r.closing {
		r.cond.Wait()
	}
	return r.closing && r.tasks.Len() == 0
}

// TryPop returns the head task without blocking, or ok=false if empty.
// Used by primary-helping to opportunistically drain a secondary.
func (r *Ready) TryPop() (t *task.Task, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tasks.Len() == 0 {
		return nil, false
	}
	return r.popFrontLocked(), true
}

func (r *Ready) popFrontLocked() *task.Task {
	front := r.tasks.Front()
	r.tasks.Remove(front)
	return front.Value.(*task.Task)
}

// Nudge wakes one waiter without enqueuing anything: used when a
// secondary insert also signals the primary condvar under
// signal-primary-on-secondary-insert, so an idle primary
// wakes up to consider helping.
func (r *Ready) Nudge() {
	r.cond.Signal()
}

// Drain removes and returns every remaining task, used by board shutdown
// to finalize whatever never got to run. Parent-before-child finalize
// ordering is the caller's responsibility since Drain has no
// parent/child knowledge.
func (r *Ready) Drain() []*task.Task {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*task.Task, 0, r.tasks.Len())
	for e := r.tasks.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(*task.Task))
	}
	r.tasks.Init()
	return out
}

// Close marks the queue closing and wakes every waiter; Wait then returns
// ok=false once drained. Mirrors Kill's "broadcasts every executor
// condvar so sleepers wake".
func (r *Ready) Close() {
	r.mu.Lock()
	r.closing = true
	r.mu.Unlock()
	r.cond.Broadcast()
}
