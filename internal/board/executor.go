package board

import (
	"time"

	"github.com/relaytboard/taskboard/internal/coroutine"
	"github.com/relaytboard/taskboard/internal/queue"
	"github.com/relaytboard/taskboard/internal/task"
)

// executor is one worker loop, primary or secondary. Each runs a
// single-threaded cooperative dispatch loop on its own goroutine; tasks
// never migrate between executors except by primary-helping.
type executor struct {
	board     *Board
	isPrimary bool
	index     int
	own       *queue.Ready
}

func newExecutor(b *Board, isPrimary bool, index int) *executor {
	ex := &executor{board: b, isPrimary: isPrimary, index: index}
	if isPrimary {
		ex.own = b.primary
	} else {
		ex.own = b.secondaries[index]
	}
	return ex
}

// run is the executor main loop.
func (ex *executor) run() {
	for {
		// Cancellation point: once the shutdown flag is up, exit even if
		// the queue still has work; whatever remains is freed by Destroy.
		select {
		case <-ex.board.shutdownCh:
			return
		default:
		}

		ex.sequence()

		t, source, ok := ex.dequeue()
		if !ok {
			return
		}

		t.State = task.Running
		start := time.Now()
		sig, err := t.Coroutine.Resume()
		t.AddCPUTime(time.Since(start))
		if err != nil {
			continue
		}

		switch sig {
		case coroutine.SignalFinished:
			ex.onFinished(t)
		case coroutine.SignalYield:
			ex.onYield(t, source)
		}
	}
}

// sequence drains inbound remote responses. A blocking caller is
// reinserted under its own class's placement policy; a non-blocking
// response is just dropped, since its caller was already reinserted at
// send time.
func (ex *executor) sequence() {
	for _, rt := range ex.board.messages.DrainInbound() {
		if ex.board.events != nil {
			ex.board.events.Publish("task.remote_received", callerID(rt), map[string]any{"blocking": rt.Blocking})
		}
		if rt.Blocking && rt.Caller != nil {
			rt.Caller.State = task.Initialized
			// place counts a Priority task as in flight again; drop the
			// count this caller already holds so it is counted once.
			ex.board.priorityDone(rt.Caller)
			ex.board.place(rt.Caller)
		}
	}
}

func callerID(rt *task.RemoteTask) string {
	if rt.Caller == nil {
		return ""
	}
	return rt.Caller.ID
}

// dequeue pops from the executor's own queue. The primary, unless
// priority helping is suppressed, may instead borrow from the longest
// non-empty secondary queue. It blocks on the own queue's condvar when
// there is nothing to do, rechecking both on every wakeup.
func (ex *executor) dequeue() (t *task.Task, source *queue.Ready, ok bool) {
	for {
		if t, ok := ex.own.TryPop(); ok {
			return t, ex.own, true
		}
		if ex.isPrimary && !ex.board.priorityHelpingSuppressed() {
			if src, t, ok := ex.board.longestSecondary(); ok {
				return t, src, true
			}
		}
		if ex.own.BlockUntilActivityOrClosed() {
			return nil, nil, false
		}
	}
}

// onFinished handles a coroutine that returned (or panicked).
func (ex *executor) onFinished(t *task.Task) {
	panicVal, panicked := t.Panicked()
	t.Finalize()
	ex.board.priorityDone(t)
	if t.Counted {
		ex.board.deincConcurrent()
	}

	if ex.board.metrics != nil {
		if panicked {
			ex.board.metrics.TaskPanicked(t.Class)
		} else {
			ex.board.metrics.TaskCompleted(t.Class, t.CPUTime)
		}
	}
	if ex.board.events != nil {
		kind := "task.completed"
		if panicked {
			kind = "task.panicked"
		}
		ex.board.events.Publish(kind, t.ID, map[string]any{"class": t.Class.String(), "cpu_time": t.CPUTime.String()})
	}
	if panicked {
		ex.board.log.Warn().Str("task", t.ID).Interface("panic", panicVal).Msg("task panicked")
	}

	if t.Parent != nil {
		parent := t.Parent
		parent.Context().SetChildResult(!panicked)
		parent.State = task.Initialized
		ex.board.priorityDone(parent)
		ex.board.place(parent)
	}
}

// onYield handles a coroutine that suspended. source is
// the queue it was dequeued from, which for a primary-helped secondary
// task is that secondary queue, not the primary's own.
func (ex *executor) onYield(t *task.Task, source *queue.Ready) {
	switch t.Context().LastYieldReason() {
	case task.YieldPlain, task.YieldRemoteNonBlocking:
		t.State = task.Initialized
		ex.reinsert(t, source)
	case task.YieldSpawnedBlockingChild, task.YieldRemoteBlocking:
		// Left un-queued on purpose: a blocking child's completion, or a
		// remote response's arrival, reinserts this task.
	}
}

func (ex *executor) reinsert(t *task.Task, source *queue.Ready) {
	if ex.board.cfg.ReinsertAtHead {
		source.PushHead(t)
	} else {
		source.PushTail(t)
	}
}

// longestSecondary finds the secondary queue with the most backlog and
// pops its head task, for primary-helping.
func (b *Board) longestSecondary() (source *queue.Ready, t *task.Task, ok bool) {
	var best *queue.Ready
	bestLen := 0
	for _, s := range b.secondaries {
		if l := s.Len(); l > bestLen {
			best, bestLen = s, l
		}
	}
	if best == nil {
		return nil, nil, false
	}
	popped, ok := best.TryPop()
	if !ok {
		return nil, nil, false
	}
	return best, popped, true
}
