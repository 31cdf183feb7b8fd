package board

import (
	"github.com/relaytboard/taskboard/internal/task"
)

// TaskCreate admits a task against the concurrency limit, then allocates
// it, wires its coroutine, registers an execution in history, and places
// it. It returns false on admission overflow, before anything is recorded.
func (b *Board) TaskCreate(fn *task.Func, class task.Class, args any, sizeofArgs int) bool {
	if b.AddConcurrent() == 0 {
		if b.metrics != nil {
			b.metrics.TaskAdmissionRefused(class)
		}
		return false
	}

	t := task.New(b, fn, class, task.KindLocal, args, sizeofArgs != 0, b.cfg.StackSize)
	t.History = b.history.RecordExec(fn, fn.Name())
	t.Counted = true

	if b.metrics != nil {
		b.metrics.TaskAdmitted(class)
	}
	if b.events != nil {
		b.events.Publish("task.submitted", t.ID, map[string]any{"class": class.String(), "func": fn.Name()})
	}

	b.place(t)
	return true
}

// PlaceBlockingChild implements task.Scheduler for the blocking-subtask
// protocol: it builds a child whose parent link points at parent and
// places it. The concurrency counter is untouched; a blocking child
// replaces its parent in the execution pool rather than adding to it.
func (b *Board) PlaceBlockingChild(parent *task.Task, fn *task.Func, class task.Class, args any, sizeofArgs int) (*task.Task, bool) {
	if fn == nil {
		return nil, false
	}

	child := task.New(b, fn, class, task.KindBlockingChild, args, sizeofArgs != 0, b.cfg.StackSize)
	child.Parent = parent
	child.History = b.history.RecordExec(fn, fn.Name())

	if b.events != nil {
		b.events.Publish("task.spawned_blocking_child", child.ID, map[string]any{"parent": parent.ID, "class": class.String()})
	}

	b.place(child)
	return child, true
}

// SendRemote implements task.Scheduler for the remote-task protocol: it
// builds a remote-task record and enqueues it on the outbound message
// queue.
func (b *Board) SendRemote(caller *task.Task, message string, args []byte, sizeofArgs int, blocking bool) (*task.RemoteTask, bool) {
	rt := task.NewRemoteTask(caller, message, args, sizeofArgs, blocking)
	b.messages.PushOutbound(rt)

	if b.events != nil {
		b.events.Publish("task.remote_sent", caller.ID, map[string]any{"message": rt.Message, "blocking": blocking})
	}

	return rt, true
}
