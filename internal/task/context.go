package task

// Context is a task's coroutine user-data slot, passed to every task
// function as its single argument. `Yield`, `SpawnBlockingChild`, and
// `SpawnRemoteTask` are methods on the value already in scope inside
// every task function, instead of free functions doing a hidden
// thread-local lookup; Go has no goroutine-local storage to hide one in.
type Context struct {
	sched Scheduler
	task  *Task

	// yieldFn suspends the coroutine; assigned once the task's coroutine
	// exists (see New), since the coroutine and the Context reference each
	// other.
	yieldFn func()

	lastYield  YieldReason
	childOK    bool
	lastRemote *RemoteTask
}

// Args returns the task's argument value, exactly as passed to
// board.TaskCreate or Context.SpawnBlockingChild.
func (c *Context) Args() any {
	return c.task.Args
}

// Task returns the task this context belongs to.
func (c *Context) Task() *Task {
	return c.task
}

// Yield suspends the running task, returning control to the executor,
// which reinserts the task into its own class queue.
func (c *Context) Yield() {
	c.lastYield = YieldPlain
	c.task.recordYield()
	c.yieldFn()
}

// SpawnBlockingChild builds and places a child task of the given class,
// then suspends the parent until the child completes. It returns false
// without suspending if the board refused placement (e.g. a nil
// function). The parent resumes from this call with true iff the child
// finished without panicking.
func (c *Context) SpawnBlockingChild(fn *Func, class Class, args any, sizeofArgs int) bool {
	_, placed := c.sched.PlaceBlockingChild(c.task, fn, class, args, sizeofArgs)
	if !placed {
		return false
	}
	c.lastYield = YieldSpawnedBlockingChild
	c.yieldFn()
	return c.childOK
}

// SpawnRemoteTask ships a remote-task request to the outbound message
// queue and suspends. Blocking callers resume once the sequencer
// observes the matching inbound response; non-blocking callers resume
// immediately after the send.
func (c *Context) SpawnRemoteTask(message string, args []byte, sizeofArgs int, blocking bool) bool {
	rt, sent := c.sched.SendRemote(c.task, message, args, sizeofArgs, blocking)
	if !sent {
		return false
	}
	c.lastRemote = rt
	if blocking {
		c.lastYield = YieldRemoteBlocking
	} else {
		c.lastYield = YieldRemoteNonBlocking
	}
	c.yieldFn()
	return true
}

// RemoteData returns the response payload of the most recent
// SpawnRemoteTask call. For a caller-owned buffer (sizeofArgs == 0 with a
// non-nil args slice) this is the same backing array the caller already
// holds; it is only needed to read a remote-owned allocation back.
func (c *Context) RemoteData() []byte {
	if c.lastRemote == nil {
		return nil
	}
	return c.lastRemote.Data
}

// LastYieldReason reports why the coroutine most recently returned
// SignalYield; the executor inspects this immediately after Resume.
func (c *Context) LastYieldReason() YieldReason {
	return c.lastYield
}

// SetChildResult is set by the executor's completion path on the parent's
// context, just before reinserting the parent, so SpawnBlockingChild's
// return value is ready the moment the parent resumes.
func (c *Context) SetChildResult(ok bool) {
	c.childOK = ok
}
