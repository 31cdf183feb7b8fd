// Package board implements the task board: the owning aggregate that
// ties together ready queues, message queues, the history table, the
// executor pool, and the concurrency-count admission limit.
package board

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/relaytboard/taskboard/internal/history"
	"github.com/relaytboard/taskboard/internal/logger"
	"github.com/relaytboard/taskboard/internal/queue"
	"github.com/relaytboard/taskboard/internal/task"
)

// Status is the board's lifecycle status.
type Status int

const (
	Created Status = iota
	Started
	Stopped
)

func (s Status) String() string {
	switch s {
	case Created:
		return "created"
	case Started:
		return "started"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Metrics is the optional observability hook a board reports into; nil is
// a valid, no-op value. Kept as a small interface here (rather than a
// direct import of internal/metrics) so board has no dependency on the
// concrete Prometheus collector.
type Metrics interface {
	TaskAdmitted(class task.Class)
	TaskAdmissionRefused(class task.Class)
	TaskCompleted(class task.Class, cpuTime time.Duration)
	TaskPanicked(class task.Class)
	ConcurrentTasks(n int)
	QueueDepth(queueName string, depth int)
}

// Events is the optional lifecycle-event sink a board publishes into; nil
// is a valid, no-op value.
type Events interface {
	Publish(kind string, taskID string, detail map[string]any)
}

// Board is the scheduler's owning aggregate. mu guards the lifecycle
// status only; Start, Kill and Status hold it for short status reads and
// writes, never while waiting on executors.
type Board struct {
	cfg Config

	mu     sync.Mutex
	status Status

	countMu   sync.Mutex
	concurrent int

	priorityInFlight int32

	primary     *queue.Ready
	secondaries []*queue.Ready
	messages    *queue.Message
	history     *history.Table

	shutdownCh chan struct{}
	killOnce   sync.Once
	wg         sync.WaitGroup

	metrics Metrics
	events  Events
	log     zerolog.Logger
}

// New creates a board in status Created: queues, history
// root, and counters are initialized; no executors are running yet.
func New(cfg Config, metrics Metrics, events Events) *Board {
	cfg = cfg.withDefaults()

	b := &Board{
		cfg:        cfg,
		status:     Created,
		primary:    queue.NewReady(),
		history:    history.NewTable(),
		messages:   queue.NewMessage(),
		shutdownCh: make(chan struct{}),
		metrics:    metrics,
		events:     events,
		log:        *logger.WithComponent("board"),
	}

	b.secondaries = make([]*queue.Ready, cfg.Secondaries)
	for i := range b.secondaries {
		b.secondaries[i] = queue.NewReady()
	}

	return b
}

// Start spawns the primary executor and cfg.Secondaries secondary
// executors.
func (b *Board) Start() {
	b.mu.Lock()
	if b.status != Created {
		b.mu.Unlock()
		return
	}
	b.status = Started
	b.mu.Unlock()

	b.wg.Add(1)
	go b.runExecutor(newExecutor(b, true, 0))

	for i := range b.secondaries {
		b.wg.Add(1)
		go b.runExecutor(newExecutor(b, false, i))
	}

	b.log.Info().Int("secondaries", len(b.secondaries)).Msg("board started")
	if b.events != nil {
		b.events.Publish("board.started", "", map[string]any{"secondaries": len(b.secondaries)})
	}
}

func (b *Board) runExecutor(ex *executor) {
	defer b.wg.Done()
	ex.run()
}

// Kill is the external signal to terminate. It sets the
// shutdown flag, wakes every queue and the message queue, waits for every
// executor to join (for at most cfg.ShutdownTimeout when that is set), and
// returns true. A second call returns false,
// matching the "board-not-running" contract since status is no
// longer Started.
func (b *Board) Kill() bool {
	b.mu.Lock()
	if b.status != Started {
		b.mu.Unlock()
		return false
	}
	b.mu.Unlock()

	killed := false
	b.killOnce.Do(func() {
		killed = true
		close(b.shutdownCh)
		b.primary.Close()
		for _, s := range b.secondaries {
			s.Close()
		}
		b.messages.Close()

		if b.cfg.ShutdownTimeout > 0 {
			done := make(chan struct{})
			go func() {
				b.wg.Wait()
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(b.cfg.ShutdownTimeout):
				b.log.Warn().Msg("board shutdown timed out waiting for executors")
			}
		} else {
			b.wg.Wait()
		}

		b.mu.Lock()
		b.status = Stopped
		b.mu.Unlock()

		if b.events != nil {
			b.events.Publish("board.shutdown", "", nil)
		}
	})

	return killed
}

// Destroy triggers shutdown if not already killed, waits for it to
// complete, then drains every remaining queue, finalizing whatever never
// got to run. In-flight tasks are lost; Go's GC reclaims their memory
// regardless of the explicit Destroy calls below, which keep the
// create/resume/destroy lifecycle symmetric rather than managing memory.
func (b *Board) Destroy() {
	b.Kill()

	drained := make([]*task.Task, 0)
	drained = append(drained, b.primary.Drain()...)
	for _, s := range b.secondaries {
		drained = append(drained, s.Drain()...)
	}

	for _, t := range orderParentsFirst(drained) {
		t.Coroutine.Destroy()
	}

	b.messages.DrainAll()

	b.log.Info().Msg("board destroyed")
}

// orderParentsFirst returns tasks ordered so that, for any blocking-child
// chain present in the drained set, ancestors are finalized before their
// descendants.
func orderParentsFirst(tasks []*task.Task) []*task.Task {
	depth := make(map[*task.Task]int, len(tasks))
	var depthOf func(t *task.Task) int
	depthOf = func(t *task.Task) int {
		if d, ok := depth[t]; ok {
			return d
		}
		d := 0
		if t.Parent != nil {
			d = depthOf(t.Parent) + 1
		}
		depth[t] = d
		return d
	}
	for _, t := range tasks {
		depthOf(t)
	}

	out := make([]*task.Task, len(tasks))
	copy(out, tasks)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && depth[out[j-1]] > depth[out[j]]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// Exit blocks the caller until board shutdown has completed: the
// shutdown flag is up and every executor has joined. Embedders use it to
// hold off process teardown while a concurrent Kill drains the pool.
func (b *Board) Exit() {
	<-b.shutdownCh
	b.wg.Wait()
}

// Status returns the board's lifecycle status.
func (b *Board) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

// QueueDepths reports the current length of every ready queue, keyed the
// same way metrics labels them. Used by the admin API and the heartbeat
// reporter; purely informational, the snapshot is not atomic across
// queues.
func (b *Board) QueueDepths() map[string]int {
	depths := make(map[string]int, 1+len(b.secondaries))
	depths["primary"] = b.primary.Len()
	for i, s := range b.secondaries {
		depths[fmt.Sprintf("secondary-%d", i)] = s.Len()
	}
	return depths
}

// GetConcurrent returns the current concurrency count.
func (b *Board) GetConcurrent() int {
	b.countMu.Lock()
	defer b.countMu.Unlock()
	return b.concurrent
}

// AddConcurrent atomically increments the concurrency count iff it is
// below cfg.MaxTasks, returning the new value, or 0 on overflow.
func (b *Board) AddConcurrent() int {
	b.countMu.Lock()
	defer b.countMu.Unlock()
	if b.concurrent >= b.cfg.MaxTasks {
		return 0
	}
	b.concurrent++
	if b.metrics != nil {
		b.metrics.ConcurrentTasks(b.concurrent)
	}
	return b.concurrent
}

// deincConcurrent is the unconditional decrement variant.
func (b *Board) deincConcurrent() {
	b.countMu.Lock()
	b.concurrent--
	n := b.concurrent
	b.countMu.Unlock()
	if b.metrics != nil {
		b.metrics.ConcurrentTasks(n)
	}
}

// PrintRecords formats the history table.
func (b *Board) PrintRecords(w io.Writer) error {
	return b.history.PrintRecords(w)
}

// History exposes the board's history table for read-only introspection
// (admin API, tests).
func (b *Board) History() *history.Table {
	return b.history
}

// Done returns a channel closed once Kill has run, so an external
// transport actor can select on it
// alongside its own blocking I/O instead of polling board status.
func (b *Board) Done() <-chan struct{} {
	return b.shutdownCh
}

// WaitOutboundRemote blocks until a remote-task request is available or the
// board is shutting down, the transport boundary's "acquire the message
// mutex; dequeue-wait on the message condvar" contract. It
// returns ok=false only once the board has closed its message queue.
func (b *Board) WaitOutboundRemote() (*task.RemoteTask, bool) {
	return b.messages.WaitOutbound()
}

// PushInboundRemote deposits a completed remote-task response, called by
// the external transport once it has filled in Data/Status.
func (b *Board) PushInboundRemote(rt *task.RemoteTask) {
	b.messages.PushInbound(rt)
}

// shortestSecondary finds the secondary queue with the fewest tasks,
// ties broken by lowest index. Falls back to the
// primary queue if the board has no secondaries configured.
func (b *Board) shortestSecondary() *queue.Ready {
	if len(b.secondaries) == 0 {
		return b.primary
	}
	best := b.secondaries[0]
	bestLen := best.Len()
	for _, s := range b.secondaries[1:] {
		if l := s.Len(); l < bestLen {
			best, bestLen = s, l
		}
	}
	return best
}

// place is the initial-placement policy: a
// Priority task goes to the head of the primary queue, a Primary task to
// its tail, a Secondary task to the shortest secondary queue. It returns
// the queue the task landed on.
func (b *Board) place(t *task.Task) *queue.Ready {
	var q *queue.Ready
	switch t.Class {
	case task.Priority:
		b.primary.PushHead(t)
		atomic.AddInt32(&b.priorityInFlight, 1)
		q = b.primary
	case task.Secondary:
		q = b.shortestSecondary()
		q.PushTail(t)
		if b.cfg.SignalPrimaryOnSecondaryInsert {
			b.primary.Nudge()
		}
	default: // task.Primary
		b.primary.PushTail(t)
		q = b.primary
	}

	if b.metrics != nil {
		b.metrics.QueueDepth(b.queueName(q), q.Len())
	}
	return q
}

// queueName labels a ready queue for metrics/introspection: "primary" or
// "secondary-N".
func (b *Board) queueName(q *queue.Ready) string {
	if q == b.primary {
		return "primary"
	}
	for i, s := range b.secondaries {
		if s == q {
			return fmt.Sprintf("secondary-%d", i)
		}
	}
	return "unknown"
}

func (b *Board) priorityHelpingSuppressed() bool {
	return b.cfg.SuppressHelpingUnderPriorityLoad && atomic.LoadInt32(&b.priorityInFlight) > 0
}

func (b *Board) priorityDone(t *task.Task) {
	if t.Class == task.Priority {
		atomic.AddInt32(&b.priorityInFlight, -1)
	}
}
