package queue

import (
	"container/list"
	"sync"

	"github.com/relaytboard/taskboard/internal/task"
)

// Message is the board's remote-task message queue: an outbound FIFO of
// requests and an inbound FIFO of responses, sharing one mutex and one
// condition variable. The external transport waits
// on WaitOutbound, performs the request with the mutex released, then
// calls PushInbound; the sequencer drains inbound each executor
// iteration via DrainInbound.
type Message struct {
	mu       sync.Mutex
	cond     *sync.Cond
	outbound *list.List
	inbound  *list.List
	closing  bool
}

// NewMessage creates an empty message queue pair.
func NewMessage() *Message {
	m := &Message{outbound: list.New(), inbound: list.New()}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// PushOutbound enqueues a remote-task request,
// signalling the transport.
func (m *Message) PushOutbound(rt *task.RemoteTask) {
	m.mu.Lock()
	m.outbound.PushBack(rt)
	m.mu.Unlock()
	m.cond.Signal()
}

// WaitOutbound blocks until a request is available or the queue is
// closed, matching the transport boundary contract: "acquire the message
// mutex; dequeue-wait on the message condvar". It returns
// ok=false only once closed and drained.
func (m *Message) WaitOutbound() (rt *task.RemoteTask, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for m.outbound.Len() == 0 && !m.closing {
		m.cond.Wait()
	}
	if m.outbound.Len() == 0 {
		return nil, false
	}
	front := m.outbound.Front()
	m.outbound.Remove(front)
	return front.Value.(*task.RemoteTask), true
}

// PushInbound enqueues a completed remote-task response, called by the
// transport after it has filled in Data/Status.
func (m *Message) PushInbound(rt *task.RemoteTask) {
	m.mu.Lock()
	m.inbound.PushBack(rt)
	m.mu.Unlock()
	m.cond.Signal()
}

// DrainInbound removes and returns every currently queued inbound
// response without blocking, the sequencer's per-iteration duty.
func (m *Message) DrainInbound() []*task.RemoteTask {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*task.RemoteTask, 0, m.inbound.Len())
	for e := m.inbound.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(*task.RemoteTask))
	}
	m.inbound.Init()
	return out
}

// DrainAll empties both queues, used by board shutdown.
func (m *Message) DrainAll() (outbound, inbound []*task.RemoteTask) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for e := m.outbound.Front(); e != nil; e = e.Next() {
		outbound = append(outbound, e.Value.(*task.RemoteTask))
	}
	for e := m.inbound.Front(); e != nil; e = e.Next() {
		inbound = append(inbound, e.Value.(*task.RemoteTask))
	}
	m.outbound.Init()
	m.inbound.Init()
	return outbound, inbound
}

// Close marks the queue closing and broadcasts, so the transport wakes
// and observes termination.
func (m *Message) Close() {
	m.mu.Lock()
	m.closing = true
	m.mu.Unlock()
	m.cond.Broadcast()
}
