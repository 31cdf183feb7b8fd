package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaytboard/taskboard/internal/task"
)

func TestMessage_OutboundFIFO(t *testing.T) {
	m := NewMessage()
	a := task.NewRemoteTask(nil, "a", nil, 0, false)
	b := task.NewRemoteTask(nil, "b", nil, 0, false)
	m.PushOutbound(a)
	m.PushOutbound(b)

	got, ok := m.WaitOutbound()
	require.True(t, ok)
	assert.Same(t, a, got)

	got, ok = m.WaitOutbound()
	require.True(t, ok)
	assert.Same(t, b, got)
}

func TestMessage_WaitOutboundBlocksUntilPush(t *testing.T) {
	m := NewMessage()
	done := make(chan *task.RemoteTask, 1)
	go func() {
		got, ok := m.WaitOutbound()
		if ok {
			done <- got
		} else {
			done <- nil
		}
	}()

	time.Sleep(10 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("WaitOutbound returned before any push")
	default:
	}

	rt := task.NewRemoteTask(nil, "ping", nil, 0, true)
	m.PushOutbound(rt)

	select {
	case got := <-done:
		assert.Same(t, rt, got)
	case <-time.After(time.Second):
		t.Fatal("WaitOutbound never returned")
	}
}

func TestMessage_DrainInboundNonBlocking(t *testing.T) {
	m := NewMessage()
	assert.Empty(t, m.DrainInbound())

	a := task.NewRemoteTask(nil, "a", nil, 0, true)
	b := task.NewRemoteTask(nil, "b", nil, 0, true)
	m.PushInbound(a)
	m.PushInbound(b)

	got := m.DrainInbound()
	assert.Equal(t, []*task.RemoteTask{a, b}, got)
	assert.Empty(t, m.DrainInbound())
}

func TestMessage_CloseWakesTransport(t *testing.T) {
	m := NewMessage()
	done := make(chan bool, 1)
	go func() {
		_, ok := m.WaitOutbound()
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	m.Close()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Close did not wake transport")
	}
}

func TestMessage_DrainAll(t *testing.T) {
	m := NewMessage()
	m.PushOutbound(task.NewRemoteTask(nil, "out", nil, 0, false))
	m.PushInbound(task.NewRemoteTask(nil, "in", nil, 0, false))

	outbound, inbound := m.DrainAll()
	assert.Len(t, outbound, 1)
	assert.Len(t, inbound, 1)

	outbound, inbound = m.DrainAll()
	assert.Empty(t, outbound)
	assert.Empty(t, inbound)
}
