package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/relaytboard/taskboard/internal/task"
)

func TestMetricsRegistration(t *testing.T) {
	// promauto already registers everything at package init; verify the
	// collectors exist without panicking.

	assert.NotNil(t, TasksAdmitted)
	assert.NotNil(t, TasksAdmissionRefused)
	assert.NotNil(t, TasksCompleted)
	assert.NotNil(t, TasksPanicked)
	assert.NotNil(t, TaskCPUTime)

	assert.NotNil(t, ConcurrentTasks)
	assert.NotNil(t, QueueDepth)

	assert.NotNil(t, HistoryMeanExecTime)
	assert.NotNil(t, HistoryMeanYields)

	assert.NotNil(t, RemoteTasksSent)
	assert.NotNil(t, RemoteTasksReceived)
	assert.NotNil(t, RemoteTransportDuration)
	assert.NotNil(t, RemoteTransportRetries)

	assert.NotNil(t, WebSocketConnections)
	assert.NotNil(t, WebSocketMessages)
	assert.NotNil(t, HTTPRequestDuration)
}

func TestRecordTaskLifecycle(t *testing.T) {
	TasksAdmitted.Reset()
	TasksCompleted.Reset()
	TasksPanicked.Reset()

	RecordTaskAdmitted(task.Primary)
	RecordTaskAdmitted(task.Secondary)
	RecordTaskAdmissionRefused(task.Secondary)
	RecordTaskCompleted(task.Primary, 5*time.Millisecond)
	RecordTaskPanicked(task.Secondary)
}

func TestGauges(t *testing.T) {
	SetConcurrentTasks(7)
	SetQueueDepth("primary", 3)
	SetQueueDepth("secondary-0", 1)
	SetHistoryStats("collatz", 2*time.Millisecond, 1.5)
	SetWebSocketConnections(2)
}

func TestRemoteAndTransport(t *testing.T) {
	RemoteTasksSent.Reset()
	RemoteTasksReceived.Reset()

	RecordRemoteSent(true)
	RecordRemoteSent(false)
	RecordRemoteReceived(true)
	RecordTransportDuration("ok", 10*time.Millisecond)
	RecordTransportRetry("delivery_error")
}

func TestBlockingLabel(t *testing.T) {
	assert.Equal(t, "blocking", blockingLabel(true))
	assert.Equal(t, "non_blocking", blockingLabel(false))
}

func TestCollectorSatisfiesBoardHooks(t *testing.T) {
	c := Collector{}
	c.TaskAdmitted(task.Priority)
	c.TaskAdmissionRefused(task.Priority)
	c.TaskCompleted(task.Priority, time.Millisecond)
	c.TaskPanicked(task.Priority)
	c.ConcurrentTasks(1)
	c.QueueDepth("primary", 0)
}
