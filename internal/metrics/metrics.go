// Package metrics exposes Prometheus instrumentation for the board, its
// executors, the history table, and the remote-task transport: one global
// registry of promauto collectors, small Record*/Set* helper functions,
// no per-component structs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/relaytboard/taskboard/internal/task"
)

var (
	TasksAdmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskboard_tasks_admitted_total",
			Help: "Total number of tasks admitted past the concurrency limit",
		},
		[]string{"class"},
	)

	TasksAdmissionRefused = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskboard_tasks_admission_refused_total",
			Help: "Total number of task_create calls refused by the concurrency limit",
		},
		[]string{"class"},
	)

	TasksCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskboard_tasks_completed_total",
			Help: "Total number of tasks that finished normally",
		},
		[]string{"class"},
	)

	TasksPanicked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskboard_tasks_panicked_total",
			Help: "Total number of tasks whose coroutine ended via a recovered panic",
		},
		[]string{"class"},
	)

	TaskCPUTime = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taskboard_task_cpu_time_seconds",
			Help:    "Cumulative coroutine-resumed CPU time per completed task",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
		},
		[]string{"class"},
	)

	ConcurrentTasks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "taskboard_concurrent_tasks",
			Help: "Current value of the board's concurrency counter",
		},
	)

	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "taskboard_queue_depth",
			Help: "Current number of tasks waiting in a ready queue",
		},
		[]string{"queue"},
	)

	HistoryMeanExecTime = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "taskboard_history_mean_exec_seconds",
			Help: "Mean CPU time per completion, by task function",
		},
		[]string{"func"},
	)

	HistoryMeanYields = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "taskboard_history_mean_yields",
			Help: "Mean yields per completion, by task function",
		},
		[]string{"func"},
	)

	RemoteTasksSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskboard_remote_tasks_sent_total",
			Help: "Total number of remote-task requests placed on the outbound queue",
		},
		[]string{"blocking"},
	)

	RemoteTasksReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskboard_remote_tasks_received_total",
			Help: "Total number of remote-task responses observed on the inbound queue",
		},
		[]string{"blocking"},
	)

	RemoteTransportDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taskboard_remote_transport_duration_seconds",
			Help:    "Time the demo transport actor spent performing one remote request",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		},
		[]string{"outcome"},
	)

	RemoteTransportRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskboard_remote_transport_retries_total",
			Help: "Total number of delivery retries performed by the remote transport actor",
		},
		[]string{"reason"},
	)

	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "taskboard_websocket_connections",
			Help: "Current number of connected admin WebSocket clients",
		},
	)

	WebSocketMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskboard_websocket_messages_total",
			Help: "Total number of board-event messages sent to WebSocket clients",
		},
		[]string{"event"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taskboard_http_request_duration_seconds",
			Help:    "Admin HTTP API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// RecordTaskAdmitted records a successful task_create admission.
func RecordTaskAdmitted(class task.Class) {
	TasksAdmitted.WithLabelValues(class.String()).Inc()
}

// RecordTaskAdmissionRefused records an admission refusal (concurrency cap).
func RecordTaskAdmissionRefused(class task.Class) {
	TasksAdmissionRefused.WithLabelValues(class.String()).Inc()
}

// RecordTaskCompleted records a normal task completion and its CPU time.
func RecordTaskCompleted(class task.Class, cpuTime time.Duration) {
	TasksCompleted.WithLabelValues(class.String()).Inc()
	TaskCPUTime.WithLabelValues(class.String()).Observe(cpuTime.Seconds())
}

// RecordTaskPanicked records a task that ended via a recovered panic.
func RecordTaskPanicked(class task.Class) {
	TasksPanicked.WithLabelValues(class.String()).Inc()
}

// SetConcurrentTasks sets the concurrency-count gauge.
func SetConcurrentTasks(n int) {
	ConcurrentTasks.Set(float64(n))
}

// SetQueueDepth sets one ready queue's depth gauge.
func SetQueueDepth(queueName string, depth int) {
	QueueDepth.WithLabelValues(queueName).Set(float64(depth))
}

// SetHistoryStats sets the per-function history gauges, called by the
// heartbeat reporter for every history entry on each beat.
func SetHistoryStats(funcName string, meanTime time.Duration, meanYield float64) {
	HistoryMeanExecTime.WithLabelValues(funcName).Set(meanTime.Seconds())
	HistoryMeanYields.WithLabelValues(funcName).Set(meanYield)
}

// RecordRemoteSent records a remote-task send, split by blocking/non-blocking.
func RecordRemoteSent(blocking bool) {
	RemoteTasksSent.WithLabelValues(blockingLabel(blocking)).Inc()
}

// RecordRemoteReceived records an inbound remote-task response.
func RecordRemoteReceived(blocking bool) {
	RemoteTasksReceived.WithLabelValues(blockingLabel(blocking)).Inc()
}

// RecordTransportDuration records how long the transport actor spent
// performing one remote request.
func RecordTransportDuration(outcome string, d time.Duration) {
	RemoteTransportDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// RecordTransportRetry records one delivery retry by the transport actor.
func RecordTransportRetry(reason string) {
	RemoteTransportRetries.WithLabelValues(reason).Inc()
}

// SetWebSocketConnections sets the connected-clients gauge.
func SetWebSocketConnections(n int) {
	WebSocketConnections.Set(float64(n))
}

// RecordWebSocketMessage records one board event fanned out to clients.
func RecordWebSocketMessage(event string) {
	WebSocketMessages.WithLabelValues(event).Inc()
}

// RecordHTTPRequest records one admin API request.
func RecordHTTPRequest(method, path, status string, d time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(d.Seconds())
}

func blockingLabel(blocking bool) string {
	if blocking {
		return "blocking"
	}
	return "non_blocking"
}

// Collector satisfies board.Metrics and history/executor instrumentation
// needs without board importing this package directly (see board.Metrics'
// doc comment on why the interface is kept small and local).
type Collector struct{}

func (Collector) TaskAdmitted(class task.Class)                    { RecordTaskAdmitted(class) }
func (Collector) TaskAdmissionRefused(class task.Class)             { RecordTaskAdmissionRefused(class) }
func (Collector) TaskCompleted(class task.Class, cpuTime time.Duration) {
	RecordTaskCompleted(class, cpuTime)
}
func (Collector) TaskPanicked(class task.Class) { RecordTaskPanicked(class) }
func (Collector) ConcurrentTasks(n int)         { SetConcurrentTasks(n) }
func (Collector) QueueDepth(queueName string, depth int) { SetQueueDepth(queueName, depth) }
