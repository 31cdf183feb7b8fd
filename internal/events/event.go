// Package events defines the board's lifecycle-event envelope and the
// publisher interface that fans it out: submission, completion, panic,
// blocking-child spawn, remote send/receive, board start and shutdown.
// Publishing is purely observational; it never feeds back into
// scheduling decisions.
package events

import (
	"context"
	"encoding/json"
	"time"
)

// EventType names one kind of board lifecycle event.
type EventType string

const (
	EventTaskSubmitted        EventType = "task.submitted"
	EventTaskSpawnedBlocking  EventType = "task.spawned_blocking_child"
	EventTaskCompleted        EventType = "task.completed"
	EventTaskPanicked         EventType = "task.panicked"
	EventTaskYielded          EventType = "task.yielded"
	EventTaskRemoteSent       EventType = "task.remote_sent"
	EventTaskRemoteReceived   EventType = "task.remote_received"
	EventBoardStarted         EventType = "board.started"
	EventBoardShutdown        EventType = "board.shutdown"
)

// Event is one published board occurrence.
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	TaskID    string                 `json:"task_id,omitempty"`
	Data      map[string]interface{} `json:"data"`
}

// NewEvent builds an event, timestamped now.
func NewEvent(eventType EventType, taskID string, data map[string]interface{}) *Event {
	return &Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		TaskID:    taskID,
		Data:      data,
	}
}

// ToJSON serializes the event.
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON deserializes an event.
func FromJSON(data []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// Publisher is the interface a board event sink implements: publish one
// event, or subscribe to the unfiltered stream of all of them.
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
	SubscribeAll(ctx context.Context) (<-chan *Event, error)
	Close() error
}
