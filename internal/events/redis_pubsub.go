package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/relaytboard/taskboard/internal/logger"
)

const channelPrefix = "taskboard:events:"

// RedisPubSub implements Publisher over Redis Pub/Sub, fanning board events
// out to any number of subscribers (the admin API's WebSocket hub, chiefly)
// without the board package depending on Redis itself; board only ever
// calls the small board.Events interface.
type RedisPubSub struct {
	client      *redis.Client
	subscribers map[string]*redis.PubSub
	mu          sync.Mutex
}

// NewRedisPubSub creates a publisher bound to client.
func NewRedisPubSub(client *redis.Client) *RedisPubSub {
	return &RedisPubSub{
		client:      client,
		subscribers: make(map[string]*redis.PubSub),
	}
}

// Publish publishes one event to its type-scoped channel.
func (r *RedisPubSub) Publish(ctx context.Context, event *Event) error {
	channel := r.channelName(event.Type)
	data, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := r.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	logger.Debug().
		Str("event_type", string(event.Type)).
		Str("channel", channel).
		Msg("event published")

	return nil
}

// SubscribeAll subscribes to every board event type via a single pattern
// subscription.
func (r *RedisPubSub) SubscribeAll(ctx context.Context) (<-chan *Event, error) {
	pattern := channelPrefix + "*"
	pubsub := r.client.PSubscribe(ctx, pattern)

	if _, err := pubsub.Receive(ctx); err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	r.mu.Lock()
	r.subscribers[pattern] = pubsub
	r.mu.Unlock()

	eventCh := make(chan *Event, 256)

	go func() {
		defer close(eventCh)
		ch := pubsub.Channel()

		for {
			select {
			case <-ctx.Done():
				_ = pubsub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				event, err := FromJSON([]byte(msg.Payload))
				if err != nil {
					logger.Error().Err(err).Msg("failed to parse board event")
					continue
				}

				select {
				case eventCh <- event:
				default:
					logger.Warn().Str("event_type", string(event.Type)).Msg("event channel full, dropping event")
				}
			}
		}
	}()

	return eventCh, nil
}

// Close closes every outstanding subscription.
func (r *RedisPubSub) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, pubsub := range r.subscribers {
		_ = pubsub.Close()
	}
	r.subscribers = make(map[string]*redis.PubSub)

	return nil
}

func (r *RedisPubSub) channelName(eventType EventType) string {
	return channelPrefix + string(eventType)
}

// BoardPublisher adapts a Publisher to board.Events: board calls
// Publish(kind, taskID, detail) synchronously from the executor goroutine.
// The publish runs with context.Background, which sets no deadline, so the
// executor waits for as long as the underlying publisher takes; publish
// errors are logged and swallowed rather than failing the scheduling path.
type BoardPublisher struct {
	pub Publisher
}

// NewBoardPublisher wraps pub for use as a board.Events sink.
func NewBoardPublisher(pub Publisher) *BoardPublisher {
	return &BoardPublisher{pub: pub}
}

// Publish implements board.Events.
func (b *BoardPublisher) Publish(kind string, taskID string, detail map[string]any) {
	event := NewEvent(EventType(kind), taskID, detail)
	if err := b.pub.Publish(context.Background(), event); err != nil {
		logger.Warn().Err(err).Str("event_type", kind).Msg("failed to publish board event")
	}
}
