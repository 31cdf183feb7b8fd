package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/relaytboard/taskboard/internal/logger"
	"github.com/relaytboard/taskboard/internal/task"
)

// Handler performs one remote request on the answering side of the wire:
// it receives the remote task's message and returns the response status
// and payload.
type Handler func(ctx context.Context, message string) (task.RemoteStatus, []byte, error)

// Responder is the far side of the demo transport: a worker process that
// drains the request stream via the consumer group, performs each request
// through a registered Handler, and publishes the correlated reply. One or
// more Responders can consume the same group concurrently.
type Responder struct {
	client   *redis.Client
	cfg      Config
	handlers map[string]Handler
	fallback Handler
}

// NewResponder creates a responder reading requests per cfg. handlers is
// keyed by message verb (the text before the first space of the remote
// task's message); unmatched messages go to fallback, or fail with an
// empty RemoteRecv reply when no fallback is set.
func NewResponder(client *redis.Client, cfg Config, handlers map[string]Handler, fallback Handler) *Responder {
	return &Responder{client: client, cfg: cfg.withDefaults(), handlers: handlers, fallback: fallback}
}

// EnsureStreams creates the request/reply streams and consumer group if
// missing, same idempotent-create as Actor.EnsureStreams.
func (r *Responder) EnsureStreams(ctx context.Context) error {
	for _, stream := range []string{r.cfg.requestStream(), r.cfg.replyStream()} {
		err := r.client.XGroupCreateMkStream(ctx, stream, r.cfg.ConsumerGroup, "0").Err()
		if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
			return fmt.Errorf("create consumer group for %s: %w", stream, err)
		}
	}
	return nil
}

// Run consumes requests until ctx is done.
func (r *Responder) Run(ctx context.Context) {
	log := logger.WithComponent("responder")
	log.Info().Str("stream", r.cfg.requestStream()).Msg("responder started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("responder stopped")
			return
		default:
		}

		streams, err := r.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    r.cfg.ConsumerGroup,
			Consumer: r.cfg.ConsumerName,
			Streams:  []string{r.cfg.requestStream(), ">"},
			Count:    10,
			Block:    r.cfg.BlockTimeout,
		}).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error().Err(err).Msg("failed to read requests")
			time.Sleep(r.cfg.Backoff.Backoff(0))
			continue
		}

		for _, s := range streams {
			for _, msg := range s.Messages {
				r.answer(ctx, msg)
				r.client.XAck(ctx, r.cfg.requestStream(), r.cfg.ConsumerGroup, msg.ID)
			}
		}
	}
}

func (r *Responder) answer(ctx context.Context, msg redis.XMessage) {
	raw, ok := msg.Values["payload"].(string)
	if !ok {
		return
	}

	var req wireRequest
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		logger.WithComponent("responder").Warn().Err(err).Str("stream_id", msg.ID).Msg("discarding malformed request")
		return
	}

	handler := r.resolve(req.Message)
	status := task.RemoteRecv
	var data []byte
	if handler != nil {
		var err error
		status, data, err = handler(ctx, req.Message)
		if err != nil {
			logger.WithComponent("responder").Error().Err(err).Str("remote_id", req.ID).Msg("handler failed")
			status, data = task.RemoteRecv, nil
		}
	}

	if err := PublishReply(ctx, r.client, r.cfg, req.ID, status, data); err != nil {
		logger.WithComponent("responder").Error().Err(err).Str("remote_id", req.ID).Msg("failed to publish reply")
	}
}

func (r *Responder) resolve(message string) Handler {
	verb := message
	for i := 0; i < len(message); i++ {
		if message[i] == ' ' {
			verb = message[:i]
			break
		}
	}
	if h, ok := r.handlers[verb]; ok {
		return h
	}
	return r.fallback
}
