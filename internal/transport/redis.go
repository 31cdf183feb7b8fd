// Package transport implements the external actor the scheduler's
// remote-task protocol expects: something that drains the board's
// outbound message queue, performs the remote request, and deposits the
// response on the inbound queue. It is kept isolated so internal/board
// never imports Redis.
//
// Request/reply is carried over a pair of Redis Streams: one stream
// carries outgoing requests, a second carries replies correlated by the
// remote task's ID, both consumed through a consumer group.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/relaytboard/taskboard/internal/board"
	"github.com/relaytboard/taskboard/internal/logger"
	"github.com/relaytboard/taskboard/internal/metrics"
	"github.com/relaytboard/taskboard/internal/task"
)

// Config parameterizes the actor's Redis usage.
type Config struct {
	StreamPrefix  string
	ConsumerGroup string
	ConsumerName  string
	BlockTimeout  time.Duration
	Backoff       BackoffPolicy
}

func (c Config) withDefaults() Config {
	if c.StreamPrefix == "" {
		c.StreamPrefix = "taskboard:remote"
	}
	if c.ConsumerGroup == "" {
		c.ConsumerGroup = "transport"
	}
	if c.ConsumerName == "" {
		c.ConsumerName = "transport-0"
	}
	if c.BlockTimeout == 0 {
		c.BlockTimeout = 5 * time.Second
	}
	if c.Backoff == (BackoffPolicy{}) {
		c.Backoff = DefaultBackoffPolicy()
	}
	return c
}

// requestStream and replyStream name the two streams per Config.StreamPrefix.
func (c Config) requestStream() string { return c.StreamPrefix + ":requests" }
func (c Config) replyStream() string   { return c.StreamPrefix + ":replies" }

// wireRequest is what actually goes on the request stream: the remote
// task's message plus enough of its identity to correlate a reply.
type wireRequest struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

type wireReply struct {
	ID     string `json:"id"`
	Status int    `json:"status"`
	Data   []byte `json:"data"`
}

// Actor is the demo remote-task transport: it owns the board's message
// queue's outbound/inbound ends from the outside.
type Actor struct {
	brd    *board.Board
	client *redis.Client
	cfg    Config
}

// NewActor creates a transport actor bound to board brd and Redis client
// client.
func NewActor(brd *board.Board, client *redis.Client, cfg Config) *Actor {
	return &Actor{brd: brd, client: client, cfg: cfg.withDefaults()}
}

// EnsureStreams creates the request/reply streams and consumer group if
// they don't already exist.
func (a *Actor) EnsureStreams(ctx context.Context) error {
	for _, stream := range []string{a.cfg.requestStream(), a.cfg.replyStream()} {
		err := a.client.XGroupCreateMkStream(ctx, stream, a.cfg.ConsumerGroup, "0").Err()
		if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
			return fmt.Errorf("create consumer group for %s: %w", stream, err)
		}
	}
	return nil
}

// Run drains the board's outbound queue until shutdown, performing each
// remote request against Redis and depositing the response on the inbound
// queue. It returns once the board closes its message queue.
func (a *Actor) Run(ctx context.Context) {
	logger.WithComponent("transport").Info().Msg("transport actor started")

	for {
		rt, ok := a.brd.WaitOutboundRemote()
		if !ok {
			logger.WithComponent("transport").Info().Msg("transport actor stopped")
			return
		}

		select {
		case <-ctx.Done():
			return
		default:
		}

		a.deliver(ctx, rt)
	}
}

// deliver sends one request and waits for its correlated reply, retrying
// delivery (not the scheduler-level remote task) with the configured
// backoff on transient Redis errors.
func (a *Actor) deliver(ctx context.Context, rt *task.RemoteTask) {
	metrics.RecordRemoteSent(rt.Blocking)
	start := time.Now()

	reply, err := a.send(ctx, rt)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		logger.WithComponent("transport").Error().Err(err).Str("remote_id", rt.ID).Msg("remote delivery failed")
	}
	metrics.RecordTransportDuration(outcome, time.Since(start))

	rt.Status = task.RemoteRecv
	if err == nil && reply != nil {
		if rt.DataOwned {
			rt.Data = reply.Data
		} else if rt.Data != nil {
			copy(rt.Data, reply.Data)
		}
	}

	a.brd.PushInboundRemote(rt)
	metrics.RecordRemoteReceived(rt.Blocking)
}

// send performs one request/reply round trip with retry-with-backoff on
// failed attempts, up to cfg.Backoff.MaxAttempts.
func (a *Actor) send(ctx context.Context, rt *task.RemoteTask) (*wireReply, error) {
	var lastErr error
	for attempt := 0; a.cfg.Backoff.ShouldRetry(attempt); attempt++ {
		if attempt > 0 {
			metrics.RecordTransportRetry("delivery_error")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(a.cfg.Backoff.Backoff(attempt)):
			}
		}

		reply, err := a.roundTrip(ctx, rt)
		if err == nil {
			return reply, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("remote delivery exhausted retries: %w", lastErr)
}

func (a *Actor) roundTrip(ctx context.Context, rt *task.RemoteTask) (*wireReply, error) {
	req := wireRequest{ID: rt.ID, Message: rt.Message}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	if _, err := a.client.XAdd(ctx, &redis.XAddArgs{
		Stream: a.cfg.requestStream(),
		Values: map[string]interface{}{"payload": payload},
	}).Result(); err != nil {
		return nil, fmt.Errorf("publish request: %w", err)
	}

	return a.awaitReply(ctx, rt.ID)
}

// awaitReply reads the reply stream via the consumer group until it finds
// the entry correlated with wantID, acking every message it consumes.
// Replies to other requests are acked too and then dropped, so no other
// consumer can claim them; Run delivers one request at a time, so a
// single-actor deployment never hits that branch.
func (a *Actor) awaitReply(ctx context.Context, wantID string) (*wireReply, error) {
	deadline := time.Now().Add(a.cfg.BlockTimeout)
	for time.Now().Before(deadline) {
		streams, err := a.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    a.cfg.ConsumerGroup,
			Consumer: a.cfg.ConsumerName,
			Streams:  []string{a.cfg.replyStream(), ">"},
			Count:    10,
			Block:    a.cfg.BlockTimeout,
		}).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read replies: %w", err)
		}

		for _, s := range streams {
			for _, msg := range s.Messages {
				a.client.XAck(ctx, a.cfg.replyStream(), a.cfg.ConsumerGroup, msg.ID)

				raw, ok := msg.Values["payload"].(string)
				if !ok {
					continue
				}
				var reply wireReply
				if err := json.Unmarshal([]byte(raw), &reply); err != nil {
					continue
				}
				if reply.ID == wantID {
					return &reply, nil
				}
			}
		}
	}
	return nil, fmt.Errorf("no reply for %s within %s", wantID, a.cfg.BlockTimeout)
}

// PublishReply is used by whatever performs the actual remote work (a
// separate worker process, in a real deployment) to answer a request it
// read off the request stream. Kept here so both sides of the demo
// transport share one wire format.
func PublishReply(ctx context.Context, client *redis.Client, cfg Config, id string, status task.RemoteStatus, data []byte) error {
	cfg = cfg.withDefaults()
	reply := wireReply{ID: id, Status: int(status), Data: data}
	payload, err := json.Marshal(reply)
	if err != nil {
		return fmt.Errorf("marshal reply: %w", err)
	}
	_, err = client.XAdd(ctx, &redis.XAddArgs{
		Stream: cfg.replyStream(),
		Values: map[string]interface{}{"payload": payload},
	}).Result()
	return err
}
