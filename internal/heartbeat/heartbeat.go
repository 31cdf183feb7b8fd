// Package heartbeat periodically publishes board liveness to Redis so the
// admin API can report on a board running in a different process. Scoped
// to board-level stats (status, concurrency, queue depths) rather than
// per-executor state: the board's executors are not independently
// addressable units, only the board is.
package heartbeat

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/relaytboard/taskboard/internal/board"
	"github.com/relaytboard/taskboard/internal/logger"
	"github.com/relaytboard/taskboard/internal/metrics"
)

const (
	boardKeyPrefix = "taskboard:board:"
	boardSetKey    = "taskboard:boards:active"
	infoKeySuffix  = ":info"
)

// BoardInfo is the liveness record one board maintains in Redis.
type BoardInfo struct {
	ID            string         `json:"id"`
	Status        string         `json:"status"`
	Concurrent    int            `json:"concurrent"`
	QueueDepths   map[string]int `json:"queue_depths"`
	StartedAt     time.Time      `json:"started_at"`
	LastHeartbeat time.Time      `json:"last_heartbeat"`
}

// Reporter writes one board's liveness record on a fixed interval. Kept
// outside the board package so internal/board never imports Redis.
type Reporter struct {
	client   *redis.Client
	brd      *board.Board
	boardID  string
	interval time.Duration
	timeout  time.Duration

	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
	startedAt time.Time
}

// NewReporter creates a reporter for brd, identified by boardID. A zero
// interval defaults to 5s; timeout (the record's TTL) defaults to three
// intervals, so a crashed board's record expires on its own.
func NewReporter(client *redis.Client, brd *board.Board, boardID string, interval, timeout time.Duration) *Reporter {
	if interval == 0 {
		interval = 5 * time.Second
	}
	if timeout == 0 {
		timeout = 3 * interval
	}
	return &Reporter{
		client:   client,
		brd:      brd,
		boardID:  boardID,
		interval: interval,
		timeout:  timeout,
		stopCh:   make(chan struct{}),
	}
}

// Start registers the board and begins the heartbeat loop.
func (r *Reporter) Start(ctx context.Context) {
	r.startedAt = time.Now().UTC()
	r.client.SAdd(ctx, boardSetKey, r.boardID)

	r.wg.Add(1)
	go r.loop(ctx)

	logger.WithComponent("heartbeat").Info().
		Str("board_id", r.boardID).
		Dur("interval", r.interval).
		Msg("heartbeat started")
}

// Stop halts the loop and removes the board's liveness record.
func (r *Reporter) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	r.wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.client.SRem(ctx, boardSetKey, r.boardID)
	r.client.Del(ctx, r.infoKey())

	logger.WithComponent("heartbeat").Info().Str("board_id", r.boardID).Msg("heartbeat stopped")
}

func (r *Reporter) loop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.beat(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.beat(ctx)
		}
	}
}

func (r *Reporter) beat(ctx context.Context) {
	depths := r.brd.QueueDepths()
	for name, depth := range depths {
		metrics.SetQueueDepth(name, depth)
	}
	for _, e := range r.brd.History().Entries() {
		metrics.SetHistoryStats(e.Name, e.MeanTime, e.MeanYield)
	}

	info := BoardInfo{
		ID:            r.boardID,
		Status:        r.brd.Status().String(),
		Concurrent:    r.brd.GetConcurrent(),
		QueueDepths:   depths,
		StartedAt:     r.startedAt,
		LastHeartbeat: time.Now().UTC(),
	}

	data, err := json.Marshal(info)
	if err != nil {
		logger.WithComponent("heartbeat").Error().Err(err).Msg("failed to marshal board info")
		return
	}

	if err := r.client.Set(ctx, r.infoKey(), data, r.timeout).Err(); err != nil {
		logger.WithComponent("heartbeat").Error().Err(err).Str("board_id", r.boardID).Msg("failed to send heartbeat")
		return
	}
	r.client.SAdd(ctx, boardSetKey, r.boardID)
}

func (r *Reporter) infoKey() string {
	return boardKeyPrefix + r.boardID + infoKeySuffix
}

// ActiveBoards lists every board with a live heartbeat record, pruning
// expired members from the active set as it goes.
func ActiveBoards(ctx context.Context, client *redis.Client) ([]BoardInfo, error) {
	ids, err := client.SMembers(ctx, boardSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list active boards: %w", err)
	}

	boards := make([]BoardInfo, 0, len(ids))
	for _, id := range ids {
		data, err := client.Get(ctx, boardKeyPrefix+id+infoKeySuffix).Bytes()
		if err == redis.Nil {
			client.SRem(ctx, boardSetKey, id)
			continue
		}
		if err != nil {
			continue
		}

		var info BoardInfo
		if err := json.Unmarshal(data, &info); err != nil {
			continue
		}
		boards = append(boards, info)
	}

	return boards, nil
}
