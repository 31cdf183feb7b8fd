//go:build integration
// +build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaytboard/taskboard/internal/api"
	"github.com/relaytboard/taskboard/internal/api/registry"
	"github.com/relaytboard/taskboard/internal/board"
	"github.com/relaytboard/taskboard/internal/config"
	"github.com/relaytboard/taskboard/internal/events"
	"github.com/relaytboard/taskboard/internal/logger"
	"github.com/relaytboard/taskboard/internal/task"
)

func init() {
	logger.Init("error", false)
}

// memPublisher keeps published events in memory so the full server stack
// runs without Redis.
type memPublisher struct {
	mu     sync.Mutex
	events []*events.Event
}

func (m *memPublisher) Publish(_ context.Context, e *events.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *memPublisher) SubscribeAll(_ context.Context) (<-chan *events.Event, error) {
	ch := make(chan *events.Event)
	close(ch)
	return ch, nil
}

func (m *memPublisher) Close() error { return nil }

func (m *memPublisher) kinds() []events.EventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]events.EventType, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Type)
	}
	return out
}

func setupServer(t *testing.T) (*httptest.Server, *board.Board, *memPublisher) {
	t.Helper()

	cfg := &config.Config{
		Server:  config.ServerConfig{RateLimitRPS: 1000},
		Metrics: config.MetricsConfig{Enabled: false},
	}

	pub := &memPublisher{}
	brd := board.New(board.DefaultConfig(2), nil, events.NewBoardPublisher(pub))
	brd.Start()

	reg := registry.New()
	reg.Register("collatz", task.NewFunc("collatz", func(ctx *task.Context) {
		n := 27
		for n != 1 {
			if n%2 == 0 {
				n /= 2
			} else {
				n = 3*n + 1
			}
			ctx.Yield()
		}
	}))

	server := api.NewServer(cfg, brd, reg, pub)
	ts := httptest.NewServer(server)

	t.Cleanup(func() {
		ts.Close()
		brd.Destroy()
	})

	return ts, brd, pub
}

func TestSubmitThroughAPIAndObserveHistory(t *testing.T) {
	ts, brd, pub := setupServer(t)

	body, _ := json.Marshal(map[string]any{"type": "collatz", "class": "secondary"})
	resp, err := http.Post(ts.URL+"/api/v1/tasks", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	require.Eventually(t, func() bool {
		e, ok := brd.History().ByName("collatz")
		return ok && e.Completions == 1
	}, 5*time.Second, 10*time.Millisecond)

	resp, err = http.Get(ts.URL + "/admin/history")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Entries []struct {
			Name        string `json:"name"`
			Completions int64  `json:"completions"`
		} `json:"entries"`
		Count int `json:"count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.Equal(t, 1, payload.Count)
	assert.Equal(t, "collatz", payload.Entries[0].Name)
	assert.Equal(t, int64(1), payload.Entries[0].Completions)

	assert.Contains(t, pub.kinds(), events.EventTaskSubmitted)
	assert.Contains(t, pub.kinds(), events.EventTaskCompleted)
}

func TestKillThroughAPIStopsBoard(t *testing.T) {
	ts, brd, _ := setupServer(t)

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/admin/kill", bytes.NewReader(nil))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, board.Stopped, brd.Status())
	assert.False(t, brd.Kill())
}

func TestHealthz(t *testing.T) {
	ts, _, _ := setupServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
