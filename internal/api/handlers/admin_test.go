package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaytboard/taskboard/internal/board"
	"github.com/relaytboard/taskboard/internal/logger"
)

func init() {
	logger.Init("error", false)
}

func newTestBoard(t *testing.T, started bool) *board.Board {
	t.Helper()
	b := board.New(board.Config{Secondaries: 1, ShutdownTimeout: time.Second}, nil, nil)
	if started {
		b.Start()
	}
	t.Cleanup(b.Destroy)
	return b
}

func TestAdminHandler_Status(t *testing.T) {
	h := NewAdminHandler(newTestBoard(t, false))

	req := httptest.NewRequest(http.MethodGet, "/admin/status", nil)
	w := httptest.NewRecorder()
	h.Status(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "created", response["status"])
	assert.Equal(t, float64(0), response["concurrent"])
	assert.Contains(t, response["queues"], "primary")
}

func TestAdminHandler_History_Empty(t *testing.T) {
	h := NewAdminHandler(newTestBoard(t, false))

	req := httptest.NewRequest(http.MethodGet, "/admin/history", nil)
	w := httptest.NewRecorder()
	h.History(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, float64(0), response["count"])
}

func TestAdminHandler_PrintRecords(t *testing.T) {
	h := NewAdminHandler(newTestBoard(t, false))

	req := httptest.NewRequest(http.MethodGet, "/admin/history/text", nil)
	w := httptest.NewRecorder()
	h.PrintRecords(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
}

func TestAdminHandler_Kill_NotStarted(t *testing.T) {
	h := NewAdminHandler(newTestBoard(t, false))

	req := httptest.NewRequest(http.MethodPost, "/admin/kill", nil)
	w := httptest.NewRecorder()
	h.Kill(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAdminHandler_Kill_Started(t *testing.T) {
	h := NewAdminHandler(newTestBoard(t, true))

	req := httptest.NewRequest(http.MethodPost, "/admin/kill", nil)
	w := httptest.NewRecorder()
	h.Kill(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	// A second kill finds the board already stopped.
	w = httptest.NewRecorder()
	h.Kill(w, httptest.NewRequest(http.MethodPost, "/admin/kill", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAdminHandler_respondError(t *testing.T) {
	h := &AdminHandler{}

	w := httptest.NewRecorder()
	h.respondError(w, http.StatusNotFound, "board not found")

	assert.Equal(t, http.StatusNotFound, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "Not Found", response["error"])
	assert.Equal(t, "board not found", response["message"])
}
