package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaytboard/taskboard/internal/api/registry"
	"github.com/relaytboard/taskboard/internal/board"
	"github.com/relaytboard/taskboard/internal/task"
)

// newCappedBoard builds a board with no running executors and a tiny
// admission limit, so refusal paths are reachable deterministically.
func newCappedBoard(t *testing.T, max int) *board.Board {
	t.Helper()
	b := board.New(board.Config{MaxTasks: max}, nil, nil)
	t.Cleanup(b.Destroy)
	return b
}

func newTaskHandler(t *testing.T) (*TaskHandler, *registry.Registry) {
	t.Helper()
	reg := registry.New()
	return NewTaskHandler(newTestBoard(t, true), reg), reg
}

func postTask(h *TaskHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.Create(w, req)
	return w
}

func TestTaskHandler_Create_InvalidJSON(t *testing.T) {
	h, _ := newTaskHandler(t)

	w := postTask(h, "invalid json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "invalid request body", response["message"])
}

func TestTaskHandler_Create_MissingType(t *testing.T) {
	h, _ := newTaskHandler(t)

	w := postTask(h, `{"class":"primary"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTaskHandler_Create_UnknownType(t *testing.T) {
	h, _ := newTaskHandler(t)

	w := postTask(h, `{"type":"nonexistent"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTaskHandler_Create_InvalidClass(t *testing.T) {
	h, reg := newTaskHandler(t)
	reg.Register("noop", task.NewFunc("noop", func(*task.Context) {}))

	w := postTask(h, `{"type":"noop","class":"urgent"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTaskHandler_Create_Admitted(t *testing.T) {
	h, reg := newTaskHandler(t)
	reg.Register("noop", task.NewFunc("noop", func(*task.Context) {}))

	w := postTask(h, `{"type":"noop","class":"secondary","args":{"n":27}}`)
	assert.Equal(t, http.StatusAccepted, w.Code)

	var response CreateTaskResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.True(t, response.Admitted)
	assert.Equal(t, "noop", response.TaskType)
}

func TestTaskHandler_Create_AdmissionRefused(t *testing.T) {
	reg := registry.New()
	// A board with no executors and room for a single task.
	b := newCappedBoard(t, 1)
	h := NewTaskHandler(b, reg)

	reg.Register("noop", task.NewFunc("noop", func(*task.Context) {}))

	w := postTask(h, `{"type":"noop"}`)
	assert.Equal(t, http.StatusAccepted, w.Code)

	w = postTask(h, `{"type":"noop"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var response CreateTaskResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.False(t, response.Admitted)
}

func TestTaskHandler_Types(t *testing.T) {
	h, reg := newTaskHandler(t)
	reg.Register("noop", task.NewFunc("noop", func(*task.Context) {}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks/types", nil)
	w := httptest.NewRecorder()
	h.Types(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string][]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Contains(t, response["types"], "noop")
}

func TestParseClass(t *testing.T) {
	tests := []struct {
		in   string
		want task.Class
		ok   bool
	}{
		{"", task.Primary, true},
		{"primary", task.Primary, true},
		{"secondary", task.Secondary, true},
		{"priority", task.Priority, true},
		{"urgent", task.Primary, false},
	}
	for _, tt := range tests {
		got, ok := parseClass(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}
}
