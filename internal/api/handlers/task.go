package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/relaytboard/taskboard/internal/api/registry"
	"github.com/relaytboard/taskboard/internal/board"
	"github.com/relaytboard/taskboard/internal/logger"
	"github.com/relaytboard/taskboard/internal/task"
)

// CreateTaskRequest is the wire shape of a task submission: Type names a
// function the caller previously registered with the registry.Registry, Class
// is its priority class, and Args is carried through to the task function
// verbatim via Context.Args.
type CreateTaskRequest struct {
	Type  string          `json:"type"`
	Class string          `json:"class"`
	Args  json.RawMessage `json:"args,omitempty"`
}

// CreateTaskResponse reports whether the board admitted the task.
type CreateTaskResponse struct {
	TaskType string `json:"type"`
	Admitted bool   `json:"admitted"`
}

// TaskHandler exposes task submission over HTTP, translating a JSON
// request into a board.TaskCreate call against a registered task.Func.
type TaskHandler struct {
	brd *board.Board
	reg *registry.Registry
}

// NewTaskHandler creates a handler submitting tasks onto brd, resolving
// task types through reg.
func NewTaskHandler(brd *board.Board, reg *registry.Registry) *TaskHandler {
	return &TaskHandler{brd: brd, reg: reg}
}

func parseClass(s string) (task.Class, bool) {
	switch s {
	case "", "primary":
		return task.Primary, true
	case "secondary":
		return task.Secondary, true
	case "priority":
		return task.Priority, true
	default:
		return task.Primary, false
	}
}

// Create handles POST /api/v1/tasks.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Type == "" {
		h.respondError(w, http.StatusBadRequest, "task type is required")
		return
	}

	fn, err := h.reg.Lookup(req.Type)
	if err != nil {
		h.respondError(w, http.StatusNotFound, err.Error())
		return
	}

	class, ok := parseClass(req.Class)
	if !ok {
		h.respondError(w, http.StatusBadRequest, "class must be primary, secondary, or priority")
		return
	}

	admitted := h.brd.TaskCreate(fn, class, req.Args, len(req.Args))
	if !admitted {
		logger.WithComponent("api").Warn().Str("type", req.Type).Msg("task submission refused: board at capacity")
		h.respondJSON(w, http.StatusServiceUnavailable, CreateTaskResponse{TaskType: req.Type, Admitted: false})
		return
	}

	logger.WithComponent("api").Info().Str("type", req.Type).Str("class", class.String()).Msg("task submitted")
	h.respondJSON(w, http.StatusAccepted, CreateTaskResponse{TaskType: req.Type, Admitted: true})
}

// Types handles GET /api/v1/tasks/types, listing the task types available
// for submission.
func (h *TaskHandler) Types(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"types": h.reg.Names(),
	})
}

func (h *TaskHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.WithComponent("api").Error().Err(err).Msg("failed to encode JSON response")
	}
}

func (h *TaskHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]interface{}{
		"error":   http.StatusText(status),
		"message": message,
	})
}
