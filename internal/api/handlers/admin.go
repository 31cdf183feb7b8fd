package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/relaytboard/taskboard/internal/board"
	"github.com/relaytboard/taskboard/internal/logger"
)

// AdminHandler exposes board introspection and lifecycle control: status,
// concurrency, history, and shutdown.
type AdminHandler struct {
	brd *board.Board
}

// NewAdminHandler creates an admin handler for brd.
func NewAdminHandler(brd *board.Board) *AdminHandler {
	return &AdminHandler{brd: brd}
}

// Status handles GET /admin/status.
func (h *AdminHandler) Status(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":     h.brd.Status().String(),
		"concurrent": h.brd.GetConcurrent(),
		"queues":     h.brd.QueueDepths(),
	})
}

// History handles GET /admin/history: a snapshot of every tracked task
// function's execution statistics.
func (h *AdminHandler) History(w http.ResponseWriter, r *http.Request) {
	entries := h.brd.History().Entries()

	out := make([]map[string]interface{}, 0, len(entries))
	for _, e := range entries {
		out = append(out, map[string]interface{}{
			"name":         e.Name,
			"executions":   e.Executions,
			"completions":  e.Completions,
			"yields":       e.Yields,
			"mean_time_ms": e.MeanTime.Seconds() * 1000,
			"mean_yield":   e.MeanYield,
		})
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"entries": out,
		"count":   len(out),
	})
}

// PrintRecords handles GET /admin/history/text, the plain-text rendering
// of the history table.
func (h *AdminHandler) PrintRecords(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := h.brd.PrintRecords(w); err != nil {
		logger.WithComponent("api").Error().Err(err).Msg("failed to write history records")
	}
}

// Kill handles POST /admin/kill: triggers board shutdown. It
// does not destroy in-flight tasks; that's Destroy's job, reserved for
// process teardown rather than the admin surface.
func (h *AdminHandler) Kill(w http.ResponseWriter, r *http.Request) {
	killed := h.brd.Kill()
	if !killed {
		h.respondError(w, http.StatusConflict, "board already stopped")
		return
	}

	logger.WithComponent("api").Warn().Msg("board killed via admin API")
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "board killed",
	})
}

func (h *AdminHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.WithComponent("api").Error().Err(err).Msg("failed to encode JSON response")
	}
}

func (h *AdminHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]interface{}{
		"error":   http.StatusText(status),
		"message": message,
	})
}
