package websocket

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/relaytboard/taskboard/internal/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler upgrades admin API requests to board-event WebSocket streams.
type Handler struct {
	hub *Hub
}

// NewHandler creates a handler serving connections through hub.
func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

// ServeWS upgrades the request and registers the resulting client with the
// hub, subscribed to every event type by default.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WithComponent("websocket").Error().Err(err).Msg("upgrade failed")
		return
	}

	client := NewClient(h.hub, conn)
	client.SubscribeAll()
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()

	logger.WithComponent("websocket").Info().
		Str("client_id", client.ID).
		Str("remote_addr", r.RemoteAddr).
		Msg("client connected")
}
