package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relaytboard/taskboard/internal/api/handlers"
	apimiddleware "github.com/relaytboard/taskboard/internal/api/middleware"
	"github.com/relaytboard/taskboard/internal/api/registry"
	"github.com/relaytboard/taskboard/internal/api/websocket"
	"github.com/relaytboard/taskboard/internal/board"
	"github.com/relaytboard/taskboard/internal/config"
	"github.com/relaytboard/taskboard/internal/events"
)

// Server is the board's admin HTTP surface: task submission, board/history
// introspection, a live board-event WebSocket stream, and Prometheus
// metrics.
type Server struct {
	router       *chi.Mux
	cfg          *config.Config
	taskHandler  *handlers.TaskHandler
	adminHandler *handlers.AdminHandler
	wsHub        *websocket.Hub
	wsHandler    *websocket.Handler
}

// NewServer wires brd and reg into an admin HTTP surface, fed board events
// through publisher.
func NewServer(cfg *config.Config, brd *board.Board, reg *registry.Registry, publisher events.Publisher) *Server {
	wsHub := websocket.NewHub(publisher)

	s := &Server{
		router:       chi.NewRouter(),
		cfg:          cfg,
		taskHandler:  handlers.NewTaskHandler(brd, reg),
		adminHandler: handlers.NewAdminHandler(brd),
		wsHub:        wsHub,
		wsHandler:    websocket.NewHandler(wsHub),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(apimiddleware.RequestLogger())
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Heartbeat("/healthz"))
}

func (s *Server) setupRoutes() {
	authCfg := apimiddleware.AuthConfig{
		Enabled:   s.cfg.Auth.Enabled,
		JWTSecret: s.cfg.Auth.JWTSecret,
		APIKeys:   apiKeySet(s.cfg.Auth.APIKeys),
	}

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.AllowContentType("application/json"))
		if s.cfg.Server.RateLimitRPS > 0 {
			r.Use(apimiddleware.ClientRateLimit(s.cfg.Server.RateLimitRPS))
		}

		r.Route("/tasks", func(r chi.Router) {
			r.Post("/", s.taskHandler.Create)
			r.Get("/types", s.taskHandler.Types)
		})
	})

	s.router.Route("/admin", func(r chi.Router) {
		r.Use(middleware.AllowContentType("application/json"))
		r.Use(apimiddleware.Auth(authCfg))

		r.Get("/status", s.adminHandler.Status)
		r.Get("/history", s.adminHandler.History)
		r.Get("/history/text", s.adminHandler.PrintRecords)
		if authCfg.Enabled {
			r.With(apimiddleware.RequireRole("admin")).Post("/kill", s.adminHandler.Kill)
		} else {
			r.Post("/kill", s.adminHandler.Kill)
		}
	})

	s.router.Get("/ws", s.wsHandler.ServeWS)

	if s.cfg.Metrics.Enabled {
		s.router.Handle(s.cfg.Metrics.Path, promhttp.Handler())
	}
}

func apiKeySet(keys []string) map[string]bool {
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set
}

// Start launches the WebSocket hub's event-fanout loop.
func (s *Server) Start(ctx context.Context) {
	go s.wsHub.Run(ctx)
}

// Stop shuts the WebSocket hub down.
func (s *Server) Stop() {
	s.wsHub.Stop()
}

// Router exposes the underlying chi router, mainly for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
