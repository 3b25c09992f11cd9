// Package api exposes the log store, the simulators and the zone session
// over HTTP and websockets.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"drone-spoof/internal/hub"
	"drone-spoof/internal/logstore"
	"drone-spoof/internal/metrics"
	"drone-spoof/internal/sim"
	"drone-spoof/internal/zone"
)

// commandTimeout bounds how long a request waits on a busy runner.
const commandTimeout = 2 * time.Second

type Server struct {
	store   logstore.Store
	hub     *hub.Hub
	metrics *metrics.Metrics
	logger  *log.Logger
	origins []string
}

func NewServer(store logstore.Store, h *hub.Hub, m *metrics.Metrics, logger *log.Logger, origins []string) *Server {
	if logger == nil {
		logger = log.Default()
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Server{
		store:   store,
		hub:     h,
		metrics: m,
		logger:  logger.With("component", "api"),
		origins: origins,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Handle("/metrics", s.metrics.Handler())
	r.Get("/health", s.handleHealth)

	r.Get("/logs", s.handleListLogs)
	r.Post("/logs", s.handleCreateLog)

	r.Route("/api", func(r chi.Router) {
		r.Get("/logs", s.handleListLogs)
		r.Post("/logs", s.handleCreateLog)

		r.Get("/scenarios", s.handleScenarios)
		r.Route("/sim/{name}", func(r chi.Router) {
			r.Get("/", s.handleSimState)
			r.Post("/play", s.simCommand((*sim.Runner).Play))
			r.Post("/pause", s.simCommand((*sim.Runner).Pause))
			r.Post("/toggle", s.simCommand((*sim.Runner).Toggle))
			r.Post("/reset", s.simCommand((*sim.Runner).Reset))
		})
		r.Route("/zone", func(r chi.Router) {
			r.Get("/", s.handleZoneState)
			r.Post("/move", s.handleZoneMove)
			r.Post("/reset", s.handleZoneReset)
		})
	})

	r.Get("/ws/sim/{name}", s.handleSimStream)
	r.Get("/ws/zone", s.handleZoneStream)
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto status codes; every error body is
// {"error": "..."}.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal error"
	switch {
	case errors.Is(err, logstore.ErrMessageRequired):
		status, message = http.StatusBadRequest, "Message required"
	case errors.Is(err, sim.ErrUnknownScenario):
		status, message = http.StatusNotFound, "unknown scenario"
	case errors.Is(err, errBadJSON):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, sim.ErrStopped), errors.Is(err, zone.ErrStopped), errors.Is(err, context.DeadlineExceeded):
		status, message = http.StatusServiceUnavailable, "simulator unavailable"
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"scenarios": s.hub.Names(),
	})
}
