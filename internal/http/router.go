// Package http assembles the service's HTTP routes.
package http

import (
	"log/slog"
	nethttp "net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/preston-bernstein/sports-data-service/internal/http/handlers"
	"github.com/preston-bernstein/sports-data-service/internal/http/middleware"
	"github.com/preston-bernstein/sports-data-service/internal/metrics"
)

// RouterConfig collects what the router mounts.
type RouterConfig struct {
	Handler *handlers.Handler
	Admin   *handlers.AdminHandler
	// AdminToken guards /admin; empty rejects every admin call.
	AdminToken     string
	Logger         *slog.Logger
	Metrics        *metrics.Recorder
	MetricsHandler nethttp.Handler
}

// NewRouter registers every route on a chi mux.
func NewRouter(cfg RouterConfig) nethttp.Handler {
	h := cfg.Handler
	r := chi.NewRouter()
	r.Use(middleware.Logging(cfg.Logger, cfg.Metrics))
	r.Use(chimw.Recoverer)
	r.NotFound(handlers.NotFound(cfg.Logger))
	r.MethodNotAllowed(handlers.MethodNotAllowed(cfg.Logger))

	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
	r.Get("/status", h.Status)
	r.Get("/usage", h.Usage)

	r.Route("/leagues/{league}", func(r chi.Router) {
		r.Get("/games", h.LeagueGames)
		r.Get("/games/{id}", h.GameByID)
		r.Get("/stats", h.LeagueStats)
	})

	if cfg.Admin != nil {
		a := cfg.Admin
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.BearerAuth(cfg.AdminToken, cfg.Logger))
			r.Post("/poll", a.Poll)
			r.Post("/poller/start", a.StartPoller)
			r.Post("/poller/stop", a.StopPoller)
			r.Post("/schedule/refresh", a.RefreshSchedule)
		})
	}

	if cfg.MetricsHandler != nil {
		r.Method(nethttp.MethodGet, "/metrics", cfg.MetricsHandler)
	}
	return r
}
