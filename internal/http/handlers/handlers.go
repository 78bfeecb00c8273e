// Package handlers implements the HTTP endpoints.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	nethttp "net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	appgames "github.com/preston-bernstein/sports-data-service/internal/app/games"
	"github.com/preston-bernstein/sports-data-service/internal/domain/games"
	"github.com/preston-bernstein/sports-data-service/internal/metrics"
	"github.com/preston-bernstein/sports-data-service/internal/polling"
	"github.com/preston-bernstein/sports-data-service/internal/schedule"
	"github.com/preston-bernstein/sports-data-service/internal/store"
	"github.com/preston-bernstein/sports-data-service/internal/usage"
)

// Poller is the orchestrator surface the handlers drive.
type Poller interface {
	Status() polling.Status
	Poll(ctx context.Context, leagues []games.League, opts polling.PollOptions) map[games.League]polling.Result
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Scheduler is the schedule updater surface the handlers drive.
type Scheduler interface {
	Stats(ctx context.Context, league games.League) (schedule.Stats, error)
	Refresh(ctx context.Context) map[games.League]int
	UpdateLeague(ctx context.Context, league games.League, from time.Time, daysAhead int) (int, error)
	Jobs() []schedule.JobInfo
}

// UsageReporter reports request budget usage.
type UsageReporter interface {
	Report() usage.Report
}

// Handler wires HTTP routes to the game service and pollers.
type Handler struct {
	games     *appgames.Service
	poller    Poller
	scheduler Scheduler
	usage     UsageReporter
	metrics   *metrics.Recorder
	logger    *slog.Logger
	now       func() time.Time
}

// NewHandler constructs a Handler. poller, scheduler and usage may be nil.
func NewHandler(svc *appgames.Service, poller Poller, scheduler Scheduler, usage UsageReporter, logger *slog.Logger) *Handler {
	return &Handler{
		games:     svc,
		poller:    poller,
		scheduler: scheduler,
		usage:     usage,
		logger:    logger,
		now:       time.Now,
	}
}

// WithMetrics adds the in-memory metrics snapshot to /status.
func (h *Handler) WithMetrics(rec *metrics.Recorder) *Handler {
	h.metrics = rec
	return h
}

// Health reports the service health.
func (h *Handler) Health(w nethttp.ResponseWriter, r *nethttp.Request) {
	if err := r.Context().Err(); err != nil {
		writeError(w, r, nethttp.StatusServiceUnavailable, "shutting down", h.logger)
		return
	}
	writeJSON(w, nethttp.StatusOK, map[string]string{"status": "ok"}, h.logger)
}

// Ready reports readiness for traffic (e.g., for Kubernetes probes).
func (h *Handler) Ready(w nethttp.ResponseWriter, r *nethttp.Request) {
	if h.poller == nil {
		writeJSON(w, nethttp.StatusOK, map[string]string{"status": "ready"}, h.logger)
		return
	}
	st := h.poller.Status()
	if st.IsReady() {
		writeJSON(w, nethttp.StatusOK, map[string]string{"status": "ready"}, h.logger)
		return
	}
	writeError(w, r, nethttp.StatusServiceUnavailable, "every league failing", h.logger)
}

type statusResponse struct {
	Time     time.Time          `json:"time"`
	Poller   *polling.Status    `json:"poller,omitempty"`
	Schedule []schedule.JobInfo `json:"schedule,omitempty"`
	Metrics  *metricsView       `json:"metrics,omitempty"`
}

type metricsView struct {
	Cycles  int                         `json:"cycles"`
	Leagues map[string]metrics.Snapshot `json:"leagues"`
}

// Status reports the orchestrator state, per-league results and schedule jobs.
func (h *Handler) Status(w nethttp.ResponseWriter, r *nethttp.Request) {
	resp := statusResponse{Time: h.now().UTC()}
	if h.poller != nil {
		st := h.poller.Status()
		resp.Poller = &st
	}
	if h.scheduler != nil {
		resp.Schedule = h.scheduler.Jobs()
	}
	if h.metrics != nil {
		view := &metricsView{Cycles: h.metrics.Cycles(), Leagues: map[string]metrics.Snapshot{}}
		for _, league := range h.metrics.Leagues() {
			view.Leagues[league] = h.metrics.Snapshot(league)
		}
		resp.Metrics = view
	}
	writeJSON(w, nethttp.StatusOK, resp, h.logger)
}

// Usage reports request budget usage per league.
func (h *Handler) Usage(w nethttp.ResponseWriter, r *nethttp.Request) {
	if h.usage == nil {
		writeError(w, r, nethttp.StatusServiceUnavailable, "usage tracking not configured", h.logger)
		return
	}
	writeJSON(w, nethttp.StatusOK, h.usage.Report(), h.logger)
}

// LeagueGames returns a league's games for ?date= (default today).
func (h *Handler) LeagueGames(w nethttp.ResponseWriter, r *nethttp.Request) {
	league, ok := h.league(w, r)
	if !ok {
		return
	}
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	day, err := h.games.Day(r.Context(), league, date)
	if errors.Is(err, appgames.ErrInvalidDate) {
		writeError(w, r, nethttp.StatusBadRequest, "invalid date format (expected YYYY-MM-DD)", h.logger)
		return
	}
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	logger := loggerFromContext(r, h.logger)
	if logger != nil {
		logger.Debug("served games", "league", league.String(), "date", day.Date, "count", len(day.Games))
	}
	writeJSON(w, nethttp.StatusOK, day, h.logger)
}

// GameByID returns a specific game if present.
func (h *Handler) GameByID(w nethttp.ResponseWriter, r *nethttp.Request) {
	league, ok := h.league(w, r)
	if !ok {
		return
	}
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" || strings.ContainsAny(id, " \t/") {
		writeError(w, r, nethttp.StatusBadRequest, "invalid game id", h.logger)
		return
	}
	game, err := h.games.Game(r.Context(), league, id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, r, nethttp.StatusNotFound, "game not found", h.logger)
		return
	}
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	writeJSON(w, nethttp.StatusOK, game, h.logger)
}

// LeagueStats summarizes the stored games of a league.
func (h *Handler) LeagueStats(w nethttp.ResponseWriter, r *nethttp.Request) {
	league, ok := h.league(w, r)
	if !ok {
		return
	}
	if h.scheduler == nil {
		writeError(w, r, nethttp.StatusServiceUnavailable, "schedule updater not configured", h.logger)
		return
	}
	st, err := h.scheduler.Stats(r.Context(), league)
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	writeJSON(w, nethttp.StatusOK, st, h.logger)
}

func (h *Handler) league(w nethttp.ResponseWriter, r *nethttp.Request) (games.League, bool) {
	league, err := games.ParseLeague(chi.URLParam(r, "league"))
	if err != nil {
		writeError(w, r, nethttp.StatusNotFound, "unknown league", h.logger)
		return "", false
	}
	return league, true
}

func (h *Handler) storeError(w nethttp.ResponseWriter, r *nethttp.Request, err error) {
	logger := loggerFromContext(r, h.logger)
	if logger != nil {
		logger.Error("store query failed", "error", err)
	}
	writeError(w, r, nethttp.StatusInternalServerError, "store unavailable", h.logger)
}
