package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/preston-bernstein/sports-data-service/internal/domain/games"
	"github.com/preston-bernstein/sports-data-service/internal/logging"
	"github.com/preston-bernstein/sports-data-service/internal/polling"
	"github.com/preston-bernstein/sports-data-service/internal/schedule"
)

const maxDaysAhead = 14

// AdminHandler exposes the operator endpoints. Routes are mounted behind
// middleware.BearerAuth.
type AdminHandler struct {
	poller    Poller
	scheduler Scheduler
	logger    *slog.Logger
	now       func() time.Time
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(poller Poller, scheduler Scheduler, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		poller:    poller,
		scheduler: scheduler,
		logger:    logger,
		now:       time.Now,
	}
}

type pollResponse struct {
	Forced  bool                            `json:"forced"`
	Results map[games.League]polling.Result `json:"results"`
	Updated int                             `json:"updated"`
}

// Poll runs one poll round now. ?league=NBA,NHL narrows it and ?force=true
// ignores the polling window; the request budget still applies.
func (h *AdminHandler) Poll(w http.ResponseWriter, r *http.Request) {
	if h.poller == nil {
		writeError(w, r, http.StatusServiceUnavailable, "poller not configured", h.logger)
		return
	}
	leagues, ok := h.leagues(w, r)
	if !ok {
		return
	}
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))

	results := h.poller.Poll(r.Context(), leagues, polling.PollOptions{IgnoreWindow: force})
	resp := pollResponse{Forced: force, Results: results}
	for _, res := range results {
		resp.Updated += res.Updated
	}
	logging.Info(loggerFromContext(r, h.logger), "admin poll complete",
		logging.FieldCount, resp.Updated,
		"forced", force,
	)
	writeJSON(w, http.StatusOK, resp, h.logger)
}

// StartPoller starts the orchestrator loop if it is not running.
func (h *AdminHandler) StartPoller(w http.ResponseWriter, r *http.Request) {
	if h.poller == nil {
		writeError(w, r, http.StatusServiceUnavailable, "poller not configured", h.logger)
		return
	}
	// The loop outlives this request.
	err := h.poller.Start(context.WithoutCancel(r.Context()))
	if errors.Is(err, polling.ErrAlreadyRunning) {
		writeError(w, r, http.StatusConflict, "poller already running", h.logger)
		return
	}
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error(), h.logger)
		return
	}
	logging.Info(loggerFromContext(r, h.logger), "poller started by admin")
	writeJSON(w, http.StatusAccepted, map[string]any{"state": h.poller.Status().State}, h.logger)
}

// StopPoller stops the orchestrator loop and waits for the in-flight cycle.
func (h *AdminHandler) StopPoller(w http.ResponseWriter, r *http.Request) {
	if h.poller == nil {
		writeError(w, r, http.StatusServiceUnavailable, "poller not configured", h.logger)
		return
	}
	if err := h.poller.Stop(r.Context()); err != nil {
		writeError(w, r, http.StatusGatewayTimeout, "poller did not stop in time", h.logger)
		return
	}
	logging.Info(loggerFromContext(r, h.logger), "poller stopped by admin")
	writeJSON(w, http.StatusOK, map[string]any{"state": h.poller.Status().State}, h.logger)
}

// RefreshSchedule pulls upcoming schedules now. ?league= limits it to one
// league and ?days= sets how many days past today to fetch.
func (h *AdminHandler) RefreshSchedule(w http.ResponseWriter, r *http.Request) {
	if h.scheduler == nil {
		writeError(w, r, http.StatusServiceUnavailable, "schedule updater not configured", h.logger)
		return
	}
	logger := loggerFromContext(r, h.logger)
	raw := strings.TrimSpace(r.URL.Query().Get("league"))
	if raw == "" {
		results := h.scheduler.Refresh(r.Context())
		writeJSON(w, http.StatusOK, map[string]any{"stored": results}, h.logger)
		return
	}

	league, err := games.ParseLeague(raw)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "unknown league", h.logger)
		return
	}
	days := 0
	if v := strings.TrimSpace(r.URL.Query().Get("days")); v != "" {
		days, err = strconv.Atoi(v)
		if err != nil || days < 0 || days > maxDaysAhead {
			writeError(w, r, http.StatusBadRequest, "days must be between 0 and 14", h.logger)
			return
		}
	}

	n, err := h.scheduler.UpdateLeague(r.Context(), league, h.now(), days)
	body := map[string]any{"league": league, "stored": n}
	switch {
	case errors.Is(err, schedule.ErrBudgetExhausted):
		body["partial"] = true
		writeJSON(w, http.StatusTooManyRequests, body, h.logger)
	case errors.Is(err, games.ErrUnknownLeague):
		writeError(w, r, http.StatusNotFound, "league not configured", h.logger)
	case err != nil:
		logging.Warn(logger, "admin schedule refresh failed", logging.FieldLeague, league.String(), logging.FieldError, err)
		body["error"] = err.Error()
		writeJSON(w, http.StatusBadGateway, body, h.logger)
	default:
		writeJSON(w, http.StatusOK, body, h.logger)
	}
}

func (h *AdminHandler) leagues(w http.ResponseWriter, r *http.Request) ([]games.League, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("league"))
	if raw == "" {
		return nil, true
	}
	leagues, err := games.ParseLeagues(strings.Split(raw, ","))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "unknown league", h.logger)
		return nil, false
	}
	return leagues, true
}
