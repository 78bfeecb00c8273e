package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	appgames "github.com/preston-bernstein/sports-data-service/internal/app/games"
	"github.com/preston-bernstein/sports-data-service/internal/domain/games"
	"github.com/preston-bernstein/sports-data-service/internal/polling"
	"github.com/preston-bernstein/sports-data-service/internal/schedule"
	"github.com/preston-bernstein/sports-data-service/internal/store"
	"github.com/preston-bernstein/sports-data-service/internal/testutil"
	"github.com/preston-bernstein/sports-data-service/internal/usage"
)

var fixedNow = time.Date(2024, 1, 2, 20, 0, 0, 0, time.UTC)

type stubPoller struct {
	mu          sync.Mutex
	status      polling.Status
	results     map[games.League]polling.Result
	startErr    error
	stopErr     error
	lastOpts    polling.PollOptions
	lastLeagues []games.League
	starts      int
	stops       int
}

func (p *stubPoller) Status() polling.Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *stubPoller) Poll(_ context.Context, leagues []games.League, opts polling.PollOptions) map[games.League]polling.Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastOpts = opts
	p.lastLeagues = leagues
	return p.results
}

func (p *stubPoller) Start(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.starts++
	if p.startErr == nil {
		p.status.State = polling.StateRunning
	}
	return p.startErr
}

func (p *stubPoller) Stop(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stops++
	if p.stopErr == nil {
		p.status.State = polling.StateStopped
	}
	return p.stopErr
}

type stubScheduler struct {
	stats      schedule.Stats
	statsErr   error
	refreshed  map[games.League]int
	stored     int
	updateErr  error
	lastDays   int
	lastLeague games.League
	jobs       []schedule.JobInfo
}

func (s *stubScheduler) Stats(_ context.Context, league games.League) (schedule.Stats, error) {
	st := s.stats
	st.League = league
	return st, s.statsErr
}

func (s *stubScheduler) Refresh(context.Context) map[games.League]int { return s.refreshed }

func (s *stubScheduler) UpdateLeague(_ context.Context, league games.League, _ time.Time, days int) (int, error) {
	s.lastLeague = league
	s.lastDays = days
	return s.stored, s.updateErr
}

func (s *stubScheduler) Jobs() []schedule.JobInfo { return s.jobs }

type stubUsage struct{ report usage.Report }

func (u stubUsage) Report() usage.Report { return u.report }

type fixture struct {
	store     *store.MemoryStore
	poller    *stubPoller
	scheduler *stubScheduler
	handler   *Handler
	admin     *AdminHandler
	router    http.Handler
}

func newFixture(snaps ...games.Snapshot) *fixture {
	st := store.NewMemoryStore()
	for _, s := range snaps {
		_ = st.Upsert(context.Background(), s)
	}
	f := &fixture{
		store:     st,
		poller:    &stubPoller{status: polling.Status{State: polling.StateRunning}},
		scheduler: &stubScheduler{},
	}
	logger, _ := testutil.NewBufferLogger()
	svc := appgames.NewService(st, time.UTC, appgames.WithClock(testutil.NowAt(fixedNow)))
	f.handler = NewHandler(svc, f.poller, f.scheduler, stubUsage{}, logger)
	f.handler.now = testutil.NowAt(fixedNow)
	f.admin = NewAdminHandler(f.poller, f.scheduler, logger)
	f.admin.now = testutil.NowAt(fixedNow)
	f.router = mount(f.handler, f.admin)
	return f
}

func mount(h *Handler, a *AdminHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
	r.Get("/status", h.Status)
	r.Get("/usage", h.Usage)
	r.Get("/leagues/{league}/games", h.LeagueGames)
	r.Get("/leagues/{league}/games/{id}", h.GameByID)
	r.Get("/leagues/{league}/stats", h.LeagueStats)
	r.Post("/admin/poll", a.Poll)
	r.Post("/admin/poller/start", a.StartPoller)
	r.Post("/admin/poller/stop", a.StopPoller)
	r.Post("/admin/schedule/refresh", a.RefreshSchedule)
	return r
}
