package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	appgames "github.com/preston-bernstein/sports-data-service/internal/app/games"
	"github.com/preston-bernstein/sports-data-service/internal/budget"
	"github.com/preston-bernstein/sports-data-service/internal/collectors"
	"github.com/preston-bernstein/sports-data-service/internal/config"
	"github.com/preston-bernstein/sports-data-service/internal/domain/games"
	httpserver "github.com/preston-bernstein/sports-data-service/internal/http"
	"github.com/preston-bernstein/sports-data-service/internal/http/handlers"
	"github.com/preston-bernstein/sports-data-service/internal/logging"
	"github.com/preston-bernstein/sports-data-service/internal/metrics"
	"github.com/preston-bernstein/sports-data-service/internal/polling"
	"github.com/preston-bernstein/sports-data-service/internal/publish"
	"github.com/preston-bernstein/sports-data-service/internal/schedule"
	"github.com/preston-bernstein/sports-data-service/internal/store"
	"github.com/preston-bernstein/sports-data-service/internal/usage"
)

var metricsSetup = metrics.Setup

type Server struct {
	cfg           config.Config
	logger        *slog.Logger
	metrics       *metrics.Recorder
	store         store.GameStore
	usage         *usage.Recorder
	publisher     *publish.RedisPublisher
	httpServer    httpServer
	metricsServer httpServer
	poller        Poller
	scheduler     Scheduler
	metricsStop   func(context.Context) error

	mu     sync.Mutex
	runCtx context.Context
}

// New wires every component from cfg: store, budget, collectors, pollers,
// the schedule updater and the HTTP surface.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	return newServerWithMetrics(ctx, cfg, logger, nil)
}

func newServerWithMetrics(ctx context.Context, cfg config.Config, logger *slog.Logger, recorder *metrics.Recorder) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	recorder, metricsHandler, metricsSrv, metricsShutdown := buildMetrics(cfg, logger, recorder)

	gameStore, sink, err := openStore(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:           cfg,
		logger:        logger,
		metrics:       recorder,
		store:         gameStore,
		metricsServer: metricsSrv,
		metricsStop:   metricsShutdown,
	}

	usageOpts := []usage.Option{
		usage.WithLocation(cfg.Location),
		usage.WithMetrics(recorder),
		usage.WithLogger(logger),
	}
	if sink != nil {
		usageOpts = append(usageOpts, usage.WithSink(sink))
	}
	s.usage = usage.NewRecorder(usageOpts...)

	leagues := cfg.EnabledLeagues()
	limits := make(map[games.League]int, len(leagues))
	for _, lc := range leagues {
		limits[lc.League] = lc.MaxRequestsPerMinute
	}
	b := budget.New(limits)

	factory := newCollectorFactory(cfg, logger)
	cols := make([]collectors.Collector, 0, len(leagues))
	for _, lc := range leagues {
		c, err := factory.build(lc)
		if err != nil {
			_ = gameStore.Close()
			return nil, err
		}
		cols = append(cols, c)
	}

	s.publisher = dialPublisher(ctx, cfg.Redis, logger)

	orchestrator, err := buildOrchestrator(cfg, cols, b, s.usage, gameStore, s.pollingPublisher(), logger, recorder)
	if err != nil {
		s.closeResources()
		return nil, err
	}
	s.poller = orchestrator

	updater, err := schedule.New(schedule.Config{
		Collectors: cols,
		Budget:     b,
		Usage:      s.usage,
		Store:      gameStore,
		Times:      cfg.ScheduleUpdateTimes,
		DaysAhead:  cfg.ScheduleDaysAhead,
		Location:   cfg.Location,
		Logger:     logger,
		OnUpdated:  s.wakePoller,
	})
	if err != nil {
		s.closeResources()
		return nil, err
	}
	s.scheduler = updater

	leagueIDs := make([]games.League, 0, len(leagues))
	for _, lc := range leagues {
		leagueIDs = append(leagueIDs, lc.League)
	}
	reporter := usage.NewReporter(s.usage, b, usage.NewMonitor(logger), leagueIDs)
	svc := appgames.NewService(gameStore, cfg.Location)

	router := httpserver.NewRouter(httpserver.RouterConfig{
		Handler:        handlers.NewHandler(svc, orchestrator, updater, reporter, logger).WithMetrics(recorder),
		Admin:          handlers.NewAdminHandler(orchestrator, updater, logger),
		AdminToken:     cfg.AdminToken,
		Logger:         logger,
		Metrics:        recorder,
		MetricsHandler: metricsHandler,
	})
	s.httpServer = buildHTTPServer(cfg, router)
	return s, nil
}

// newServerWithDeps is used for testing to inject custom components.
func newServerWithDeps(cfg config.Config, logger *slog.Logger, httpSrv httpServer, plr Poller, sched Scheduler) *Server {
	return &Server{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpSrv,
		poller:     plr,
		scheduler:  sched,
	}
}

func buildOrchestrator(cfg config.Config, cols []collectors.Collector, b *budget.Budget, rec *usage.Recorder, st store.GameStore, pub polling.Publisher, logger *slog.Logger, m *metrics.Recorder) (*polling.Orchestrator, error) {
	window := polling.ParseWindow(cfg.PollingHours, cfg.Location, logger)
	pollers := make([]*polling.LeaguePoller, 0, len(cols))
	for _, c := range cols {
		lc, _ := cfg.League(c.League())
		p, err := polling.NewLeaguePoller(polling.LeaguePollerConfig{
			Collector: c,
			Policy:    buildPolicy(cfg, lc, logger),
			Budget:    b,
			Usage:     rec,
			Store:     st,
			Window:    &window,
			Publisher: pub,
			Logger:    logger,
			Metrics:   m,
			Location:  cfg.Location,
		})
		if err != nil {
			return nil, err
		}
		pollers = append(pollers, p)
	}
	return polling.NewOrchestrator(polling.OrchestratorConfig{
		Pollers:       pollers,
		Window:        &window,
		OffHoursSleep: cfg.OffHoursSleep,
		MinSleep:      cfg.MinSleep,
		Logger:        logger,
		Metrics:       m,
	})
}

func buildPolicy(cfg config.Config, lc config.LeagueConfig, logger *slog.Logger) polling.IntervalPolicy {
	policy := polling.IntervalPolicy{
		CloseGameThreshold: lc.CloseGameThreshold,
		CloseGameInterval:  cfg.CloseGamePollInterval,
		DefaultInterval:    cfg.DefaultPollInterval,
		ScheduledInterval:  cfg.ScheduledPollInterval,
		Heartbeat:          lc.Heartbeat,
	}
	if lc.FastHours != "" {
		policy.Split = &polling.ClockSplit{
			Fast:         polling.ParseWindow([]string{lc.FastHours}, cfg.Location, logger),
			FastInterval: lc.FastInterval,
			SlowInterval: lc.SlowInterval,
		}
	}
	return policy
}

func buildHTTPServer(cfg config.Config, handler http.Handler) httpServer {
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
	return netHTTPServer{srv: srv}
}

// dialPublisher connects the update stream when REDIS_URL is set. A failed
// dial is logged and polling continues without publishing.
func dialPublisher(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) *publish.RedisPublisher {
	if cfg.URL == "" {
		return nil
	}
	pub, err := publish.Dial(ctx, cfg.URL, cfg.StreamMaxLen)
	if err != nil {
		logging.Warn(logger, "redis publisher unavailable, continuing without stream", logging.FieldError, err)
		return nil
	}
	return pub
}

// pollingPublisher keeps a nil *RedisPublisher from becoming a non-nil interface.
func (s *Server) pollingPublisher() polling.Publisher {
	if s.publisher == nil {
		return nil
	}
	return s.publisher
}

// Run starts the scheduler, the polling loop and the HTTP servers, then waits
// for ctx cancellation to shut down gracefully.
func (s *Server) Run(ctx context.Context, stop context.CancelFunc) {
	s.mu.Lock()
	s.runCtx = ctx
	s.mu.Unlock()

	s.startMetrics()
	s.startServer(stop)
	if s.scheduler != nil {
		if err := s.scheduler.Start(ctx); err != nil {
			logging.Error(s.logger, "schedule updater failed to start", err)
		}
	}
	if err := s.poller.Start(ctx); err != nil && !errors.Is(err, polling.ErrAlreadyRunning) {
		logging.Error(s.logger, "polling loop failed to start", err)
	}
	if s.scheduler != nil {
		go s.scheduler.Refresh(ctx)
	}

	<-ctx.Done()
	logging.Info(s.logger, "shutdown signal received")

	s.gracefulShutdown()
}

// wakePoller restarts a polling loop that stopped for lack of work once a
// schedule refresh has stored new games.
func (s *Server) wakePoller(_ context.Context, results map[games.League]int) {
	if s.poller == nil || total(results) == 0 {
		return
	}
	s.mu.Lock()
	ctx := s.runCtx
	s.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}
	if s.poller.State() != polling.StateStopped {
		return
	}
	if s.poller.Status().StopReason != polling.StopReasonIdle {
		return
	}
	if err := s.poller.Start(ctx); err != nil && !errors.Is(err, polling.ErrAlreadyRunning) {
		logging.Warn(s.logger, "failed to restart polling loop", logging.FieldError, err)
		return
	}
	logging.Info(s.logger, "polling loop restarted after schedule refresh", "games", total(results))
}

func total(results map[games.League]int) int {
	n := 0
	for _, v := range results {
		n += v
	}
	return n
}

func (s *Server) startServer(stop context.CancelFunc) {
	logging.Info(s.logger, "http server starting", "addr", s.httpServer.Addr())
	launchServer("http", s.httpServer, s.logger, func(err error) {
		if stop != nil {
			stop()
		}
	})
}

func (s *Server) startMetrics() {
	if s.metricsServer == nil {
		return
	}
	logging.Info(s.logger, "metrics server starting", "addr", s.metricsServer.Addr())
	launchServer("metrics", s.metricsServer, s.logger, nil)
}

func (s *Server) gracefulShutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if s.scheduler != nil {
		if err := s.scheduler.Stop(shutdownCtx); err != nil {
			logging.Warn(s.logger, "schedule updater stop failed", logging.FieldError, err)
		}
	}

	if err := s.poller.Stop(shutdownCtx); err != nil {
		logging.Error(s.logger, "failed to stop polling loop", err)
	}

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		logging.Error(s.logger, "graceful shutdown failed", err)
	}

	if s.metricsServer != nil {
		if err := s.metricsServer.Shutdown(shutdownCtx); err != nil {
			logging.Warn(s.logger, "metrics server shutdown failed", logging.FieldError, err)
		}
	}

	if s.metricsStop != nil {
		if err := s.metricsStop(shutdownCtx); err != nil {
			logging.Warn(s.logger, "metrics shutdown failed", logging.FieldError, err)
		}
	}

	s.closeResources()
	logging.Info(s.logger, "shutdown complete")
}

// closeResources releases the publisher and the store.
func (s *Server) closeResources() {
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			logging.Warn(s.logger, "redis publisher close failed", logging.FieldError, err)
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			logging.Warn(s.logger, "store close failed", logging.FieldError, err)
		}
	}
}

// Close releases resources held by a server that was never Run.
func (s *Server) Close() {
	s.closeResources()
}

// RunPolling runs only the polling loop, without HTTP, until every league
// goes idle or ctx ends.
func (s *Server) RunPolling(ctx context.Context) error {
	if err := s.poller.Start(ctx); err != nil {
		return err
	}
	select {
	case <-s.poller.Done():
		return nil
	case <-ctx.Done():
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.poller.Stop(stopCtx)
	}
}

// PollOnce runs a single pass over leagues, or every league when empty. With
// force the polling window is ignored; the budget always applies.
func (s *Server) PollOnce(ctx context.Context, leagues []games.League, force bool) map[games.League]polling.Result {
	return s.poller.Poll(ctx, leagues, polling.PollOptions{IgnoreWindow: force})
}

// RefreshSchedule fetches daysAhead days of schedule for league, or for every
// league when league is empty.
func (s *Server) RefreshSchedule(ctx context.Context, league games.League, daysAhead int) (map[games.League]int, error) {
	if league == "" {
		return s.scheduler.UpdateAll(ctx, daysAhead), nil
	}
	n, err := s.scheduler.UpdateLeague(ctx, league, time.Now(), daysAhead)
	return map[games.League]int{league: n}, err
}

// Stats summarizes the stored games of every enabled league.
func (s *Server) Stats(ctx context.Context) ([]schedule.Stats, error) {
	leagues := s.cfg.EnabledLeagues()
	out := make([]schedule.Stats, 0, len(leagues))
	for _, lc := range leagues {
		st, err := s.scheduler.Stats(ctx, lc.League)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

func buildMetrics(cfg config.Config, logger *slog.Logger, recorder *metrics.Recorder) (*metrics.Recorder, http.Handler, httpServer, func(context.Context) error) {
	if recorder != nil {
		return recorder, nil, nil, nil
	}

	recCfg := metrics.TelemetryConfig{
		Enabled:      cfg.Metrics.Enabled,
		Port:         cfg.Metrics.Port,
		ServiceName:  cfg.Metrics.ServiceName,
		OtlpEndpoint: cfg.Metrics.OtlpEndpoint,
		OtlpInsecure: cfg.Metrics.OtlpInsecure,
	}

	rec, handler, shutdown, err := metricsSetup(context.Background(), recCfg)
	if err != nil {
		logging.Warn(logger, "metrics setup failed, continuing without telemetry", logging.FieldError, err)
		return metrics.NewRecorder(), nil, nil, nil
	}

	var metricsSrv httpServer
	if handler != nil && recCfg.Enabled && recCfg.Port != "" && recCfg.Port != cfg.Port {
		metricsSrv = netHTTPServer{
			srv: &http.Server{
				Addr:              ":" + recCfg.Port,
				Handler:           handler,
				ReadHeaderTimeout: readTimeout,
			},
		}
	}

	return rec, handler, metricsSrv, shutdown
}

func launchServer(name string, srv httpServer, logger *slog.Logger, onError func(error)) {
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Warn(logger, name+" server failed", logging.FieldError, err)
			if onError != nil {
				onError(err)
			}
		}
	}()
}

// Handler exposes the HTTP handler (useful for tests).
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler()
}
