package metrics

import (
	"sort"
	"sync"
	"time"
)

type leagueStats struct {
	calls           int
	errors          int
	rateLimitHits   int
	budgetSkips     int
	reconciled      int
	reconcileErrors int
	lastRetryAfter  time.Duration
	lastCallLatency time.Duration
	lastInterval    time.Duration
}

// Recorder captures lightweight, in-memory metrics about league polling and
// forwards them to OpenTelemetry instruments when configured.
type Recorder struct {
	mu     sync.Mutex
	stats  map[string]*leagueStats
	cycles int
	otel   *otelInstruments
}

func NewRecorder() *Recorder {
	return newRecorder(nil)
}

func newRecorder(otel *otelInstruments) *Recorder {
	return &Recorder{
		stats: make(map[string]*leagueStats),
		otel:  otel,
	}
}

// RecordLeagueAttempt counts an upstream call for a league and stores its latency.
func (r *Recorder) RecordLeagueAttempt(league string, duration time.Duration, err error) {
	if r == nil {
		return
	}

	r.update(league, func(s *leagueStats) {
		s.calls++
		s.lastCallLatency = duration
		if err != nil {
			s.errors++
		}
	})
	if r.otel != nil {
		r.otel.recordLeagueAttempt(league, duration, err)
	}
}

// RecordRateLimit tracks an upstream 429 and the last Retry-After.
func (r *Recorder) RecordRateLimit(league string, retryAfter time.Duration) {
	if r == nil {
		return
	}

	r.update(league, func(s *leagueStats) {
		s.rateLimitHits++
		if retryAfter > 0 {
			s.lastRetryAfter = retryAfter
		}
	})
	if r.otel != nil {
		r.otel.recordRateLimit(league, retryAfter)
	}
}

// RecordBudgetSkip counts a poll skipped because the league's budget was spent.
func (r *Recorder) RecordBudgetSkip(league string) {
	if r == nil {
		return
	}
	r.update(league, func(s *leagueStats) { s.budgetSkips++ })
	if r.otel != nil {
		r.otel.recordBudgetSkip(league)
	}
}

// RecordReconciled counts snapshots written (and failed) for a league.
func (r *Recorder) RecordReconciled(league string, written, failed int) {
	if r == nil {
		return
	}
	r.update(league, func(s *leagueStats) {
		s.reconciled += written
		s.reconcileErrors += failed
	})
	if r.otel != nil {
		r.otel.recordReconciled(league, written, failed)
	}
}

// RecordInterval stores the next poll interval chosen for a league.
func (r *Recorder) RecordInterval(league string, interval time.Duration) {
	if r == nil {
		return
	}
	r.update(league, func(s *leagueStats) { s.lastInterval = interval })
	if r.otel != nil {
		r.otel.recordInterval(league, interval)
	}
}

// RecordHTTPRequest tracks basic HTTP metrics.
func (r *Recorder) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if r == nil || r.otel == nil {
		return
	}
	r.otel.recordHTTPRequest(method, path, status, duration)
}

// RecordPollerCycle tracks orchestrator cycles.
func (r *Recorder) RecordPollerCycle(duration time.Duration, failedLeagues int) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.cycles++
	r.mu.Unlock()
	if r.otel != nil {
		r.otel.recordPoller(duration, failedLeagues)
	}
}

// Snapshot is a copy of the current stats for one league.
type Snapshot struct {
	Calls           int           `json:"calls"`
	Errors          int           `json:"errors"`
	RateLimitHits   int           `json:"rateLimitHits"`
	BudgetSkips     int           `json:"budgetSkips"`
	Reconciled      int           `json:"reconciled"`
	ReconcileErrors int           `json:"reconcileErrors"`
	LastRetryAfter  time.Duration `json:"lastRetryAfter"`
	LastCallLatency time.Duration `json:"lastCallLatency"`
	LastInterval    time.Duration `json:"lastInterval"`
}

func (r *Recorder) Snapshot(league string) Snapshot {
	if r == nil {
		return Snapshot{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	stats, ok := r.stats[league]
	if !ok || stats == nil {
		return Snapshot{}
	}
	return Snapshot{
		Calls:           stats.calls,
		Errors:          stats.errors,
		RateLimitHits:   stats.rateLimitHits,
		BudgetSkips:     stats.budgetSkips,
		Reconciled:      stats.reconciled,
		ReconcileErrors: stats.reconcileErrors,
		LastRetryAfter:  stats.lastRetryAfter,
		LastCallLatency: stats.lastCallLatency,
		LastInterval:    stats.lastInterval,
	}
}

// Leagues lists every league with recorded stats, sorted.
func (r *Recorder) Leagues() []string {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.stats))
	for league := range r.stats {
		out = append(out, league)
	}
	sort.Strings(out)
	return out
}

// Cycles returns how many orchestrator cycles were recorded.
func (r *Recorder) Cycles() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cycles
}

func (r *Recorder) update(league string, fn func(*leagueStats)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats, ok := r.stats[league]
	if !ok {
		stats = &leagueStats{}
		r.stats[league] = stats
	}
	fn(stats)
}
