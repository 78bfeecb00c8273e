// Package usage records upstream request attempts per league and derives
// daily counters and utilization stats from them.
package usage

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/preston-bernstein/sports-data-service/internal/budget"
	"github.com/preston-bernstein/sports-data-service/internal/domain/games"
	"github.com/preston-bernstein/sports-data-service/internal/logging"
	"github.com/preston-bernstein/sports-data-service/internal/metrics"
	"github.com/preston-bernstein/sports-data-service/internal/timeutil"
)

const (
	defaultHistory = 50
	// ApproachingPct marks a league as close to its per-minute limit.
	ApproachingPct = 80.0
)

// Attempt is one upstream request, successful or not.
type Attempt struct {
	League     games.League  `json:"league"`
	Endpoint   string        `json:"endpoint"`
	Success    bool          `json:"success"`
	StatusCode int           `json:"statusCode,omitempty"`
	Latency    time.Duration `json:"latency"`
	Error      string        `json:"error,omitempty"`
	At         time.Time     `json:"at"`
}

// Sink persists attempts, e.g. to an api_usage table.
type Sink interface {
	LogAttempt(ctx context.Context, a Attempt) error
}

type leagueUsage struct {
	mu       sync.Mutex
	day      string
	total    int
	failures int
	history  []Attempt
	lastErr  string
	lastAt   time.Time
}

// Recorder keeps per-league daily counters and a short attempt history.
type Recorder struct {
	mu      sync.RWMutex
	leagues map[games.League]*leagueUsage
	history int
	loc     *time.Location
	now     func() time.Time
	sink    Sink
	metrics *metrics.Recorder
	logger  *slog.Logger
}

// Option customizes a Recorder.
type Option func(*Recorder)

func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLocation sets the timezone the daily rollover follows.
func WithLocation(loc *time.Location) Option {
	return func(r *Recorder) { r.loc = loc }
}

func WithSink(s Sink) Option {
	return func(r *Recorder) { r.sink = s }
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(r *Recorder) { r.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Recorder) { r.logger = l }
}

// WithHistory sets how many recent attempts are kept per league.
func WithHistory(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.history = n
		}
	}
}

// NewRecorder builds an empty Recorder.
func NewRecorder(opts ...Option) *Recorder {
	r := &Recorder{
		leagues: make(map[games.League]*leagueUsage),
		history: defaultHistory,
		loc:     time.UTC,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Recorder) entry(league games.League) *leagueUsage {
	r.mu.RLock()
	lu, ok := r.leagues[league]
	r.mu.RUnlock()
	if ok {
		return lu
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if lu, ok = r.leagues[league]; ok {
		return lu
	}
	lu = &leagueUsage{}
	r.leagues[league] = lu
	return lu
}

// rollover resets daily counters when the calendar day changed. Caller holds lu.mu.
func (lu *leagueUsage) rollover(today string) {
	if lu.day == today {
		return
	}
	lu.day = today
	lu.total = 0
	lu.failures = 0
}

// Record stores an attempt. Sink failures are logged and swallowed.
func (r *Recorder) Record(ctx context.Context, a Attempt) {
	if r == nil {
		return
	}
	if a.At.IsZero() {
		a.At = r.now()
	}
	lu := r.entry(a.League)

	lu.mu.Lock()
	lu.rollover(timeutil.Today(a.At, r.loc))
	lu.total++
	if !a.Success {
		lu.failures++
		lu.lastErr = a.Error
	}
	lu.lastAt = a.At
	lu.history = append(lu.history, a)
	if over := len(lu.history) - r.history; over > 0 {
		lu.history = append(lu.history[:0], lu.history[over:]...)
	}
	lu.mu.Unlock()

	var err error
	if !a.Success && a.Error != "" {
		err = attemptError(a.Error)
	}
	r.metrics.RecordLeagueAttempt(a.League.String(), a.Latency, err)

	if r.sink != nil {
		if serr := r.sink.LogAttempt(ctx, a); serr != nil {
			logging.Warn(r.logger, "usage sink write failed",
				logging.FieldLeague, a.League.String(),
				logging.FieldError, serr,
			)
		}
	}
}

// Daily returns today's request and failure counts for league.
func (r *Recorder) Daily(league games.League) (requests, failures int) {
	lu := r.entry(league)
	lu.mu.Lock()
	defer lu.mu.Unlock()
	lu.rollover(timeutil.Today(r.now(), r.loc))
	return lu.total, lu.failures
}

// Recent returns up to n of the newest attempts, oldest first.
func (r *Recorder) Recent(league games.League, n int) []Attempt {
	lu := r.entry(league)
	lu.mu.Lock()
	defer lu.mu.Unlock()
	if n <= 0 || n > len(lu.history) {
		n = len(lu.history)
	}
	out := make([]Attempt, n)
	copy(out, lu.history[len(lu.history)-n:])
	return out
}

// LeagueStats combines the budget window with daily counters.
type LeagueStats struct {
	League             games.League `json:"league"`
	RequestsLastMinute int          `json:"requestsLastMinute"`
	Limit              int          `json:"limit"`
	UtilizationPct     float64      `json:"utilizationPct"`
	DailyRequests      int          `json:"dailyRequests"`
	DailyFailures      int          `json:"dailyFailures"`
	LastError          string       `json:"lastError,omitempty"`
	LastAttempt        time.Time    `json:"lastAttempt,omitempty"`
	ApproachingLimit   bool         `json:"approachingLimit"`
	CooldownUntil      time.Time    `json:"cooldownUntil,omitempty"`
}

// Stats reports usage for league given its current budget window.
func (r *Recorder) Stats(league games.League, w budget.Window) LeagueStats {
	lu := r.entry(league)
	lu.mu.Lock()
	lu.rollover(timeutil.Today(r.now(), r.loc))
	stats := LeagueStats{
		League:             league,
		RequestsLastMinute: w.InWindow,
		Limit:              w.Limit,
		UtilizationPct:     w.Utilization(),
		DailyRequests:      lu.total,
		DailyFailures:      lu.failures,
		LastError:          lu.lastErr,
		LastAttempt:        lu.lastAt,
		CooldownUntil:      w.CooldownUntil,
	}
	lu.mu.Unlock()

	stats.ApproachingLimit = stats.UtilizationPct > ApproachingPct
	return stats
}

type attemptError string

func (e attemptError) Error() string { return string(e) }
