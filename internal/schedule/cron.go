package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/preston-bernstein/sports-data-service/internal/domain/games"
	"github.com/preston-bernstein/sports-data-service/internal/logging"
	"github.com/preston-bernstein/sports-data-service/internal/timeutil"
)

// ErrAlreadyStarted is returned by Start on a running updater.
var ErrAlreadyStarted = errors.New("schedule updater already started")

// JobInfo describes one daily refresh job.
type JobInfo struct {
	ID        string               `json:"id"`
	Schedule  string               `json:"schedule"`
	NextRun   time.Time            `json:"nextRun,omitempty"`
	LastRun   time.Time            `json:"lastRun,omitempty"`
	LastCount map[games.League]int `json:"lastCount,omitempty"`
	Status    string               `json:"status"`
}

type cronRunner struct {
	c       *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	jobs    map[string]*JobInfo
	entries map[string]cron.EntryID
}

// CronSpec converts an HH:MM time of day into a five-field cron expression.
func CronSpec(at string) (string, error) {
	clock, err := timeutil.ParseClock(strings.TrimSpace(at))
	if err != nil {
		return "", fmt.Errorf("schedule time %q: %w", at, err)
	}
	return fmt.Sprintf("%d %d * * *", clock.Minute(), clock.Hour()), nil
}

// Start registers one cron job per configured time and starts the scheduler.
// Jobs run with ctx until Stop.
func (u *Updater) Start(ctx context.Context) error {
	u.cronMu.Lock()
	defer u.cronMu.Unlock()
	if u.cron != nil {
		return ErrAlreadyStarted
	}
	specs := make(map[string]string, len(u.times))
	for _, at := range u.times {
		spec, err := CronSpec(at)
		if err != nil {
			return err
		}
		specs[strings.TrimSpace(at)] = spec
	}

	jobCtx, cancel := context.WithCancel(ctx)
	r := &cronRunner{
		c: cron.New(
			cron.WithLocation(u.loc),
			cron.WithLogger(cronLogger{logger: u.logger}),
			cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger: u.logger})),
		),
		ctx:     jobCtx,
		cancel:  cancel,
		jobs:    make(map[string]*JobInfo, len(specs)),
		entries: make(map[string]cron.EntryID, len(specs)),
	}
	for at, spec := range specs {
		id := "schedule-" + at
		info := &JobInfo{ID: id, Schedule: spec, Status: "scheduled"}
		entry, err := r.c.AddFunc(spec, func() { u.runJob(r, info) })
		if err != nil {
			cancel()
			return fmt.Errorf("add schedule job %s: %w", id, err)
		}
		r.jobs[id] = info
		r.entries[id] = entry
		logging.Info(u.logger, "schedule job registered", "job", id, "cron", spec)
	}

	u.cron = r
	r.c.Start()
	return nil
}

func (u *Updater) runJob(r *cronRunner, info *JobInfo) {
	r.mu.Lock()
	info.Status = "running"
	r.mu.Unlock()

	started := u.now()
	results := u.Refresh(r.ctx)

	r.mu.Lock()
	info.LastRun = started
	info.LastCount = results
	info.Status = "completed"
	r.mu.Unlock()

	logging.Info(u.logger, "scheduled refresh complete", "job", info.ID, logging.FieldCount, total(results))
}

// Stop halts the scheduler and waits for a running job until ctx ends.
func (u *Updater) Stop(ctx context.Context) error {
	u.cronMu.Lock()
	r := u.cron
	u.cron = nil
	u.cronMu.Unlock()
	if r == nil {
		return nil
	}
	done := r.c.Stop()
	defer r.cancel()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Jobs reports the registered jobs sorted by id.
func (u *Updater) Jobs() []JobInfo {
	u.cronMu.Lock()
	r := u.cron
	u.cronMu.Unlock()
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]JobInfo, 0, len(r.jobs))
	for id, info := range r.jobs {
		job := *info
		job.NextRun = r.c.Entry(r.entries[id]).Next
		out = append(out, job)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func total(results map[games.League]int) int {
	n := 0
	for _, c := range results {
		n += c
	}
	return n
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logging.Debug(l.logger, "cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logging.Error(l.logger, "cron: "+msg, err, keysAndValues...)
}
