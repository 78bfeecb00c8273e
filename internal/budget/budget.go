// Package budget enforces per-league request allowances over a sliding window.
package budget

import (
	"sync"
	"time"

	"github.com/preston-bernstein/sports-data-service/internal/domain/games"
)

const (
	// DefaultWindow is the sliding window the per-minute limits apply to.
	DefaultWindow = time.Minute
	// DefaultLimit applies to leagues without a configured limit.
	DefaultLimit = 30
)

// Window summarizes one league's budget at a point in time.
type Window struct {
	League        games.League `json:"league"`
	Limit         int          `json:"limit"`
	InWindow      int          `json:"inWindow"`
	Remaining     int          `json:"remaining"`
	CooldownUntil time.Time    `json:"cooldownUntil,omitempty"`
}

// Utilization is the share of the window in use, as a percentage.
func (w Window) Utilization() float64 {
	if w.Limit <= 0 {
		return 0
	}
	return float64(w.InWindow) / float64(w.Limit) * 100
}

type leagueBudget struct {
	mu            sync.Mutex
	limit         int
	stamps        []time.Time
	cooldownUntil time.Time
}

// Budget tracks request timestamps per league. Each league has its own lock,
// so one league's check never waits on another's.
type Budget struct {
	mu           sync.RWMutex
	leagues      map[games.League]*leagueBudget
	defaultLimit int
	window       time.Duration
	now          func() time.Time
}

// Option customizes a Budget.
type Option func(*Budget)

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(b *Budget) {
		if now != nil {
			b.now = now
		}
	}
}

// WithWindow overrides the sliding window length.
func WithWindow(d time.Duration) Option {
	return func(b *Budget) {
		if d > 0 {
			b.window = d
		}
	}
}

// WithDefaultLimit sets the limit used for leagues absent from the limits map.
func WithDefaultLimit(n int) Option {
	return func(b *Budget) {
		if n > 0 {
			b.defaultLimit = n
		}
	}
}

// New builds a Budget with a max-requests-per-window limit per league.
func New(limits map[games.League]int, opts ...Option) *Budget {
	b := &Budget{
		leagues:      make(map[games.League]*leagueBudget, len(limits)),
		defaultLimit: DefaultLimit,
		window:       DefaultWindow,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	for league, limit := range limits {
		if limit <= 0 {
			limit = b.defaultLimit
		}
		b.leagues[league] = &leagueBudget{limit: limit}
	}
	return b
}

func (b *Budget) entry(league games.League) *leagueBudget {
	b.mu.RLock()
	lb, ok := b.leagues[league]
	b.mu.RUnlock()
	if ok {
		return lb
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if lb, ok = b.leagues[league]; ok {
		return lb
	}
	lb = &leagueBudget{limit: b.defaultLimit}
	b.leagues[league] = lb
	return lb
}

// purge drops timestamps older than the window. Caller holds lb.mu.
func (lb *leagueBudget) purge(now time.Time, window time.Duration) {
	cutoff := now.Add(-window)
	i := 0
	for i < len(lb.stamps) && !lb.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		lb.stamps = append(lb.stamps[:0], lb.stamps[i:]...)
	}
}

// CanRequest reports whether another upstream request fits the league's window.
func (b *Budget) CanRequest(league games.League) bool {
	lb := b.entry(league)
	now := b.now()

	lb.mu.Lock()
	defer lb.mu.Unlock()
	lb.purge(now, b.window)
	if now.Before(lb.cooldownUntil) {
		return false
	}
	return len(lb.stamps) < lb.limit
}

// Record notes an attempted request. Call it only once the request was sent.
func (b *Budget) Record(league games.League) {
	lb := b.entry(league)
	now := b.now()

	lb.mu.Lock()
	lb.stamps = append(lb.stamps, now)
	lb.mu.Unlock()
}

// Wait returns how long until the league may request again; zero when it can now.
func (b *Budget) Wait(league games.League) time.Duration {
	lb := b.entry(league)
	now := b.now()

	lb.mu.Lock()
	defer lb.mu.Unlock()
	lb.purge(now, b.window)

	var wait time.Duration
	if len(lb.stamps) >= lb.limit && len(lb.stamps) > 0 {
		wait = b.window - now.Sub(lb.stamps[0])
	}
	if cd := lb.cooldownUntil.Sub(now); cd > wait {
		wait = cd
	}
	if wait < 0 {
		return 0
	}
	return wait
}

// WaitSeconds is Wait expressed in fractional seconds.
func (b *Budget) WaitSeconds(league games.League) float64 {
	return b.Wait(league).Seconds()
}

// Cooldown blocks the league for d after an upstream throttle. It never shortens
// a cooldown already in force.
func (b *Budget) Cooldown(league games.League, d time.Duration) time.Time {
	lb := b.entry(league)
	until := b.now().Add(d)

	lb.mu.Lock()
	defer lb.mu.Unlock()
	if until.After(lb.cooldownUntil) {
		lb.cooldownUntil = until
	}
	return lb.cooldownUntil
}

// CoolingDown reports whether a throttle cooldown is active.
func (b *Budget) CoolingDown(league games.League) bool {
	lb := b.entry(league)
	now := b.now()

	lb.mu.Lock()
	defer lb.mu.Unlock()
	return now.Before(lb.cooldownUntil)
}

// Usage reports the league's current window.
func (b *Budget) Usage(league games.League) Window {
	lb := b.entry(league)
	now := b.now()

	lb.mu.Lock()
	defer lb.mu.Unlock()
	lb.purge(now, b.window)

	w := Window{
		League:    league,
		Limit:     lb.limit,
		InWindow:  len(lb.stamps),
		Remaining: lb.limit - len(lb.stamps),
	}
	if w.Remaining < 0 {
		w.Remaining = 0
	}
	if now.Before(lb.cooldownUntil) {
		w.CooldownUntil = lb.cooldownUntil
	}
	return w
}

// Limit returns the configured limit for league.
func (b *Budget) Limit(league games.League) int {
	lb := b.entry(league)
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.limit
}
