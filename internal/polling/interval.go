package polling

import (
	"fmt"
	"time"

	"github.com/preston-bernstein/sports-data-service/internal/domain/games"
)

// Decision is the next step for a league: wait for a duration or stop.
type Decision struct {
	Stop bool          `json:"stop"`
	Wait time.Duration `json:"wait,omitempty"`
}

// StopPolling is the terminal decision.
func StopPolling() Decision {
	return Decision{Stop: true}
}

// WaitFor schedules the next poll after d.
func WaitFor(d time.Duration) Decision {
	return Decision{Wait: d}
}

func (d Decision) String() string {
	if d.Stop {
		return "stop"
	}
	return d.Wait.String()
}

// ClockSplit replaces score-based intervals with a fixed fast/slow cadence by time of day.
type ClockSplit struct {
	Fast         Window
	FastInterval time.Duration
	SlowInterval time.Duration
}

// IntervalPolicy decides how often a league is polled.
type IntervalPolicy struct {
	CloseGameThreshold int
	CloseGameInterval  time.Duration
	DefaultInterval    time.Duration
	ScheduledInterval  time.Duration
	// Heartbeat keeps an idle league polling slowly; zero means stop.
	Heartbeat time.Duration
	Split     *ClockSplit
}

// Validate rejects non-positive intervals.
func (p IntervalPolicy) Validate() error {
	if p.CloseGameInterval <= 0 || p.DefaultInterval <= 0 || p.ScheduledInterval <= 0 {
		return fmt.Errorf("poll intervals must be positive")
	}
	if p.CloseGameThreshold < 0 {
		return fmt.Errorf("close game threshold must not be negative")
	}
	if p.Heartbeat < 0 {
		return fmt.Errorf("heartbeat must not be negative")
	}
	if p.Split != nil && (p.Split.FastInterval <= 0 || p.Split.SlowInterval <= 0) {
		return fmt.Errorf("clock split intervals must be positive")
	}
	return nil
}

// Next returns the decision for a league given its tracked games at now.
// Close games win over plain in-progress games, which win over pre-game.
func (p IntervalPolicy) Next(active []games.Snapshot, now time.Time) Decision {
	live := false
	pending := false
	closeGame := false
	for _, g := range active {
		if !g.Active() {
			continue
		}
		if g.Status.Live() {
			live = true
			if g.Differential() <= p.CloseGameThreshold {
				closeGame = true
			}
			continue
		}
		pending = true
	}

	if !live && !pending {
		if p.Heartbeat > 0 {
			return WaitFor(p.Heartbeat)
		}
		return StopPolling()
	}

	if p.Split != nil {
		if p.Split.Fast.Contains(now) {
			return WaitFor(p.Split.FastInterval)
		}
		return WaitFor(p.Split.SlowInterval)
	}

	switch {
	case closeGame:
		return WaitFor(p.CloseGameInterval)
	case live:
		return WaitFor(p.DefaultInterval)
	default:
		return WaitFor(p.ScheduledInterval)
	}
}
