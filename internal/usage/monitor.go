package usage

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/preston-bernstein/sports-data-service/internal/domain/games"
	"github.com/preston-bernstein/sports-data-service/internal/logging"
)

const (
	// AlertPct raises an alert for a league.
	AlertPct = 90.0
	// ResetPct re-arms a league's alert once utilization falls back.
	ResetPct = 70.0
)

// Alert is raised once per excursion above AlertPct.
type Alert struct {
	League         games.League `json:"league"`
	UtilizationPct float64      `json:"utilizationPct"`
	Message        string       `json:"message"`
}

// Monitor watches utilization and alerts with hysteresis.
type Monitor struct {
	mu      sync.Mutex
	alerted map[games.League]bool
	logger  *slog.Logger
}

func NewMonitor(logger *slog.Logger) *Monitor {
	return &Monitor{
		alerted: make(map[games.League]bool),
		logger:  logger,
	}
}

// Check returns the alerts newly raised by stats.
func (m *Monitor) Check(stats []LeagueStats) []Alert {
	m.mu.Lock()
	defer m.mu.Unlock()

	var alerts []Alert
	for _, s := range stats {
		switch {
		case s.UtilizationPct > AlertPct && !m.alerted[s.League]:
			m.alerted[s.League] = true
			a := Alert{
				League:         s.League,
				UtilizationPct: s.UtilizationPct,
				Message: fmt.Sprintf("%s at %.0f%% of its request limit (%d/%d per minute)",
					s.League, s.UtilizationPct, s.RequestsLastMinute, s.Limit),
			}
			logging.Warn(m.logger, "request budget alert",
				logging.FieldLeague, s.League.String(),
				"utilization_pct", s.UtilizationPct,
			)
			alerts = append(alerts, a)
		case s.UtilizationPct < ResetPct && m.alerted[s.League]:
			m.alerted[s.League] = false
		}
	}
	return alerts
}

// Alerted reports whether league currently has an open alert.
func (m *Monitor) Alerted(league games.League) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.alerted[league]
}

// Recommendations returns operator hints derived from stats.
func Recommendations(stats []LeagueStats) []string {
	var out []string
	for _, s := range stats {
		if s.ApproachingLimit {
			out = append(out, fmt.Sprintf("%s is close to its request limit; consider a longer default poll interval", s.League))
		}
		if !s.CooldownUntil.IsZero() {
			out = append(out, fmt.Sprintf("%s is cooling down after an upstream rate limit", s.League))
		}
		if s.DailyRequests >= 10 && s.DailyFailures*2 > s.DailyRequests {
			out = append(out, fmt.Sprintf("%s has a high failure rate today (%d/%d); check the provider", s.League, s.DailyFailures, s.DailyRequests))
		}
	}
	if len(out) == 0 {
		out = append(out, "request usage is within normal limits")
	}
	return out
}
