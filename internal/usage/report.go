package usage

import (
	"github.com/preston-bernstein/sports-data-service/internal/budget"
	"github.com/preston-bernstein/sports-data-service/internal/domain/games"
)

// recentAttempts is how many attempts per league a Report carries.
const recentAttempts = 5

// Report is the usage overview across leagues.
type Report struct {
	Leagues         []LeagueStats              `json:"leagues"`
	Alerts          []Alert                    `json:"alerts,omitempty"`
	Recommendations []string                   `json:"recommendations,omitempty"`
	Recent          map[games.League][]Attempt `json:"recent,omitempty"`
}

// Reporter joins the recorder's counters with the live budget windows.
type Reporter struct {
	recorder *Recorder
	budget   *budget.Budget
	monitor  *Monitor
	leagues  []games.League
}

// NewReporter builds a Reporter over leagues. monitor may be nil.
func NewReporter(recorder *Recorder, b *budget.Budget, monitor *Monitor, leagues []games.League) *Reporter {
	return &Reporter{
		recorder: recorder,
		budget:   b,
		monitor:  monitor,
		leagues:  append([]games.League(nil), leagues...),
	}
}

// Report computes current stats and raises any new alerts.
func (r *Reporter) Report() Report {
	stats := make([]LeagueStats, 0, len(r.leagues))
	recent := make(map[games.League][]Attempt, len(r.leagues))
	for _, league := range r.leagues {
		stats = append(stats, r.recorder.Stats(league, r.budget.Usage(league)))
		if attempts := r.recorder.Recent(league, recentAttempts); len(attempts) > 0 {
			recent[league] = attempts
		}
	}
	rep := Report{Leagues: stats, Recommendations: Recommendations(stats), Recent: recent}
	if r.monitor != nil {
		rep.Alerts = r.monitor.Check(stats)
	}
	return rep
}
