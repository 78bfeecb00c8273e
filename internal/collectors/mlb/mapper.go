package mlb

import (
	"strconv"
	"strings"
	"time"

	"github.com/preston-bernstein/sports-data-service/internal/domain/games"
)

func mapGame(g gameResponse, date string, capturedAt time.Time) games.Snapshot {
	status := mapStatus(g.Status)
	snap := games.Snapshot{
		League:       games.LeagueMLB,
		GameID:       strconv.Itoa(g.GamePk),
		Date:         date,
		Status:       status,
		HomeTeam:     teamLabel(g.Teams.Home.Team),
		VisitorTeam:  teamLabel(g.Teams.Away.Team),
		HomeScore:    g.Teams.Home.Score,
		VisitorScore: g.Teams.Away.Score,
		IsFinal:      status == games.StatusFinal,
		CapturedAt:   capturedAt,
	}
	if g.OfficialDate != "" {
		snap.Date = g.OfficialDate
	}
	if ls := g.Linescore; ls != nil {
		snap.Period = ls.CurrentInning
		scheduled := ls.ScheduledInnings
		if scheduled == 0 {
			scheduled = 9
		}
		snap.IsOvertime = ls.CurrentInning > scheduled
		if status == games.StatusInProgress {
			snap.Clock = strings.TrimSpace(ls.InningState)
		}
	}
	if t, err := time.Parse(time.RFC3339, g.GameDate); err == nil {
		snap.StartTime = t.UTC()
	}
	return snap.Normalize()
}

// mapStatus prefers detailedState for postponements, since those games keep
// an abstract state of Preview or Final.
func mapStatus(s statusResponse) games.Status {
	detailed := strings.ToLower(strings.TrimSpace(s.DetailedState))
	switch {
	case strings.HasPrefix(detailed, "postponed"), strings.HasPrefix(detailed, "suspended"):
		return games.StatusPostponed
	case strings.HasPrefix(detailed, "cancelled"), strings.HasPrefix(detailed, "canceled"):
		return games.StatusCanceled
	}
	switch strings.ToLower(strings.TrimSpace(s.AbstractGameState)) {
	case "preview":
		return games.StatusScheduled
	case "live":
		return games.StatusInProgress
	case "final":
		return games.StatusFinal
	}
	return games.NormalizeStatus(s.DetailedState)
}

func teamLabel(t teamResponse) string {
	if t.Abbreviation != "" {
		return t.Abbreviation
	}
	return t.Name
}
