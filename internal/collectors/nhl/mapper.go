package nhl

import (
	"strconv"
	"strings"
	"time"

	"github.com/preston-bernstein/sports-data-service/internal/domain/games"
)

func mapGame(g gameResponse, date string, capturedAt time.Time) games.Snapshot {
	status := mapStatus(g.GameState, g.GameScheduleState)
	snap := games.Snapshot{
		League:       games.LeagueNHL,
		GameID:       strconv.Itoa(g.ID),
		Date:         firstNonEmpty(g.GameDate, date),
		Status:       status,
		HomeTeam:     teamLabel(g.HomeTeam),
		VisitorTeam:  teamLabel(g.AwayTeam),
		HomeScore:    g.HomeTeam.Score,
		VisitorScore: g.AwayTeam.Score,
		Period:       g.PeriodDescriptor.Number,
		IsFinal:      status == games.StatusFinal,
		IsOvertime:   overtime(g),
		CapturedAt:   capturedAt,
	}
	if status == games.StatusInProgress {
		snap.Clock = g.Clock.TimeRemaining
		if g.Clock.InIntermission {
			snap.Clock = "INT"
		}
	}
	if t, err := time.Parse(time.RFC3339, g.StartTimeUTC); err == nil {
		snap.StartTime = t.UTC()
	}
	return snap.Normalize()
}

// mapStatus folds the NHL gameState codes. The schedule state carries
// postponements, which gameState does not.
func mapStatus(gameState, scheduleState string) games.Status {
	switch strings.ToUpper(strings.TrimSpace(scheduleState)) {
	case "PPD", "SUSP":
		return games.StatusPostponed
	case "CNCL":
		return games.StatusCanceled
	}
	switch strings.ToUpper(strings.TrimSpace(gameState)) {
	case "FUT", "PRE":
		return games.StatusScheduled
	case "LIVE", "CRIT":
		return games.StatusInProgress
	case "FINAL", "OFF":
		return games.StatusFinal
	}
	return games.NormalizeStatus(gameState)
}

func overtime(g gameResponse) bool {
	if g.GameOutcome != nil && g.GameOutcome.LastPeriodType != "" && g.GameOutcome.LastPeriodType != "REG" {
		return true
	}
	switch g.PeriodDescriptor.PeriodType {
	case "OT", "SO":
		return true
	}
	return g.PeriodDescriptor.Number > 3
}

func teamLabel(t teamResponse) string {
	if t.Abbrev != "" {
		return t.Abbrev
	}
	full := strings.TrimSpace(t.PlaceName.Default + " " + t.CommonName.Default)
	if full != "" {
		return full
	}
	return t.Name.Default
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
