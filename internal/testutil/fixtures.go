package testutil

import (
	"github.com/preston-bernstein/sports-data-service/internal/domain/games"
)

// SampleSnapshot returns a minimal scheduled game for league on date.
func SampleSnapshot(league games.League, id, date string) games.Snapshot {
	return games.Snapshot{
		League:      league,
		GameID:      id,
		Date:        date,
		Status:      games.StatusScheduled,
		HomeTeam:    "HOME",
		VisitorTeam: "AWAY",
	}
}

// LiveSnapshot returns an in-progress game with the given score.
func LiveSnapshot(league games.League, id, date string, home, visitor int) games.Snapshot {
	s := SampleSnapshot(league, id, date)
	s.Status = games.StatusInProgress
	s.HomeScore = home
	s.VisitorScore = visitor
	s.Period = 2
	return s
}

// FinalSnapshot returns a completed game.
func FinalSnapshot(league games.League, id, date string, home, visitor int) games.Snapshot {
	s := LiveSnapshot(league, id, date, home, visitor)
	s.Status = games.StatusFinal
	s.IsFinal = true
	return s
}
