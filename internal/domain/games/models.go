package games

import (
	"errors"
	"fmt"
	"time"

	"github.com/preston-bernstein/sports-data-service/internal/timeutil"
)

// Key is the identity of a stored game.
type Key struct {
	League League
	GameID string
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s", k.League, k.GameID)
}

// Snapshot is one normalized, provider-agnostic read of a game.
type Snapshot struct {
	League       League    `json:"league"`
	GameID       string    `json:"gameId"`
	Date         string    `json:"date"`
	Status       Status    `json:"status"`
	HomeTeam     string    `json:"homeTeam"`
	VisitorTeam  string    `json:"visitorTeam"`
	HomeScore    int       `json:"homeScore"`
	VisitorScore int       `json:"visitorScore"`
	Period       int       `json:"period,omitempty"`
	Clock        string    `json:"clock,omitempty"`
	IsFinal      bool      `json:"isFinal"`
	IsOvertime   bool      `json:"isOvertime,omitempty"`
	StartTime    time.Time `json:"startTime,omitempty"`
	CapturedAt   time.Time `json:"capturedAt"`
}

// Key returns the (league, gameId) identity.
func (s Snapshot) Key() Key {
	return Key{League: s.League, GameID: s.GameID}
}

// Normalize reconciles the status and final flag. A final marker from either
// signal wins; scores never go negative.
func (s Snapshot) Normalize() Snapshot {
	if !s.Status.Valid() {
		s.Status = NormalizeStatus(string(s.Status))
	}
	if s.IsFinal {
		s.Status = StatusFinal
	}
	if s.Status == StatusFinal {
		s.IsFinal = true
	}
	if s.HomeScore < 0 {
		s.HomeScore = 0
	}
	if s.VisitorScore < 0 {
		s.VisitorScore = 0
	}
	return s
}

// Validate checks identity fields.
func (s Snapshot) Validate() error {
	if s.League == "" {
		return errors.New("snapshot missing league")
	}
	if s.GameID == "" {
		return errors.New("snapshot missing game id")
	}
	if _, err := timeutil.ParseDate(s.Date); err != nil {
		return fmt.Errorf("snapshot %s has invalid date %q: %w", s.Key(), s.Date, err)
	}
	return nil
}

// Differential is the absolute score gap.
func (s Snapshot) Differential() int {
	d := s.HomeScore - s.VisitorScore
	if d < 0 {
		return -d
	}
	return d
}

// Started reports whether play has begun.
func (s Snapshot) Started() bool {
	return s.Status == StatusInProgress || s.Status == StatusFinal
}

// Active reports whether the game still needs polling.
func (s Snapshot) Active() bool {
	return !s.IsFinal && s.Status != StatusFinal && !s.Status.Inactive()
}

// DayResponse is the payload returned by the games-by-date endpoint.
type DayResponse struct {
	League League     `json:"league"`
	Date   string     `json:"date"`
	Games  []Snapshot `json:"games"`
}

// NewDayResponse builds a DayResponse payload.
func NewDayResponse(league League, date string, games []Snapshot) DayResponse {
	if games == nil {
		games = []Snapshot{}
	}
	return DayResponse{
		League: league,
		Date:   date,
		Games:  games,
	}
}

// Merge applies the mutable fields of incoming onto existing. Identity fields
// (league, game id, date, teams) keep their stored values once set.
func Merge(existing, incoming Snapshot) Snapshot {
	out := existing
	out.Status = incoming.Status
	out.HomeScore = incoming.HomeScore
	out.VisitorScore = incoming.VisitorScore
	out.Period = incoming.Period
	out.Clock = incoming.Clock
	out.IsFinal = incoming.IsFinal
	out.IsOvertime = incoming.IsOvertime
	out.CapturedAt = incoming.CapturedAt
	if !incoming.StartTime.IsZero() {
		out.StartTime = incoming.StartTime
	}
	if out.Date == "" {
		out.Date = incoming.Date
	}
	if out.HomeTeam == "" {
		out.HomeTeam = incoming.HomeTeam
	}
	if out.VisitorTeam == "" {
		out.VisitorTeam = incoming.VisitorTeam
	}
	return out
}
