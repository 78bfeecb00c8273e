package games

import (
	"errors"
	"fmt"
	"strings"
)

// League identifies one supported competition.
type League string

const (
	LeagueNBA  League = "NBA"
	LeagueMLB  League = "MLB"
	LeagueNHL  League = "NHL"
	LeagueNFL  League = "NFL"
	LeagueWNBA League = "WNBA"
)

// ErrUnknownLeague is returned when a league identifier is not supported.
var ErrUnknownLeague = errors.New("unknown league")

var allLeagues = []League{LeagueNBA, LeagueMLB, LeagueNHL, LeagueNFL, LeagueWNBA}

// AllLeagues returns every supported league in a stable order.
func AllLeagues() []League {
	out := make([]League, len(allLeagues))
	copy(out, allLeagues)
	return out
}

// ParseLeague resolves a case-insensitive league identifier.
func ParseLeague(raw string) (League, error) {
	candidate := League(strings.ToUpper(strings.TrimSpace(raw)))
	for _, l := range allLeagues {
		if l == candidate {
			return l, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLeague, raw)
}

// ParseLeagues parses a list of identifiers, skipping blanks.
func ParseLeagues(raw []string) ([]League, error) {
	out := make([]League, 0, len(raw))
	seen := make(map[League]struct{}, len(raw))
	for _, r := range raw {
		if strings.TrimSpace(r) == "" {
			continue
		}
		l, err := ParseLeague(r)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[l]; dup {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out, nil
}

func (l League) String() string {
	return string(l)
}

// Lower is used for stream names and URL segments.
func (l League) Lower() string {
	return strings.ToLower(string(l))
}
