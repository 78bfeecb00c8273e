// Package games serves stored game snapshots to readers.
package games

import (
	"context"
	"fmt"
	"time"

	domaingames "github.com/preston-bernstein/sports-data-service/internal/domain/games"
	"github.com/preston-bernstein/sports-data-service/internal/timeutil"
)

// Store is the read side of the game store.
type Store interface {
	QueryActive(ctx context.Context, league domaingames.League, from, to string) ([]domaingames.Snapshot, error)
	QueryDate(ctx context.Context, league domaingames.League, date string) ([]domaingames.Snapshot, error)
	Get(ctx context.Context, league domaingames.League, id string) (domaingames.Snapshot, error)
}

// Service answers game queries from the store.
type Service struct {
	store Store
	loc   *time.Location
	now   func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the time source used for "today".
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService constructs a Service. Dates default to today in loc.
func NewService(store Store, loc *time.Location, opts ...Option) *Service {
	if loc == nil {
		loc = time.UTC
	}
	s := &Service{store: store, loc: loc, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today is the current date in the service location.
func (s *Service) Today() string {
	return timeutil.Today(s.now(), s.loc)
}

// Day returns the league's games on date, or today when date is empty.
func (s *Service) Day(ctx context.Context, league domaingames.League, date string) (domaingames.DayResponse, error) {
	if date == "" {
		date = s.Today()
	}
	if _, err := timeutil.ParseDate(date); err != nil {
		return domaingames.DayResponse{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	list, err := s.store.QueryDate(ctx, league, date)
	if err != nil {
		return domaingames.DayResponse{}, err
	}
	return domaingames.NewDayResponse(league, date, list), nil
}

// Active returns games still in play or pending from yesterday and today.
func (s *Service) Active(ctx context.Context, league domaingames.League) ([]domaingames.Snapshot, error) {
	now := s.now()
	return s.store.QueryActive(ctx, league, timeutil.Yesterday(now, s.loc), timeutil.Today(now, s.loc))
}

// Game returns a single game.
func (s *Service) Game(ctx context.Context, league domaingames.League, id string) (domaingames.Snapshot, error) {
	return s.store.Get(ctx, league, id)
}
