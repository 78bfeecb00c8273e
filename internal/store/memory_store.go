package store

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/preston-bernstein/sports-data-service/internal/domain/games"
)

// ErrNotFound is returned when a game is not stored.
var ErrNotFound = errors.New("game not found")

// MemoryStore keeps a thread-safe set of game snapshots in memory.
type MemoryStore struct {
	mu    sync.RWMutex
	games map[games.Key]games.Snapshot
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		games: make(map[games.Key]games.Snapshot),
	}
}

// Upsert inserts or merges a snapshot under the write lock.
func (s *MemoryStore) Upsert(ctx context.Context, snap games.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := snap.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := snap.Key()
	if existing, ok := s.games[key]; ok {
		s.games[key] = games.Merge(existing, snap)
		return nil
	}
	s.games[key] = snap
	return nil
}

// QueryActive returns games dated within [from, to] that still need polling.
func (s *MemoryStore) QueryActive(ctx context.Context, league games.League, from, to string) ([]games.Snapshot, error) {
	return s.filter(ctx, func(g games.Snapshot) bool {
		return g.League == league && g.Date >= from && g.Date <= to && g.Active()
	})
}

// QueryDate returns every game for league on date.
func (s *MemoryStore) QueryDate(ctx context.Context, league games.League, date string) ([]games.Snapshot, error) {
	return s.filter(ctx, func(g games.Snapshot) bool {
		return g.League == league && g.Date == date
	})
}

// QueryAll returns every stored game for league.
func (s *MemoryStore) QueryAll(ctx context.Context, league games.League) ([]games.Snapshot, error) {
	return s.filter(ctx, func(g games.Snapshot) bool {
		return g.League == league
	})
}

// Get retrieves a game by league and id.
func (s *MemoryStore) Get(ctx context.Context, league games.League, id string) (games.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return games.Snapshot{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.games[games.Key{League: league, GameID: id}]
	if !ok {
		return games.Snapshot{}, ErrNotFound
	}
	return g, nil
}

// Close is a no-op; it lets MemoryStore stand in for the SQL store.
func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) filter(ctx context.Context, keep func(games.Snapshot) bool) ([]games.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	result := make([]games.Snapshot, 0)
	for _, g := range s.games {
		if keep(g) {
			result = append(result, g)
		}
	}
	s.mu.RUnlock()

	SortSnapshots(result)
	return result, nil
}

// SortSnapshots orders games by date, start time, then id.
func SortSnapshots(list []games.Snapshot) {
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if !a.StartTime.Equal(b.StartTime) {
			return a.StartTime.Before(b.StartTime)
		}
		return a.GameID < b.GameID
	})
}
