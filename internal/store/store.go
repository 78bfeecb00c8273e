package store

import (
	"context"

	"github.com/preston-bernstein/sports-data-service/internal/domain/games"
)

// GameStore persists the latest snapshot per (league, game id).
type GameStore interface {
	Upsert(ctx context.Context, snap games.Snapshot) error
	// QueryActive returns games dated within [from, to] that are still active.
	QueryActive(ctx context.Context, league games.League, from, to string) ([]games.Snapshot, error)
	QueryDate(ctx context.Context, league games.League, date string) ([]games.Snapshot, error)
	QueryAll(ctx context.Context, league games.League) ([]games.Snapshot, error)
	Get(ctx context.Context, league games.League, id string) (games.Snapshot, error)
	Close() error
}

var _ GameStore = (*MemoryStore)(nil)
