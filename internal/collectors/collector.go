// Package collectors fetches schedule and live-score data per league and
// normalizes it into games.Snapshot values.
package collectors

import (
	"context"

	"github.com/preston-bernstein/sports-data-service/internal/domain/games"
)

// Collector fetches one league's games. The date is YYYY-MM-DD. An empty
// result with a nil error means the provider simply has no data.
type Collector interface {
	League() games.League
	FetchSchedule(ctx context.Context, date string) ([]games.Snapshot, error)
	FetchLive(ctx context.Context, date string) ([]games.Snapshot, error)
}

// Named is implemented by collectors that report their upstream's name.
type Named interface {
	Provider() string
}

// ProviderName returns c's upstream name when it exposes one.
func ProviderName(c Collector) string {
	if n, ok := c.(Named); ok {
		return n.Provider()
	}
	return "unknown"
}
