package server

import (
	"context"
	"fmt"
	"strings"

	"github.com/preston-bernstein/sports-data-service/internal/config"
	"github.com/preston-bernstein/sports-data-service/internal/store"
	"github.com/preston-bernstein/sports-data-service/internal/store/sqlstore"
	"github.com/preston-bernstein/sports-data-service/internal/usage"
)

const driverMemory = "memory"

// openStore returns the configured game store. SQL stores also persist usage
// attempts, so they are returned as the usage sink too.
func openStore(ctx context.Context, cfg config.DatabaseConfig) (store.GameStore, usage.Sink, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == driverMemory {
		return store.NewMemoryStore(), nil, nil
	}
	dialect, err := sqlstore.ParseDialect(driver)
	if err != nil {
		return nil, nil, err
	}
	st, err := sqlstore.Open(ctx, dialect, cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s store: %w", dialect, err)
	}
	return st, st, nil
}
