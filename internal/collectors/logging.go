package collectors

import (
	"context"
	"log/slog"

	"github.com/preston-bernstein/sports-data-service/internal/domain/games"
	"github.com/preston-bernstein/sports-data-service/internal/logging"
)

// logWithLeague emits a log entry if logger is non-nil and always includes the league.
func logWithLeague(ctx context.Context, logger *slog.Logger, level slog.Level, league games.League, msg string, args ...any) {
	if logger == nil {
		return
	}
	args = append(args, slog.String(logging.FieldLeague, league.String()))
	logger.Log(ctx, level, msg, args...)
}
