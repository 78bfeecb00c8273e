package sqlstore

import (
	"context"
	"fmt"

	"github.com/preston-bernstein/sports-data-service/internal/usage"
)

const insertUsage = `
INSERT INTO api_usage (league, endpoint, success, status_code, latency_ms, error, requested_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`

// LogAttempt appends a request attempt to api_usage.
func (s *Store) LogAttempt(ctx context.Context, a usage.Attempt) error {
	at := a.At
	if at.IsZero() {
		at = s.now()
	}
	_, err := s.db.ExecContext(ctx, s.rebind(insertUsage),
		string(a.League), a.Endpoint, a.Success, a.StatusCode,
		a.Latency.Milliseconds(), a.Error, at.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("log api usage: %w", err)
	}
	return nil
}

// UsageCount returns how many attempts for league were logged at or after sinceMs.
func (s *Store) UsageCount(ctx context.Context, league string, sinceMs int64) (total, failures int, err error) {
	q := `SELECT COUNT(*), COALESCE(SUM(CASE WHEN success THEN 0 ELSE 1 END), 0)
FROM api_usage WHERE league = ? AND requested_at >= ?`
	row := s.db.QueryRowContext(ctx, s.rebind(q), league, sinceMs)
	if err := row.Scan(&total, &failures); err != nil {
		return 0, 0, fmt.Errorf("count api usage: %w", err)
	}
	return total, failures, nil
}
