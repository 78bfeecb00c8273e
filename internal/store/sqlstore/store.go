// Package sqlstore persists game snapshots and request usage through
// database/sql, on postgres or sqlite.
package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/preston-bernstein/sports-data-service/internal/domain/games"
	"github.com/preston-bernstein/sports-data-service/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Dialect selects the SQL flavor.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// ParseDialect accepts the driver names used in configuration.
func ParseDialect(raw string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "postgres", "postgresql", "pg":
		return DialectPostgres, nil
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", raw)
	}
}

// Store implements the game-state store on a SQL database.
type Store struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

// Open connects, configures the pool, and applies migrations.
func Open(ctx context.Context, dialect Dialect, dsn string) (*Store, error) {
	driver := string(dialect)
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if dialect == DialectSQLite {
		// A single connection keeps ":memory:" databases shared and avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	s := &Store{db: db, dialect: dialect, now: time.Now}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migrations fs: %w", err)
	}
	gooseDialect := goose.DialectPostgres
	if s.dialect == DialectSQLite {
		gooseDialect = goose.DialectSQLite3
	}
	provider, err := goose.NewProvider(gooseDialect, s.db, sub)
	if err != nil {
		return fmt.Errorf("migration provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders to $N for postgres.
func (s *Store) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const upsertGame = `
INSERT INTO games (
	league, game_id, game_date, status, home_team, visitor_team,
	home_score, visitor_score, period, clock, is_final, is_overtime,
	start_time, captured_at, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (league, game_id) DO UPDATE SET
	status        = excluded.status,
	home_score    = excluded.home_score,
	visitor_score = excluded.visitor_score,
	period        = excluded.period,
	clock         = excluded.clock,
	is_final      = excluded.is_final,
	is_overtime   = excluded.is_overtime,
	start_time    = CASE WHEN excluded.start_time > 0 THEN excluded.start_time ELSE games.start_time END,
	home_team     = CASE WHEN games.home_team = '' THEN excluded.home_team ELSE games.home_team END,
	visitor_team  = CASE WHEN games.visitor_team = '' THEN excluded.visitor_team ELSE games.visitor_team END,
	captured_at   = excluded.captured_at,
	updated_at    = excluded.updated_at`

// Upsert inserts or updates a game in one statement.
func (s *Store) Upsert(ctx context.Context, snap games.Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	now := s.now().UnixMilli()
	_, err := s.db.ExecContext(ctx, s.rebind(upsertGame),
		string(snap.League), snap.GameID, snap.Date, string(snap.Status),
		snap.HomeTeam, snap.VisitorTeam, snap.HomeScore, snap.VisitorScore,
		snap.Period, snap.Clock, snap.IsFinal, snap.IsOvertime,
		unixMilli(snap.StartTime), unixMilli(snap.CapturedAt), now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert game %s: %w", snap.Key(), err)
	}
	return nil
}

const selectGames = `
SELECT league, game_id, game_date, status, home_team, visitor_team,
	home_score, visitor_score, period, clock, is_final, is_overtime,
	start_time, captured_at
FROM games`

// QueryActive returns games dated within [from, to] that still need polling.
func (s *Store) QueryActive(ctx context.Context, league games.League, from, to string) ([]games.Snapshot, error) {
	q := selectGames + `
WHERE league = ? AND game_date >= ? AND game_date <= ?
	AND is_final = ? AND status NOT IN (?, ?, ?)
ORDER BY game_date, start_time, game_id`
	return s.query(ctx, q, string(league), from, to, false,
		string(games.StatusFinal), string(games.StatusPostponed), string(games.StatusCanceled))
}

// QueryDate returns every game for league on date.
func (s *Store) QueryDate(ctx context.Context, league games.League, date string) ([]games.Snapshot, error) {
	q := selectGames + ` WHERE league = ? AND game_date = ? ORDER BY start_time, game_id`
	return s.query(ctx, q, string(league), date)
}

// QueryAll returns every stored game for league.
func (s *Store) QueryAll(ctx context.Context, league games.League) ([]games.Snapshot, error) {
	q := selectGames + ` WHERE league = ? ORDER BY game_date, start_time, game_id`
	return s.query(ctx, q, string(league))
}

// Get retrieves one game.
func (s *Store) Get(ctx context.Context, league games.League, id string) (games.Snapshot, error) {
	q := selectGames + ` WHERE league = ? AND game_id = ?`
	row := s.db.QueryRowContext(ctx, s.rebind(q), string(league), id)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return games.Snapshot{}, store.ErrNotFound
	}
	if err != nil {
		return games.Snapshot{}, fmt.Errorf("get game %s:%s: %w", league, id, err)
	}
	return snap, nil
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]games.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("query games: %w", err)
	}
	defer rows.Close()

	out := make([]games.Snapshot, 0)
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate games: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (games.Snapshot, error) {
	var (
		snap            games.Snapshot
		league, status  string
		start, captured int64
	)
	err := row.Scan(&league, &snap.GameID, &snap.Date, &status, &snap.HomeTeam, &snap.VisitorTeam,
		&snap.HomeScore, &snap.VisitorScore, &snap.Period, &snap.Clock, &snap.IsFinal, &snap.IsOvertime,
		&start, &captured)
	if err != nil {
		return games.Snapshot{}, err
	}
	snap.League = games.League(league)
	snap.Status = games.Status(status)
	snap.StartTime = fromUnixMilli(start)
	snap.CapturedAt = fromUnixMilli(captured)
	return snap, nil
}

func unixMilli(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromUnixMilli(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
