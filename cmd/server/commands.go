package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/preston-bernstein/sports-data-service/internal/config"
	"github.com/preston-bernstein/sports-data-service/internal/domain/games"
	"github.com/preston-bernstein/sports-data-service/internal/logging"
	"github.com/preston-bernstein/sports-data-service/internal/server"
)

// setup loads configuration and builds the logger shared by every command.
func setup() (config.Config, *slog.Logger, error) {
	if err := config.LoadDotEnv(""); err != nil {
		return config.Config{}, nil, fmt.Errorf("load .env: %w", err)
	}
	cfg := config.Load()
	logger := logging.NewLogger(logging.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: cfg.Metrics.ServiceName,
		Version: appVersion,
		Output:  os.Stderr,
	})
	return cfg, logger, nil
}

func newServer(ctx context.Context) (*server.Server, *slog.Logger, error) {
	cfg, logger, err := setup()
	if err != nil {
		return nil, nil, err
	}
	srv, err := server.New(ctx, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize server: %w", err)
	}
	return srv, logger, nil
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API, the polling loop and the schedule jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			srv, _, err := newServer(ctx)
			if err != nil {
				return err
			}
			srv.Run(ctx, stop)
			return nil
		},
	}
}

func pollCmd() *cobra.Command {
	var (
		once    bool
		force   bool
		leagues []string
	)
	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Poll live scores without the HTTP API",
		Long: `Poll live scores for the enabled leagues.

With --once a single pass runs and its results are printed as JSON. Without it
the adaptive loop runs until every league goes idle or the process is signaled.
--force ignores the polling hours; request budgets still apply.

Example:
  sportsdata poll --once --league nba,nhl
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			selected, err := parseLeagueFlag(leagues)
			if err != nil {
				return err
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			srv, _, err := newServer(ctx)
			if err != nil {
				return err
			}
			defer srv.Close()

			if !once {
				return srv.RunPolling(ctx)
			}
			return writeJSON(cmd.OutOrStdout(), srv.PollOnce(ctx, selected, force))
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "run a single polling pass and exit")
	cmd.Flags().BoolVar(&force, "force", false, "ignore the polling hours")
	cmd.Flags().StringSliceVar(&leagues, "league", nil, "leagues to poll (default: all enabled)")
	return cmd
}

func scheduleCmd() *cobra.Command {
	var (
		league    string
		daysAhead int
	)
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Refresh stored schedules from the providers",
		Long: `Fetch schedules for today and the following --days-ahead days and store them.

Example:
  sportsdata schedule --league nfl --days-ahead 7
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var target games.League
			if league != "" {
				l, err := games.ParseLeague(league)
				if err != nil {
					return err
				}
				target = l
			}
			if daysAhead < 0 {
				return fmt.Errorf("--days-ahead must not be negative")
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			srv, _, err := newServer(ctx)
			if err != nil {
				return err
			}
			defer srv.Close()

			stored, err := srv.RefreshSchedule(ctx, target, daysAhead)
			if werr := writeJSON(cmd.OutOrStdout(), stored); werr != nil {
				return werr
			}
			return err
		},
	}
	cmd.Flags().StringVar(&league, "league", "", "league to refresh (default: all enabled)")
	cmd.Flags().IntVar(&daysAhead, "days-ahead", 1, "days after today to fetch")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print per-league game counts from the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			srv, _, err := newServer(cmd.Context())
			if err != nil {
				return err
			}
			defer srv.Close()

			stats, err := srv.Stats(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), stats)
		},
	}
}

func parseLeagueFlag(raw []string) ([]games.League, error) {
	leagues, err := games.ParseLeagues(raw)
	if err != nil || len(leagues) == 0 {
		return nil, err
	}
	return leagues, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
