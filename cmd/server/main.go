package main

import (
	"os"

	"github.com/spf13/cobra"
)

const appVersion = "dev"

func main() {
	if os.Getenv("SKIP_SERVER_RUN") == "1" {
		return
	}
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sportsdata",
		Short: "Adaptive multi-league sports score poller",
		Long: `sportsdata polls schedule and live-score providers for NBA, NFL, NHL,
MLB and WNBA, keeps the latest state of every game and serves it over HTTP.

Each league is polled on its own cadence: faster while close games are live,
slower before tip-off, not at all when nothing is active. Every league stays
inside its per-minute request budget.

Running without a subcommand starts the server.
`,
		Version:      appVersion,
		SilenceUsage: true,
	}
	serve := serveCmd()
	root.RunE = serve.RunE
	root.AddCommand(serve, pollCmd(), scheduleCmd(), statusCmd())
	return root
}
