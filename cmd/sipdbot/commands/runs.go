package commands

import (
	"context"
	"time"

	"sipdbot/lib/cliutil"
	"sipdbot/lib/timezone"
	"sipdbot/services/sipd"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var runsLimit *int64

func init() {
	runsLimit = runsCmd.Flags().Int64("limit", 10, "How many recent runs to show.")
	rootCmd.AddCommand(runsCmd)
}

var runsCmd = &cobra.Command{
	Use:   "runs [--limit <n>]",
	Short: "Show the most recent runs and their per-record outcomes.",
	Run: func(cmd *cobra.Command, args []string) {
		runRuns(cmd.Context(), loadConfig(), *runsLimit)
	},
}

func runRuns(ctx context.Context, cfg Config, limit int64) {
	database := openLedger(cfg)
	defer database.Close()
	svc := sipd.NewService(database, nil, nil, serviceOptions(cfg))

	reports, err := svc.Runs(ctx, limit)
	if err != nil {
		cliutil.Fatal("failed to read run ledger", err)
	}

	t := cliutil.NewTable()
	t.AppendHeader(table.Row{"Run", "Operation", "Started", "Status", "Items", "Detail"})
	for _, report := range reports {
		started := time.Unix(report.Run.StartedAt, 0).
			In(timezone.Location).
			Format("2006-01-02 15:04")
		t.AppendRow(table.Row{
			report.Run.ID,
			report.Run.Operation,
			started,
			report.Run.Status,
			len(report.Items),
			report.Run.Detail,
		})
	}
	t.Render()
}
