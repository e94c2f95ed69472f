package commands

import (
	"context"
	"fmt"
	"strings"

	"sipdbot/lib/cliutil"
	"sipdbot/services/sipd"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	approveSKPD   *string
	approveLimit  *int
	approveDryRun *bool
)

func init() {
	approveSKPD = lpjCmd.Flags().String("skpd", "", "Only approve records for this SKPD (fuzzy matched).")
	approveLimit = lpjCmd.Flags().Int("limit", 0, "Approve at most this many records, 0 means no cap.")
	approveDryRun = lpjCmd.Flags().Bool("dry-run", false, "Match everything, approve nothing.")

	approveCmd.AddCommand(lpjCmd)
	rootCmd.AddCommand(approveCmd)
}

var approveCmd = &cobra.Command{
	Use:   "approve",
	Short: "Batch-approve queued records on SIPD-RI.",
}

var lpjCmd = &cobra.Command{
	Use:   "lpj [--skpd <name>] [--limit <n>] [--dry-run]",
	Short: "Approve queued LPJ verification records.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		runApprove(cmd.Context(), cfg, sipd.ApproveRequest{
			SKPD:   *approveSKPD,
			Limit:  *approveLimit,
			DryRun: *approveDryRun,
		})
	},
}

func runApprove(ctx context.Context, cfg Config, req sipd.ApproveRequest) {
	b := attendedLogin(ctx, cfg, false)
	defer b.Close()
	saveCookies(ctx, b, cfg)

	database := openLedger(cfg)
	defer database.Close()
	svc := sipd.NewService(database, newCoreClient(cfg), b, serviceOptions(cfg))

	summary, err := svc.ApproveLPJ(ctx, req)
	if err != nil {
		cliutil.Fatal("approve failed", err)
	}

	t := cliutil.NewTable()
	t.AppendHeader(table.Row{"SKPD", "Status"})
	for _, r := range summary.Results {
		status := "matched"
		if r.Approved {
			status = "approved"
		}
		if r.Err != nil {
			status = r.Err.Error()
		}
		t.AppendRow(table.Row{r.SKPD, status})
	}
	t.Render()
	fmt.Printf("queued %d, matched %d\n", summary.Queued, summary.Matched)

	if !req.DryRun {
		sendSummaryMail(ctx, cfg,
			fmt.Sprintf("LPJ approve: %d of %d queued", summary.Matched, summary.Queued),
			approveMailBody(summary),
		)
	}
}

func approveMailBody(summary sipd.ApproveSummary) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Queued: %d\nMatched: %d\n\n", summary.Queued, summary.Matched)
	for _, r := range summary.Results {
		switch {
		case r.Err != nil:
			fmt.Fprintf(&sb, "%s: FAILED: %v\n", r.SKPD, r.Err)
		case r.Approved:
			fmt.Fprintf(&sb, "%s: approved\n", r.SKPD)
		}
	}
	return sb.String()
}
