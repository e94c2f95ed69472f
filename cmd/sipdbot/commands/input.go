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
	inputFile   *string
	inputSheet  *string
	inputDryRun *bool
)

func init() {
	inputFile = stsCmd.Flags().String("file", "", "Workbook holding the STS deposit records.")
	inputSheet = stsCmd.Flags().String("sheet", "", "Sheet name, defaults to the first sheet.")
	inputDryRun = stsCmd.Flags().Bool("dry-run", false, "Validate and match everything, submit nothing.")
	stsCmd.MarkFlagRequired("file")

	inputCmd.AddCommand(stsCmd)
	rootCmd.AddCommand(inputCmd)
}

var inputCmd = &cobra.Command{
	Use:   "input",
	Short: "Batch-input records into SIPD-RI forms.",
}

var stsCmd = &cobra.Command{
	Use:   "sts --file <records.xlsx> [--sheet <name>] [--dry-run]",
	Short: "Submit STS deposit records from a workbook.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		runInput(cmd.Context(), cfg, sipd.InputRequest{
			File:   *inputFile,
			Sheet:  *inputSheet,
			DryRun: *inputDryRun,
		})
	},
}

func runInput(ctx context.Context, cfg Config, req sipd.InputRequest) {
	// read and validate before launching a browser, a typo in the
	// workbook should not cost a login round
	records, invalid, err := sipd.ReadSTSRecords(req.File, req.Sheet)
	if err != nil {
		cliutil.Fatal("failed to read records", err)
	}
	if len(invalid) > 0 {
		fmt.Printf("%d row(s) failed validation:\n", len(invalid))
		for _, e := range invalid {
			fmt.Printf("  row %d: %v\n", e.Row, e.Err)
		}
	}
	if len(records) == 0 {
		cliutil.Fatal("no valid records to submit", fmt.Errorf("%s has no usable rows", req.File))
	}
	if !req.DryRun && !cliutil.Confirm(fmt.Sprintf("Submit %d record(s)?", len(records))) {
		return
	}

	b := attendedLogin(ctx, cfg, false)
	defer b.Close()
	saveCookies(ctx, b, cfg)

	database := openLedger(cfg)
	defer database.Close()
	svc := sipd.NewService(database, newCoreClient(cfg), b, serviceOptions(cfg))

	summary, err := svc.InputSTS(ctx, req)
	if err != nil {
		cliutil.Fatal("input failed", err)
	}

	t := cliutil.NewTable()
	t.AppendHeader(table.Row{"Row", "SKPD", "Amount", "Status"})
	for _, r := range summary.Results {
		status := "validated"
		if r.Submitted {
			status = "submitted"
		}
		if r.Err != nil {
			status = r.Err.Error()
		}
		t.AppendRow(table.Row{r.Record.Row, r.Record.SKPD, r.Record.Amount, status})
	}
	t.Render()

	if !req.DryRun {
		sendSummaryMail(ctx, cfg,
			fmt.Sprintf("STS input: %d record(s) processed", len(summary.Results)),
			inputMailBody(summary),
		)
	}
}

func inputMailBody(summary sipd.InputSummary) string {
	var sb strings.Builder
	for _, e := range summary.Invalid {
		fmt.Fprintf(&sb, "row %d: invalid: %v\n", e.Row, e.Err)
	}
	for _, r := range summary.Results {
		switch {
		case r.Err != nil:
			fmt.Fprintf(&sb, "row %d (%s): FAILED: %v\n", r.Record.Row, r.Record.SKPD, r.Err)
		case r.Submitted:
			fmt.Fprintf(&sb, "row %d (%s): submitted\n", r.Record.Row, r.Record.SKPD)
		}
	}
	return sb.String()
}
