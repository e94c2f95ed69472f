package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"sipdbot/lib/cliutil"
	"sipdbot/services/notify"
	"sipdbot/services/sipd"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	downloadStart *int
	downloadEnd   *int
	downloadYear  *int
	downloadOut   *string
)

func init() {
	downloadStart = realisasiCmd.Flags().Int("start", 1, "First month of the range (1-12).")
	downloadEnd = realisasiCmd.Flags().Int("end", 12, "Last month of the range (1-12).")
	downloadYear = realisasiCmd.Flags().Int("year", 0, "Report year, defaults to the current WIB year.")
	downloadOut = realisasiCmd.Flags().String("out", "", "Output directory, defaults to a dated one under the cwd.")

	downloadCmd.AddCommand(realisasiCmd)
	rootCmd.AddCommand(downloadCmd)
}

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download reports from SIPD-RI.",
}

var realisasiCmd = &cobra.Command{
	Use:   "realisasi --start <m> --end <m> [--year <y>] [--out <dir>]",
	Short: "Download the monthly Laporan Realisasi reports for all SKPD.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		runDownload(cmd.Context(), cfg, sipd.RealisasiRequest{
			StartMonth: *downloadStart,
			EndMonth:   *downloadEnd,
			Year:       *downloadYear,
			OutputDir:  *downloadOut,
		})
	},
}

func runDownload(ctx context.Context, cfg Config, req sipd.RealisasiRequest) {
	if req.OutputDir == "" {
		req.OutputDir = cfg.OutputDir
	}

	b := attendedLogin(ctx, cfg, false)
	defer b.Close()
	saveCookies(ctx, b, cfg)

	database := openLedger(cfg)
	defer database.Close()
	svc := sipd.NewService(database, newCoreClient(cfg), b, serviceOptions(cfg))

	summary, err := svc.DownloadRealisasi(ctx, req)
	if err != nil {
		cliutil.Fatal("download failed", err)
	}

	printDownloadSummary(summary)
	sendSummaryMail(ctx, cfg,
		fmt.Sprintf("Laporan Realisasi download: %d ok, %d failed",
			len(summary.Results)-summary.Failed(), summary.Failed()),
		downloadMailBody(summary),
	)
}

func printDownloadSummary(summary sipd.RealisasiSummary) {
	t := cliutil.NewTable()
	t.AppendHeader(table.Row{"Month", "File", "Status"})
	for _, r := range summary.Results {
		status := "ok"
		if r.Err != nil {
			status = r.Err.Error()
		}
		t.AppendRow(table.Row{r.Month, r.File, status})
	}
	t.Render()
	fmt.Printf("saved to %s\n", summary.OutputDir)
}

func downloadMailBody(summary sipd.RealisasiSummary) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Output directory: %s\n\n", summary.OutputDir)
	for _, r := range summary.Results {
		if r.Err != nil {
			fmt.Fprintf(&sb, "month %02d: FAILED: %v\n", r.Month, r.Err)
		} else {
			fmt.Fprintf(&sb, "month %02d: %s\n", r.Month, r.File)
		}
	}
	return sb.String()
}

// sendSummaryMail mails a run summary when SMTP is configured. Failures
// only warn, the work itself already succeeded.
func sendSummaryMail(ctx context.Context, cfg Config, subject, body string) {
	svc := notify.NewService(cfg.Smtp)
	if !svc.Configured() {
		return
	}
	err := svc.SendSummary(ctx, subject, body)
	if err != nil {
		slog.Warn("failed to send summary email", "err", err)
	}
}
