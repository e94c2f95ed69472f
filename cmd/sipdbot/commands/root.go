package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"sipdbot/lib/restyutil"
	"sipdbot/lib/scrapers/sipd/core"
	"sipdbot/lib/telemetry"

	"github.com/spf13/cobra"
)

var verbose *bool

func init() {
	verbose = rootCmd.PersistentFlags().BoolP(
		"verbose", "v", false,
		"Enable debug logging and request/response dumps.",
	)
}

var rootCmd = &cobra.Command{
	Use:   "sipdbot",
	Short: "sipdbot automates SIPD-RI penatausahaan chores and cleans up its Excel exports.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(*verbose)

		// telemetry is optional for a CLI, a missing telemetry.json5
		// just means spans go nowhere
		tel, err := telemetry.SetupFromEnv(cmd.Context(), "sipdbot")
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("failed to set up telemetry", "err", err)
		}
		if err == nil {
			telemetry.InstrumentPerfStats(cmd.Context())
			cobra.OnFinalize(func() {
				tel.Shutdown(context.Background())
			})
		}

		if *verbose {
			core.SetRestyInstrumentOutput(restyutil.NewFilesystemOutput(".dev/resty/sipd"))
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		runMenu(cmd.Context())
	},
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
