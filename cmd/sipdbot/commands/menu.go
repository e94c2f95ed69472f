package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"sipdbot/lib/cliutil"
	"sipdbot/services/sipd"
	"sipdbot/services/workbook"
)

// runMenu is the no-arguments UX: a numbered menu looping until the
// user quits, dispatching into the same code paths as the subcommands.
func runMenu(ctx context.Context) {
	cfg := loadConfig()

	for {
		fmt.Println()
		fmt.Println("=== sipdbot ===")
		fmt.Println("1. Login and save session")
		fmt.Println("2. Check saved session")
		fmt.Println("3. Download Laporan Realisasi")
		fmt.Println("4. Scrape a table")
		fmt.Println("5. Approve LPJ queue")
		fmt.Println("6. Input STS records")
		fmt.Println("7. Compress a workbook")
		fmt.Println("8. Merge workbooks")
		fmt.Println("9. Convert .xls to .xlsx")
		fmt.Println("10. Show recent runs")
		fmt.Println("0. Quit")

		switch cliutil.ReadLine("> ", "0") {
		case "0":
			return
		case "1":
			menuLogin(ctx, cfg)
		case "2":
			menuSession(ctx, cfg)
		case "3":
			menuDownload(ctx, cfg)
		case "4":
			menuScrape(ctx, cfg)
		case "5":
			menuApprove(ctx, cfg)
		case "6":
			menuInput(ctx, cfg)
		case "7":
			menuCompress(ctx)
		case "8":
			menuMerge(ctx)
		case "9":
			menuConvert(ctx)
		case "10":
			runRuns(ctx, cfg, 10)
		default:
			fmt.Println("unknown choice")
		}

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

func menuLogin(ctx context.Context, cfg Config) {
	manual := !cliutil.Confirm("Pre-fill credentials from the environment?")
	b := attendedLogin(ctx, cfg, manual)
	defer b.Close()
	saveCookies(ctx, b, cfg)
}

func menuSession(ctx context.Context, cfg Config) {
	client := newCoreClient(cfg)
	ok, err := client.LoggedIn(ctx)
	if err != nil {
		fmt.Printf("failed to check session: %v\n", err)
		return
	}
	if ok {
		fmt.Println("session is live")
	} else {
		fmt.Println("session has expired")
	}
}

func readMenuInt(prompt string, fallback int) int {
	raw := cliutil.ReadLine(prompt, strconv.Itoa(fallback))
	n, err := strconv.Atoi(raw)
	if err != nil {
		fmt.Printf("not a number, using %d\n", fallback)
		return fallback
	}
	return n
}

func menuDownload(ctx context.Context, cfg Config) {
	start := readMenuInt("First month [1]: ", 1)
	end := readMenuInt("Last month [12]: ", 12)
	year := readMenuInt("Year [current]: ", 0)

	runDownload(ctx, cfg, sipd.RealisasiRequest{
		StartMonth: start,
		EndMonth:   end,
		Year:       year,
	})
}

func menuScrape(ctx context.Context, cfg Config) {
	path := cliutil.ReadLine("Site path: ", "")
	if path == "" {
		fmt.Println("nothing to scrape")
		return
	}
	if cliutil.Confirm("List the page's links instead of a table?") {
		runScrape(ctx, cfg, path, 0, "", true)
		return
	}
	index := readMenuInt("Table index [0]: ", 0)
	out := cliutil.ReadLine("Export file (empty to only print): ", "")

	runScrape(ctx, cfg, path, index, out, false)
}

func menuApprove(ctx context.Context, cfg Config) {
	skpd := cliutil.ReadLine("SKPD filter (empty for all): ", "")
	limit := readMenuInt("Limit [0 = no cap]: ", 0)
	dryRun := cliutil.Confirm("Dry run?")

	runApprove(ctx, cfg, sipd.ApproveRequest{
		SKPD:   skpd,
		Limit:  limit,
		DryRun: dryRun,
	})
}

func menuInput(ctx context.Context, cfg Config) {
	file := cliutil.ReadLine("Records workbook: ", "")
	if file == "" {
		fmt.Println("nothing to input")
		return
	}
	sheet := cliutil.ReadLine("Sheet (empty for first): ", "")
	dryRun := cliutil.Confirm("Dry run?")

	runInput(ctx, cfg, sipd.InputRequest{
		File:   file,
		Sheet:  sheet,
		DryRun: dryRun,
	})
}

func menuCompress(ctx context.Context) {
	in := cliutil.ReadLine("Workbook to compress: ", "")
	if in == "" {
		return
	}
	out := suffixed(in, "", "-compressed.xlsx")

	result, err := workbook.Compress(ctx, in, out)
	if err != nil {
		fmt.Printf("failed to compress: %v\n", err)
		return
	}
	fmt.Printf("%d bytes -> %d bytes, saved to %s\n", result.InBytes, result.OutBytes, out)
}

func menuMerge(ctx context.Context) {
	raw := cliutil.ReadLine("Workbooks to merge (space separated): ", "")
	inputs := strings.Fields(raw)
	if len(inputs) == 0 {
		fmt.Println("nothing to merge")
		return
	}
	out := cliutil.ReadLine("Output file [merged.xlsx]: ", "merged.xlsx")
	mode := workbook.MergeRows
	if cliutil.Confirm("Keep each workbook on its own sheet?") {
		mode = workbook.MergeSheets
	}

	if err := mergeWorkbooks(ctx, inputs, out, mode); err != nil {
		fmt.Printf("failed to merge: %v\n", err)
	}
}

func menuConvert(ctx context.Context) {
	in := cliutil.ReadLine("Workbook to convert: ", "")
	if in == "" {
		return
	}
	out := suffixed(in, "", ".xlsx")

	result, err := workbook.ConvertXLS(ctx, in, out)
	if err != nil {
		fmt.Printf("failed to convert: %v\n", err)
		return
	}
	fmt.Printf("converted %d sheet(s) into %s\n", result.Sheets, out)
}
