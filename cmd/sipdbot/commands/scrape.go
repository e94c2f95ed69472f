package commands

import (
	"context"
	"fmt"

	"sipdbot/lib/cliutil"
	"sipdbot/lib/htmlutil"
	"sipdbot/services/sipd"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	scrapeTable *int
	scrapeOut   *string
	scrapeLinks *bool
)

func init() {
	scrapeTable = scrapeCmd.Flags().Int("table", 0, "Which table on the page, 0-based.")
	scrapeOut = scrapeCmd.Flags().String("out", "", "Export to this .xlsx or .csv file instead of only printing.")
	scrapeLinks = scrapeCmd.Flags().Bool("links", false, "List the page's links instead of extracting a table.")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape <path> [--table <n>] [--out <file.xlsx|file.csv>] [--links]",
	Short: "Fetch a page over the saved session and extract a table.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		runScrape(cmd.Context(), cfg, args[0], *scrapeTable, *scrapeOut, *scrapeLinks)
	},
}

func runScrape(ctx context.Context, cfg Config, path string, tableIndex int, out string, links bool) {
	client := newCoreClient(cfg)
	requireSession(ctx, client)

	database := openLedger(cfg)
	defer database.Close()
	svc := sipd.NewService(database, client, nil, serviceOptions(cfg))

	if links {
		anchors, err := svc.ScrapeLinks(ctx, path)
		if err != nil {
			cliutil.Fatal("failed to scrape links", err)
		}
		printAnchors(anchors)
		return
	}

	tbl, err := svc.ScrapeTable(ctx, sipd.ScrapeRequest{
		Path:       path,
		TableIndex: tableIndex,
	})
	if err != nil {
		cliutil.Fatal("failed to scrape table", err)
	}

	printTable(tbl)

	if out != "" {
		err = sipd.ExportTable(tbl, out)
		if err != nil {
			cliutil.Fatal("failed to export table", err)
		}
		fmt.Printf("exported to %s\n", out)
	}
}

func printAnchors(anchors []htmlutil.Anchor) {
	t := cliutil.NewTable()
	t.AppendHeader(table.Row{"Link", "Url"})
	for _, a := range anchors {
		t.AppendRow(table.Row{a.Name, a.Url.String()})
	}
	t.Render()
}

func printTable(tbl htmlutil.Table) {
	if tbl.Caption != "" {
		fmt.Println(tbl.Caption)
	}

	t := cliutil.NewTable()
	header := make(table.Row, len(tbl.Headers))
	for i, h := range tbl.Headers {
		header[i] = h
	}
	t.AppendHeader(header)
	for _, row := range tbl.Rows {
		cells := make(table.Row, len(row))
		for i, c := range row {
			cells[i] = c
		}
		t.AppendRow(cells)
	}
	t.Render()
}
