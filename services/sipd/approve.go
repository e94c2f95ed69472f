package sipd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"sipdbot/lib/htmlutil"
	"sipdbot/lib/scrapers/sipd/core"
	"sipdbot/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/antzucaro/matchr"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// similarity floor for treating a queue row as the requested SKPD when
// no substring match exists. SKPD names differ between systems mostly
// in abbreviations, which JaroWinkler tolerates well.
const skpdSimilarityThreshold = 0.88

var ErrNoQueueTable = fmt.Errorf("no verification queue table found on the page")

type ApproveRequest struct {
	// SKPD filter, empty approves every queued record
	SKPD string
	// cap on how many records may be approved, 0 means no cap
	Limit int
	// walk and match everything, click nothing
	DryRun bool
}

type ApproveResult struct {
	SKPD     string
	Row      []string
	Approved bool
	Err      error
}

type ApproveSummary struct {
	RunID   string
	Queued  int
	Matched int
	Results []ApproveResult
}

// ApproveLPJ walks the LPJ verification queue and approves every row
// matching the requested SKPD, confirmation dialog included. The queue
// table is scraped from the rendered page, filtering happens locally,
// only the clicks go back through the browser.
func (s Service) ApproveLPJ(ctx context.Context, req ApproveRequest) (ApproveSummary, error) {
	ctx, span := tracer.Start(ctx, "ApproveLPJ")
	defer span.End()
	span.SetAttributes(
		attribute.String("skpd", req.SKPD),
		attribute.Bool("dry_run", req.DryRun),
	)

	err := s.browser.Navigate(ctx, core.LPJQueuePath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open verification queue")
		return ApproveSummary{}, err
	}

	table, skpdCol, err := s.fetchQueueTable(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to scrape verification queue")
		return ApproveSummary{}, err
	}

	runID := s.beginRun(ctx, "approve-lpj")
	summary := ApproveSummary{RunID: runID, Queued: len(table.Rows)}

	for _, row := range table.Rows {
		if skpdCol >= len(row) {
			continue
		}
		skpd := row[skpdCol]
		if !matchesSKPD(skpd, req.SKPD) {
			continue
		}
		if req.Limit > 0 && summary.Matched >= req.Limit {
			break
		}
		summary.Matched++

		result := ApproveResult{SKPD: skpd, Row: row}
		if req.DryRun {
			slog.InfoContext(ctx, "would approve", "skpd", skpd)
			s.recordItem(ctx, runID, skpd, "matched", "dry run", false)
			summary.Results = append(summary.Results, result)
			continue
		}

		err := s.browser.ApproveRow(ctx, skpd)
		if err != nil {
			result.Err = err
			slog.WarnContext(ctx, "failed to approve record", "skpd", skpd, "err", err)
			s.recordItem(ctx, runID, skpd, "failed", err.Error(), false)
			summary.Results = append(summary.Results, result)
			continue
		}

		result.Approved = true
		slog.InfoContext(ctx, "approved record", "skpd", skpd)
		s.recordItem(ctx, runID, skpd, "approved", "", true)
		summary.Results = append(summary.Results, result)
	}

	status := "ok"
	if req.DryRun {
		status = "dry-run"
	}
	s.endRun(ctx, runID, status, fmt.Sprintf("%d/%d records matched", summary.Matched, summary.Queued))

	return summary, nil
}

// fetchQueueTable snapshots the rendered queue page and picks the
// table that carries an SKPD column.
func (s Service) fetchQueueTable(ctx context.Context) (htmlutil.Table, int, error) {
	html, err := s.browser.PageHTML(ctx)
	if err != nil {
		return htmlutil.Table{}, 0, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return htmlutil.Table{}, 0, err
	}

	for _, table := range htmlutil.ExtractTables(doc) {
		for i, header := range table.Headers {
			if strings.Contains(textutil.NormalizeName(header), "skpd") {
				return table, i, nil
			}
		}
	}
	return htmlutil.Table{}, 0, ErrNoQueueTable
}

// matchesSKPD prefers an exact substring hit on the normalized names
// and falls back to fuzzy similarity, the queue spells SKPD names
// slightly differently than people type them.
func matchesSKPD(rowSKPD, wanted string) bool {
	if wanted == "" {
		return true
	}
	left := textutil.NormalizeName(rowSKPD)
	right := textutil.NormalizeName(wanted)
	if strings.Contains(left, right) {
		return true
	}
	return matchr.JaroWinkler(left, right, false) >= skpdSimilarityThreshold
}
