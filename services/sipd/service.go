package sipd

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"sipdbot/lib/scrapers/sipd/browser"
	"sipdbot/lib/scrapers/sipd/core"
	"sipdbot/lib/timezone"
	"sipdbot/services/sipd/db"

	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("services/sipd")

// Browser is the attended half of the automation. The chromedp
// implementation lives in lib/scrapers/sipd/browser, tests substitute
// their own.
type Browser interface {
	OpenRealisasi(ctx context.Context) error
	DownloadRealisasi(ctx context.Context, monthName, targetPath string) error
	Navigate(ctx context.Context, path string) error
	PageHTML(ctx context.Context) (string, error)
	ApproveRow(ctx context.Context, rowText string) error
	SubmitSTS(ctx context.Context, form browser.STSForm) error
}

type Options struct {
	// per-month download retry budget, defaults to 3
	DownloadAttempts int
	// how long a single report download may take, defaults to 2 minutes
	DownloadTimeout time.Duration
}

type Service struct {
	db      *sql.DB
	qry     *db.Queries
	core    *core.Client
	browser Browser
	opts    Options
}

func NewService(database *sql.DB, coreClient *core.Client, b Browser, opts Options) Service {
	if opts.DownloadAttempts <= 0 {
		opts.DownloadAttempts = 3
	}
	if opts.DownloadTimeout <= 0 {
		opts.DownloadTimeout = time.Minute * 2
	}
	return Service{
		db:      database,
		qry:     db.New(database),
		core:    coreClient,
		browser: b,
		opts:    opts,
	}
}

// ledger writes must never block site work, a full disk should not
// kill a two hour download run. failures degrade to warnings.

func (s Service) beginRun(ctx context.Context, operation string) string {
	id, err := random.String(8)
	if err != nil {
		slog.WarnContext(ctx, "failed to generate run id", "err", err)
		return ""
	}
	err = s.qry.CreateRun(ctx, db.CreateRunParams{
		ID:        id,
		Operation: operation,
		StartedAt: timezone.Now().Unix(),
	})
	if err != nil {
		slog.WarnContext(ctx, "failed to record run", "operation", operation, "err", err)
		return ""
	}
	return id
}

func (s Service) endRun(ctx context.Context, runID, status, detail string) {
	if runID == "" {
		return
	}
	err := s.qry.FinishRun(ctx, db.FinishRunParams{
		ID:         runID,
		FinishedAt: timezone.Now().Unix(),
		Status:     status,
		Detail:     detail,
	})
	if err != nil {
		slog.WarnContext(ctx, "failed to finish run record", "run", runID, "err", err)
	}
}

func (s Service) recordItem(ctx context.Context, runID, label, outcome, detail string, applied bool) {
	if runID == "" {
		return
	}
	err := s.qry.CreateRunItem(ctx, db.CreateRunItemParams{
		RunID:     runID,
		Label:     label,
		Outcome:   outcome,
		Detail:    detail,
		Applied:   applied,
		CreatedAt: timezone.Now().Unix(),
	})
	if err != nil {
		slog.WarnContext(ctx, "failed to record run item", "run", runID, "label", label, "err", err)
	}
}

// Runs lists the most recent ledger entries with their items.
func (s Service) Runs(ctx context.Context, limit int64) ([]RunReport, error) {
	if limit <= 0 {
		limit = 10
	}
	runs, err := s.qry.ListRuns(ctx, limit)
	if err != nil {
		return nil, err
	}

	var out []RunReport
	for _, run := range runs {
		items, err := s.qry.ListRunItems(ctx, run.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, RunReport{Run: run, Items: items})
	}
	return out, nil
}

type RunReport struct {
	Run   db.Run
	Items []db.RunItem
}
