package sipd

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"sipdbot/lib/timezone"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var ErrInvalidMonthRange = fmt.Errorf("invalid month range, expected 1 <= start <= end <= 12")

type RealisasiRequest struct {
	StartMonth int
	EndMonth   int
	// defaults to the current WIB year
	Year int
	// defaults to "Laporan Realisasi <yyyy-mm-dd>" under the cwd
	OutputDir string
}

type MonthResult struct {
	Month int
	File  string
	Err   error
}

type RealisasiSummary struct {
	RunID     string
	OutputDir string
	Results   []MonthResult
}

func (s RealisasiSummary) Failed() int {
	n := 0
	for _, r := range s.Results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

// DownloadRealisasi downloads the monthly "Laporan Realisasi" report
// for every month in the inclusive range, all SKPD. Months that keep
// failing after the retry budget are reported in the summary and the
// run moves on to the next month.
func (s Service) DownloadRealisasi(ctx context.Context, req RealisasiRequest) (RealisasiSummary, error) {
	ctx, span := tracer.Start(ctx, "DownloadRealisasi")
	defer span.End()

	// reject a bad range up front instead of discovering it midway
	// through a long run
	if req.StartMonth < 1 || req.EndMonth > 12 || req.StartMonth > req.EndMonth {
		span.SetStatus(codes.Error, ErrInvalidMonthRange.Error())
		return RealisasiSummary{}, ErrInvalidMonthRange
	}
	if req.Year == 0 {
		req.Year = timezone.Now().Year()
	}
	if req.OutputDir == "" {
		req.OutputDir = fmt.Sprintf("Laporan Realisasi %s", timezone.DateStamp(timezone.Now()))
	}

	span.SetAttributes(
		attribute.Int("start_month", req.StartMonth),
		attribute.Int("end_month", req.EndMonth),
		attribute.Int("year", req.Year),
	)

	runID := s.beginRun(ctx, "download-realisasi")
	summary := RealisasiSummary{RunID: runID, OutputDir: req.OutputDir}

	err := s.browser.OpenRealisasi(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open report page")
		s.endRun(ctx, runID, "failed", err.Error())
		return summary, err
	}

	total := req.EndMonth - req.StartMonth + 1
	for month := req.StartMonth; month <= req.EndMonth; month++ {
		index := month - req.StartMonth + 1
		name, err := MonthName(month)
		if err != nil {
			// unreachable given the validation above, but mirrors the
			// per-month guard the download loop always had
			summary.Results = append(summary.Results, MonthResult{Month: month, Err: err})
			continue
		}

		filename := fmt.Sprintf("%d-%02d-Laporan Realisasi.xlsx", req.Year, month)
		target := filepath.Join(req.OutputDir, filename)

		slog.InfoContext(
			ctx, "downloading realisasi report",
			"progress", fmt.Sprintf("(%d/%d)", index, total),
			"month", name,
		)

		err = s.downloadMonthWithRetry(ctx, name, target)
		result := MonthResult{Month: month, File: target, Err: err}
		summary.Results = append(summary.Results, result)

		if err != nil {
			slog.WarnContext(
				ctx, "giving up on month",
				"progress", fmt.Sprintf("(%d/%d)", index, total),
				"month", name,
				"err", err,
			)
			s.recordItem(ctx, runID, filename, "failed", err.Error(), false)
			continue
		}

		slog.InfoContext(
			ctx, "saved report",
			"progress", fmt.Sprintf("(%d/%d)", index, total),
			"file", filename,
		)
		s.recordItem(ctx, runID, filename, "downloaded", "", true)
	}

	status := "ok"
	if failed := summary.Failed(); failed > 0 {
		status = "partial"
		span.SetStatus(codes.Error, fmt.Sprintf("%d month(s) failed", failed))
	}
	s.endRun(ctx, runID, status, fmt.Sprintf("%d/%d reports saved", total-summary.Failed(), total))

	return summary, nil
}

func (s Service) downloadMonthWithRetry(ctx context.Context, monthName, target string) error {
	backoff := time.Second * 2

	var err error
	for attempt := 1; attempt <= s.opts.DownloadAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, s.opts.DownloadTimeout)
		err = s.browser.DownloadRealisasi(attemptCtx, monthName, target)
		cancel()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if attempt < s.opts.DownloadAttempts {
			slog.WarnContext(
				ctx, "download failed, retrying",
				"month", monthName,
				"attempt", attempt,
				"backoff", backoff.String(),
				"err", err,
			)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff *= 2
		}
	}
	return fmt.Errorf("download %s after %d attempts: %w", monthName, s.opts.DownloadAttempts, err)
}
