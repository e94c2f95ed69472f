package sipd

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"sipdbot/lib/scrapers/sipd/browser"
	"sipdbot/lib/scrapers/sipd/core"
	"sipdbot/lib/textutil"

	"github.com/antzucaro/matchr"
	"github.com/xuri/excelize/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type InputRequest struct {
	// path to the .xlsx holding the STS deposit records
	File string
	// defaults to the workbook's first sheet
	Sheet string
	// validate and match everything, submit nothing
	DryRun bool
}

type STSRecord struct {
	// row number in the source sheet, 1-based, for error reporting
	Row         int
	Date        time.Time
	SKPD        string
	AccountCode string
	Description string
	Amount      float64
}

type InputResult struct {
	Record    STSRecord
	Submitted bool
	Err       error
}

type InputSummary struct {
	RunID string
	// rows rejected during validation, before any submission
	Invalid []RowError
	Results []InputResult
}

type RowError struct {
	Row int
	Err error
}

// the site's date input expects Indonesian dd/mm/yyyy
const siteDateLayout = "02/01/2006"

// InputSTS reads deposit records from a local workbook and submits the
// site's STS input form once per record. Header names are matched
// fuzzily so the spreadsheet does not have to use one blessed
// template. Rows that fail validation are reported and skipped, they
// never reach the browser.
func (s Service) InputSTS(ctx context.Context, req InputRequest) (InputSummary, error) {
	ctx, span := tracer.Start(ctx, "InputSTS")
	defer span.End()
	span.SetAttributes(
		attribute.String("file", req.File),
		attribute.Bool("dry_run", req.DryRun),
	)

	records, invalid, err := ReadSTSRecords(req.File, req.Sheet)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read records")
		return InputSummary{}, err
	}

	runID := s.beginRun(ctx, "input-sts")
	summary := InputSummary{RunID: runID, Invalid: invalid}

	for _, rowErr := range invalid {
		slog.WarnContext(ctx, "skipping invalid row", "row", rowErr.Row, "err", rowErr.Err)
		s.recordItem(
			ctx, runID,
			fmt.Sprintf("row %d", rowErr.Row),
			"invalid", rowErr.Err.Error(), false,
		)
	}

	total := len(records)
	for i, record := range records {
		label := fmt.Sprintf("%s %s", record.Date.Format(siteDateLayout), record.SKPD)
		result := InputResult{Record: record}

		if req.DryRun {
			slog.InfoContext(
				ctx, "would submit",
				"progress", fmt.Sprintf("(%d/%d)", i+1, total),
				"skpd", record.SKPD,
				"amount", record.Amount,
			)
			s.recordItem(ctx, runID, label, "matched", "dry run", false)
			summary.Results = append(summary.Results, result)
			continue
		}

		// the form resets to the menu after every save, reopen it per record
		err := s.browser.Navigate(ctx, core.STSInputPath)
		if err == nil {
			err = s.browser.SubmitSTS(ctx, browser.STSForm{
				Date:        record.Date.Format(siteDateLayout),
				SKPD:        record.SKPD,
				AccountCode: record.AccountCode,
				Description: record.Description,
				Amount:      strconv.FormatFloat(record.Amount, 'f', -1, 64),
			})
		}
		if err != nil {
			result.Err = err
			slog.WarnContext(
				ctx, "failed to submit record",
				"progress", fmt.Sprintf("(%d/%d)", i+1, total),
				"row", record.Row,
				"err", err,
			)
			s.recordItem(ctx, runID, label, "failed", err.Error(), false)
			summary.Results = append(summary.Results, result)
			continue
		}

		result.Submitted = true
		slog.InfoContext(
			ctx, "submitted record",
			"progress", fmt.Sprintf("(%d/%d)", i+1, total),
			"skpd", record.SKPD,
		)
		s.recordItem(ctx, runID, label, "submitted", "", true)
		summary.Results = append(summary.Results, result)
	}

	status := "ok"
	if req.DryRun {
		status = "dry-run"
	}
	s.endRun(ctx, runID, status, fmt.Sprintf("%d records, %d invalid rows", total, len(invalid)))

	return summary, nil
}

// expected columns of the records workbook, each with the header
// spellings seen in the wild
var stsColumns = map[string][]string{
	"date":        {"tanggal", "tgl", "date"},
	"skpd":        {"skpd", "opd", "dinas"},
	"account":     {"koderekening", "rekening", "kodeakun", "akun"},
	"description": {"keterangan", "uraian", "deskripsi"},
	"amount":      {"jumlah", "nilai", "nominal", "amount"},
}

const headerSimilarityThreshold = 0.85

// ReadSTSRecords loads and validates deposit rows from a workbook.
// Invalid rows come back separately, one bad row should not abort a
// batch of hundreds.
func ReadSTSRecords(path, sheet string) ([]STSRecord, []RowError, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open records workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("sheet %q is empty", sheet)
	}

	columns, err := mapSTSHeaders(rows[0])
	if err != nil {
		return nil, nil, err
	}

	var records []STSRecord
	var invalid []RowError
	for i, row := range rows[1:] {
		rowNum := i + 2
		record, err := parseSTSRow(rowNum, row, columns)
		if err != nil {
			invalid = append(invalid, RowError{Row: rowNum, Err: err})
			continue
		}
		records = append(records, record)
	}
	return records, invalid, nil
}

func mapSTSHeaders(header []string) (map[string]int, error) {
	columns := map[string]int{}
	for name, aliases := range stsColumns {
		idx := matchHeader(header, aliases)
		if idx < 0 {
			return nil, fmt.Errorf("no %q column found in header row %v", name, header)
		}
		columns[name] = idx
	}
	return columns, nil
}

func matchHeader(header []string, aliases []string) int {
	for i, cell := range header {
		normalized := textutil.NormalizeName(cell)
		for _, alias := range aliases {
			if strings.Contains(normalized, alias) {
				return i
			}
		}
	}
	// fuzzy pass for misspelled headers
	bestIdx := -1
	bestSim := headerSimilarityThreshold
	for i, cell := range header {
		normalized := textutil.NormalizeName(cell)
		for _, alias := range aliases {
			sim := matchr.JaroWinkler(normalized, alias, false)
			if sim > bestSim {
				bestSim = sim
				bestIdx = i
			}
		}
	}
	return bestIdx
}

func parseSTSRow(rowNum int, row []string, columns map[string]int) (STSRecord, error) {
	cell := func(name string) string {
		idx := columns[name]
		if idx >= len(row) {
			return ""
		}
		return textutil.CollapseWhitespace(row[idx])
	}

	date, err := parseRecordDate(cell("date"))
	if err != nil {
		return STSRecord{}, err
	}

	skpd := cell("skpd")
	if skpd == "" {
		return STSRecord{}, fmt.Errorf("missing SKPD")
	}

	amount, err := parseRecordAmount(cell("amount"))
	if err != nil {
		return STSRecord{}, err
	}

	return STSRecord{
		Row:         rowNum,
		Date:        date,
		SKPD:        skpd,
		AccountCode: cell("account"),
		Description: cell("description"),
		Amount:      amount,
	}, nil
}

var recordDateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	// excelize renders date cells in the US default when the workbook
	// carries no explicit format
	"01-02-06",
}

func parseRecordDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("missing date")
	}
	for _, layout := range recordDateLayouts {
		date, err := time.Parse(layout, value)
		if err == nil {
			return date, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", value)
}

func parseRecordAmount(value string) (float64, error) {
	if value == "" {
		return 0, fmt.Errorf("missing amount")
	}

	// Indonesian formatting: Rp prefix, dots for thousands, comma decimal
	cleaned := strings.TrimSpace(strings.TrimPrefix(value, "Rp"))
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	if strings.Contains(cleaned, ",") {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	} else if strings.Count(cleaned, ".") > 1 {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
	}

	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable amount %q", value)
	}
	if amount <= 0 {
		return 0, fmt.Errorf("amount must be positive, got %v", amount)
	}
	return amount, nil
}
