package workbook

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"sipdbot/lib/textutil"

	"github.com/xuri/excelize/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type MergeMode string

const (
	// append every file's rows under the first file's header,
	// for stacking the monthly realisasi exports into one sheet
	MergeRows MergeMode = "rows"
	// one sheet per source file
	MergeSheets MergeMode = "sheets"
)

type MergeResult struct {
	Files  int
	Rows   int
	Sheets int
}

// Merge combines several workbooks into one. Only each input's first
// sheet is considered, the SIPD exports are single-sheet files.
func Merge(ctx context.Context, inputs []string, out string, mode MergeMode) (MergeResult, error) {
	_, span := tracer.Start(ctx, "Merge")
	defer span.End()
	span.SetAttributes(
		attribute.Int("inputs", len(inputs)),
		attribute.String("mode", string(mode)),
	)

	if len(inputs) == 0 {
		return MergeResult{}, fmt.Errorf("nothing to merge")
	}

	var result MergeResult
	var err error
	switch mode {
	case MergeRows:
		result, err = mergeRows(inputs, out)
	case MergeSheets:
		result, err = mergeSheets(inputs, out)
	default:
		err = fmt.Errorf("unknown merge mode %q", mode)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "merge failed")
		return result, err
	}
	return result, nil
}

func firstSheetRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rows, nil
}

func sameHeader(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if textutil.NormalizeName(a[i]) != textutil.NormalizeName(b[i]) {
			return false
		}
	}
	return true
}

func mergeRows(inputs []string, out string) (MergeResult, error) {
	merged := excelize.NewFile()
	defer merged.Close()
	sheet := merged.GetSheetName(0)

	var header []string
	outRow := 1
	result := MergeResult{Sheets: 1}

	for i, input := range inputs {
		rows, err := firstSheetRows(input)
		if err != nil {
			return result, err
		}
		result.Files++

		start := 0
		if i == 0 {
			if len(rows) > 0 {
				header = rows[0]
			}
		} else if len(rows) > 0 {
			if sameHeader(header, rows[0]) {
				// later files repeat the shared header, drop it
				start = 1
			} else {
				slog.Warn(
					"input header differs from the first file, appending rows as-is",
					"file", input,
				)
			}
		}

		for _, row := range rows[start:] {
			err := writeRow(merged, sheet, outRow, row)
			if err != nil {
				return result, err
			}
			outRow++
			result.Rows++
		}
	}

	err := merged.SaveAs(out)
	if err != nil {
		return result, fmt.Errorf("save %s: %w", out, err)
	}
	return result, nil
}

func mergeSheets(inputs []string, out string) (MergeResult, error) {
	merged := excelize.NewFile()
	defer merged.Close()

	result := MergeResult{}
	used := map[string]bool{}

	for i, input := range inputs {
		rows, err := firstSheetRows(input)
		if err != nil {
			return result, err
		}
		result.Files++

		name := sheetName(input, used)
		used[name] = true
		if i == 0 {
			err = merged.SetSheetName(merged.GetSheetName(0), name)
		} else {
			_, err = merged.NewSheet(name)
		}
		if err != nil {
			return result, fmt.Errorf("create sheet %q: %w", name, err)
		}
		result.Sheets++

		for r, row := range rows {
			err := writeRow(merged, name, r+1, row)
			if err != nil {
				return result, err
			}
			result.Rows++
		}
	}

	err := merged.SaveAs(out)
	if err != nil {
		return result, fmt.Errorf("save %s: %w", out, err)
	}
	return result, nil
}

// sheetName derives a legal, unique sheet name from the file name.
// sheet names cap out at 31 characters.
func sheetName(path string, used map[string]bool) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	for _, c := range []string{":", "\\", "/", "?", "*", "[", "]"} {
		base = strings.ReplaceAll(base, c, " ")
	}
	base = textutil.CollapseWhitespace(base)
	if base == "" {
		base = "Sheet"
	}
	if len(base) > 31 {
		base = base[:31]
	}

	name := base
	for n := 2; used[name]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		trimmed := base
		if len(trimmed)+len(suffix) > 31 {
			trimmed = trimmed[:31-len(suffix)]
		}
		name = trimmed + suffix
	}
	return name
}

func writeRow(f *excelize.File, sheet string, row int, cells []string) error {
	if len(cells) == 0 {
		return nil
	}
	values := make([]interface{}, len(cells))
	for i, c := range cells {
		values[i] = c
	}
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}
