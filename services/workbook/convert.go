package workbook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type ConvertResult struct {
	Sheets int
	Rows   int
}

// sheetData is one extracted legacy sheet. Cell values stay strings,
// reproducing BIFF8 number formats is out of scope, the text is what
// downstream merging cares about.
type sheetData struct {
	Name string
	Rows [][]string
}

// ConvertXLS converts a legacy .xls (BIFF8) workbook to .xlsx,
// preserving sheet order and cell text.
func ConvertXLS(ctx context.Context, in, out string) (ConvertResult, error) {
	_, span := tracer.Start(ctx, "ConvertXLS")
	defer span.End()
	span.SetAttributes(attribute.String("in", in))

	wb, err := xls.OpenFile(in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open legacy workbook")
		return ConvertResult{}, fmt.Errorf("open %s: %w", in, err)
	}

	var sheets []sheetData
	for i := 0; i < wb.GetNumberSheets(); i++ {
		sh, err := wb.GetSheet(i)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to read sheet")
			return ConvertResult{}, fmt.Errorf("read sheet %d of %s: %w", i, in, err)
		}

		data := sheetData{Name: sh.GetName()}
		// GetNumberRows reports the max row index, hence the inclusive bound
		for r := 0; r <= sh.GetNumberRows(); r++ {
			row, err := sh.GetRow(r)
			if err != nil {
				slog.Debug("skipping unreadable row", "file", in, "sheet", data.Name, "row", r, "err", err)
				continue
			}
			cols := row.GetCols()
			cells := make([]string, len(cols))
			for c, col := range cols {
				cells[c] = col.GetString()
			}
			data.Rows = append(data.Rows, cells)
		}
		sheets = append(sheets, data)
	}

	result, err := writeSheets(sheets, out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to write converted workbook")
		return result, err
	}
	return result, nil
}

func writeSheets(sheets []sheetData, out string) (ConvertResult, error) {
	if len(sheets) == 0 {
		return ConvertResult{}, fmt.Errorf("workbook has no sheets")
	}

	f := excelize.NewFile()
	defer f.Close()

	result := ConvertResult{}
	used := map[string]bool{}

	for i, data := range sheets {
		name := data.Name
		if name == "" || used[name] {
			name = sheetName(fmt.Sprintf("Sheet%d", i+1), used)
		}
		used[name] = true

		var err error
		if i == 0 {
			err = f.SetSheetName(f.GetSheetName(0), name)
		} else {
			_, err = f.NewSheet(name)
		}
		if err != nil {
			return result, fmt.Errorf("create sheet %q: %w", name, err)
		}
		result.Sheets++

		for r, row := range data.Rows {
			err := writeRow(f, name, r+1, row)
			if err != nil {
				return result, err
			}
			result.Rows++
		}
	}

	err := f.SaveAs(out)
	if err != nil {
		return result, fmt.Errorf("save %s: %w", out, err)
	}
	return result, nil
}
