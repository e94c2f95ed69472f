package sipd

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sipdbot/lib/htmlutil"

	"github.com/xuri/excelize/v2"
)

// ExportTable writes a scraped table to disk, picking the format from
// the file extension (.xlsx or .csv).
func ExportTable(table htmlutil.Table, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return exportTableXLSX(table, path)
	case ".csv":
		return exportTableCSV(table, path)
	}
	return fmt.Errorf("unsupported export format %q, expected .xlsx or .csv", filepath.Ext(path))
}

func exportTableXLSX(table htmlutil.Table, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	row := 1
	if len(table.Headers) > 0 {
		err := setRow(f, sheet, row, table.Headers)
		if err != nil {
			return err
		}
		row++
	}
	for _, cells := range table.Rows {
		err := setRow(f, sheet, row, cells)
		if err != nil {
			return err
		}
		row++
	}

	err := f.SaveAs(path)
	if err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, cells []string) error {
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

func exportTableCSV(table htmlutil.Table, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if len(table.Headers) > 0 {
		err := w.Write(table.Headers)
		if err != nil {
			return err
		}
	}
	for _, row := range table.Rows {
		err := w.Write(row)
		if err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
