package commands

import (
	"context"
	"path/filepath"
	"testing"

	"sipdbot/services/workbook"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, path string, rows [][]interface{}) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
}

func TestMergeWorkbooks(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "januari.xlsx")
	second := filepath.Join(dir, "februari.xlsx")
	writeWorkbook(t, first, [][]interface{}{
		{"Bulan", "Jumlah"},
		{"Januari", "100"},
	})
	writeWorkbook(t, second, [][]interface{}{
		{"Bulan", "Jumlah"},
		{"Februari", "200"},
	})

	out := filepath.Join(dir, "merged.xlsx")
	err := mergeWorkbooks(context.Background(), []string{first, second}, out, workbook.MergeRows)
	require.NoError(t, err)

	f, err := excelize.OpenFile(out)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Equal(t, [][]string{
		{"Bulan", "Jumlah"},
		{"Januari", "100"},
		{"Februari", "200"},
	}, rows)

	err = mergeWorkbooks(context.Background(), nil, out, workbook.MergeRows)
	require.Error(t, err)
}
