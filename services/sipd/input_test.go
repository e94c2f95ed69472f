package sipd

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParseRecordAmount(t *testing.T) {
	cases := []struct {
		in     string
		expect float64
	}{
		{"1000000", 1000000},
		{"1.000.000", 1000000},
		{"Rp 1.500.000,50", 1500000.50},
		{"1234,5", 1234.5},
		{"1000.50", 1000.50},
	}
	for _, test := range cases {
		got, err := parseRecordAmount(test.in)
		require.NoError(t, err, test.in)
		require.Equal(t, test.expect, got, test.in)
	}

	_, err := parseRecordAmount("")
	require.Error(t, err)
	_, err = parseRecordAmount("0")
	require.Error(t, err)
	_, err = parseRecordAmount("-500")
	require.Error(t, err)
	_, err = parseRecordAmount("abc")
	require.Error(t, err)
}

func TestParseRecordDate(t *testing.T) {
	expect := time.Date(2024, time.March, 8, 0, 0, 0, 0, time.UTC)

	for _, in := range []string{"2024-03-08", "08/03/2024", "8/3/2024", "08-03-2024"} {
		got, err := parseRecordDate(in)
		require.NoError(t, err, in)
		require.Equal(t, expect, got, in)
	}

	_, err := parseRecordDate("not a date")
	require.Error(t, err)
}

func TestMatchHeader(t *testing.T) {
	header := []string{"No", "Tanggal Setor", "Nama SKPD", "Kode Rekening", "Uraian", "Jumlah (Rp)"}

	require.Equal(t, 1, matchHeader(header, stsColumns["date"]))
	require.Equal(t, 2, matchHeader(header, stsColumns["skpd"]))
	require.Equal(t, 3, matchHeader(header, stsColumns["account"]))
	require.Equal(t, 4, matchHeader(header, stsColumns["description"]))
	require.Equal(t, 5, matchHeader(header, stsColumns["amount"]))

	require.Equal(t, -1, matchHeader([]string{"No", "Foo"}, stsColumns["amount"]))
}

func TestMatchHeaderFuzzy(t *testing.T) {
	// misspelled header should still land on the right column
	header := []string{"Tangal", "SKPD", "Jumlha"}
	require.Equal(t, 0, matchHeader(header, stsColumns["date"]))
	require.Equal(t, 2, matchHeader(header, stsColumns["amount"]))
}

func writeRecordsWorkbook(t *testing.T, rows [][]interface{}) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "records.xlsx")
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestReadSTSRecords(t *testing.T) {
	path := writeRecordsWorkbook(t, [][]interface{}{
		{"Tanggal", "SKPD", "Kode Rekening", "Uraian", "Jumlah"},
		{"2024-03-08", "Dinas Pendidikan", "4.1.01.01", "Setoran pajak", "1.500.000"},
		{"2024-03-09", "Dinas Kesehatan", "4.1.01.02", "Setoran retribusi", "250000"},
		// bad amount
		{"2024-03-10", "Dinas PUPR", "4.1.01.03", "Setoran", "abc"},
		// missing skpd
		{"2024-03-11", "", "4.1.01.04", "Setoran", "100"},
	})

	records, invalid, err := ReadSTSRecords(path, "")
	require.NoError(t, err)

	require.Len(t, records, 2)
	require.Equal(t, 2, records[0].Row)
	require.Equal(t, "Dinas Pendidikan", records[0].SKPD)
	require.Equal(t, 1500000.0, records[0].Amount)
	require.Equal(t, "4.1.01.01", records[0].AccountCode)

	require.Len(t, invalid, 2)
	require.Equal(t, 4, invalid[0].Row)
	require.Equal(t, 5, invalid[1].Row)
}

func TestReadSTSRecordsMissingColumn(t *testing.T) {
	path := writeRecordsWorkbook(t, [][]interface{}{
		{"Tanggal", "SKPD"},
		{"2024-03-08", "Dinas Pendidikan"},
	})

	_, _, err := ReadSTSRecords(path, "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "column")
}
