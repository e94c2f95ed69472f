package sipd

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"sipdbot/lib/scrapers/sipd/browser"
	"sipdbot/lib/scrapers/sipd/core"
	"sipdbot/lib/testutil"
	"sipdbot/services/sipd/db"

	"github.com/stretchr/testify/require"
)

type fakeBrowser struct {
	// month name -> how many attempts fail before one succeeds
	downloadFailures map[string]int
	queueHTML        string

	opened     bool
	downloaded []string
	navigated  []string
	approved   []string
	submitted  []browser.STSForm
}

func (f *fakeBrowser) OpenRealisasi(ctx context.Context) error {
	f.opened = true
	return nil
}

func (f *fakeBrowser) DownloadRealisasi(ctx context.Context, monthName, targetPath string) error {
	if f.downloadFailures[monthName] > 0 {
		f.downloadFailures[monthName]--
		return fmt.Errorf("download timed out")
	}
	err := os.MkdirAll(filepath.Dir(targetPath), 0777)
	if err != nil {
		return err
	}
	err = os.WriteFile(targetPath, []byte("xlsx"), 0666)
	if err != nil {
		return err
	}
	f.downloaded = append(f.downloaded, monthName)
	return nil
}

func (f *fakeBrowser) Navigate(ctx context.Context, path string) error {
	f.navigated = append(f.navigated, path)
	return nil
}

func (f *fakeBrowser) PageHTML(ctx context.Context) (string, error) {
	return f.queueHTML, nil
}

func (f *fakeBrowser) ApproveRow(ctx context.Context, rowText string) error {
	f.approved = append(f.approved, rowText)
	return nil
}

func (f *fakeBrowser) SubmitSTS(ctx context.Context, form browser.STSForm) error {
	f.submitted = append(f.submitted, form)
	return nil
}

func setup(t *testing.T, fake *fakeBrowser) Service {
	result, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/sipd",
		DbSchema: db.Schema,
	})
	t.Cleanup(cleanup)

	coreClient, err := core.NewClient(core.ClientOptions{BaseUrl: "http://127.0.0.1:1"})
	require.NoError(t, err)

	return NewService(result.DB, coreClient, fake, Options{
		DownloadAttempts: 2,
		DownloadTimeout:  time.Second,
	})
}

func TestDownloadRealisasiValidation(t *testing.T) {
	service := setup(t, &fakeBrowser{})
	ctx := context.Background()

	for _, req := range []RealisasiRequest{
		{StartMonth: 0, EndMonth: 3},
		{StartMonth: 1, EndMonth: 13},
		{StartMonth: 5, EndMonth: 2},
	} {
		_, err := service.DownloadRealisasi(ctx, req)
		require.ErrorIs(t, err, ErrInvalidMonthRange)
	}
}

func TestDownloadRealisasi(t *testing.T) {
	fake := &fakeBrowser{
		// Februari fails once and succeeds on the retry
		downloadFailures: map[string]int{"Februari": 1},
	}
	service := setup(t, fake)
	ctx := context.Background()

	outputDir := t.TempDir()
	summary, err := service.DownloadRealisasi(ctx, RealisasiRequest{
		StartMonth: 1,
		EndMonth:   3,
		Year:       2024,
		OutputDir:  outputDir,
	})
	require.NoError(t, err)

	require.True(t, fake.opened)
	require.Equal(t, 0, summary.Failed())
	require.Len(t, summary.Results, 3)

	for _, name := range []string{
		"2024-01-Laporan Realisasi.xlsx",
		"2024-02-Laporan Realisasi.xlsx",
		"2024-03-Laporan Realisasi.xlsx",
	} {
		_, err := os.Stat(filepath.Join(outputDir, name))
		require.NoError(t, err, name)
	}

	reports, err := service.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	require.Equal(t, "download-realisasi", reports[0].Run.Operation)
	require.Equal(t, "ok", reports[0].Run.Status)
	require.Len(t, reports[0].Items, 3)
	for _, item := range reports[0].Items {
		require.Equal(t, "downloaded", item.Outcome)
		require.True(t, item.Applied)
	}
}

func TestDownloadRealisasiExhaustedRetries(t *testing.T) {
	fake := &fakeBrowser{
		downloadFailures: map[string]int{"Januari": 10},
	}
	service := setup(t, fake)
	ctx := context.Background()

	summary, err := service.DownloadRealisasi(ctx, RealisasiRequest{
		StartMonth: 1,
		EndMonth:   2,
		Year:       2024,
		OutputDir:  t.TempDir(),
	})
	require.NoError(t, err)
	require.Equal(t, 1, summary.Failed())
	require.Error(t, summary.Results[0].Err)
	require.NoError(t, summary.Results[1].Err)

	reports, err := service.Runs(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "partial", reports[0].Run.Status)
}

const queuePage = `<html><body><table>
<thead><tr><th>No</th><th>SKPD</th><th>Status</th><th>Aksi</th></tr></thead>
<tbody>
<tr><td>1</td><td>Dinas Pendidikan dan Kebudayaan</td><td>Menunggu</td><td><button>Setujui</button></td></tr>
<tr><td>2</td><td>Dinas Kesehatan</td><td>Menunggu</td><td><button>Setujui</button></td></tr>
<tr><td>3</td><td>Dinas Pendidikan dan Kebudyaan</td><td>Menunggu</td><td><button>Setujui</button></td></tr>
</tbody>
</table></body></html>`

func TestApproveLPJDryRun(t *testing.T) {
	fake := &fakeBrowser{queueHTML: queuePage}
	service := setup(t, fake)
	ctx := context.Background()

	summary, err := service.ApproveLPJ(ctx, ApproveRequest{
		SKPD:   "Dinas Pendidikan dan Kebudayaan",
		DryRun: true,
	})
	require.NoError(t, err)

	require.Equal(t, 3, summary.Queued)
	// row 3 spells the SKPD with a typo, fuzzy matching still catches it
	require.Equal(t, 2, summary.Matched)
	require.Empty(t, fake.approved)

	reports, err := service.Runs(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "dry-run", reports[0].Run.Status)
	for _, item := range reports[0].Items {
		require.False(t, item.Applied)
	}
}

func TestApproveLPJ(t *testing.T) {
	fake := &fakeBrowser{queueHTML: queuePage}
	service := setup(t, fake)
	ctx := context.Background()

	summary, err := service.ApproveLPJ(ctx, ApproveRequest{})
	require.NoError(t, err)

	require.Equal(t, 3, summary.Matched)
	require.Len(t, fake.approved, 3)
	require.Equal(t, []string{core.LPJQueuePath}, fake.navigated)

	reports, err := service.Runs(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "ok", reports[0].Run.Status)
	require.Len(t, reports[0].Items, 3)
	for _, item := range reports[0].Items {
		require.Equal(t, "approved", item.Outcome)
		require.True(t, item.Applied)
	}
}

func TestApproveLPJLimit(t *testing.T) {
	fake := &fakeBrowser{queueHTML: queuePage}
	service := setup(t, fake)

	summary, err := service.ApproveLPJ(context.Background(), ApproveRequest{Limit: 1})
	require.NoError(t, err)
	require.Equal(t, 1, summary.Matched)
	require.Len(t, fake.approved, 1)
}

func TestInputSTS(t *testing.T) {
	path := writeRecordsWorkbook(t, [][]interface{}{
		{"Tanggal", "SKPD", "Kode Rekening", "Uraian", "Jumlah"},
		{"2024-03-08", "Dinas Pendidikan", "4.1.01.01", "Setoran pajak", "1.500.000"},
		{"bad date", "Dinas Kesehatan", "4.1.01.02", "Setoran", "100"},
	})

	fake := &fakeBrowser{}
	service := setup(t, fake)
	ctx := context.Background()

	summary, err := service.InputSTS(ctx, InputRequest{File: path})
	require.NoError(t, err)

	require.Len(t, summary.Results, 1)
	require.True(t, summary.Results[0].Submitted)
	require.Len(t, summary.Invalid, 1)

	require.Len(t, fake.submitted, 1)
	form := fake.submitted[0]
	require.Equal(t, "08/03/2024", form.Date)
	require.Equal(t, "Dinas Pendidikan", form.SKPD)
	require.Equal(t, "1500000", form.Amount)

	// the form page is reopened for each record
	require.Equal(t, []string{core.STSInputPath}, fake.navigated)
}

func TestInputSTSDryRun(t *testing.T) {
	path := writeRecordsWorkbook(t, [][]interface{}{
		{"Tanggal", "SKPD", "Kode Rekening", "Uraian", "Jumlah"},
		{"2024-03-08", "Dinas Pendidikan", "4.1.01.01", "Setoran pajak", "1000"},
	})

	fake := &fakeBrowser{}
	service := setup(t, fake)

	summary, err := service.InputSTS(context.Background(), InputRequest{File: path, DryRun: true})
	require.NoError(t, err)
	require.Len(t, summary.Results, 1)
	require.False(t, summary.Results[0].Submitted)
	require.Empty(t, fake.submitted)
	require.Empty(t, fake.navigated)
}

func TestScrapeTable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(queuePage))
	}))
	t.Cleanup(server.Close)

	result, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/sipd",
		DbSchema: db.Schema,
	})
	t.Cleanup(cleanup)

	coreClient, err := core.NewClient(core.ClientOptions{BaseUrl: server.URL})
	require.NoError(t, err)
	service := NewService(result.DB, coreClient, &fakeBrowser{}, Options{})

	table, err := service.ScrapeTable(context.Background(), ScrapeRequest{Path: "/"})
	require.NoError(t, err)
	require.Equal(t, []string{"No", "SKPD", "Status", "Aksi"}, table.Headers)
	require.Len(t, table.Rows, 3)

	_, err = service.ScrapeTable(context.Background(), ScrapeRequest{Path: "/", TableIndex: 5})
	require.Error(t, err)
}

func TestScrapeLinks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>
			<a href="/penatausahaan/pengeluaran/lpj">Verifikasi  LPJ</a>
			<a href="https://example.com/panduan">Panduan</a>
		</body></html>`))
	}))
	t.Cleanup(server.Close)

	result, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/sipd",
		DbSchema: db.Schema,
	})
	t.Cleanup(cleanup)

	coreClient, err := core.NewClient(core.ClientOptions{BaseUrl: server.URL})
	require.NoError(t, err)
	service := NewService(result.DB, coreClient, &fakeBrowser{}, Options{})

	anchors, err := service.ScrapeLinks(context.Background(), "/")
	require.NoError(t, err)
	require.Len(t, anchors, 2)
	require.Equal(t, "Verifikasi LPJ", anchors[0].Name)
	require.Equal(t, server.URL+"/penatausahaan/pengeluaran/lpj", anchors[0].Url.String())
	require.Equal(t, "https://example.com/panduan", anchors[1].Url.String())
}
