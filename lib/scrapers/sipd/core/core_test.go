package core

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"sipdbot/lib/telemetry"

	"github.com/stretchr/testify/require"
)

const loginPage = `<html><body>
<form><input id="ed_username" name="username"/><input id="ed_password" name="password"/></form>
</body></html>`

const dashboardPage = `<html><body>
<aside><a href="/penatausahaan/aklap">Akuntansi</a></aside>
<table>
	<thead><tr><th>No</th><th>SKPD</th></tr></thead>
	<tbody><tr><td>1</td><td>Dinas Pendidikan</td></tr></tbody>
</table>
</body></html>`

func newTestSite(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc(LoginPath, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(loginPage))
	})
	mux.HandleFunc(DashboardPath, func(w http.ResponseWriter, r *http.Request) {
		session, err := r.Cookie("sipd_session")
		if err != nil || session.Value != "valid" {
			http.Redirect(w, r, LoginPath, http.StatusFound)
			return
		}
		w.Write([]byte(dashboardPage))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func setup(t *testing.T) (*Client, *httptest.Server) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/sipd/core")
	t.Cleanup(cleanup)

	server := newTestSite(t)
	client, err := NewClient(ClientOptions{BaseUrl: server.URL})
	require.NoError(t, err)
	return client, server
}

func writeSessionCookies(t *testing.T, dir, value string, expires time.Time) string {
	path := filepath.Join(dir, "cookies.json")
	err := WriteCookieFile(path, []Cookie{
		{
			Name:     "sipd_session",
			Value:    value,
			Path:     "/",
			Expires:  float64(expires.Unix()),
			HttpOnly: true,
			SameSite: "Lax",
		},
	})
	require.NoError(t, err)
	return path
}

func TestLoggedInWithoutSession(t *testing.T) {
	client, _ := setup(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	live, err := client.LoggedIn(ctx)
	require.NoError(t, err)
	require.False(t, live)
}

func TestRestoredSession(t *testing.T) {
	client, _ := setup(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	path := writeSessionCookies(t, t.TempDir(), "valid", time.Now().Add(time.Hour))
	require.NoError(t, client.RestoreCookies(path))

	live, err := client.LoggedIn(ctx)
	require.NoError(t, err)
	require.True(t, live)
}

func TestExpiredCookiesAreDropped(t *testing.T) {
	client, _ := setup(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	path := writeSessionCookies(t, t.TempDir(), "valid", time.Now().Add(-time.Hour))
	require.NoError(t, client.RestoreCookies(path))

	live, err := client.LoggedIn(ctx)
	require.NoError(t, err)
	require.False(t, live)
}

func TestMissingCookieFile(t *testing.T) {
	client, _ := setup(t)

	err := client.RestoreCookies(filepath.Join(t.TempDir(), "cookies.json"))
	require.ErrorIs(t, err, ErrNoCookieFile)
}

func TestCookieFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	expect := []Cookie{
		{
			Name:     "sipd_session",
			Value:    "abc123",
			Domain:   "sipd.kemendagri.go.id",
			Path:     "/",
			Expires:  1735689600,
			HttpOnly: true,
			Secure:   true,
			SameSite: "Lax",
		},
		{Name: "lang", Value: "id", Path: "/", Expires: -1},
	}

	require.NoError(t, WriteCookieFile(path, expect))
	got, err := ReadCookieFile(path)
	require.NoError(t, err)
	require.Equal(t, expect, got)
}

func TestFetch(t *testing.T) {
	client, _ := setup(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	path := writeSessionCookies(t, t.TempDir(), "valid", time.Now().Add(time.Hour))
	require.NoError(t, client.RestoreCookies(path))

	doc, err := client.Fetch(ctx, DashboardPath)
	require.NoError(t, err)
	require.Equal(t, 1, len(doc.Find("table").Nodes))
}
