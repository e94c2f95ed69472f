package commands

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"sipdbot/lib/cliutil"
	"sipdbot/lib/configutil"
	"sipdbot/lib/scrapers/sipd/core"
	"sipdbot/pkg/migrations"
	"sipdbot/services/notify"
	"sipdbot/services/sipd"
	"sipdbot/services/sipd/db"

	"github.com/adrg/xdg"
)

type DownloadConfig struct {
	Attempts       int `json:"attempts"`
	TimeoutSeconds int `json:"timeout_seconds"`
}

type Config struct {
	BaseUrl   string            `json:"base_url"`
	Cookies   string            `json:"cookies"`
	OutputDir string            `json:"output_dir"`
	Ledger    string            `json:"ledger"`
	ChromeBin string            `json:"chrome_bin"`
	Download  DownloadConfig    `json:"download"`
	Smtp      notify.SmtpConfig `json:"smtp"`
}

// loadConfig reads sipdbot.json5 (searching upward from the cwd) and
// fills in defaults. No config file at all is fine, everything has a
// workable default except SMTP which simply stays off.
func loadConfig() Config {
	cfg, err := configutil.ReadRecursively[Config]("sipdbot.json5")
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		cliutil.Fatal("failed to read sipdbot.json5", err)
	}

	if cfg.BaseUrl == "" {
		cfg.BaseUrl = core.DefaultBaseUrl
	}
	if cfg.Cookies == "" {
		cfg.Cookies = "cookies.json"
	}
	if cfg.Ledger == "" {
		cfg.Ledger = filepath.Join(xdg.StateHome, "sipdbot", "ledger.db")
	}
	if cfg.Download.Attempts == 0 {
		cfg.Download.Attempts = 3
	}
	if cfg.Download.TimeoutSeconds == 0 {
		cfg.Download.TimeoutSeconds = 120
	}
	return cfg
}

func openLedger(cfg Config) *sql.DB {
	database, err := migrations.OpenAndMigrateDB(db.Schema, cfg.Ledger)
	if err != nil {
		cliutil.Fatal("failed to open run ledger", err)
	}
	return database
}

// newCoreClient builds the HTTP client and restores the saved session
// when a cookie file exists. Callers that need a live session should
// still check LoggedIn.
func newCoreClient(cfg Config) *core.Client {
	client, err := core.NewClient(core.ClientOptions{BaseUrl: cfg.BaseUrl})
	if err != nil {
		cliutil.Fatal("failed to initialize sipd client", err)
	}
	err = client.RestoreCookies(cfg.Cookies)
	if errors.Is(err, core.ErrNoCookieFile) {
		slog.Debug("no saved session cookies", "path", cfg.Cookies)
	} else if err != nil {
		cliutil.Fatal("failed to restore session cookies", err)
	}
	return client
}

// requireSession exits unless the restored cookies still hold a live
// session on the site.
func requireSession(ctx context.Context, client *core.Client) {
	ok, err := client.LoggedIn(ctx)
	if err != nil {
		cliutil.Fatal("failed to check session", err)
	}
	if !ok {
		cliutil.Fatal("session check failed", core.ErrNotLoggedIn)
	}
}

func serviceOptions(cfg Config) sipd.Options {
	return sipd.Options{
		DownloadAttempts: cfg.Download.Attempts,
		DownloadTimeout:  time.Duration(cfg.Download.TimeoutSeconds) * time.Second,
	}
}
