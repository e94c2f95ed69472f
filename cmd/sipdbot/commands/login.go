package commands

import (
	"context"
	"log/slog"
	"os"

	"sipdbot/lib/cliutil"
	"sipdbot/lib/scrapers/sipd/browser"
	"sipdbot/lib/scrapers/sipd/core"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var loginManual *bool

func init() {
	loginManual = loginCmd.Flags().Bool(
		"manual", false,
		"Leave the credential form entirely to the user.",
	)
	rootCmd.AddCommand(loginCmd)
}

// credentials reads SIPD_USERNAME/SIPD_PASSWORD from the environment,
// loading a .env first when one exists. Credentials never live in the
// json5 config.
func credentials() (string, string) {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env", "err", err)
	}
	return os.Getenv("SIPD_USERNAME"), os.Getenv("SIPD_PASSWORD")
}

// attendedLogin opens a visible browser and walks the login flow. The
// user solves the CAPTCHA, the bot handles the rest. The returned
// browser is logged in and ready for page automation.
func attendedLogin(ctx context.Context, cfg Config, manual bool) *browser.Browser {
	b, err := browser.New(ctx, browser.Options{
		BaseUrl:   cfg.BaseUrl,
		ChromeBin: cfg.ChromeBin,
	})
	if err != nil {
		cliutil.Fatal("failed to launch browser", err)
	}

	opts := browser.LoginOptions{
		WaitLoggedIn: func() {
			cliutil.Pause("Solve the CAPTCHA in the browser window, then press Enter to continue...")
		},
	}
	if !manual {
		opts.Username, opts.Password = credentials()
		if opts.Username == "" {
			slog.Info("SIPD_USERNAME is not set, fill the form in the browser window")
		}
	}

	err = b.Login(ctx, opts)
	if err != nil {
		b.Close()
		cliutil.Fatal("failed to log in", err)
	}
	return b
}

// saveCookies exports the browser session so the HTTP half can reuse it.
func saveCookies(ctx context.Context, b *browser.Browser, cfg Config) {
	cookies, err := b.Cookies(ctx)
	if err != nil {
		cliutil.Fatal("failed to export session cookies", err)
	}
	err = core.WriteCookieFile(cfg.Cookies, cookies)
	if err != nil {
		cliutil.Fatal("failed to write cookie file", err)
	}
	slog.Info("session saved", "cookies", cfg.Cookies)
}

var loginCmd = &cobra.Command{
	Use:   "login [--manual]",
	Short: "Log in to SIPD-RI in a browser window and save the session.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		b := attendedLogin(cmd.Context(), cfg, *loginManual)
		defer b.Close()

		saveCookies(cmd.Context(), b, cfg)
	},
}
