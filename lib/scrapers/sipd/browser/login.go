package browser

import (
	"context"
	"fmt"
	"time"

	"sipdbot/lib/scrapers/sipd/core"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"go.opentelemetry.io/otel/codes"
)

type LoginOptions struct {
	// when empty the form is left to the user entirely
	Username string
	Password string
	// WaitLoggedIn blocks between submitting the form and verifying the
	// session, giving the user room to solve the CAPTCHA. A nil value
	// skips straight to waiting on the sidebar.
	WaitLoggedIn func()
}

// Login walks the attended login flow: open the login page, optionally
// pre-fill the credential form and pick the "Bendahara Umum Daerah"
// account, then wait until the sidebar of the logged-in app renders.
// The CAPTCHA always stays with the user.
func (b *Browser) Login(ctx context.Context, opts LoginOptions) error {
	ctx, span := tracer.Start(ctx, "browser:Login")
	defer span.End()

	runCtx := b.runContext(ctx)

	err := chromedp.Run(runCtx,
		chromedp.Navigate(b.BaseUrl+core.LoginPath),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open login page")
		return fmt.Errorf("open login page: %w", err)
	}

	if opts.Username != "" {
		err = chromedp.Run(runCtx,
			chromedp.WaitVisible("#ed_username", chromedp.ByID),
			chromedp.SendKeys("#ed_username", opts.Username, chromedp.ByID),
			chromedp.WaitVisible("#ed_password", chromedp.ByID),
			chromedp.SendKeys("#ed_password", opts.Password, chromedp.ByID),
			chromedp.KeyEvent(kb.Enter),
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to fill login form")
			return fmt.Errorf("fill login form: %w", err)
		}

		err = chromedp.Run(runCtx,
			waitContainingText("div.account-select-card", "Bendahara Umum Daerah"),
			clickAccountCard("Bendahara Umum Daerah", "Pilih Akun ini"),
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to pick account card")
			return fmt.Errorf("pick account: %w", err)
		}
	}

	if opts.WaitLoggedIn != nil {
		opts.WaitLoggedIn()
	}

	// the "Akuntansi" sidebar anchor only renders once the session is live
	err = chromedp.Run(runCtx, waitContainingText("a", "Akuntansi"))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "never saw the logged-in sidebar")
		return fmt.Errorf("wait for logged-in sidebar: %w", err)
	}

	return nil
}

// clickAccountCard clicks the select button inside the account card
// whose text contains cardText. One SIPD user routinely holds several
// roles, the bot always wants the treasurer one.
func clickAccountCard(cardText, buttonText string) chromedp.Action {
	js := fmt.Sprintf(`
		(function() {
			var cards = document.querySelectorAll("div.account-select-card");
			for (var i = 0; i < cards.length; i++) {
				if ((cards[i].textContent || "").indexOf(%q) === -1) {
					continue;
				}
				var buttons = cards[i].querySelectorAll("button");
				for (var j = 0; j < buttons.length; j++) {
					if ((buttons[j].textContent || "").indexOf(%q) !== -1) {
						buttons[j].click();
						return true;
					}
				}
			}
			return false;
		})()`, cardText, buttonText)

	var clicked bool
	return chromedp.ActionFunc(func(ctx context.Context) error {
		err := chromedp.Evaluate(js, &clicked).Do(ctx)
		if err != nil {
			return err
		}
		if !clicked {
			return fmt.Errorf("account card %q not found", cardText)
		}
		return nil
	})
}

// Cookies exports the browser session in the same JSON shape the HTTP
// client restores from.
func (b *Browser) Cookies(ctx context.Context) ([]core.Cookie, error) {
	ctx, span := tracer.Start(ctx, "browser:Cookies")
	defer span.End()

	runCtx := b.runContext(ctx)

	var exported []core.Cookie
	err := chromedp.Run(runCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		cookies, err := network.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		for _, c := range cookies {
			exported = append(exported, core.Cookie{
				Name:     c.Name,
				Value:    c.Value,
				Domain:   c.Domain,
				Path:     c.Path,
				Expires:  c.Expires,
				HttpOnly: c.HTTPOnly,
				Secure:   c.Secure,
				SameSite: sameSiteName(c.SameSite),
			})
		}
		return nil
	}))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to export cookies")
		return nil, fmt.Errorf("export cookies: %w", err)
	}
	return exported, nil
}

func sameSiteName(s network.CookieSameSite) string {
	switch s {
	case network.CookieSameSiteStrict:
		return "Strict"
	case network.CookieSameSiteLax:
		return "Lax"
	case network.CookieSameSiteNone:
		return "None"
	}
	return ""
}

// runContext ties browser actions to both the browser tab and the
// caller's deadline/cancellation.
func (b *Browser) runContext(ctx context.Context) context.Context {
	merged, cancel := context.WithCancel(b.ctx)
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-merged.Done():
		}
	}()
	return merged
}

// page loads on SIPD routinely take a while, two minutes is what it
// takes on a bad day
const PageTimeout = time.Minute * 2
