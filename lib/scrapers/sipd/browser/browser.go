package browser

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/chromedp/chromedp"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("scrapers/sipd/browser")

// Browser drives a visible Chrome window against SIPD-RI. The login
// CAPTCHA and the React report form are why these flows go through a
// real browser instead of the HTTP client: the user has to be able to
// see the page and intervene.
type Browser struct {
	BaseUrl string

	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc

	downloadDir string
}

type Options struct {
	// defaults to the production SIPD-RI base url
	BaseUrl string
	// path to a Chrome/Chromium binary, auto-detected when empty
	ChromeBin string
	// staging directory for in-progress browser downloads,
	// defaults to a temp dir
	DownloadDir string
}

func New(ctx context.Context, opts Options) (*Browser, error) {
	if opts.BaseUrl == "" {
		opts.BaseUrl = "https://sipd.kemendagri.go.id"
	}

	chromeBin := opts.ChromeBin
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}

	downloadDir := opts.DownloadDir
	if downloadDir == "" {
		var err error
		downloadDir, err = os.MkdirTemp("", "sipdbot-download-*")
		if err != nil {
			return nil, fmt.Errorf("create download dir: %w", err)
		}
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		// attended automation, the user solves the CAPTCHA in this window
		chromedp.Flag("headless", false),
		chromedp.Flag("start-maximized", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if chromeBin != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, cancel := chromedp.NewContext(
		allocCtx,
		chromedp.WithLogf(func(string, ...interface{}) {}),
	)

	return &Browser{
		BaseUrl:     opts.BaseUrl,
		allocCancel: allocCancel,
		ctx:         browserCtx,
		cancel:      cancel,
		downloadDir: downloadDir,
	}, nil
}

func (b *Browser) Close() {
	b.cancel()
	b.allocCancel()
	os.RemoveAll(b.downloadDir)
}

func findChromeBinary() string {
	var candidates []string
	switch runtime.GOOS {
	case "darwin":
		candidates = []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
		}
	case "windows":
		candidates = []string{
			`C:\Program Files\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
		}
	default:
		candidates = []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser"}
	}

	for _, c := range candidates {
		if path, err := exec.LookPath(c); err == nil {
			return path
		}
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	// chromedp falls back to its own lookup
	return ""
}

// clickContainingText clicks the first element matching `sel` whose
// text contains `text`. The SIPD frontend is built out of unstable
// css-in-js class names, visible text is the only selector that
// survives their deploys.
func clickContainingText(sel, text string) chromedp.Action {
	js := fmt.Sprintf(`
		(function() {
			var els = document.querySelectorAll(%q);
			for (var i = 0; i < els.length; i++) {
				var t = els[i].textContent || "";
				if (t.indexOf(%q) !== -1) {
					els[i].click();
					return true;
				}
			}
			return false;
		})()`, sel, text)

	var clicked bool
	return chromedp.ActionFunc(func(ctx context.Context) error {
		err := chromedp.Evaluate(js, &clicked).Do(ctx)
		if err != nil {
			return err
		}
		if !clicked {
			return fmt.Errorf("no %q element containing %q", sel, text)
		}
		return nil
	})
}

// waitContainingText polls until an element matching `sel` contains
// `text`. Waiting on a condition beats guessing at sleep durations on
// a site this slow.
func waitContainingText(sel, text string) chromedp.Action {
	js := fmt.Sprintf(`
		(function() {
			var els = document.querySelectorAll(%q);
			for (var i = 0; i < els.length; i++) {
				var t = els[i].textContent || "";
				if (t.indexOf(%q) !== -1) {
					return true;
				}
			}
			return false;
		})()`, sel, text)

	var found bool
	return chromedp.Poll(js, &found)
}
