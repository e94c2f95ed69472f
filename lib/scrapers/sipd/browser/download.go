package browser

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"sipdbot/lib/scrapers/sipd/core"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"go.opentelemetry.io/otel/codes"
)

// OpenRealisasi navigates to the Laporan Realisasi report page and
// locks the report scope to "Unduh Semua SKPD". The scope only needs
// picking once per visit, the month selector is what changes between
// downloads.
func (b *Browser) OpenRealisasi(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "browser:OpenRealisasi")
	defer span.End()

	runCtx, cancel := context.WithTimeout(b.runContext(ctx), PageTimeout)
	defer cancel()

	err := chromedp.Run(runCtx,
		chromedp.Navigate(b.BaseUrl+core.RealisasiPath),
		waitContainingText("h1", "Laporan Realisasi"),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open realisasi page")
		return fmt.Errorf("open realisasi page: %w", err)
	}

	err = chromedp.Run(runCtx,
		focusReactSelect(0),
		chromedp.KeyEvent("Unduh Semua SKPD"),
		chromedp.KeyEvent(kb.Enter),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to pick SKPD scope")
		return fmt.Errorf("pick SKPD scope: %w", err)
	}

	return nil
}

// DownloadRealisasi picks a month in the report form, clicks Download
// and waits for the browser download to finish, then moves the file to
// targetPath. OpenRealisasi must have been called on this tab first.
func (b *Browser) DownloadRealisasi(ctx context.Context, monthName, targetPath string) error {
	ctx, span := tracer.Start(ctx, "browser:DownloadRealisasi")
	defer span.End()

	runCtx := b.runContext(ctx)

	err := chromedp.Run(runCtx,
		cdpbrowser.
			SetDownloadBehavior(cdpbrowser.SetDownloadBehaviorBehaviorAllowAndName).
			WithDownloadPath(b.downloadDir).
			WithEventsEnabled(true),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to set download behavior")
		return fmt.Errorf("set download behavior: %w", err)
	}

	completed := make(chan string, 1)
	chromedp.ListenTarget(runCtx, func(ev interface{}) {
		progress, ok := ev.(*cdpbrowser.EventDownloadProgress)
		if !ok {
			return
		}
		if progress.State == cdpbrowser.DownloadProgressStateCompleted {
			select {
			case completed <- progress.GUID:
			default:
			}
		}
	})

	err = chromedp.Run(runCtx,
		focusReactSelect(1),
		chromedp.KeyEvent(monthName),
		chromedp.KeyEvent(kb.Enter),
		clickContainingText("button", "Download"),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to request download")
		return fmt.Errorf("request download for %s: %w", monthName, err)
	}

	select {
	case guid := <-completed:
		err = moveFile(filepath.Join(b.downloadDir, guid), targetPath)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to move downloaded file")
			return fmt.Errorf("move download: %w", err)
		}
		return nil
	case <-runCtx.Done():
		span.SetStatus(codes.Error, "download timed out")
		return fmt.Errorf("download %s: %w", monthName, runCtx.Err())
	}
}

// focusReactSelect focuses the nth react-select input of the report
// form. div.css-j93siq is the styled wrapper the SIPD frontend renders
// around both selector widgets.
func focusReactSelect(n int) chromedp.Action {
	js := fmt.Sprintf(`
		(function() {
			var inputs = document.querySelectorAll("div.css-j93siq input");
			if (inputs.length <= %d) {
				return false;
			}
			inputs[%d].click();
			inputs[%d].focus();
			return true;
		})()`, n, n, n)

	var focused bool
	return chromedp.ActionFunc(func(ctx context.Context) error {
		err := chromedp.Evaluate(js, &focused).Do(ctx)
		if err != nil {
			return err
		}
		if !focused {
			return fmt.Errorf("report form input %d not found", n)
		}
		return nil
	})
}

// moveFile renames when possible and falls back to copying, the
// download staging dir can sit on another filesystem than the output
// dir.
func moveFile(from, to string) error {
	err := os.MkdirAll(filepath.Dir(to), 0777)
	if err != nil {
		return err
	}
	err = os.Rename(from, to)
	if err == nil {
		return nil
	}

	src, err := os.Open(from)
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := os.Create(to)
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, src)
	if err != nil {
		dst.Close()
		return err
	}
	err = dst.Close()
	if err != nil {
		return err
	}
	return os.Remove(from)
}
