package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"
	"go.opentelemetry.io/otel/codes"
)

// Navigate opens a path of the site in the automation tab and waits
// for the document to settle.
func (b *Browser) Navigate(ctx context.Context, path string) error {
	ctx, span := tracer.Start(ctx, "browser:Navigate")
	defer span.End()

	runCtx, cancel := context.WithTimeout(b.runContext(ctx), PageTimeout)
	defer cancel()

	err := chromedp.Run(runCtx,
		chromedp.Navigate(b.BaseUrl+path),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to navigate")
		return fmt.Errorf("navigate %s: %w", path, err)
	}
	return nil
}

// PageHTML snapshots the rendered DOM of the current tab. SIPD pages
// are React apps, so table contents only exist after the frontend has
// rendered, the HTTP client never sees them.
func (b *Browser) PageHTML(ctx context.Context) (string, error) {
	ctx, span := tracer.Start(ctx, "browser:PageHTML")
	defer span.End()

	runCtx := b.runContext(ctx)
	var html string
	err := chromedp.Run(runCtx,
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to snapshot page html")
		return "", fmt.Errorf("snapshot page html: %w", err)
	}
	return html, nil
}

// ApproveRow clicks the approve action of the queue row containing
// rowText, then the confirmation dialog that pops up after it.
func (b *Browser) ApproveRow(ctx context.Context, rowText string) error {
	ctx, span := tracer.Start(ctx, "browser:ApproveRow")
	defer span.End()

	runCtx, cancel := context.WithTimeout(b.runContext(ctx), PageTimeout)
	defer cancel()

	err := chromedp.Run(runCtx,
		clickRowButton(rowText, "Setujui"),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to click approve")
		return fmt.Errorf("approve row %q: %w", rowText, err)
	}

	err = chromedp.Run(runCtx,
		waitContainingText("div[role=dialog] button", "Ya"),
		clickContainingText("div[role=dialog] button", "Ya"),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to confirm approval")
		return fmt.Errorf("confirm approval for %q: %w", rowText, err)
	}

	return nil
}

func clickRowButton(rowText, buttonText string) chromedp.Action {
	js := fmt.Sprintf(`
		(function() {
			var rows = document.querySelectorAll("table tbody tr");
			for (var i = 0; i < rows.length; i++) {
				if ((rows[i].textContent || "").indexOf(%q) === -1) {
					continue;
				}
				var buttons = rows[i].querySelectorAll("button, a");
				for (var j = 0; j < buttons.length; j++) {
					if ((buttons[j].textContent || "").indexOf(%q) !== -1) {
						buttons[j].click();
						return true;
					}
				}
			}
			return false;
		})()`, rowText, buttonText)

	var clicked bool
	return chromedp.ActionFunc(func(ctx context.Context) error {
		err := chromedp.Evaluate(js, &clicked).Do(ctx)
		if err != nil {
			return err
		}
		if !clicked {
			return fmt.Errorf("queue row %q with %q action not found", rowText, buttonText)
		}
		return nil
	})
}

// STSForm is one deposit record of the STS input form.
type STSForm struct {
	Date        string
	SKPD        string
	AccountCode string
	Description string
	Amount      string
}

// SubmitSTS fills the STS input form with one record and submits it.
// The caller is expected to have navigated to the input page already.
func (b *Browser) SubmitSTS(ctx context.Context, form STSForm) error {
	ctx, span := tracer.Start(ctx, "browser:SubmitSTS")
	defer span.End()

	runCtx, cancel := context.WithTimeout(b.runContext(ctx), PageTimeout)
	defer cancel()

	err := chromedp.Run(runCtx,
		chromedp.WaitVisible(`input[name=tanggal]`, chromedp.ByQuery),
		setInputValue(`input[name=tanggal]`, form.Date),
		setInputValue(`input[name=skpd]`, form.SKPD),
		setInputValue(`input[name=kode_rekening]`, form.AccountCode),
		setInputValue(`textarea[name=keterangan]`, form.Description),
		setInputValue(`input[name=jumlah]`, form.Amount),
		clickContainingText("button", "Simpan"),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to submit sts form")
		return fmt.Errorf("submit sts record: %w", err)
	}

	err = chromedp.Run(runCtx,
		waitContainingText("div", "berhasil"),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "never saw the submit confirmation")
		return fmt.Errorf("confirm sts submit: %w", err)
	}

	return nil
}

// setInputValue writes through the DOM and fires the input event so
// the React form state picks the value up. SendKeys is too slow for
// batch input runs with hundreds of records.
func setInputValue(sel, value string) chromedp.Action {
	js := fmt.Sprintf(`
		(function() {
			var el = document.querySelector(%q);
			if (!el) {
				return false;
			}
			var setter = Object.getOwnPropertyDescriptor(
				el.tagName === "TEXTAREA"
					? window.HTMLTextAreaElement.prototype
					: window.HTMLInputElement.prototype,
				"value",
			).set;
			setter.call(el, %q);
			el.dispatchEvent(new Event("input", { bubbles: true }));
			el.dispatchEvent(new Event("change", { bubbles: true }));
			return true;
		})()`, sel, value)

	var set bool
	return chromedp.ActionFunc(func(ctx context.Context) error {
		err := chromedp.Evaluate(js, &set).Do(ctx)
		if err != nil {
			return err
		}
		if !set {
			return fmt.Errorf("form field %q not found", sel)
		}
		return nil
	})
}
