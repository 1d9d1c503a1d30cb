package fetch

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"
)

// BrowserTransport renders pages in headless Chrome, which gets past
// JavaScript challenges that a plain client cannot answer.
type BrowserTransport struct {
	wait    time.Duration
	timeout time.Duration
	flags   []chromedp.ExecAllocatorOption
}

// NewBrowserTransport waits wait after navigation for challenge scripts to
// finish. timeout bounds the whole attempt.
func NewBrowserTransport(wait, timeout time.Duration) *BrowserTransport {
	return &BrowserTransport{
		wait:    wait,
		timeout: timeout,
		flags: []chromedp.ExecAllocatorOption{
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-blink-features", "AutomationControlled"),
			chromedp.Flag("lang", "en-US"),
		},
	}
}

func (b *BrowserTransport) Name() string { return "browser" }

// Get navigates to url and returns the rendered document. The status code
// comes from the Navigation Timing API and defaults to 200 when the browser
// does not report one.
func (b *BrowserTransport) Get(ctx context.Context, url string, headers http.Header) (*Response, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:], b.flags...)
	if ua := headers.Get("User-Agent"); ua != "" {
		opts = append(opts, chromedp.UserAgent(ua))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()
	runCtx, cancelRun := context.WithTimeout(browserCtx, b.timeout)
	defer cancelRun()

	var html string
	var status int64
	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.Sleep(b.wait),
		chromedp.OuterHTML("html", &html),
		chromedp.Evaluate(`window.performance?.getEntriesByType?.('navigation')?.[0]?.responseStatus || 200`, &status),
	)
	if err != nil {
		return nil, classifyBrowserError(runCtx, err)
	}

	return &Response{
		StatusCode: int(status),
		Header:     http.Header{"Content-Type": []string{"text/html; charset=utf-8"}},
		Body:       []byte(html),
	}, nil
}

func classifyBrowserError(ctx context.Context, err error) error {
	if ctx.Err() == context.DeadlineExceeded {
		return eris.Wrap(context.DeadlineExceeded, "fetch: browser navigate")
	}
	msg := err.Error()
	if strings.Contains(msg, "ERR_NAME_NOT_RESOLVED") ||
		strings.Contains(msg, "ERR_CONNECTION") ||
		strings.Contains(msg, "ERR_ADDRESS_UNREACHABLE") {
		return eris.Wrap(err, "fetch: browser connection")
	}
	return eris.Wrap(ErrChallenge, msg)
}
