// Package fetch retrieves product pages and extracts their content. A fetch
// never fails outright: every outcome is a model.FetchedPage whose Status
// and Reason describe what happened.
package fetch

import (
	"context"
	"math/rand/v2"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/product-compare/internal/metrics"
	"github.com/sells-group/product-compare/internal/model"
	"github.com/sells-group/product-compare/internal/resilience"
)

// Fetcher fetches a URL with retries and transport escalation.
type Fetcher struct {
	plain     Transport
	escalated Transport
	agents    *UserAgents
	registry  *Registry
	protected []string
	metrics   *metrics.Metrics

	maxAttempts int
	minDelay    time.Duration
	maxDelay    time.Duration
	sleep       func(ctx context.Context, d time.Duration) bool
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithMaxAttempts sets the attempt cap per URL.
func WithMaxAttempts(n int) Option {
	return func(f *Fetcher) { f.maxAttempts = n }
}

// WithDelay sets the random delay range between attempts.
func WithDelay(minDelay, maxDelay time.Duration) Option {
	return func(f *Fetcher) { f.minDelay, f.maxDelay = minDelay, maxDelay }
}

// WithSleep replaces the delay function, mainly for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) bool) Option {
	return func(f *Fetcher) { f.sleep = sleep }
}

// WithProtectedDomains replaces DefaultProtectedDomains.
func WithProtectedDomains(domains []string) Option {
	return func(f *Fetcher) { f.protected = domains }
}

// WithRegistry replaces DefaultRegistry.
func WithRegistry(r *Registry) Option {
	return func(f *Fetcher) { f.registry = r }
}

// WithUserAgents replaces the user agent pool.
func WithUserAgents(p *UserAgents) Option {
	return func(f *Fetcher) { f.agents = p }
}

// WithMetrics records attempts and outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Fetcher) { f.metrics = m }
}

// New creates a Fetcher that starts on plain and escalates to escalated.
func New(plain, escalated Transport, opts ...Option) *Fetcher {
	f := &Fetcher{
		plain:       plain,
		escalated:   escalated,
		agents:      NewUserAgents(nil),
		registry:    DefaultRegistry(),
		protected:   DefaultProtectedDomains,
		maxAttempts: 3,
		minDelay:    500 * time.Millisecond,
		maxDelay:    2 * time.Second,
		sleep:       resilience.Sleep,
	}
	for _, o := range opts {
		o(f)
	}
	if f.escalated == nil {
		f.escalated = f.plain
	}
	return f
}

// Delay returns a random duration in the configured delay range.
func (f *Fetcher) Delay() time.Duration {
	if f.maxDelay <= f.minDelay {
		return f.minDelay
	}
	return f.minDelay + rand.N(f.maxDelay-f.minDelay)
}

// Fetch retrieves and parses rawURL. It never panics or returns an error;
// failures are recorded on the returned page.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (page model.FetchedPage) {
	start := time.Now()
	page = model.FetchedPage{URL: rawURL, SiteKind: model.SiteGeneric, Status: model.PageError}
	log := zap.L().With(zap.String("url", rawURL))

	defer func() {
		if r := recover(); r != nil {
			log.Error("fetch: recovered panic", zap.Any("panic", r))
			page = model.FetchedPage{URL: rawURL, SiteKind: page.SiteKind, Status: model.PageError, Reason: string(ReasonInternal), Attempts: page.Attempts}
		}
		f.metrics.FetchOutcome(string(page.SiteKind), string(page.Status), page.Reason, time.Since(start))
	}()

	u, err := parseTarget(rawURL)
	if err != nil {
		log.Debug("fetch: invalid url", zap.Error(err))
		page.Reason = string(ReasonInvalidURL)
		return page
	}
	host := u.Hostname()
	page.SiteKind = SiteKindOf(host)

	m := newAttemptMachine(f.maxAttempts, isProtected(host, f.protected))
	for m.state != Exhausted {
		if m.attempts > 0 && !f.sleep(ctx, f.Delay()) {
			page.Reason = string(classifyError(ctx.Err()).reason)
			break
		}

		tr := f.plain
		if m.state == EscalatedAttempt {
			tr = f.escalated
		}
		f.metrics.FetchAttempt(tr.Name(), m.state.String())

		resp, err := tr.Get(ctx, u.String(), BrowserHeaders(f.agents.Next()))
		var o outcome
		if err != nil {
			o = classifyError(err)
		} else {
			o = classifyResponse(resp)
		}

		if o.kind == outcomeOK {
			page.Attempts = m.attempts + 1
			return f.parse(page, resp.Body, log)
		}

		page.Reason = string(o.reason)
		state := m.advance(o)
		page.Attempts = m.attempts
		log.Debug("fetch: attempt failed",
			zap.String("transport", tr.Name()),
			zap.Int("attempt", m.attempts),
			zap.String("reason", string(o.reason)),
			zap.String("block", string(o.block)),
			zap.String("next", state.String()),
			zap.Error(err),
		)
	}

	log.Info("fetch: giving up",
		zap.String("reason", page.Reason),
		zap.Int("attempts", page.Attempts),
	)
	return page
}

func (f *Fetcher) parse(page model.FetchedPage, body []byte, log *zap.Logger) model.FetchedPage {
	ex, err := Extract(body, page.SiteKind, f.registry)
	if err != nil {
		log.Warn("fetch: extraction failed", zap.Error(err))
		page.Reason = string(ReasonInternal)
		return page
	}
	page.Status = model.PageSuccess
	page.Reason = ""
	page.Title = ex.Title
	page.Description = ex.Description
	page.Price = ex.Price
	page.RawSpecText = ex.SpecText
	page.SpecTables = ex.Tables
	page.CleanText = ex.CleanText
	log.Debug("fetch: page extracted",
		zap.String("site_kind", string(page.SiteKind)),
		zap.Int("spec_chars", len(page.RawSpecText)),
		zap.Int("tables", len(page.SpecTables)),
		zap.String("price", page.Price),
	)
	return page
}

func parseTarget(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, eris.Errorf("fetch: unsupported scheme %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, eris.New("fetch: missing host")
	}
	return u, nil
}
