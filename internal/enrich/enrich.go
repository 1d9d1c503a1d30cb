// Package enrich fetches every candidate URL of each product and folds the
// pages into combined text corpora, a best source and a price.
package enrich

import (
	"context"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/product-compare/internal/model"
	"github.com/sells-group/product-compare/internal/resilience"
)

// Per-page clean text budget in the combined corpus, in runes.
const maxCleanTextPerPage = 3000

// sitePriority ranks fetched pages as spec sources; lower is better.
var sitePriority = map[model.SiteKind]int{
	model.SiteGSMArena:  1,
	model.SiteApple:     2,
	model.SiteSamsung:   2,
	model.SiteOnePlus:   2,
	model.SiteAmazon:    3,
	model.SiteBestBuy:   3,
	model.SiteFlipkart:  3,
	model.SiteWikipedia: 4,
}

const defaultSitePriority = 5

// PageFetcher fetches one URL. Implementations never return an error.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) model.FetchedPage
}

// Stats counts fetch outcomes across all products.
type Stats struct {
	ProductsProcessed int `json:"products_processed"`
	URLsFetched       int `json:"urls_fetched"`
	URLsFailed        int `json:"urls_failed"`
}

// Enricher fetches candidate pages sequentially.
type Enricher struct {
	fetcher  PageFetcher
	minDelay time.Duration
	maxDelay time.Duration
	sleep    func(ctx context.Context, d time.Duration) bool
	currency string
}

// Option configures an Enricher.
type Option func(*Enricher)

// WithDelay sets the random pause between consecutive fetches. A zero max
// disables the pause.
func WithDelay(minDelay, maxDelay time.Duration) Option {
	return func(e *Enricher) { e.minDelay, e.maxDelay = minDelay, maxDelay }
}

// WithSleep replaces the pause function, mainly for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) bool) Option {
	return func(e *Enricher) { e.sleep = sleep }
}

// WithCurrency sets the marker of a trusted price.
func WithCurrency(marker string) Option {
	return func(e *Enricher) { e.currency = marker }
}

// New creates an Enricher.
func New(f PageFetcher, opts ...Option) *Enricher {
	e := &Enricher{
		fetcher:  f,
		minDelay: 500 * time.Millisecond,
		maxDelay: 2 * time.Second,
		sleep:    resilience.Sleep,
		currency: "₹",
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Enrich fills fetch results into each product in place. Fetch failures
// are counted, never returned. A cancelled context stops further fetches.
func (e *Enricher) Enrich(ctx context.Context, products []*model.Product) Stats {
	var stats Stats
	first := true
	for _, p := range products {
		for _, u := range p.URLs() {
			if u == "" {
				continue
			}
			if !first && !e.pause(ctx) {
				break
			}
			first = false

			page := e.fetcher.Fetch(ctx, u)
			if page.OK() {
				p.URLsFetched++
				p.FetchedPages = append(p.FetchedPages, page)
			} else {
				p.URLsFailed++
				zap.L().Debug("enrich: fetch failed",
					zap.String("product", p.Name),
					zap.String("url", u),
					zap.String("reason", page.Reason),
				)
			}
		}
		e.fold(p)

		stats.ProductsProcessed++
		stats.URLsFetched += p.URLsFetched
		stats.URLsFailed += p.URLsFailed
		zap.L().Info("enrich: product fetched",
			zap.String("product", p.Name),
			zap.Int("urls_fetched", p.URLsFetched),
			zap.Int("urls_failed", p.URLsFailed),
			zap.String("price", p.Price),
		)
	}
	return stats
}

func (e *Enricher) pause(ctx context.Context) bool {
	if e.maxDelay <= 0 {
		return ctx.Err() == nil
	}
	d := e.minDelay
	if e.maxDelay > e.minDelay {
		d += rand.N(e.maxDelay - e.minDelay)
	}
	return e.sleep(ctx, d)
}

// fold builds the combined corpora, best source and price from the
// fetched pages.
func (e *Enricher) fold(p *model.Product) {
	var specs, clean []string
	for _, page := range p.FetchedPages {
		if page.RawSpecText != "" {
			specs = append(specs, "--- Source: "+string(page.SiteKind)+" ---", page.RawSpecText)
		}
		if page.CleanText != "" {
			clean = append(clean, truncate(page.CleanText, maxCleanTextPerPage))
		}
	}
	p.CombinedSpecText = strings.Join(specs, "\n\n")
	p.CombinedText = strings.Join(clean, "\n\n")
	p.BestSource = BestSource(p.FetchedPages)

	// The first fetched target-currency price replaces the discovery price;
	// other fetched prices only fill an empty one.
	fetchedTrusted := false
	for _, page := range p.FetchedPages {
		if page.Price == "" {
			continue
		}
		trusted := strings.Contains(page.Price, e.currency)
		if trusted {
			p.AddAlternatePrice(page.Price)
		}
		switch {
		case trusted && !fetchedTrusted:
			p.Price = page.Price
			fetchedTrusted = true
		case p.Price == "":
			p.Price = page.Price
		}
	}
}

// BestSource returns the page with the lowest site priority, preferring
// more spec text among equals. It returns nil for no pages.
func BestSource(pages []model.FetchedPage) *model.FetchedPage {
	if len(pages) == 0 {
		return nil
	}
	sorted := make([]model.FetchedPage, len(pages))
	copy(sorted, pages)
	sort.SliceStable(sorted, func(i, j int) bool {
		pi, pj := priority(sorted[i].SiteKind), priority(sorted[j].SiteKind)
		if pi != pj {
			return pi < pj
		}
		return len(sorted[i].RawSpecText) > len(sorted[j].RawSpecText)
	})
	best := sorted[0]
	return &best
}

func priority(k model.SiteKind) int {
	if p, ok := sitePriority[k]; ok {
		return p
	}
	return defaultSitePriority
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
