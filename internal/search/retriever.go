// Package search finds candidate product pages across a price-oriented and a
// specification-oriented search backend, then picks a source-diversified
// subset.
package search

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/product-compare/internal/metrics"
	"github.com/sells-group/product-compare/internal/model"
	"github.com/sells-group/product-compare/internal/resilience"
)

var (
	trailingNoiseRe = regexp.MustCompile(`(?i)\s*(price|specifications?|specs?|features?|general|smartphone|laptop)\s*$`)
	spacesRe        = regexp.MustCompile(`\s+`)
)

// CleanQuery strips a trailing descriptor word and collapses whitespace.
func CleanQuery(q string) string {
	q = trailingNoiseRe.ReplaceAllString(q, "")
	return strings.TrimSpace(spacesRe.ReplaceAllString(q, " "))
}

// Result is the outcome of one retrieval.
type Result struct {
	Query      string
	Category   model.Category
	Candidates []model.URLCandidate
	// BestPrice is the first target-currency price from the price backend.
	BestPrice string
	Image     string
	Rating    *float64
	// Prices holds every target-currency price seen, in backend order.
	Prices []string
}

// Retriever queries both backends and merges their results.
type Retriever struct {
	price        Backend
	spec         Backend
	priceBreaker *resilience.Breaker
	specBreaker  *resilience.Breaker
	region       string
	currency     string
	metrics      *metrics.Metrics
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithRegion sets the region appended to price queries.
func WithRegion(region string) Option {
	return func(r *Retriever) { r.region = region }
}

// WithCurrency sets the currency marker a best price must carry.
func WithCurrency(marker string) Option {
	return func(r *Retriever) { r.currency = marker }
}

// WithBreakers replaces the per-backend circuit breaker settings.
func WithBreakers(cfg resilience.BreakerConfig) Option {
	return func(r *Retriever) {
		r.priceBreaker = resilience.NewBreaker(r.price.Name(), cfg)
		r.specBreaker = resilience.NewBreaker(r.spec.Name(), cfg)
	}
}

// WithMetrics records backend calls.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Retriever) { r.metrics = m }
}

// NewRetriever creates a Retriever over a price and a spec backend.
func NewRetriever(price, spec Backend, opts ...Option) *Retriever {
	r := &Retriever{
		price:    price,
		spec:     spec,
		region:   "India",
		currency: "₹",
	}
	def := resilience.BreakerConfigFrom(0, 0)
	r.priceBreaker = resilience.NewBreaker(price.Name(), def)
	r.specBreaker = resilience.NewBreaker(spec.Name(), def)
	for _, o := range opts {
		o(r)
	}
	return r
}

// Search returns at most n diversified candidates for query. A category of
// "" or general is inferred from the query. Backend failures yield empty
// result lists for that backend only.
func (r *Retriever) Search(ctx context.Context, query string, category model.Category, n int) Result {
	name := CleanQuery(query)
	if category == "" || category == model.CategoryGeneral {
		category = model.InferCategory(name)
	}
	log := zap.L().With(zap.String("query", name), zap.String("category", string(category)))

	var prices, specs []model.URLCandidate
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		prices = r.query(gctx, r.price, r.priceBreaker, r.PriceQuery(name), n+2)
		return nil
	})
	g.Go(func() error {
		specs = r.query(gctx, r.spec, r.specBreaker, SpecQuery(name, category), n+3)
		return nil
	})
	_ = g.Wait()

	res := Result{Query: name, Category: category}
	for _, p := range prices {
		if !strings.Contains(p.Price, r.currency) {
			continue
		}
		res.Prices = append(res.Prices, p.Price)
		if res.BestPrice == "" {
			res.BestPrice = p.Price
		}
		if res.Image == "" && p.Image != "" {
			res.Image = p.Image
		}
		if res.Rating == nil && p.Rating != nil {
			res.Rating = p.Rating
		}
	}

	res.Candidates = Diversify(Merge(specs, prices, res.BestPrice, res.Image, res.Rating), n)
	log.Info("search: candidates selected",
		zap.Int("price_results", len(prices)),
		zap.Int("spec_results", len(specs)),
		zap.Int("selected", len(res.Candidates)),
		zap.String("best_price", res.BestPrice),
	)
	return res
}

// PriceQuery builds the price-oriented query for name.
func (r *Retriever) PriceQuery(name string) string {
	return strings.TrimSpace(fmt.Sprintf("%s price %s", name, r.region))
}

// SpecQuery builds the specification query restricted to the category's
// spec sites.
func SpecQuery(name string, category model.Category) string {
	cfg := ConfigFor(category)
	sites := cfg.SpecSites[:min(maxSiteFilter, len(cfg.SpecSites))]
	filters := make([]string, len(sites))
	for i, s := range sites {
		filters[i] = "site:" + s
	}
	return fmt.Sprintf("%s %s (%s)", name, cfg.Suffix, strings.Join(filters, " OR "))
}

func (r *Retriever) query(ctx context.Context, b Backend, br *resilience.Breaker, q string, num int) []model.URLCandidate {
	res, err := resilience.Guard(ctx, br, func(ctx context.Context) ([]model.URLCandidate, error) {
		return b.Search(ctx, q, num)
	})
	r.metrics.SearchCall(b.Name(), err)
	if err != nil {
		zap.L().Warn("search: backend failed",
			zap.String("backend", b.Name()),
			zap.Error(eris.Wrapf(model.ErrBackendUnavailable, "search: %s: %v", b.Name(), err)),
		)
		return nil
	}
	return res
}

// Merge combines spec results with price results not already present by
// URL. Entries lacking a price, image or rating get the best known values.
func Merge(specs, prices []model.URLCandidate, bestPrice, image string, rating *float64) []model.URLCandidate {
	seen := make(map[string]bool, len(specs)+len(prices))
	out := make([]model.URLCandidate, 0, len(specs)+len(prices))
	add := func(c model.URLCandidate) {
		if c.URL == "" || seen[c.URL] {
			return
		}
		seen[c.URL] = true
		if c.Price == "" {
			c.Price = bestPrice
		}
		if c.Image == "" {
			c.Image = image
		}
		if c.Rating == nil {
			c.Rating = rating
		}
		out = append(out, c)
	}
	for _, c := range specs {
		add(c)
	}
	for _, c := range prices {
		add(c)
	}
	return out
}
