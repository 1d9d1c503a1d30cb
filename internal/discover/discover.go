// Package discover turns a free-text comparison query into product records
// with candidate URLs.
package discover

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/product-compare/internal/jsonx"
	"github.com/sells-group/product-compare/internal/model"
	"github.com/sells-group/product-compare/internal/oracle"
	"github.com/sells-group/product-compare/internal/search"
)

// Status is the outcome of discovery.
type Status string

const (
	StatusSuccess    Status = "success"
	StatusNoProducts Status = "no_products"
	StatusError      Status = "error"
)

// Searcher retrieves candidates for one product.
type Searcher interface {
	Search(ctx context.Context, query string, category model.Category, n int) search.Result
}

// Result is the output of Discover.
type Result struct {
	Query    string
	Category model.Category
	Products []*model.Product
	Status   Status
	Err      error
}

// Discoverer extracts product names and finds candidates for each.
type Discoverer struct {
	oracle     oracle.Oracle
	searcher   Searcher
	perProduct int
	currency   string
}

// Option configures a Discoverer.
type Option func(*Discoverer)

// WithCandidates sets how many candidates are kept per product.
func WithCandidates(n int) Option {
	return func(d *Discoverer) {
		if n > 0 {
			d.perProduct = n
		}
	}
}

// WithCurrency sets the marker a product price must carry.
func WithCurrency(marker string) Option {
	return func(d *Discoverer) { d.currency = marker }
}

// New creates a Discoverer.
func New(o oracle.Oracle, s Searcher, opts ...Option) *Discoverer {
	d := &Discoverer{oracle: o, searcher: s, perProduct: 3, currency: "₹"}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Discover never returns an error; failures are reported on Result.Status.
func (d *Discoverer) Discover(ctx context.Context, query string) (res Result) {
	res = Result{Query: query, Category: model.CategoryGeneral}
	log := zap.L().With(zap.String("query", query))

	defer func() {
		if r := recover(); r != nil {
			log.Error("discover: recovered panic", zap.Any("panic", r))
			res = Result{Query: query, Category: model.CategoryGeneral, Status: StatusError, Err: eris.Errorf("discover: panic: %v", r)}
		}
	}()

	names, category := d.extractWithOracle(ctx, query)
	if len(names) == 0 {
		names, category = SplitQuery(query)
		log.Info("discover: using regex extraction", zap.Strings("names", names))
	}
	if len(names) == 0 {
		res.Status = StatusNoProducts
		res.Err = model.ErrNoProductsFound
		return res
	}
	res.Category = category

	for i, name := range names {
		if err := ctx.Err(); err != nil {
			res.Status = StatusError
			res.Err = eris.Wrap(err, "discover: cancelled")
			return res
		}
		res.Products = append(res.Products, d.product(ctx, i+1, name, category))
	}
	res.Status = StatusSuccess
	log.Info("discover: products found",
		zap.Int("count", len(res.Products)),
		zap.String("category", string(category)),
	)
	return res
}

type extraction struct {
	ProductNames []string `json:"product_names"`
	ProductType  string   `json:"product_type"`
}

func (d *Discoverer) extractWithOracle(ctx context.Context, query string) ([]string, model.Category) {
	raw, err := d.oracle.Complete(ctx, oracle.PhaseDiscovery, Prompt(query))
	if err != nil {
		zap.L().Warn("discover: oracle failed", zap.Error(err))
		return nil, ""
	}

	var out extraction
	if err := jsonx.Decode(raw, &out); err != nil {
		zap.L().Warn("discover: unparseable oracle output", zap.Error(err))
		return nil, ""
	}

	var names []string
	for _, n := range out.ProductNames {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	category, ok := model.ParseCategory(out.ProductType)
	if !ok {
		category = model.InferCategory(query)
	}
	return names, category
}

func (d *Discoverer) product(ctx context.Context, id int, name string, category model.Category) *model.Product {
	found := d.searcher.Search(ctx, fmt.Sprintf("%s %s", name, category), category, d.perProduct)

	p := &model.Product{ID: id, Name: name, Category: category}
	if len(found.Candidates) > d.perProduct {
		found.Candidates = found.Candidates[:d.perProduct]
	}
	p.Candidates = found.Candidates

	for _, c := range p.Candidates {
		if strings.Contains(c.Price, d.currency) {
			if p.Price == "" {
				p.Price = c.Price
			}
			p.AddAlternatePrice(c.Price)
		}
		if p.Image == "" && c.Image != "" {
			p.Image = c.Image
		}
		if p.Rating == nil && c.Rating != nil {
			p.Rating = c.Rating
		}
	}
	for _, price := range found.Prices {
		p.AddAlternatePrice(price)
	}
	return p
}

// Prompt is the product-name extraction prompt for query.
func Prompt(query string) string {
	return fmt.Sprintf(`Extract product names from this comparison query. Return ONLY JSON.

Query: %q

Return this exact format:
{"product_names": ["Product 1", "Product 2"], "product_type": "smartphone"}

Product types: smartphone, laptop, tablet, headphones, smartwatch, tv, toothpaste, fmcg, general

Examples:
- "compare iPhone 15 vs Samsung S24" → {"product_names": ["iPhone 15", "Samsung Galaxy S24"], "product_type": "smartphone"}
- "vivo y73 vs realme 8 pro" → {"product_names": ["Vivo Y73", "Realme 8 Pro"], "product_type": "smartphone"}
- "colgate vs pepsodent" → {"product_names": ["Colgate", "Pepsodent"], "product_type": "toothpaste"}

Return ONLY JSON, no other text.`, query)
}

var (
	connectiveRe = regexp.MustCompile(`(?i)\s+(?:vs\.?|versus|or|and)\s+`)
	fillerRe     = regexp.MustCompile(`(?i)\b(?:compare|which|best|better|for|gaming|my|is|the)\b`)
	spaceRe      = regexp.MustCompile(`\s+`)
)

// SplitQuery is the deterministic extractor used when the oracle yields
// nothing: split on comparison connectives, drop filler words and keep
// fragments of at least three characters.
func SplitQuery(query string) ([]string, model.Category) {
	var names []string
	for _, part := range connectiveRe.Split(query, -1) {
		cleaned := strings.TrimSpace(spaceRe.ReplaceAllString(fillerRe.ReplaceAllString(part, ""), " "))
		cleaned = strings.Trim(cleaned, "?!.,:; ")
		if len([]rune(cleaned)) >= 3 {
			names = append(names, cleaned)
		}
	}
	return names, model.InferCategory(query)
}
