package fetch

import (
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/sells-group/product-compare/internal/model"
)

// PriceLocator finds candidate price elements in a document, best first.
type PriceLocator func(doc *goquery.Document) *goquery.Selection

// SpecExtractor pulls specification text and key/value tables from a page.
type SpecExtractor func(doc *goquery.Document) (string, []model.SpecTable)

// Strategy is the extraction recipe for one site kind.
type Strategy struct {
	Prices []PriceLocator
	Specs  SpecExtractor
}

// Registry maps site kinds to strategies. Kinds without an entry use the
// fallback strategy.
type Registry struct {
	mu         sync.RWMutex
	strategies map[model.SiteKind]Strategy
	fallback   Strategy
}

// NewRegistry returns a registry whose fallback is fallback.
func NewRegistry(fallback Strategy) *Registry {
	return &Registry{strategies: make(map[model.SiteKind]Strategy), fallback: fallback}
}

// Register sets the strategy for kind. Missing fields inherit the fallback.
func (r *Registry) Register(kind model.SiteKind, s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.Prices == nil {
		s.Prices = r.fallback.Prices
	}
	if s.Specs == nil {
		s.Specs = r.fallback.Specs
	}
	r.strategies[kind] = s
}

// Lookup returns the strategy for kind.
func (r *Registry) Lookup(kind model.SiteKind) Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.strategies[kind]; ok {
		return s
	}
	return r.fallback
}

// DefaultRegistry registers the built-in site strategies.
func DefaultRegistry() *Registry {
	r := NewRegistry(Strategy{Prices: genericPrices, Specs: genericSpecs})
	r.Register(model.SiteGSMArena, Strategy{Specs: gsmarenaSpecs})
	r.Register(model.SiteAmazon, Strategy{Prices: amazonPrices, Specs: amazonSpecs})
	r.Register(model.SiteWalmart, Strategy{Prices: walmartPrices, Specs: walmartSpecs})
	r.Register(model.SiteTarget, Strategy{Prices: targetPrices, Specs: targetSpecs})
	r.Register(model.SiteBestBuy, Strategy{Prices: bestbuyPrices})
	r.Register(model.SiteApple, Strategy{Specs: appleSpecs})
	r.Register(model.SiteSamsung, Strategy{Specs: samsungSpecs})
	r.Register(model.SiteWikipedia, Strategy{Specs: wikipediaSpecs})
	r.Register(model.SiteRtings, Strategy{Specs: rtingsSpecs})
	return r
}
