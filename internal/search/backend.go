package search

import (
	"context"

	"github.com/sells-group/product-compare/internal/model"
	"github.com/sells-group/product-compare/pkg/serper"
)

// Backend is one search source.
type Backend interface {
	Name() string
	Search(ctx context.Context, query string, num int) ([]model.URLCandidate, error)
}

// ShoppingBackend adapts Serper shopping results into price candidates.
type ShoppingBackend struct {
	client serper.Client
}

// NewShoppingBackend returns the price-search backend.
func NewShoppingBackend(c serper.Client) *ShoppingBackend { return &ShoppingBackend{client: c} }

// Name implements Backend.
func (b *ShoppingBackend) Name() string { return "price_search" }

// Search implements Backend.
func (b *ShoppingBackend) Search(ctx context.Context, query string, num int) ([]model.URLCandidate, error) {
	results, err := b.client.Shopping(ctx, query, num)
	if err != nil {
		return nil, err
	}
	out := make([]model.URLCandidate, 0, len(results))
	for _, r := range results {
		out = append(out, model.URLCandidate{
			URL:          r.Link,
			Title:        r.Title,
			SourceDomain: DomainOf(r.Link),
			Price:        r.Price,
			Image:        r.ImageURL,
			Rating:       r.Rating,
			Origin:       model.OriginPriceSearch,
		})
	}
	return out, nil
}

// OrganicBackend adapts Serper web results into specification candidates.
type OrganicBackend struct {
	client serper.Client
}

// NewOrganicBackend returns the spec-search backend.
func NewOrganicBackend(c serper.Client) *OrganicBackend { return &OrganicBackend{client: c} }

// Name implements Backend.
func (b *OrganicBackend) Name() string { return "spec_search" }

// Search implements Backend.
func (b *OrganicBackend) Search(ctx context.Context, query string, num int) ([]model.URLCandidate, error) {
	results, err := b.client.Search(ctx, query, num)
	if err != nil {
		return nil, err
	}
	out := make([]model.URLCandidate, 0, len(results))
	for _, r := range results {
		out = append(out, model.URLCandidate{
			URL:          r.Link,
			Title:        r.Title,
			Snippet:      r.Snippet,
			SourceDomain: DomainOf(r.Link),
			Origin:       model.OriginSpecSearch,
		})
	}
	return out, nil
}
