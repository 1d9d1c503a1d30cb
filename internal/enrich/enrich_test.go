package enrich

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/product-compare/internal/model"
)

type fakeFetcher struct {
	pages map[string]model.FetchedPage
	calls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) model.FetchedPage {
	f.calls = append(f.calls, url)
	if p, ok := f.pages[url]; ok {
		p.URL = url
		return p
	}
	return model.FetchedPage{URL: url, Status: model.PageError, Reason: "http_404"}
}

func ok(kind model.SiteKind, spec, price string) model.FetchedPage {
	return model.FetchedPage{Status: model.PageSuccess, SiteKind: kind, RawSpecText: spec, CleanText: "clean " + spec, Price: price}
}

func product(name, price string, urls ...string) *model.Product {
	p := &model.Product{Name: name, Price: price}
	for _, u := range urls {
		p.Candidates = append(p.Candidates, model.URLCandidate{URL: u})
	}
	return p
}

func TestEnrich(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{pages: map[string]model.FetchedPage{
		"https://amazon.in/a":    ok(model.SiteAmazon, "RAM: 8 GB", "₹69,900"),
		"https://gsmarena.com/a": ok(model.SiteGSMArena, "Chipset: A16", ""),
		"https://example.com/b":  ok(model.SiteGeneric, "", "$499"),
	}}

	var sleeps []time.Duration
	e := New(f, WithSleep(func(_ context.Context, d time.Duration) bool {
		sleeps = append(sleeps, d)
		return true
	}))

	a := product("A", "₹70,500", "https://amazon.in/a", "https://gsmarena.com/a", "https://dead.com/a", "")
	b := product("B", "", "https://example.com/b")

	stats := e.Enrich(context.Background(), []*model.Product{a, b})

	assert.Equal(t, Stats{ProductsProcessed: 2, URLsFetched: 3, URLsFailed: 1}, stats)
	assert.Equal(t, []string{"https://amazon.in/a", "https://gsmarena.com/a", "https://dead.com/a", "https://example.com/b"}, f.calls)

	// One pause between each pair of consecutive fetches.
	require.Len(t, sleeps, 3)
	for _, d := range sleeps {
		assert.GreaterOrEqual(t, d, 500*time.Millisecond)
		assert.Less(t, d, 2*time.Second)
	}

	assert.Equal(t, 2, a.URLsFetched)
	assert.Equal(t, 1, a.URLsFailed)
	require.Len(t, a.FetchedPages, 2)
	require.NotNil(t, a.BestSource)
	assert.Equal(t, model.SiteGSMArena, a.BestSource.SiteKind)
	assert.Equal(t, "₹69,900", a.Price)
	assert.Contains(t, a.AlternatePrices, "₹69,900")
	assert.Equal(t, "--- Source: amazon ---\n\nRAM: 8 GB\n\n--- Source: gsmarena ---\n\nChipset: A16", a.CombinedSpecText)
	assert.Contains(t, a.CombinedText, "clean RAM: 8 GB")

	assert.Equal(t, "$499", b.Price)
	assert.Empty(t, b.AlternatePrices)
	assert.Empty(t, b.CombinedSpecText)
}

func TestEnrich_UntrustedPriceDoesNotReplaceKnown(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{pages: map[string]model.FetchedPage{
		"https://bestbuy.com/x": ok(model.SiteBestBuy, "spec", "$799"),
	}}
	p := product("X", "₹65,000", "https://bestbuy.com/x")
	New(f, WithDelay(0, 0)).Enrich(context.Background(), []*model.Product{p})
	assert.Equal(t, "₹65,000", p.Price)
}

func TestEnrich_NoCandidates(t *testing.T) {
	t.Parallel()

	p := product("Lonely", "")
	stats := New(&fakeFetcher{}, WithDelay(0, 0)).Enrich(context.Background(), []*model.Product{p})
	assert.Equal(t, Stats{ProductsProcessed: 1}, stats)
	assert.Nil(t, p.BestSource)
	assert.Empty(t, p.CombinedText)
}

func TestEnrich_CancelStopsFetching(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{}
	ctx, cancel := context.WithCancel(context.Background())
	e := New(f, WithSleep(func(context.Context, time.Duration) bool {
		cancel()
		return false
	}))
	p := product("A", "", "https://a.com/1", "https://a.com/2", "https://a.com/3")
	e.Enrich(ctx, []*model.Product{p})
	assert.Len(t, f.calls, 1)
}

func TestEnrich_CleanTextCappedPerPage(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("é", maxCleanTextPerPage+100)
	f := &fakeFetcher{pages: map[string]model.FetchedPage{
		"https://a.com": {Status: model.PageSuccess, SiteKind: model.SiteGeneric, CleanText: long},
	}}
	p := product("A", "", "https://a.com")
	New(f, WithDelay(0, 0)).Enrich(context.Background(), []*model.Product{p})
	assert.Equal(t, maxCleanTextPerPage, len([]rune(p.CombinedText)))
}

func TestBestSource(t *testing.T) {
	t.Parallel()

	pages := []model.FetchedPage{
		{URL: "generic-long", SiteKind: model.SiteGeneric, RawSpecText: strings.Repeat("x", 5000)},
		{URL: "amazon-short", SiteKind: model.SiteAmazon, RawSpecText: "x"},
		{URL: "flipkart-long", SiteKind: model.SiteFlipkart, RawSpecText: "xxxxx"},
		{URL: "wiki", SiteKind: model.SiteWikipedia, RawSpecText: "xxxxxxxx"},
	}
	best := BestSource(pages)
	require.NotNil(t, best)
	assert.Equal(t, "flipkart-long", best.URL)

	assert.Nil(t, BestSource(nil))
}
