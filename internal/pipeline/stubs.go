package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/sells-group/product-compare/internal/discover"
	"github.com/sells-group/product-compare/internal/enrich"
	"github.com/sells-group/product-compare/internal/fetch"
	"github.com/sells-group/product-compare/internal/model"
	"github.com/sells-group/product-compare/pkg/anthropic"
	"github.com/sells-group/product-compare/pkg/serper"
)

// Compile-time interface checks.
var (
	_ anthropic.Client   = (*StubAnthropicClient)(nil)
	_ serper.Client      = (*StubSerperClient)(nil)
	_ enrich.PageFetcher = (*StubPageFetcher)(nil)
)

// --- Anthropic Stub ---

// StubAnthropicClient implements anthropic.Client with canned responses
// shaped like each oracle phase expects.
type StubAnthropicClient struct{}

var (
	stubQueryRe   = regexp.MustCompile(`(?m)^Query: (".*")$`)
	stubProductRe = regexp.MustCompile(`(?m)^Product: (.+)$`)
	stubNamesRe   = regexp.MustCompile(`product name from (\[.*?\])`)
)

// CreateMessage implements anthropic.Client.
func (s *StubAnthropicClient) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	content := req.System
	for _, m := range req.Messages {
		content += m.Content
	}

	var responseText string
	switch {
	case strings.Contains(content, "Extract product names"):
		responseText = stubDiscovery(content)
	case strings.Contains(content, "priorities/preferences"):
		responseText = `["overall value"]`
	case strings.Contains(content, "product specification expert"):
		responseText = stubSpecs(content)
	case strings.Contains(content, "product comparison expert"):
		responseText = stubVerdict(content)
	default:
		responseText = `{}`
	}

	return &anthropic.MessageResponse{
		ID:         "stub-msg-001",
		Model:      req.Model,
		Content:    []anthropic.ContentBlock{{Type: "text", Text: responseText}},
		StopReason: "end_turn",
		Usage: anthropic.TokenUsage{
			InputTokens:  150,
			OutputTokens: 50,
		},
	}, nil
}

func stubDiscovery(prompt string) string {
	var query string
	if m := stubQueryRe.FindStringSubmatch(prompt); m != nil {
		query, _ = strconv.Unquote(m[1])
	}
	names, category := discover.SplitQuery(query)
	out, _ := json.Marshal(map[string]any{"product_names": names, "product_type": category})
	return string(out)
}

func stubSpecs(prompt string) string {
	name := "Stub Product"
	if m := stubProductRe.FindStringSubmatch(prompt); m != nil && strings.TrimSpace(m[1]) != "" {
		name = strings.TrimSpace(m[1])
	}
	brand := strings.Fields(name)[0]
	out, _ := json.Marshal(map[string]any{
		"brand":   brand,
		"model":   name,
		"ram":     "8GB",
		"storage": "128GB",
		"battery": "5000 mAh",
		"price":   "$299",
	})
	return string(out)
}

func stubVerdict(prompt string) string {
	var names []string
	if m := stubNamesRe.FindStringSubmatch(prompt); m != nil {
		_ = json.Unmarshal([]byte(m[1]), &names)
	}
	winner := "Stub Product"
	if len(names) > 0 {
		winner = names[0]
	}
	out, _ := json.Marshal(model.ComparisonResult{
		UserPriority:           "overall value",
		PriorityRecommendation: model.Verdict{Aspect: "overall value", Winner: winner, Reason: "stub verdict"},
		AspectRecommendations: []model.AspectRecommendation{
			{Aspect: "price", Winner: winner, Reason: "stub verdict", Details: "stub details"},
		},
		OverallRecommendation: model.OverallRecommendation{Winner: winner, Summary: "Stub summary."},
	})
	return string(out)
}

// --- Serper Stub ---

// StubSerperClient implements serper.Client with two shopping results and two
// specification pages per query.
type StubSerperClient struct{}

// Shopping implements serper.Client.
func (s *StubSerperClient) Shopping(_ context.Context, query string, num int) ([]serper.ShoppingResult, error) {
	rating := 4.3
	slug := stubSlug(query)
	results := []serper.ShoppingResult{
		{Title: query, Source: "Amazon.in", Link: "https://www.amazon.in/dp/" + slug, Price: "₹19,999", ImageURL: "https://m.media-amazon.com/images/" + slug + ".jpg", Rating: &rating, Position: 1},
		{Title: query, Source: "Flipkart", Link: "https://www.flipkart.com/" + slug, Price: "₹20,499", Position: 2},
	}
	if num < len(results) {
		results = results[:num]
	}
	return results, nil
}

// Search implements serper.Client.
func (s *StubSerperClient) Search(_ context.Context, query string, num int) ([]serper.OrganicResult, error) {
	slug := stubSlug(query)
	results := []serper.OrganicResult{
		{Title: query + " - Full specifications", Link: "https://www.gsmarena.com/" + slug + ".php", Snippet: "Full specifications of " + query, Position: 1},
		{Title: query + " - Wikipedia", Link: "https://en.wikipedia.org/wiki/" + slug, Snippet: query + " overview", Position: 2},
	}
	if num < len(results) {
		results = results[:num]
	}
	return results, nil
}

func stubSlug(query string) string {
	if i := strings.Index(query, " ("); i >= 0 {
		query = query[:i]
	}
	slug := strings.Join(strings.Fields(strings.ToLower(query)), "-")
	if slug == "" {
		slug = "stub"
	}
	return url.PathEscape(slug)
}

// --- Fetcher Stub ---

// StubPageFetcher implements enrich.PageFetcher without network access.
type StubPageFetcher struct{}

// Fetch implements enrich.PageFetcher.
func (s *StubPageFetcher) Fetch(_ context.Context, rawURL string) model.FetchedPage {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return model.FetchedPage{URL: rawURL, SiteKind: model.SiteGeneric, Status: model.PageError, Reason: "invalid_url", Attempts: 1}
	}
	return model.FetchedPage{
		URL:         rawURL,
		SiteKind:    fetch.SiteKindOf(u.Host),
		Status:      model.PageSuccess,
		Attempts:    1,
		Title:       fmt.Sprintf("Stub page for %s", u.Host),
		RawSpecText: "RAM: 8GB\nStorage: 128GB\nBattery: 5000 mAh",
		CleanText:   "Stub page content.",
	}
}
