// Package serper provides a client for the Serper Google search API
// (organic web results and Google Shopping results).
package serper

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/product-compare/internal/resilience"
)

// Client defines the Serper operations.
type Client interface {
	// Shopping queries Google Shopping and returns priced listings.
	Shopping(ctx context.Context, query string, num int) ([]ShoppingResult, error)
	// Search queries Google web search and returns organic results.
	Search(ctx context.Context, query string, num int) ([]OrganicResult, error)
}

// ShoppingResult is one Google Shopping listing.
type ShoppingResult struct {
	Title    string   `json:"title"`
	Source   string   `json:"source"`
	Link     string   `json:"link"`
	Price    string   `json:"price"`
	ImageURL string   `json:"imageUrl"`
	Rating   *float64 `json:"rating,omitempty"`
	Position int      `json:"position"`
}

// OrganicResult is one web search hit.
type OrganicResult struct {
	Title    string `json:"title"`
	Link     string `json:"link"`
	Snippet  string `json:"snippet"`
	Position int    `json:"position"`
}

type shoppingResponse struct {
	Shopping []ShoppingResult `json:"shopping"`
}

type searchResponse struct {
	Organic []OrganicResult `json:"organic"`
}

type request struct {
	Q   string `json:"q"`
	GL  string `json:"gl,omitempty"`
	HL  string `json:"hl,omitempty"`
	Num int    `json:"num,omitempty"`
}

// Option configures the Serper client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithLocale sets the country (gl) and language (hl) sent with every query.
func WithLocale(gl, hl string) Option {
	return func(c *httpClient) {
		c.gl, c.hl = gl, hl
	}
}

// WithRateLimit caps outgoing requests per second. Zero disables limiting.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

// WithMaxAttempts enables retries of 429 and 5xx responses and connection
// failures. The default is a single attempt.
func WithMaxAttempts(n int) Option {
	return func(c *httpClient) {
		c.maxAttempts = n
	}
}

// WithBackoff sets the initial retry backoff.
func WithBackoff(d time.Duration) Option {
	return func(c *httpClient) {
		c.backoff = d
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	gl, hl  string
	http    *http.Client
	limiter *rate.Limiter
	backoff time.Duration

	maxAttempts int
}

// NewClient creates a new Serper client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://google.serper.dev",
		gl:      "in",
		hl:      "en",
		http: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(5, 5),
		backoff:     time.Second,
		maxAttempts: 1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// retryableStatusCode returns true if the HTTP status code is worth retrying
// when retries are enabled.
func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusInternalServerError ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable
}

// post sends payload to path and returns the response body. It makes a
// single attempt unless WithMaxAttempts raised the limit.
func (c *httpClient) post(ctx context.Context, path string, payload request) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrap(err, "serper: marshal request")
	}

	cfg := resilience.RetryConfig{
		MaxAttempts:    max(c.maxAttempts, 1),
		InitialBackoff: c.backoff,
		OnRetry:        resilience.RetryLogger("serper", path),
	}
	return resilience.DoVal(ctx, cfg, func(ctx context.Context) ([]byte, error) {
		return c.do(ctx, path, data)
	})
}

func (c *httpClient) do(ctx context.Context, path string, data []byte) ([]byte, error) {
	if err := c.wait(ctx); err != nil {
		return nil, eris.Wrap(err, "serper: rate limit wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, eris.Wrap(err, "serper: create request")
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "serper: request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "serper: read response body")
	}
	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case retryableStatusCode(resp.StatusCode):
		return nil, resilience.NewTransientError(
			eris.Errorf("serper: status %d: %s", resp.StatusCode, string(body)), resp.StatusCode)
	default:
		return nil, eris.Errorf("serper: unexpected status %d: %s", resp.StatusCode, string(body))
	}
}
