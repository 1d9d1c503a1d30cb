package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/product-compare/internal/config"
	"github.com/sells-group/product-compare/internal/cost"
	"github.com/sells-group/product-compare/internal/discover"
	"github.com/sells-group/product-compare/internal/enrich"
	"github.com/sells-group/product-compare/internal/fetch"
	"github.com/sells-group/product-compare/internal/metrics"
	"github.com/sells-group/product-compare/internal/monitoring"
	"github.com/sells-group/product-compare/internal/normalize"
	"github.com/sells-group/product-compare/internal/oracle"
	"github.com/sells-group/product-compare/internal/pipeline"
	"github.com/sells-group/product-compare/internal/resilience"
	"github.com/sells-group/product-compare/internal/search"
	"github.com/sells-group/product-compare/internal/store"
	anthropicpkg "github.com/sells-group/product-compare/pkg/anthropic"
	"github.com/sells-group/product-compare/pkg/serper"
)

// pipelineEnv holds the initialized store, metrics and pipeline used by the
// compare and serve commands.
type pipelineEnv struct {
	Store    store.Store
	Metrics  *metrics.Metrics
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initMode selects which collaborators are real.
type initMode struct {
	// Offline replaces the oracle with one that always fails.
	Offline bool
	// DryRun replaces every external collaborator with canned stubs.
	DryRun bool
}

// initPipeline builds clients, the run ledger and the Pipeline from cfg.
// Callers should defer env.Close().
func initPipeline(ctx context.Context, c *config.Config, mode initMode) (*pipelineEnv, error) {
	if mode.Offline {
		c.Pipeline.Offline = true
	}
	if !mode.DryRun {
		if err := c.Validate("compare"); err != nil {
			return nil, err
		}
	}

	st, err := initStore(ctx, c)
	if err != nil {
		return nil, err
	}

	m := metrics.New()

	var (
		serperClient    serper.Client
		anthropicClient anthropicpkg.Client
		pages           enrich.PageFetcher
	)
	if mode.DryRun {
		zap.L().Info("dry run: using stub clients")
		serperClient = &pipeline.StubSerperClient{}
		anthropicClient = &pipeline.StubAnthropicClient{}
		pages = &pipeline.StubPageFetcher{}
	} else {
		serperClient = serper.NewClient(c.Serper.Key,
			serper.WithBaseURL(c.Serper.BaseURL),
			serper.WithLocale(c.Serper.GL, c.Serper.HL),
			serper.WithRateLimit(c.Serper.RequestsPerSecond),
			serper.WithHTTPClient(&http.Client{Timeout: seconds(c.Serper.TimeoutSecs)}),
		)
		if c.Anthropic.Key != "" {
			anthropicClient = anthropicpkg.NewClient(c.Anthropic.Key)
		}
		pages = initFetcher(c.Fetch, m)
	}

	var o oracle.Oracle
	switch {
	case c.Pipeline.Offline:
		zap.L().Warn("oracle disabled, using deterministic fallbacks")
		o = oracle.Unavailable{}
	default:
		o = oracle.NewAnthropic(anthropicClient, c.Anthropic.Model, c.Anthropic.MaxTokens,
			oracle.WithMetrics(m),
			oracle.WithCost(cost.NewCalculator(c.Pricing)),
		)
	}

	cacheTTL := time.Duration(c.Search.CacheTTLMins) * time.Minute
	retriever := search.NewRetriever(
		search.NewCachedBackend(search.NewShoppingBackend(serperClient), c.Search.CacheSize, cacheTTL),
		search.NewCachedBackend(search.NewOrganicBackend(serperClient), c.Search.CacheSize, cacheTTL),
		search.WithRegion(c.Serper.Region),
		search.WithCurrency(c.Pipeline.TargetCurrency),
		search.WithBreakers(resilience.BreakerConfigFrom(c.Search.BreakerFailures, c.Search.BreakerResetSecs)),
		search.WithMetrics(m),
	)

	enrichOpts := []enrich.Option{enrich.WithCurrency(c.Pipeline.TargetCurrency)}
	if c.Fetch.InterFetchDelay && !mode.DryRun {
		enrichOpts = append(enrichOpts, enrich.WithDelay(millis(c.Fetch.MinDelayMs), millis(c.Fetch.MaxDelayMs)))
	} else {
		enrichOpts = append(enrichOpts, enrich.WithDelay(0, 0))
	}

	p := pipeline.New(
		discover.New(o, retriever,
			discover.WithCandidates(c.Search.ResultsPerProduct),
			discover.WithCurrency(c.Pipeline.TargetCurrency),
		),
		enrich.New(pages, enrichOpts...),
		normalize.New(o,
			normalize.WithCurrencies(c.Pipeline.TargetCurrency, c.Pipeline.SourceCurrency),
			normalize.WithExchangeRate(c.Pipeline.ExchangeRate),
		),
		st,
		pipeline.WithMetrics(m),
		pipeline.WithCurrency(c.Pipeline.TargetCurrency),
	)

	zap.L().Info("pipeline initialized",
		zap.Bool("offline", c.Pipeline.Offline),
		zap.Bool("dry_run", mode.DryRun),
		zap.String("store", c.Store.Driver),
		zap.String("escalation", c.Fetch.Escalation),
	)
	return &pipelineEnv{Store: st, Metrics: m, Pipeline: p}, nil
}

// initFetcher picks the escalated transport: uTLS by default, headless
// Chrome when escalation is "browser".
func initFetcher(fc config.FetchConfig, m *metrics.Metrics) *fetch.Fetcher {
	timeout := seconds(fc.TimeoutSecs)
	var escalated fetch.Transport = fetch.NewStealthTransport(timeout, fc.MaxBodyBytes)
	if fc.Escalation == "browser" {
		escalated = fetch.NewBrowserTransport(millis(fc.BrowserWaitMs), timeout)
	}
	return fetch.New(fetch.NewPlainTransport(timeout, fc.MaxBodyBytes), escalated,
		fetch.WithMaxAttempts(fc.MaxAttempts),
		fetch.WithDelay(millis(fc.MinDelayMs), millis(fc.MaxDelayMs)),
		fetch.WithMetrics(m),
	)
}

// initStore opens and migrates the run ledger.
func initStore(ctx context.Context, c *config.Config) (store.Store, error) {
	st, err := store.Open(ctx, c.Store.Driver, c.Store.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

func millis(n int) time.Duration { return time.Duration(n) * time.Millisecond }

// newChecker builds the ledger health checker.
func newChecker(mc config.MonitoringConfig, st store.Store) *monitoring.Checker {
	return monitoring.NewChecker(monitoring.NewCollector(st), monitoring.NewAlerter(mc), mc)
}
