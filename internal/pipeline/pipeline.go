// Package pipeline runs one comparison request through discovery,
// enrichment and normalization, and records it in the run ledger.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/product-compare/internal/discover"
	"github.com/sells-group/product-compare/internal/enrich"
	"github.com/sells-group/product-compare/internal/metrics"
	"github.com/sells-group/product-compare/internal/model"
	"github.com/sells-group/product-compare/internal/normalize"
	"github.com/sells-group/product-compare/internal/store"
)

// Phase names as recorded in the ledger.
const (
	PhaseDiscover  = "discover"
	PhaseEnrich    = "enrich"
	PhaseNormalize = "normalize"
)

// Discoverer finds products for a query.
type Discoverer interface {
	Discover(ctx context.Context, query string) discover.Result
}

// Enricher fetches pages for products in place.
type Enricher interface {
	Enrich(ctx context.Context, products []*model.Product) enrich.Stats
}

// Normalizer extracts specifications and compares products in place.
type Normalizer interface {
	Normalize(ctx context.Context, query string, category model.Category, products []*model.Product) normalize.Result
}

// Pipeline orchestrates the three stages for a single query.
type Pipeline struct {
	discoverer Discoverer
	enricher   Enricher
	normalizer Normalizer
	store      store.Store
	metrics    *metrics.Metrics
	currency   string
	now        func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMetrics records run outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithCurrency sets the marker of prices copied into specifications.
func WithCurrency(marker string) Option {
	return func(p *Pipeline) { p.currency = marker }
}

// WithClock overrides the response timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a Pipeline. A nil store disables the ledger.
func New(d Discoverer, e Enricher, n Normalizer, st store.Store, opts ...Option) *Pipeline {
	if st == nil {
		st = store.NewNop()
	}
	p := &Pipeline{
		discoverer: d,
		enricher:   e,
		normalizer: n,
		store:      st,
		currency:   "₹",
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes one comparison. Errors matching model.IsUserError mean the
// query named too few products; any other error is internal.
func (p *Pipeline) Run(ctx context.Context, query string) (*Response, error) {
	query = strings.TrimSpace(query)
	start := time.Now()

	run, err := p.store.CreateRun(ctx, query)
	if err != nil {
		zap.L().Warn("pipeline: failed to create run", zap.Error(err))
		run = &model.Run{ID: uuid.New().String(), Query: query, Status: model.RunStatusRunning, CreatedAt: start}
	}
	log := zap.L().With(zap.String("run_id", run.ID), zap.String("query", query))
	log.Info("pipeline: starting comparison")

	trackPhase := func(name string, fn func() error) error {
		phase, phaseErr := p.store.CreatePhase(ctx, run.ID, name)
		if phaseErr != nil {
			log.Warn("pipeline: failed to create phase", zap.String("phase", name), zap.Error(phaseErr))
			phase = &model.RunPhase{RunID: run.ID, Name: name}
		}

		phaseStart := time.Now()
		fnErr := fn()
		phase.DurationMs = time.Since(phaseStart).Milliseconds()

		if fnErr != nil {
			phase.Status = model.PhaseStatusFailed
			phase.Error = fnErr.Error()
			log.Error("pipeline: phase failed",
				zap.String("phase", name),
				zap.Int64("duration_ms", phase.DurationMs),
				zap.Error(fnErr),
			)
		} else {
			phase.Status = model.PhaseStatusComplete
			log.Info("pipeline: phase complete",
				zap.String("phase", name),
				zap.Int64("duration_ms", phase.DurationMs),
			)
		}

		if phase.ID != "" {
			if err := p.store.CompletePhase(context.WithoutCancel(ctx), phase); err != nil {
				log.Warn("pipeline: failed to complete phase", zap.String("phase", name), zap.Error(err))
			}
		}
		run.Phases = append(run.Phases, *phase)
		return fnErr
	}

	resp, err := p.execute(ctx, query, run, trackPhase)

	duration := time.Since(start)
	run.DurationMs = duration.Milliseconds()
	switch {
	case err == nil:
		run.Status = model.RunStatusComplete
	case model.IsUserError(err):
		run.Status = model.RunStatusRejected
		run.Error = err.Error()
	default:
		run.Status = model.RunStatusFailed
		run.Error = err.Error()
	}
	if finishErr := p.store.FinishRun(context.WithoutCancel(ctx), run); finishErr != nil {
		log.Warn("pipeline: failed to finish run", zap.Error(finishErr))
	}
	p.metrics.PipelineRun(string(run.Status), duration)

	if err != nil {
		log.Warn("pipeline: comparison ended without result", zap.String("status", string(run.Status)), zap.Error(err))
		return nil, err
	}
	log.Info("pipeline: comparison complete",
		zap.Int("products", run.ProductsFound),
		zap.Int("urls_fetched", run.URLsFetched),
		zap.Int64("duration_ms", run.DurationMs),
	)
	return resp, nil
}

func (p *Pipeline) execute(ctx context.Context, query string, run *model.Run, trackPhase func(string, func() error) error) (*Response, error) {
	var found discover.Result
	err := trackPhase(PhaseDiscover, func() error {
		found = p.discoverer.Discover(ctx, query)
		switch found.Status {
		case discover.StatusError:
			if found.Err == nil {
				return eris.New("pipeline: discover failed")
			}
			return eris.Wrap(found.Err, "pipeline: discover")
		case discover.StatusNoProducts:
			return eris.Wrap(model.ErrNoProductsFound, "pipeline: could not find products in query")
		}
		if n := len(found.Products); n < 2 {
			return eris.Wrapf(model.ErrNotEnoughProducts, "pipeline: found only %d product(s), need at least 2 to compare", n)
		}
		return nil
	})
	run.ProductType = found.Category
	run.ProductsFound = len(found.Products)
	if err != nil {
		return nil, err
	}

	var stats enrich.Stats
	if err := trackPhase(PhaseEnrich, func() error {
		stats = p.enricher.Enrich(ctx, found.Products)
		return ctx.Err()
	}); err != nil {
		return nil, eris.Wrap(err, "pipeline: enrich")
	}
	run.URLsFetched = stats.URLsFetched
	run.URLsFailed = stats.URLsFailed

	var normalized normalize.Result
	if err := trackPhase(PhaseNormalize, func() error {
		normalized = p.normalizer.Normalize(ctx, query, found.Category, found.Products)
		return ctx.Err()
	}); err != nil {
		return nil, eris.Wrap(err, "pipeline: normalize")
	}

	resp := BuildResponse(query, found.Category, found.Products, normalized, stats, p.currency, p.now())
	resp.RunID = run.ID
	return resp, nil
}
