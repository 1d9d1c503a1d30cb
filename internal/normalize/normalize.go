// Package normalize turns enriched products into flat, canonically keyed
// specifications and produces the final recommendation.
package normalize

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/product-compare/internal/jsonx"
	"github.com/sells-group/product-compare/internal/model"
	"github.com/sells-group/product-compare/internal/oracle"
)

const maxPreferences = 3

// DefaultPriority is used when no preference was detected.
const DefaultPriority = "overall value"

// Normalizer runs the extraction and comparison steps.
type Normalizer struct {
	oracle  oracle.Oracle
	target  string
	source  string
	rate    float64
	printer *message.Printer
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithCurrencies sets the target currency marker prices are reported in and
// the source marker that gets converted.
func WithCurrencies(target, source string) Option {
	return func(n *Normalizer) {
		if target != "" {
			n.target = target
		}
		if source != "" {
			n.source = source
		}
	}
}

// WithExchangeRate sets the source-to-target conversion factor.
func WithExchangeRate(rate float64) Option {
	return func(n *Normalizer) {
		if rate > 0 {
			n.rate = rate
		}
	}
}

// New creates a Normalizer.
func New(o oracle.Oracle, opts ...Option) *Normalizer {
	n := &Normalizer{
		oracle:  o,
		target:  "₹",
		source:  "$",
		rate:    83.0,
		printer: message.NewPrinter(language.English),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Result is the output of Normalize.
type Result struct {
	Preferences []string
	Comparison  model.ComparisonResult
}

// Normalize extracts specifications for every product in place and compares
// them. It never fails; degraded steps are visible on product status and
// Comparison.Status.
func (n *Normalizer) Normalize(ctx context.Context, query string, category model.Category, products []*model.Product) Result {
	prefs := n.Preferences(ctx, query, category)
	zap.L().Info("normalize: preferences detected", zap.Strings("preferences", prefs))

	for _, p := range products {
		n.Extract(ctx, p, category)
	}
	return Result{
		Preferences: prefs,
		Comparison:  n.Compare(ctx, query, prefs, category, products),
	}
}

// Preferences asks the oracle for up to three priority keywords. An empty
// query or any failure yields no preferences.
func (n *Normalizer) Preferences(ctx context.Context, query string, category model.Category) []string {
	if strings.TrimSpace(query) == "" {
		return nil
	}
	raw, err := n.oracle.Complete(ctx, oracle.PhasePreferences, PreferencesPrompt(query, category))
	if err != nil {
		zap.L().Warn("normalize: preference detection failed", zap.Error(err))
		return nil
	}
	prefs, err := jsonx.Strings(raw)
	if err != nil {
		zap.L().Warn("normalize: preference response has no array", zap.Error(err))
		return nil
	}
	if len(prefs) > maxPreferences {
		prefs = prefs[:maxPreferences]
	}
	return prefs
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
