// Package oracle is the language-model boundary of the pipeline: a prompt
// goes in and raw text comes out. Parsing the text is the caller's job.
package oracle

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/product-compare/internal/cost"
	"github.com/sells-group/product-compare/internal/metrics"
	"github.com/sells-group/product-compare/internal/resilience"
	"github.com/sells-group/product-compare/pkg/anthropic"
)

// Phase names label oracle calls in logs and metrics.
const (
	PhaseDiscovery   = "discovery"
	PhasePreferences = "preferences"
	PhaseExtraction  = "extraction"
	PhaseComparison  = "comparison"
)

// ErrUnavailable is returned by the offline oracle.
var ErrUnavailable = eris.New("oracle: unavailable")

// Oracle completes a prompt.
type Oracle interface {
	Complete(ctx context.Context, phase, prompt string) (string, error)
}

// Func adapts a function to Oracle.
type Func func(ctx context.Context, phase, prompt string) (string, error)

// Complete implements Oracle.
func (f Func) Complete(ctx context.Context, phase, prompt string) (string, error) {
	return f(ctx, phase, prompt)
}

// Unavailable is an Oracle that always fails, forcing every deterministic
// fallback.
type Unavailable struct{}

// Complete implements Oracle.
func (Unavailable) Complete(context.Context, string, string) (string, error) {
	return "", ErrUnavailable
}

// Anthropic is an Oracle backed by the Messages API.
type Anthropic struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	retry     resilience.RetryConfig
	metrics   *metrics.Metrics
	calc      *cost.Calculator
}

// AnthropicOption configures an Anthropic oracle.
type AnthropicOption func(*Anthropic)

// WithMetrics records calls and token usage.
func WithMetrics(m *metrics.Metrics) AnthropicOption {
	return func(a *Anthropic) { a.metrics = m }
}

// WithCost prices each call with calc instead of the default rates.
func WithCost(calc *cost.Calculator) AnthropicOption {
	return func(a *Anthropic) { a.calc = calc }
}

// WithRetry enables retries of transient API errors. Without it every
// Complete makes exactly one API call.
func WithRetry(cfg resilience.RetryConfig) AnthropicOption {
	return func(a *Anthropic) { a.retry = cfg }
}

// NewAnthropic creates an oracle for model.
func NewAnthropic(client anthropic.Client, model string, maxTokens int64, opts ...AnthropicOption) *Anthropic {
	a := &Anthropic{
		client:    client,
		model:     model,
		maxTokens: maxTokens,
		retry:     resilience.RetryConfig{MaxAttempts: 1},
		calc:      cost.NewCalculator(cost.Rates{}),
	}
	if a.maxTokens <= 0 {
		a.maxTokens = 2048
	}
	for _, o := range opts {
		o(a)
	}
	a.retry.OnRetry = resilience.RetryLogger("anthropic", "create_message")
	return a
}

// Complete implements Oracle.
func (a *Anthropic) Complete(ctx context.Context, phase, prompt string) (string, error) {
	start := time.Now()
	resp, err := resilience.DoVal(ctx, a.retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return a.client.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     a.model,
			MaxTokens: a.maxTokens,
			Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
		})
	})
	if err != nil {
		a.metrics.OracleCall(phase, 0, 0, err)
		return "", eris.Wrapf(err, "oracle: %s", phase)
	}

	a.metrics.OracleCall(phase, resp.Usage.InputTokens, resp.Usage.OutputTokens, nil)
	usd := a.calc.Claude(a.model, resp.Usage.InputTokens, resp.Usage.OutputTokens)
	a.metrics.OracleSpend(phase, usd)
	zap.L().Info("oracle: cost attribution",
		zap.String("model", a.model),
		zap.String("phase", phase),
		zap.Int64("input_tokens", resp.Usage.InputTokens),
		zap.Int64("output_tokens", resp.Usage.OutputTokens),
		zap.Float64("estimated_cost_usd", usd),
	)

	text := strings.TrimSpace(resp.Text())
	zap.L().Debug("oracle: completion",
		zap.String("phase", phase),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("chars", len(text)),
		zap.String("stop_reason", resp.StopReason),
	)
	if text == "" {
		return "", eris.Errorf("oracle: %s: empty response", phase)
	}
	return text, nil
}
