// Package metrics exposes Prometheus collectors for the comparison pipeline.
// All recording methods are safe on a nil *Metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles collectors on a dedicated registry.
type Metrics struct {
	Registry *prometheus.Registry

	FetchAttempts  *prometheus.CounterVec
	FetchOutcomes  *prometheus.CounterVec
	FetchDuration  *prometheus.HistogramVec
	SearchCalls    *prometheus.CounterVec
	OracleCalls    *prometheus.CounterVec
	OracleTokens   *prometheus.CounterVec
	OracleCost     *prometheus.CounterVec
	PipelineRuns   *prometheus.CounterVec
	PipelineTiming prometheus.Histogram
}

// New constructs and registers all collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		FetchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "compare_fetch_attempts_total",
			Help: "Page fetch attempts by transport and attempt state.",
		}, []string{"transport", "state"}),
		FetchOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "compare_fetch_outcomes_total",
			Help: "Final page fetch outcomes by site kind and failure reason.",
		}, []string{"site_kind", "status", "reason"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "compare_fetch_duration_seconds",
			Help:    "Wall time of a page fetch including retries.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
		}, []string{"status"}),
		SearchCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "compare_search_calls_total",
			Help: "Search backend calls by backend and outcome.",
		}, []string{"backend", "outcome"}),
		OracleCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "compare_oracle_calls_total",
			Help: "Language model calls by phase and outcome.",
		}, []string{"phase", "outcome"}),
		OracleTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "compare_oracle_tokens_total",
			Help: "Language model tokens by direction.",
		}, []string{"direction"}),
		OracleCost: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "compare_oracle_cost_usd_total",
			Help: "Estimated language model spend in USD by phase.",
		}, []string{"phase"}),
		PipelineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "compare_pipeline_runs_total",
			Help: "Comparison runs by final status.",
		}, []string{"status"}),
		PipelineTiming: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "compare_pipeline_duration_seconds",
			Help:    "End-to-end comparison latency.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 9),
		}),
	}

	reg.MustRegister(
		m.FetchAttempts, m.FetchOutcomes, m.FetchDuration,
		m.SearchCalls, m.OracleCalls, m.OracleTokens, m.OracleCost,
		m.PipelineRuns, m.PipelineTiming,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// FetchAttempt counts one transport attempt.
func (m *Metrics) FetchAttempt(transport, state string) {
	if m == nil {
		return
	}
	m.FetchAttempts.WithLabelValues(transport, state).Inc()
}

// FetchOutcome records the final outcome of a fetch.
func (m *Metrics) FetchOutcome(siteKind, status, reason string, d time.Duration) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "none"
	}
	m.FetchOutcomes.WithLabelValues(siteKind, status, reason).Inc()
	m.FetchDuration.WithLabelValues(status).Observe(d.Seconds())
}

// SearchCall records a search backend call.
func (m *Metrics) SearchCall(backend string, err error) {
	if m == nil {
		return
	}
	m.SearchCalls.WithLabelValues(backend, outcome(err)).Inc()
}

// OracleCall records a language model call and its token usage.
func (m *Metrics) OracleCall(phase string, inputTokens, outputTokens int64, err error) {
	if m == nil {
		return
	}
	m.OracleCalls.WithLabelValues(phase, outcome(err)).Inc()
	if inputTokens > 0 {
		m.OracleTokens.WithLabelValues("input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		m.OracleTokens.WithLabelValues("output").Add(float64(outputTokens))
	}
}

// OracleSpend adds the estimated cost of one call.
func (m *Metrics) OracleSpend(phase string, usd float64) {
	if m == nil || usd <= 0 {
		return
	}
	m.OracleCost.WithLabelValues(phase).Add(usd)
}

// PipelineRun records a finished comparison run.
func (m *Metrics) PipelineRun(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.PipelineRuns.WithLabelValues(status).Inc()
	m.PipelineTiming.Observe(d.Seconds())
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
