package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/product-compare/internal/config"
)

func thresholds() config.MonitoringConfig {
	return config.MonitoringConfig{
		FailureRateThreshold:  0.10,
		FetchSuccessThreshold: 0.50,
		SlowRunSecs:           120,
	}
}

func TestAlerter_Evaluate_NoAlerts(t *testing.T) {
	a := NewAlerter(thresholds())

	snap := &Snapshot{
		RunsTotal:        100,
		RunsComplete:     90,
		RunsRejected:     5,
		RunsFailed:       5,
		FailRate:         0.05,
		URLsFetched:      400,
		URLsFailed:       100,
		FetchSuccessRate: 0.8,
		AvgDurationSecs:  45,
		LookbackHours:    24,
	}

	assert.Empty(t, a.Evaluate(snap))
}

func TestAlerter_Evaluate_FailureRate(t *testing.T) {
	a := NewAlerter(thresholds())

	snap := &Snapshot{
		RunsTotal:     20,
		RunsComplete:  12,
		RunsFailed:    8,
		FailRate:      0.4,
		LookbackHours: 24,
	}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertFailureRate, alerts[0].Type)
	assert.Equal(t, "high", alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "40.0%")
	assert.Contains(t, alerts[0].Message, "8 failed / 20 finished")
}

func TestAlerter_Evaluate_FetchSuccess(t *testing.T) {
	a := NewAlerter(thresholds())

	snap := &Snapshot{
		RunsComplete:     6,
		URLsFetched:      6,
		URLsFailed:       18,
		FetchSuccessRate: 0.25,
		LookbackHours:    6,
	}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertFetchSuccess, alerts[0].Type)
	assert.Contains(t, alerts[0].Message, "25.0%")
	assert.Contains(t, alerts[0].Message, "6 of 24 pages")
}

func TestAlerter_Evaluate_SlowRuns(t *testing.T) {
	a := NewAlerter(thresholds())

	snap := &Snapshot{
		RunsComplete:    3,
		AvgDurationSecs: 150,
		MaxDurationSecs: 210,
		LookbackHours:   24,
	}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertSlowRuns, alerts[0].Type)
	assert.Contains(t, alerts[0].Message, "150.0s")
	assert.Contains(t, alerts[0].Message, "slowest 210.0s")
}

func TestAlerter_Evaluate_MultipleAlerts(t *testing.T) {
	a := NewAlerter(thresholds())

	snap := &Snapshot{
		RunsComplete:     10,
		RunsFailed:       10,
		FailRate:         0.5,
		URLsFetched:      10,
		URLsFailed:       40,
		FetchSuccessRate: 0.2,
		AvgDurationSecs:  300,
		LookbackHours:    24,
	}

	alerts := a.Evaluate(snap)
	assert.Len(t, alerts, 3)

	types := make(map[AlertType]bool)
	for _, a := range alerts {
		types[a.Type] = true
	}
	assert.True(t, types[AlertFailureRate])
	assert.True(t, types[AlertFetchSuccess])
	assert.True(t, types[AlertSlowRuns])
}

func TestAlerter_Evaluate_MinimumSamplesRequired(t *testing.T) {
	a := NewAlerter(thresholds())

	// 3 finished runs and 6 page attempts, both below the minimums.
	snap := &Snapshot{
		RunsComplete:     1,
		RunsFailed:       2,
		FailRate:         0.666,
		URLsFetched:      1,
		URLsFailed:       5,
		FetchSuccessRate: 1.0 / 6.0,
		LookbackHours:    24,
	}

	assert.Empty(t, a.Evaluate(snap))
}

func TestAlerter_Evaluate_ZeroThresholdsDisable(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{})

	snap := &Snapshot{
		RunsComplete:     10,
		RunsFailed:       10,
		FailRate:         0.5,
		URLsFetched:      1,
		URLsFailed:       99,
		FetchSuccessRate: 0.01,
		AvgDurationSecs:  999,
		LookbackHours:    24,
	}

	assert.Empty(t, a.Evaluate(snap))
}

func TestAlerter_SendAlerts_Webhook(t *testing.T) {
	var received atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var alert Alert
		err := json.NewDecoder(r.Body).Decode(&alert)
		require.NoError(t, err)
		assert.NotEmpty(t, alert.Type)
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: ts.URL})

	alerts := []Alert{
		{Type: AlertFailureRate, Severity: "high", Message: "test alert 1"},
		{Type: AlertSlowRuns, Severity: "medium", Message: "test alert 2"},
	}

	sent := a.SendAlerts(context.Background(), alerts)
	assert.Equal(t, 2, sent)
	assert.Equal(t, int32(2), received.Load())
}

func TestAlerter_SendAlerts_EmptyURL(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{WebhookURL: ""})

	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertFailureRate, Message: "test"}})
	assert.Equal(t, 0, sent)
}

func TestAlerter_SendAlerts_EmptyAlerts(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{WebhookURL: "http://example.com"})

	assert.Equal(t, 0, a.SendAlerts(context.Background(), nil))
}

func TestAlerter_SendAlerts_WebhookError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: ts.URL})

	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertFetchSuccess, Message: "test"}})
	assert.Equal(t, 0, sent)
}
