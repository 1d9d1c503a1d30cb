package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/product-compare/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertFailureRate  AlertType = "comparison_failure_rate"
	AlertFetchSuccess AlertType = "fetch_success_rate"
	AlertSlowRuns     AlertType = "slow_runs"
)

// Minimum sample sizes before a rate is trusted.
const (
	minFinishedRuns  = 5
	minFetchAttempts = 10
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a Snapshot against configured thresholds
// and sends alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *Snapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	finished := snap.Finished()
	if a.cfg.FailureRateThreshold > 0 && finished >= minFinishedRuns && snap.FailRate > a.cfg.FailureRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertFailureRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"Comparison failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d finished in last %dh)",
				snap.FailRate*100, a.cfg.FailureRateThreshold*100,
				snap.RunsFailed, finished, snap.LookbackHours,
			),
			Details: map[string]any{
				"failure_rate": snap.FailRate,
				"threshold":    a.cfg.FailureRateThreshold,
				"failed":       snap.RunsFailed,
				"finished":     finished,
			},
			Timestamp: now,
		})
	}

	attempted := snap.URLsFetched + snap.URLsFailed
	if a.cfg.FetchSuccessThreshold > 0 && attempted >= minFetchAttempts && snap.FetchSuccessRate < a.cfg.FetchSuccessThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertFetchSuccess,
			Severity: "medium",
			Message: fmt.Sprintf(
				"Page fetch success %.1f%% below threshold %.1f%% (%d of %d pages in last %dh)",
				snap.FetchSuccessRate*100, a.cfg.FetchSuccessThreshold*100,
				snap.URLsFetched, attempted, snap.LookbackHours,
			),
			Details: map[string]any{
				"fetch_success_rate": snap.FetchSuccessRate,
				"threshold":          a.cfg.FetchSuccessThreshold,
				"fetched":            snap.URLsFetched,
				"failed":             snap.URLsFailed,
			},
			Timestamp: now,
		})
	}

	if a.cfg.SlowRunSecs > 0 && snap.RunsComplete > 0 && snap.AvgDurationSecs > float64(a.cfg.SlowRunSecs) {
		alerts = append(alerts, Alert{
			Type:     AlertSlowRuns,
			Severity: "medium",
			Message: fmt.Sprintf(
				"Average comparison took %.1fs, over the %ds limit (%d complete runs in last %dh, slowest %.1fs)",
				snap.AvgDurationSecs, a.cfg.SlowRunSecs,
				snap.RunsComplete, snap.LookbackHours, snap.MaxDurationSecs,
			),
			Details: map[string]any{
				"avg_duration_secs": snap.AvgDurationSecs,
				"max_duration_secs": snap.MaxDurationSecs,
				"threshold_secs":    a.cfg.SlowRunSecs,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
