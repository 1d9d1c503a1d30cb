// Package monitoring watches the run ledger and raises webhook alerts when
// comparisons start failing, pages stop loading, or runs slow down.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/product-compare/internal/model"
	"github.com/sells-group/product-compare/internal/store"
)

// maxRunsPerSnapshot caps how many ledger rows one collection reads.
const maxRunsPerSnapshot = 10000

// Snapshot holds a point-in-time view of comparison health.
type Snapshot struct {
	RunsTotal    int `json:"runs_total"`
	RunsComplete int `json:"runs_complete"`
	RunsRejected int `json:"runs_rejected"`
	RunsFailed   int `json:"runs_failed"`
	RunsRunning  int `json:"runs_running"`

	// FailRate is failed / finished; rejected runs count as finished.
	FailRate float64 `json:"fail_rate"`

	URLsFetched      int     `json:"urls_fetched"`
	URLsFailed       int     `json:"urls_failed"`
	FetchSuccessRate float64 `json:"fetch_success_rate"`

	AvgDurationSecs float64 `json:"avg_duration_secs"`
	MaxDurationSecs float64 `json:"max_duration_secs"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Finished is the number of runs that reached a terminal status.
func (s *Snapshot) Finished() int {
	return s.RunsComplete + s.RunsRejected + s.RunsFailed
}

// RunLister is the slice of the ledger the collector reads.
type RunLister interface {
	ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error)
}

// Collector gathers snapshots from the run ledger.
type Collector struct {
	runs RunLister
	now  func() time.Time
}

// NewCollector creates a new snapshot collector.
func NewCollector(runs RunLister) *Collector {
	return &Collector{runs: runs, now: time.Now}
}

// Collect summarizes the runs created within the lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*Snapshot, error) {
	now := c.now().UTC()
	snap := &Snapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}

	runs, err := c.runs.ListRuns(ctx, store.RunFilter{
		CreatedAfter: now.Add(-time.Duration(lookbackHours) * time.Hour),
		Limit:        maxRunsPerSnapshot,
	})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	snap.RunsTotal = len(runs)
	var totalMs, maxMs int64
	for _, r := range runs {
		switch r.Status {
		case model.RunStatusComplete:
			snap.RunsComplete++
			totalMs += r.DurationMs
			maxMs = max(maxMs, r.DurationMs)
		case model.RunStatusRejected:
			snap.RunsRejected++
		case model.RunStatusFailed:
			snap.RunsFailed++
		case model.RunStatusRunning:
			snap.RunsRunning++
		}
		snap.URLsFetched += r.URLsFetched
		snap.URLsFailed += r.URLsFailed
	}

	if finished := snap.Finished(); finished > 0 {
		snap.FailRate = float64(snap.RunsFailed) / float64(finished)
	}
	if attempted := snap.URLsFetched + snap.URLsFailed; attempted > 0 {
		snap.FetchSuccessRate = float64(snap.URLsFetched) / float64(attempted)
	}
	if snap.RunsComplete > 0 {
		snap.AvgDurationSecs = float64(totalMs) / float64(snap.RunsComplete) / 1000
	}
	snap.MaxDurationSecs = float64(maxMs) / 1000

	return snap, nil
}
