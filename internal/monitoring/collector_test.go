package monitoring

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/product-compare/internal/model"
	"github.com/sells-group/product-compare/internal/store"
)

// fakeLedger implements RunLister over an in-memory slice.
type fakeLedger struct {
	runs    []model.Run
	listErr error
	filters []store.RunFilter
}

func (f *fakeLedger) ListRuns(_ context.Context, filter store.RunFilter) ([]model.Run, error) {
	f.filters = append(f.filters, filter)
	if f.listErr != nil {
		return nil, f.listErr
	}
	var filtered []model.Run
	for _, r := range f.runs {
		if !filter.CreatedAfter.IsZero() && r.CreatedAt.Before(filter.CreatedAfter) {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered, nil
}

func TestCollector_EmptyLedger(t *testing.T) {
	c := NewCollector(&fakeLedger{})

	snap, err := c.Collect(context.Background(), 24)
	require.NoError(t, err)

	assert.Equal(t, 0, snap.RunsTotal)
	assert.Equal(t, 0.0, snap.FailRate)
	assert.Equal(t, 0.0, snap.FetchSuccessRate)
	assert.Equal(t, 0.0, snap.AvgDurationSecs)
	assert.Equal(t, 24, snap.LookbackHours)
	assert.False(t, snap.CollectedAt.IsZero())
}

func TestCollector_RunMetrics(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	ledger := &fakeLedger{
		runs: []model.Run{
			{ID: "1", Status: model.RunStatusComplete, DurationMs: 20000, URLsFetched: 5, URLsFailed: 1, CreatedAt: now.Add(-1 * time.Hour)},
			{ID: "2", Status: model.RunStatusComplete, DurationMs: 40000, URLsFetched: 3, URLsFailed: 3, CreatedAt: now.Add(-2 * time.Hour)},
			{ID: "3", Status: model.RunStatusRejected, DurationMs: 800, CreatedAt: now.Add(-3 * time.Hour)},
			{ID: "4", Status: model.RunStatusFailed, DurationMs: 1200, CreatedAt: now.Add(-4 * time.Hour)},
			{ID: "5", Status: model.RunStatusRunning, CreatedAt: now.Add(-5 * time.Minute)},
			// Outside lookback window.
			{ID: "6", Status: model.RunStatusFailed, CreatedAt: now.Add(-48 * time.Hour)},
		},
	}

	c := NewCollector(ledger)
	c.now = func() time.Time { return now }
	snap, err := c.Collect(context.Background(), 24)
	require.NoError(t, err)

	assert.Equal(t, 5, snap.RunsTotal)
	assert.Equal(t, 2, snap.RunsComplete)
	assert.Equal(t, 1, snap.RunsRejected)
	assert.Equal(t, 1, snap.RunsFailed)
	assert.Equal(t, 1, snap.RunsRunning)
	assert.Equal(t, 4, snap.Finished())
	assert.InDelta(t, 0.25, snap.FailRate, 0.001)
	assert.Equal(t, 8, snap.URLsFetched)
	assert.Equal(t, 4, snap.URLsFailed)
	assert.InDelta(t, 8.0/12.0, snap.FetchSuccessRate, 0.001)
	assert.InDelta(t, 30.0, snap.AvgDurationSecs, 0.001)
	assert.InDelta(t, 40.0, snap.MaxDurationSecs, 0.001)

	require.Len(t, ledger.filters, 1)
	assert.Equal(t, now.Add(-24*time.Hour), ledger.filters[0].CreatedAfter)
	assert.Equal(t, maxRunsPerSnapshot, ledger.filters[0].Limit)
}

func TestCollector_FailureRateZeroFinished(t *testing.T) {
	now := time.Now().UTC()
	c := NewCollector(&fakeLedger{
		runs: []model.Run{
			{ID: "1", Status: model.RunStatusRunning, CreatedAt: now.Add(-1 * time.Hour)},
			{ID: "2", Status: model.RunStatusRunning, CreatedAt: now.Add(-2 * time.Hour)},
		},
	})

	snap, err := c.Collect(context.Background(), 24)
	require.NoError(t, err)

	assert.Equal(t, 2, snap.RunsRunning)
	assert.Equal(t, 0.0, snap.FailRate)
}

func TestCollector_ListError(t *testing.T) {
	c := NewCollector(&fakeLedger{listErr: errors.New("db down")})

	_, err := c.Collect(context.Background(), 24)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "monitoring: list runs")
}

func TestCollector_SQLiteLedger(t *testing.T) {
	ctx := context.Background()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(ctx))

	run, err := st.CreateRun(ctx, "iphone 15 vs galaxy s24")
	require.NoError(t, err)
	run.Status = model.RunStatusComplete
	run.URLsFetched = 4
	run.URLsFailed = 2
	run.DurationMs = 9000
	require.NoError(t, st.FinishRun(ctx, run))

	snap, err := NewCollector(st).Collect(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.RunsComplete)
	assert.InDelta(t, 4.0/6.0, snap.FetchSuccessRate, 0.001)
	assert.InDelta(t, 9.0, snap.AvgDurationSecs, 0.001)
}
