package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/product-compare/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_RunLifecycle(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "vivo y73 vs realme 8 pro")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)

	phase, err := st.CreatePhase(ctx, run.ID, "discover")
	require.NoError(t, err)
	phase.Status = model.PhaseStatusComplete
	phase.DurationMs = 1200
	require.NoError(t, st.CompletePhase(ctx, phase))

	failed, err := st.CreatePhase(ctx, run.ID, "enrich")
	require.NoError(t, err)
	failed.Status = model.PhaseStatusFailed
	failed.Error = "cancelled"
	require.NoError(t, st.CompletePhase(ctx, failed))

	run.Status = model.RunStatusComplete
	run.ProductType = model.CategorySmartphone
	run.ProductsFound = 2
	run.URLsFetched = 4
	run.URLsFailed = 2
	run.DurationMs = 5400
	require.NoError(t, st.FinishRun(ctx, run))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "vivo y73 vs realme 8 pro", got.Query)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	assert.Equal(t, model.CategorySmartphone, got.ProductType)
	assert.Equal(t, 2, got.ProductsFound)
	assert.Equal(t, 4, got.URLsFetched)
	assert.Equal(t, 2, got.URLsFailed)
	assert.Equal(t, int64(5400), got.DurationMs)
	require.Len(t, got.Phases, 2)
	assert.Equal(t, "discover", got.Phases[0].Name)
	assert.Equal(t, int64(1200), got.Phases[0].DurationMs)
	assert.Equal(t, model.PhaseStatusFailed, got.Phases[1].Status)
	assert.Equal(t, "cancelled", got.Phases[1].Error)
}

func TestSQLite_GetRun_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetRun(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_FinishRun_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.FinishRun(context.Background(), &model.Run{ID: "missing", Status: model.RunStatusFailed})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_ListRuns(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for i, q := range []string{"first", "second", "third"} {
		run, err := st.CreateRun(ctx, q)
		require.NoError(t, err)
		if i == 1 {
			run.Status = model.RunStatusRejected
			run.Error = "not enough products"
			require.NoError(t, st.FinishRun(ctx, run))
		}
		time.Sleep(5 * time.Millisecond)
	}

	all, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "third", all[0].Query)

	rejected, err := st.ListRuns(ctx, RunFilter{Status: model.RunStatusRejected})
	require.NoError(t, err)
	require.Len(t, rejected, 1)
	assert.Equal(t, "second", rejected[0].Query)
	assert.Equal(t, "not enough products", rejected[0].Error)

	page, err := st.ListRuns(ctx, RunFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "second", page[0].Query)

	recent, err := st.ListRuns(ctx, RunFilter{CreatedAfter: all[1].CreatedAt})
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	future, err := st.ListRuns(ctx, RunFilter{CreatedAfter: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	assert.Empty(t, future)
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	assert.NoError(t, st.Migrate(context.Background()))
}
