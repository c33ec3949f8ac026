package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/earnings-cli/internal/model"
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

func TestSQLite_CreateRun_And_GetRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "companies.csv", "out", 12)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)
	assert.Equal(t, 12, run.TotalCompanies)

	fetched, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, fetched.ID)
	assert.Equal(t, "companies.csv", fetched.InputPath)
	assert.Equal(t, "out", fetched.OutputDir)
	assert.Nil(t, fetched.FinishedAt)
}

func TestSQLite_GetRun_Prefix(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "companies.csv", "out", 1)
	require.NoError(t, err)

	fetched, err := st.GetRun(ctx, run.ID[:8])
	require.NoError(t, err)
	assert.Equal(t, run.ID, fetched.ID)
}

func TestSQLite_GetRun_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetRun(context.Background(), "nonexistent")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLite_CompleteRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "companies.csv", "out", 3)
	require.NoError(t, err)

	run.Status = model.RunStatusCompleted
	run.SuccessfulExtractions = 2
	run.FailedExtractions = 1
	run.TotalFactsExtracted = 9
	run.DurationSeconds = 6.5
	require.NoError(t, st.CompleteRun(ctx, run))
	assert.NotNil(t, run.FinishedAt)

	fetched, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusCompleted, fetched.Status)
	assert.Equal(t, 2, fetched.SuccessfulExtractions)
	assert.Equal(t, 1, fetched.FailedExtractions)
	assert.Equal(t, 9, fetched.TotalFactsExtracted)
	assert.InDelta(t, 6.5, fetched.DurationSeconds, 0.001)
	assert.NotNil(t, fetched.FinishedAt)
	assert.Empty(t, fetched.Error)
}

func TestSQLite_CompleteRun_Failed(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "companies.csv", "out", 3)
	require.NoError(t, err)

	run.Status = model.RunStatusFailed
	run.Error = "context canceled"
	require.NoError(t, st.CompleteRun(ctx, run))

	fetched, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, fetched.Status)
	assert.Equal(t, "context canceled", fetched.Error)
}

func TestSQLite_CompleteRun_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.CompleteRun(context.Background(), &model.RunRecord{
		ID:     "missing-run",
		Status: model.RunStatusCompleted,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLite_ListRuns(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.CreateRun(ctx, "a.csv", "out-a", 1)
	require.NoError(t, err)
	_, err = st.CreateRun(ctx, "b.csv", "out-b", 2)
	require.NoError(t, err)

	runs, err := st.ListRuns(ctx, RunFilter{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestSQLite_ListRuns_FilterByStatus(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "a.csv", "out", 1)
	require.NoError(t, err)
	run.Status = model.RunStatusCompleted
	require.NoError(t, st.CompleteRun(ctx, run))

	// A second run that stays running.
	_, err = st.CreateRun(ctx, "b.csv", "out", 1)
	require.NoError(t, err)

	runs, err := st.ListRuns(ctx, RunFilter{Status: model.RunStatusCompleted, Limit: 10})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
}

func TestSQLite_ListRuns_Limit(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := st.CreateRun(ctx, "a.csv", "out", 1)
		require.NoError(t, err)
	}

	runs, err := st.ListRuns(ctx, RunFilter{Limit: 3})
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}

func TestNewSQLite_InvalidDSN(t *testing.T) {
	// A path under a nonexistent parent cannot be created.
	bad := filepath.Join(t.TempDir(), "missing", "nested", "test.db")
	st, err := NewSQLite(bad)
	if err == nil {
		st.Close()
		t.Fatal("expected error for unwritable database path")
	}
}

func TestSQLite_Migrate_Idempotent(t *testing.T) {
	st := newTestSQLiteStore(t)

	// Migrate was already called in newTestSQLiteStore; calling again should not error.
	err := st.Migrate(context.Background())
	require.NoError(t, err)
}
