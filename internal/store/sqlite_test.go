package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timberline-data/enrich-cli/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleResult(name string, status model.Status) model.ResearchResult {
	return model.ResearchResult{
		Entity:       model.Entity{Name: name, ExpectedCity: "Austin"},
		Record:       model.ExtractionRecord{BusinessName: name, Email: model.Found(name + "@example.com")},
		ResearchedAt: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
		Method:       model.MethodAPIAnalysis,
		Status:       status,
	}
}

func TestSQLiteRunLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStateIdle, run.State)

	require.NoError(t, s.UpdateRunState(ctx, run.ID, model.RunStateRunning))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStateRunning, got.State)

	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
}

func TestSQLiteRunNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetRun(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	err = s.UpdateRunState(context.Background(), "missing", model.RunStateCompleted)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLiteResultsOrderedBySeq(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx)
	require.NoError(t, err)

	// Insert out of order; ListResults must return batch order.
	require.NoError(t, s.AppendResult(ctx, run.ID, 1, sampleResult("Birch Traders", model.StatusManualRequired)))
	require.NoError(t, s.AppendResult(ctx, run.ID, 0, sampleResult("Acme Wood", model.StatusSuccess)))

	results, err := s.ListResults(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Acme Wood", results[0].Entity.Name)
	assert.Equal(t, "Birch Traders", results[1].Entity.Name)
	assert.Equal(t, model.StatusSuccess, results[0].Status)
	assert.Equal(t, "Acme Wood@example.com", results[0].Record.Email.Value)
}

func TestSQLiteAppendResultIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx)
	require.NoError(t, err)

	require.NoError(t, s.AppendResult(ctx, run.ID, 0, sampleResult("Acme", model.StatusManualRequired)))
	require.NoError(t, s.AppendResult(ctx, run.ID, 0, sampleResult("Acme", model.StatusSuccess)))

	results, err := s.ListResults(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, model.StatusSuccess, results[0].Status)
}

func TestSQLiteCheckpoint(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx)
	require.NoError(t, err)

	_, ok, err := s.GetCheckpoint(ctx, run.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SaveCheckpoint(ctx, run.ID, 3))
	require.NoError(t, s.SaveCheckpoint(ctx, run.ID, 7))

	idx, ok, err := s.GetCheckpoint(ctx, run.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 7, idx)
}
