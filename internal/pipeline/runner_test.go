package pipeline

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timberline-data/enrich-cli/internal/model"
	"github.com/timberline-data/enrich-cli/internal/store"
)

// stubResearcher returns canned results keyed by business name and
// records the order entities were researched in.
type stubResearcher struct {
	results map[string]model.ResearchResult
	seen    []string
}

func (s *stubResearcher) Research(_ context.Context, entity model.Entity) model.ResearchResult {
	s.seen = append(s.seen, entity.Name)
	if res, ok := s.results[entity.Name]; ok {
		return res
	}
	return successResult(entity)
}

func successResult(entity model.Entity) model.ResearchResult {
	return model.ResearchResult{
		Entity: entity,
		Record: model.ExtractionRecord{
			BusinessName: entity.Name,
			Phone:        model.Found("+1 555-0100"),
			Email:        model.Found("info@example.com"),
			Confidence:   8,
		},
		RawResultCount: 4,
		ResearchedAt:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Method:         model.MethodAPIAnalysis,
		Status:         model.StatusSuccess,
	}
}

func billingResult(entity model.Entity) model.ResearchResult {
	res := successResult(entity)
	res.Record.Phone = model.ProviderError()
	res.Record.Email = model.ProviderError()
	res.Method = model.MethodBillingError
	res.Status = model.StatusBillingError
	return res
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func entities(names ...string) []model.Entity {
	out := make([]model.Entity, 0, len(names))
	for _, n := range names {
		out = append(out, model.Entity{Name: n})
	}
	return out
}

func TestRunCompletesBatch(t *testing.T) {
	st := newTestStore(t)
	researcher := &stubResearcher{}
	runner := NewRunner(researcher, st, time.Millisecond)

	report, err := runner.Run(context.Background(), entities("Alpha Timber", "Beta Wood"), Options{})
	require.NoError(t, err)

	assert.Equal(t, model.RunStateCompleted, report.State)
	assert.Len(t, report.Results, 2)
	assert.Equal(t, []string{"Alpha Timber", "Beta Wood"}, researcher.seen)
	assert.Equal(t, 2, report.Summary.TotalProcessed)
	assert.Equal(t, 2, report.Summary.Successful)
	assert.InDelta(t, 100.0, report.Summary.SuccessRate, 0.01)

	run, err := st.GetRun(context.Background(), report.RunID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStateCompleted, run.State)

	persisted, err := st.ListResults(context.Background(), report.RunID)
	require.NoError(t, err)
	assert.Len(t, persisted, 2)
}

func TestRunHaltsOnBillingError(t *testing.T) {
	st := newTestStore(t)
	researcher := &stubResearcher{
		results: map[string]model.ResearchResult{
			"Beta Wood": billingResult(model.Entity{Name: "Beta Wood"}),
		},
	}
	runner := NewRunner(researcher, st, time.Millisecond)

	batch := entities("Alpha Timber", "Beta Wood", "Gamma Lumber", "Delta Forest", "Epsilon Mills")
	report, err := runner.Run(context.Background(), batch, Options{})
	require.NoError(t, err)

	assert.Equal(t, model.RunStateHaltedOnBilling, report.State)
	assert.Len(t, report.Results, 2)
	assert.Equal(t, []string{"Alpha Timber", "Beta Wood"}, researcher.seen,
		"entities after the billing error must never be processed")
	assert.Equal(t, 1, report.Summary.BillingErrors)

	run, err := st.GetRun(context.Background(), report.RunID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStateHaltedOnBilling, run.State)

	last, ok, err := st.GetCheckpoint(context.Background(), report.RunID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, last)
}

func TestRunResumesFromCheckpoint(t *testing.T) {
	st := newTestStore(t)
	batch := entities("Alpha Timber", "Beta Wood", "Gamma Lumber")

	halting := &stubResearcher{
		results: map[string]model.ResearchResult{
			"Beta Wood": billingResult(model.Entity{Name: "Beta Wood"}),
		},
	}
	first, err := NewRunner(halting, st, time.Millisecond).Run(context.Background(), batch, Options{})
	require.NoError(t, err)
	require.Equal(t, model.RunStateHaltedOnBilling, first.State)

	resumed := &stubResearcher{}
	report, err := NewRunner(resumed, st, time.Millisecond).
		Run(context.Background(), batch, Options{ResumeRunID: first.RunID})
	require.NoError(t, err)

	assert.Equal(t, first.RunID, report.RunID)
	assert.Equal(t, model.RunStateCompleted, report.State)
	assert.Equal(t, []string{"Gamma Lumber"}, resumed.seen,
		"already-processed entities must not be researched again")
	assert.Len(t, report.Results, 3)
	assert.Equal(t, 3, report.Summary.TotalProcessed)
}

func TestRunResumeRejectsCompletedRun(t *testing.T) {
	st := newTestStore(t)
	runner := NewRunner(&stubResearcher{}, st, time.Millisecond)

	report, err := runner.Run(context.Background(), entities("Alpha Timber"), Options{})
	require.NoError(t, err)

	_, err = runner.Run(context.Background(), entities("Alpha Timber"), Options{ResumeRunID: report.RunID})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already completed")
}

func TestRunDeduplicatesAndCaps(t *testing.T) {
	st := newTestStore(t)
	researcher := &stubResearcher{}
	runner := NewRunner(researcher, st, time.Millisecond)

	batch := entities("Alpha Timber", "alpha timber", "Beta Wood", "Gamma Lumber")
	report, err := runner.Run(context.Background(), batch, Options{MaxEntities: 2})
	require.NoError(t, err)

	assert.Equal(t, []string{"Alpha Timber", "Beta Wood"}, researcher.seen)
	assert.Len(t, report.Results, 2)
}

func TestRunEmptyBatch(t *testing.T) {
	st := newTestStore(t)
	runner := NewRunner(&stubResearcher{}, st, time.Millisecond)

	_, err := runner.Run(context.Background(), nil, Options{})
	require.Error(t, err)

	_, err = runner.Run(context.Background(), entities("", "  "), Options{})
	require.Error(t, err)
}

func TestRunCancelledBetweenEntities(t *testing.T) {
	st := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	researcher := &stubResearcher{}
	runner := NewRunner(researcher, st, 50*time.Millisecond)

	// Cancel after the first entity completes; the limiter wait before
	// the second entity observes it.
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	report, err := runner.Run(ctx, entities("Alpha Timber", "Beta Wood", "Gamma Lumber"), Options{})
	require.Error(t, err)
	require.NotNil(t, report)
	assert.Less(t, len(report.Results), 3)

	run, err := st.GetRun(context.Background(), report.RunID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStateRunning, run.State)
}
