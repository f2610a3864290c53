// Package pipeline drives a research batch: deduplication, sequencing,
// throttling, persistence, and the halt-on-billing state machine.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/timberline-data/enrich-cli/internal/model"
	"github.com/timberline-data/enrich-cli/internal/store"
)

// EntityResearcher runs the per-entity research pipeline.
type EntityResearcher interface {
	Research(ctx context.Context, entity model.Entity) model.ResearchResult
}

// Runner executes research batches. Entities are processed strictly
// sequentially: the upstream providers are rate limited, and the
// halt-on-billing signal must be deterministic.
type Runner struct {
	researcher EntityResearcher
	store      store.Store
	delay      time.Duration
}

// NewRunner creates a Runner. delay is the minimum spacing between
// entity research calls; zero or negative means the default 3 seconds.
func NewRunner(researcher EntityResearcher, st store.Store, delay time.Duration) *Runner {
	if delay <= 0 {
		delay = 3 * time.Second
	}
	return &Runner{researcher: researcher, store: st, delay: delay}
}

// Options configures one batch.
type Options struct {
	// MaxEntities caps the batch to the first N deduplicated entities.
	// Zero means no cap. This is a hard prefix cut, not sampling;
	// callers wanting a sample must pre-shuffle the input.
	MaxEntities int
	// ResumeRunID continues a previously halted or cancelled run from
	// its checkpoint instead of starting a new one.
	ResumeRunID string
}

// Report is the outcome of one batch.
type Report struct {
	RunID   string                 `json:"run_id"`
	State   model.RunState         `json:"state"`
	Results []model.ResearchResult `json:"results"`
	Summary model.Summary          `json:"summary"`
}

// Run researches the given entities in order. Entity-level failures are
// absorbed into per-entity statuses; the only mid-batch stops are
// provider quota exhaustion (state HaltedOnBilling) and context
// cancellation, which is honored between entities only.
func (r *Runner) Run(ctx context.Context, entities []model.Entity, opts Options) (*Report, error) {
	entities = model.DedupeEntities(entities)
	if len(entities) == 0 {
		return nil, eris.New("pipeline: no entities to research")
	}
	if opts.MaxEntities > 0 && opts.MaxEntities < len(entities) {
		entities = entities[:opts.MaxEntities]
		zap.L().Info("pipeline: batch capped", zap.Int("max_entities", opts.MaxEntities))
	}

	run, start, results, err := r.prepareRun(ctx, opts)
	if err != nil {
		return nil, err
	}
	if start >= len(entities) {
		return nil, eris.Errorf("pipeline: run %s already processed all %d entities", run.ID, len(entities))
	}

	log := zap.L().With(zap.String("run_id", run.ID))
	log.Info("pipeline: batch starting",
		zap.Int("entities", len(entities)),
		zap.Int("start_index", start),
		zap.Duration("delay", r.delay),
	)

	if err := r.store.UpdateRunState(ctx, run.ID, model.RunStateRunning); err != nil {
		return nil, err
	}

	limiter := rate.NewLimiter(rate.Every(r.delay), 1)
	state := model.RunStateRunning

	for i := start; i < len(entities); i++ {
		// Cancellation is cooperative and honored only between
		// entities; an in-flight research call always completes or
		// times out first.
		if ctx.Err() != nil {
			log.Warn("pipeline: batch cancelled", zap.Int("next_index", i))
			return r.finish(run.ID, state, results, eris.Wrap(ctx.Err(), "pipeline: cancelled"))
		}
		if err := limiter.Wait(ctx); err != nil {
			return r.finish(run.ID, state, results, eris.Wrap(err, "pipeline: cancelled"))
		}

		entity := entities[i]
		log.Info("pipeline: researching entity",
			zap.Int("index", i+1),
			zap.Int("total", len(entities)),
			zap.String("business", entity.Name),
		)

		res := r.researcher.Research(ctx, entity)
		results = append(results, res)

		if err := r.store.AppendResult(ctx, run.ID, i, res); err != nil {
			log.Error("pipeline: persist result failed", zap.Error(err))
		}
		if err := r.store.SaveCheckpoint(ctx, run.ID, i); err != nil {
			log.Error("pipeline: persist checkpoint failed", zap.Error(err))
		}

		if res.Status == model.StatusBillingError {
			log.Error("pipeline: provider quota exhausted, halting batch",
				zap.Int("processed", len(results)),
				zap.Int("remaining", len(entities)-i-1),
			)
			state = model.RunStateHaltedOnBilling
			break
		}
	}

	if state == model.RunStateRunning {
		state = model.RunStateCompleted
	}

	return r.finish(run.ID, state, results, nil)
}

// prepareRun creates a new run, or loads the checkpoint and prior
// results of the run being resumed.
func (r *Runner) prepareRun(ctx context.Context, opts Options) (*store.Run, int, []model.ResearchResult, error) {
	if opts.ResumeRunID == "" {
		run, err := r.store.CreateRun(ctx)
		if err != nil {
			return nil, 0, nil, eris.Wrap(err, "pipeline: create run")
		}
		return run, 0, nil, nil
	}

	run, err := r.store.GetRun(ctx, opts.ResumeRunID)
	if err != nil {
		return nil, 0, nil, eris.Wrap(err, "pipeline: resume run")
	}
	if run.State == model.RunStateCompleted {
		return nil, 0, nil, eris.Errorf("pipeline: run %s already completed", run.ID)
	}

	results, err := r.store.ListResults(ctx, run.ID)
	if err != nil {
		return nil, 0, nil, eris.Wrap(err, "pipeline: load prior results")
	}

	last, ok, err := r.store.GetCheckpoint(ctx, run.ID)
	if err != nil {
		return nil, 0, nil, eris.Wrap(err, "pipeline: load checkpoint")
	}
	start := 0
	if ok {
		start = last + 1
	}

	zap.L().Info("pipeline: resuming run",
		zap.String("run_id", run.ID),
		zap.Int("prior_results", len(results)),
		zap.Int("start_index", start),
	)

	return run, start, results, nil
}

func (r *Runner) finish(runID string, state model.RunState, results []model.ResearchResult, runErr error) (*Report, error) {
	// State updates use a fresh context so a cancelled batch still
	// records where it stopped.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := r.store.UpdateRunState(ctx, runID, state); err != nil {
		zap.L().Error("pipeline: update run state failed", zap.String("run_id", runID), zap.Error(err))
	}

	report := &Report{
		RunID:   runID,
		State:   state,
		Results: results,
		Summary: model.Summarize(results),
	}

	zap.L().Info("pipeline: batch finished",
		zap.String("run_id", runID),
		zap.String("state", string(state)),
		zap.Int("total_processed", report.Summary.TotalProcessed),
		zap.Int("successful", report.Summary.Successful),
		zap.Int("manual_required", report.Summary.ManualRequired),
		zap.Int("billing_errors", report.Summary.BillingErrors),
		zap.Float64("success_rate", report.Summary.SuccessRate),
	)

	return report, runErr
}
