// Package store persists research runs, their ordered result lists, and
// resume checkpoints.
package store

import (
	"context"
	"time"

	"github.com/timberline-data/enrich-cli/internal/model"
)

// Run is one research batch.
type Run struct {
	ID        string         `json:"id"`
	State     model.RunState `json:"state"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Store defines the persistence interface for the research pipeline.
type Store interface {
	CreateRun(ctx context.Context) (*Run, error)
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	UpdateRunState(ctx context.Context, runID string, state model.RunState) error

	// AppendResult stores one entity's result at its batch position.
	AppendResult(ctx context.Context, runID string, seq int, res model.ResearchResult) error
	// ListResults returns a run's results in batch order.
	ListResults(ctx context.Context, runID string) ([]model.ResearchResult, error)

	// SaveCheckpoint records the index of the last processed entity, so
	// a halted run can resume without redoing completed research.
	SaveCheckpoint(ctx context.Context, runID string, lastIndex int) error
	// GetCheckpoint returns the last processed index; ok is false when
	// the run has no checkpoint yet.
	GetCheckpoint(ctx context.Context, runID string) (lastIndex int, ok bool, err error)

	Migrate(ctx context.Context) error
	Close() error
}
