// Package store persists run history. The pipeline records one row per run;
// the runs and serve commands read them back.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/earnings-cli/internal/model"
)

// ErrNotFound is returned when a run lookup matches no record. Callers
// can test for it with eris.Is after unwrapping store-specific context.
var ErrNotFound = eris.New("run not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for run history.
type Store interface {
	// CreateRun inserts a new running record and returns it.
	CreateRun(ctx context.Context, inputPath, outputDir string, totalCompanies int) (*model.RunRecord, error)

	// CompleteRun writes a run's terminal status, counters, and timings.
	CompleteRun(ctx context.Context, rec *model.RunRecord) error

	// GetRun fetches one run. id may be a unique prefix of a run id.
	GetRun(ctx context.Context, id string) (*model.RunRecord, error)

	// ListRuns returns runs newest first.
	ListRuns(ctx context.Context, filter RunFilter) ([]model.RunRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
