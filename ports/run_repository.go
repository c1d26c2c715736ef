package ports

import (
	"context"

	"mcsim/domain/core"
	"mcsim/domain/run"
)

// RunRepository stores finished runs. Raw outputs and generator states are
// never persisted; a run is replayed from its manifest.
type RunRepository interface {
	Save(ctx context.Context, result *run.Result) error
	Get(ctx context.Context, id core.RunID) (*run.Result, error)
	// List returns the most recent runs first.
	List(ctx context.Context, limit int) ([]*run.Result, error)
}
