package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"mcsim/domain/core"
	"mcsim/domain/run"
	"mcsim/ports"
)

// runRepository keeps results in a map for the CLI and tests.
type runRepository struct {
	mu   sync.RWMutex
	runs map[core.RunID]*run.Result
}

// NewRunRepository creates an empty in-memory run repository
func NewRunRepository() ports.RunRepository {
	return &runRepository{runs: make(map[core.RunID]*run.Result)}
}

func (r *runRepository) Save(ctx context.Context, result *run.Result) error {
	if err := result.Manifest.Validate(); err != nil {
		return err
	}
	stored := *result
	stored.Outputs = nil

	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[result.Manifest.RunID] = &stored
	return nil
}

func (r *runRepository) Get(ctx context.Context, id core.RunID) (*run.Result, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result, ok := r.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrRunNotFound, id)
	}
	out := *result
	return &out, nil
}

func (r *runRepository) List(ctx context.Context, limit int) ([]*run.Result, error) {
	r.mu.RLock()
	results := make([]*run.Result, 0, len(r.runs))
	for _, result := range r.runs {
		out := *result
		results = append(results, &out)
	}
	r.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool {
		ti, tj := results[i].Manifest.CreatedAt.Time(), results[j].Manifest.CreatedAt.Time()
		if ti.Equal(tj) {
			return results[i].Manifest.RunID.String() > results[j].Manifest.RunID.String()
		}
		return ti.After(tj)
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
