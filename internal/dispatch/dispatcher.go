// Package dispatch fans a simulation out across lanes. Each lane owns one
// generator state and a contiguous region of the output buffer, so lanes
// never share mutable state and results do not depend on scheduling.
package dispatch

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"mcsim/domain/core"
	"mcsim/domain/kernel"
	"mcsim/internal"
)

// batchesPerWorker controls how finely lanes are chunked; more batches
// means cancellation is observed sooner.
const batchesPerWorker = 4

// ProgressFunc receives the number of completed lanes. Calls are
// serialized but may come from any goroutine.
type ProgressFunc func(done, total int)

// Dispatcher runs lanes on a bounded pool. The semaphore is shared by every
// Run on the same Dispatcher, so concurrent runs split the worker budget.
type Dispatcher struct {
	workers int
	sem     *semaphore.Weighted
	logger  *internal.Logger
}

// New creates a dispatcher with the given worker count; zero or negative
// selects GOMAXPROCS.
func New(workers int, logger *internal.Logger) *Dispatcher {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Dispatcher{
		workers: workers,
		sem:     semaphore.NewWeighted(int64(workers)),
		logger:  logger.With("Dispatcher"),
	}
}

// Workers returns the concurrency bound.
func (d *Dispatcher) Workers() int { return d.workers }

// Run executes trialsPerLane trials on every lane. Lane i writes
// out[i*trialsPerLane:(i+1)*trialsPerLane] and advances states[i] in place.
// On cancellation the whole dispatch is abandoned and no results are
// returned.
func (d *Dispatcher) Run(
	ctx context.Context,
	states []kernel.GeneratorState,
	inputs *kernel.InputSet,
	program *kernel.ModelProgram,
	trialsPerLane int,
	progress ProgressFunc,
) ([]float64, error) {
	lanes := len(states)
	if lanes == 0 {
		return nil, core.NewValidationError("lanes", "at least one lane is required")
	}
	if trialsPerLane <= 0 {
		return nil, core.NewValidationError("trials_per_lane", "must be positive")
	}
	if lanes > int(^uint(0)>>1)/trialsPerLane {
		return nil, core.NewValidationError("trials_per_lane", "total trial count overflows")
	}
	if program == nil || inputs == nil {
		return nil, core.NewValidationError("program", "program and inputs are required")
	}
	if err := kernel.CheckCompatible(program, inputs); err != nil {
		return nil, err
	}
	for i := range states {
		if states[i].IsDegenerate() {
			return nil, fmt.Errorf("lane %d: %w", i, core.ErrDegenerateSeed)
		}
	}

	out := make([]float64, lanes*trialsPerLane)
	batch := batchSize(lanes, d.workers)
	start := time.Now()

	var (
		done     atomic.Int64
		reportMu sync.Mutex
	)
	report := func(n int) {
		if progress == nil {
			return
		}
		reportMu.Lock()
		progress(n, lanes)
		reportMu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	for lo := 0; lo < lanes; lo += batch {
		if err := d.sem.Acquire(gctx, 1); err != nil {
			break
		}
		lo := lo
		hi := min(lo+batch, lanes)
		g.Go(func() error {
			defer d.sem.Release(1)
			if err := gctx.Err(); err != nil {
				return err
			}
			for lane := lo; lane < hi; lane++ {
				kernel.RunLane(&states[lane], inputs, program, out[lane*trialsPerLane:(lane+1)*trialsPerLane])
			}
			report(int(done.Add(int64(hi - lo))))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		d.logger.Warn("dispatch abandoned after %d/%d lanes: %v", done.Load(), lanes, err)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		d.logger.Warn("dispatch abandoned after %d/%d lanes: %v", done.Load(), lanes, err)
		return nil, err
	}

	d.logger.Debug("%d lanes x %d trials in %v (batch %d, workers %d)",
		lanes, trialsPerLane, time.Since(start), batch, d.workers)
	return out, nil
}

func batchSize(lanes, workers int) int {
	n := lanes / (workers * batchesPerWorker)
	if n < 1 {
		return 1
	}
	return n
}
