package app

import (
	"context"
	"fmt"
	"time"

	"mcsim/domain/core"
	"mcsim/domain/kernel"
	"mcsim/domain/run"
	"mcsim/domain/summary"
	"mcsim/internal"
	"mcsim/internal/compiler"
	"mcsim/internal/config"
	"mcsim/internal/dispatch"
	"mcsim/internal/errors"
	"mcsim/ports"
)

// SimulationService turns run requests into persisted, reproducible results
type SimulationService struct {
	repo       ports.RunRepository
	rngPort    ports.RNGPort
	dispatcher *dispatch.Dispatcher
	defaults   config.SimulationConfig
	logger     *internal.Logger
}

// NewSimulationService creates a simulation service
func NewSimulationService(
	repo ports.RunRepository,
	rngPort ports.RNGPort,
	dispatcher *dispatch.Dispatcher,
	defaults config.SimulationConfig,
	logger *internal.Logger,
) *SimulationService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &SimulationService{
		repo:       repo,
		rngPort:    rngPort,
		dispatcher: dispatcher,
		defaults:   defaults,
		logger:     logger.With("SimulationService"),
	}
}

// Defaults returns the configured request defaults.
func (s *SimulationService) Defaults() config.SimulationConfig {
	return s.defaults
}

// NewRequest returns a request pre-filled with the configured defaults.
func (s *SimulationService) NewRequest() run.Request {
	return run.Request{
		Lanes:         s.defaults.Lanes,
		TrialsPerLane: s.defaults.TrialsPerLane,
		Seed:          s.defaults.Seed,
		HistogramBins: s.defaults.HistogramBins,
	}
}

// Compile checks a formula against the declared input names without running it.
func (s *SimulationService) Compile(formula string, inputNames []string) (*kernel.ModelProgram, error) {
	program, err := compiler.Compile(formula, inputNames)
	if err != nil {
		return nil, errors.CompileError(err)
	}
	return program, nil
}

// Run executes and persists a simulation
func (s *SimulationService) Run(ctx context.Context, req run.Request) (*run.Result, error) {
	return s.RunWithProgress(ctx, req, nil)
}

// RunWithProgress is Run with a per-batch progress callback.
func (s *SimulationService) RunWithProgress(ctx context.Context, req run.Request, progress dispatch.ProgressFunc) (*run.Result, error) {
	result, err := s.execute(ctx, core.NewRunID(), &req, progress)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, result); err != nil {
		return nil, errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to save run"))
	}
	s.logger.Info("run %s (%s) stored: %d trials in %v, mean %.6g",
		result.Manifest.RunID, req.Name, result.Summary.Count, result.Duration, result.Summary.Mean)
	return result, nil
}

// Get returns a stored run
func (s *SimulationService) Get(ctx context.Context, id core.RunID) (*run.Result, error) {
	result, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load run %s", id)
	}
	return result, nil
}

// List returns the most recent runs
func (s *SimulationService) List(ctx context.Context, limit int) ([]*run.Result, error) {
	results, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list runs")
	}
	return results, nil
}

// Replay re-executes a stored run from its manifest and checks that it
// reproduces the stored fingerprint and summary. The replay is not persisted.
func (s *SimulationService) Replay(ctx context.Context, id core.RunID) (*run.Result, error) {
	stored, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	bins := 0
	if stored.Summary != nil {
		bins = len(stored.Summary.Histogram.Counts)
	}

	replayed, err := s.execute(ctx, id, stored.Manifest.Request(bins), nil)
	if err != nil {
		return nil, errors.Wrapf(err, "replay of run %s failed", id)
	}
	if !replayed.Manifest.Fingerprint.Equals(stored.Manifest.Fingerprint) {
		return nil, errors.New(errors.CodeInternalError, fmt.Sprintf(
			"replay of run %s produced fingerprint %s, stored %s",
			id, replayed.Manifest.Fingerprint.Short(), stored.Manifest.Fingerprint.Short()))
	}
	if stored.Summary != nil && !sameMoments(stored.Summary, replayed.Summary) {
		return nil, errors.New(errors.CodeInternalError, fmt.Sprintf("replay of run %s diverged from stored summary", id))
	}
	s.logger.Info("run %s replayed identically", id)
	return replayed, nil
}

func (s *SimulationService) execute(ctx context.Context, runID core.RunID, req *run.Request, progress dispatch.ProgressFunc) (*run.Result, error) {
	start := time.Now()

	if err := req.Validate(); err != nil {
		if core.IsInputError(err) {
			return nil, errors.Wrap(err, "invalid run request")
		}
		return nil, errors.WithCode(errors.CodeValidationError, errors.Wrap(err, "invalid run request"))
	}

	program, err := s.Compile(req.Formula, req.InputNames())
	if err != nil {
		return nil, err
	}
	inputs, err := req.InputSet()
	if err != nil {
		return nil, errors.Wrap(err, "invalid inputs")
	}
	manifest := run.NewManifest(runID, req, program)

	states, err := s.rngPort.SeedLanes(ctx, req.Name, req.Seed, req.Lanes)
	if err != nil {
		return nil, errors.Wrap(err, "failed to seed lanes")
	}

	s.logger.Debug("run %s: %d ops, %d inputs, %d lanes x %d trials",
		runID, program.Len(), inputs.Len(), req.Lanes, req.TrialsPerLane)

	runCtx := ctx
	if s.defaults.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.defaults.RunTimeout)
		defer cancel()
	}
	outputs, err := s.dispatcher.Run(runCtx, states, inputs, program, req.TrialsPerLane, progress)
	if err != nil {
		return nil, errors.Wrap(err, "dispatch failed")
	}

	sum, err := summary.Summarize(outputs, req.HistogramBins)
	if err != nil {
		return nil, errors.Wrap(err, "failed to summarize outputs")
	}
	if sum.Finite < sum.Count {
		s.logger.Warn("run %s: %d of %d outputs are non-finite (nan=%d +inf=%d -inf=%d)",
			runID, sum.Count-sum.Finite, sum.Count, sum.NaN, sum.PosInf, sum.NegInf)
	}

	return &run.Result{
		Manifest:    *manifest,
		Summary:     sum,
		Duration:    time.Since(start),
		CompletedAt: core.Now(),
		Outputs:     outputs,
	}, nil
}

// sameMoments compares the statistics a replay must reproduce bit for bit.
func sameMoments(a, b *summary.Summary) bool {
	same := func(x, y float64) bool { return x == y || (x != x && y != y) }
	return a.Count == b.Count && a.Finite == b.Finite &&
		same(a.Mean, b.Mean) && same(a.Variance, b.Variance) &&
		same(a.Min, b.Min) && same(a.Max, b.Max) && same(a.Median, b.Median)
}
