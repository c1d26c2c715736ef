package app

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"mcsim/adapters/memory"
	"mcsim/domain/core"
	"mcsim/domain/kernel"
	"mcsim/domain/run"
	"mcsim/internal"
	"mcsim/internal/config"
	"mcsim/internal/dispatch"
	"mcsim/internal/errors"
	"mcsim/internal/seeding"
	"mcsim/ports"
)

type MockRunRepository struct {
	mock.Mock
}

func (m *MockRunRepository) Save(ctx context.Context, result *run.Result) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

func (m *MockRunRepository) Get(ctx context.Context, id core.RunID) (*run.Result, error) {
	args := m.Called(ctx, id)
	result, _ := args.Get(0).(*run.Result)
	return result, args.Error(1)
}

func (m *MockRunRepository) List(ctx context.Context, limit int) ([]*run.Result, error) {
	args := m.Called(ctx, limit)
	results, _ := args.Get(0).([]*run.Result)
	return results, args.Error(1)
}

func testDefaults() config.SimulationConfig {
	return config.SimulationConfig{
		Lanes:         8,
		TrialsPerLane: 250,
		Workers:       2,
		Seed:          42,
		HistogramBins: 20,
		RunTimeout:    time.Minute,
	}
}

func newService(repo ports.RunRepository) *SimulationService {
	logger := internal.NewLogger(internal.LogLevelError)
	return NewSimulationService(repo, seeding.NewSplitMixSeeder(), dispatch.New(2, logger), testDefaults(), logger)
}

func marginRequest(svc *SimulationService) run.Request {
	req := svc.NewRequest()
	req.Name = "margin"
	req.Formula = "(price - cost) * units"
	req.Inputs = []run.InputDecl{
		{Name: "price", Family: kernel.FamilyTriangular, Params: kernel.DistributionSpec{Param1: 8, Param2: 14, Param3: 10}},
		{Name: "cost", Family: kernel.FamilyNormal, Params: kernel.DistributionSpec{Param1: 6, Param2: 0.5}},
		{Name: "units", Family: kernel.FamilyUniform, Params: kernel.DistributionSpec{Param1: 900, Param2: 1100}},
	}
	return req
}

func TestRun_PersistsSummary(t *testing.T) {
	repo := new(MockRunRepository)
	repo.On("Save", mock.Anything, mock.AnythingOfType("*run.Result")).Return(nil)
	svc := newService(repo)

	result, err := svc.Run(context.Background(), marginRequest(svc))
	require.NoError(t, err)
	repo.AssertExpectations(t)

	assert.Equal(t, 8*250, result.Summary.Count)
	assert.Len(t, result.Outputs, 2000)
	assert.Len(t, result.Summary.Histogram.Counts, 20)
	// E[price] = 32/3, E[cost] = 6, E[units] = 1000
	assert.InDelta(t, (32.0/3-6)*1000, result.Summary.Mean, 150)
	assert.NoError(t, result.Manifest.Validate())
	assert.Equal(t, run.CodeVersion, result.Manifest.CodeVersion)
}

func TestRun_SmallRunSummarized(t *testing.T) {
	svc := newService(memory.NewRunRepository())
	req := marginRequest(svc)
	req.Lanes, req.TrialsPerLane = 4, 10

	result, err := svc.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 40, result.Summary.Finite)
	assert.LessOrEqual(t, result.Summary.Min, result.Summary.Percentiles.P1)
	assert.LessOrEqual(t, result.Summary.Percentiles.P99, result.Summary.Max)
}

func TestRun_ReproducibleByNameAndSeed(t *testing.T) {
	svc := newService(memory.NewRunRepository())
	ctx := context.Background()

	a, err := svc.Run(ctx, marginRequest(svc))
	require.NoError(t, err)
	b, err := svc.Run(ctx, marginRequest(svc))
	require.NoError(t, err)

	assert.NotEqual(t, a.Manifest.RunID, b.Manifest.RunID)
	assert.Equal(t, a.Manifest.Fingerprint, b.Manifest.Fingerprint)
	assert.Equal(t, a.Outputs, b.Outputs)

	req := marginRequest(svc)
	req.Seed++
	c, err := svc.Run(ctx, req)
	require.NoError(t, err)
	assert.NotEqual(t, a.Outputs, c.Outputs)
}

func TestRun_DivideByZeroCounted(t *testing.T) {
	svc := newService(memory.NewRunRepository())
	req := svc.NewRequest()
	req.Name = "ratio"
	req.Formula = "x / 0"
	req.Inputs = []run.InputDecl{
		{Name: "x", Family: kernel.FamilyUniform, Params: kernel.DistributionSpec{Param1: 1, Param2: 2}},
	}

	result, err := svc.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, result.Summary.Count, result.Summary.PosInf)
	assert.Zero(t, result.Summary.Finite)
	assert.True(t, math.IsNaN(result.Summary.Mean))
}

func TestRun_Errors(t *testing.T) {
	svc := newService(memory.NewRunRepository())
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(r *run.Request)
		code   string
	}{
		{"unknown input", func(r *run.Request) { r.Formula = "price * volume" }, errors.CodeCompileError},
		{"syntax", func(r *run.Request) { r.Formula = "price *" }, errors.CodeCompileError},
		{"bad parameter", func(r *run.Request) { r.Inputs[0].Params.Param3 = 20 }, errors.CodeInvalidInput},
		{"no lanes", func(r *run.Request) { r.Lanes = 0 }, errors.CodeValidationError},
		{"too many trials", func(r *run.Request) { r.Lanes, r.TrialsPerLane = 1_000_000, 1000 }, errors.CodeValidationError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := marginRequest(svc)
			tc.mutate(&req)
			_, err := svc.Run(ctx, req)
			require.Error(t, err)
			assert.Equal(t, tc.code, errors.GetCode(err))
		})
	}
}

func TestRun_ProgramTooLong(t *testing.T) {
	svc := newService(memory.NewRunRepository())
	req := marginRequest(svc)
	req.Formula = "price"
	for i := 0; i < 70; i++ {
		req.Formula += " + price"
	}

	_, err := svc.Run(context.Background(), req)
	assert.ErrorIs(t, err, core.ErrProgramTooLong)
	assert.Equal(t, errors.CodeCapacityExceeded, errors.GetCode(err))
}

func TestRun_Timeout(t *testing.T) {
	repo := new(MockRunRepository)
	svc := newService(repo)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Run(ctx, marginRequest(svc))
	require.Error(t, err)
	assert.Equal(t, errors.CodeCanceled, errors.GetCode(err))
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestRun_SaveFailure(t *testing.T) {
	repo := new(MockRunRepository)
	repo.On("Save", mock.Anything, mock.Anything).Return(fmt.Errorf("connection refused"))
	svc := newService(repo)

	_, err := svc.Run(context.Background(), marginRequest(svc))
	require.Error(t, err)
	assert.Equal(t, errors.CodeDatabaseError, errors.GetCode(err))
}

func TestGet_NotFound(t *testing.T) {
	repo := new(MockRunRepository)
	id := core.NewRunID()
	repo.On("Get", mock.Anything, id).Return(nil, fmt.Errorf("%w: %s", core.ErrRunNotFound, id))
	svc := newService(repo)

	_, err := svc.Get(context.Background(), id)
	assert.ErrorIs(t, err, core.ErrRunNotFound)
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))
}

func TestList_PassesLimit(t *testing.T) {
	repo := new(MockRunRepository)
	repo.On("List", mock.Anything, 5).Return([]*run.Result{}, nil)
	svc := newService(repo)

	results, err := svc.List(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, results)
	repo.AssertExpectations(t)
}

func TestReplay_ReproducesStoredRun(t *testing.T) {
	svc := newService(memory.NewRunRepository())
	ctx := context.Background()

	original, err := svc.Run(ctx, marginRequest(svc))
	require.NoError(t, err)

	replayed, err := svc.Replay(ctx, original.Manifest.RunID)
	require.NoError(t, err)
	assert.Equal(t, original.Outputs, replayed.Outputs)
	assert.Equal(t, original.Summary.Mean, replayed.Summary.Mean)
}

func TestCompile(t *testing.T) {
	svc := newService(memory.NewRunRepository())

	program, err := svc.Compile("a * (b + 1)", []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, 5, program.Len())

	_, err = svc.Compile("a +", []string{"a"})
	assert.Equal(t, errors.CodeCompileError, errors.GetCode(err))
}
