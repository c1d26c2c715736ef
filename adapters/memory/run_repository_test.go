package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcsim/domain/core"
	"mcsim/domain/kernel"
	"mcsim/domain/run"
)

func sampleResult(t *testing.T, name string, created time.Time) *run.Result {
	t.Helper()
	req := &run.Request{
		Name:    name,
		Formula: "a * 2",
		Inputs: []run.InputDecl{
			{Name: "a", Family: kernel.FamilyUniform, Params: kernel.DistributionSpec{Param1: 0, Param2: 1}},
		},
		Lanes:         2,
		TrialsPerLane: 3,
		Seed:          1,
	}
	program := kernel.MustModelProgram(kernel.PushInput(0), kernel.PushConst(2), kernel.Binary(kernel.OpMul))
	m := run.NewManifest(core.NewRunID(), req, program)
	m.CreatedAt = core.NewTimestamp(created)
	return &run.Result{Manifest: *m, Outputs: []float64{1, 2, 3}}
}

func TestRunRepository_SaveGet(t *testing.T) {
	repo := NewRunRepository()
	ctx := context.Background()
	result := sampleResult(t, "a", time.Now())

	require.NoError(t, repo.Save(ctx, result))

	got, err := repo.Get(ctx, result.Manifest.RunID)
	require.NoError(t, err)
	assert.Equal(t, result.Manifest.Fingerprint, got.Manifest.Fingerprint)
	assert.Nil(t, got.Outputs, "raw outputs are not stored")
	assert.Len(t, result.Outputs, 3, "caller's result is untouched")
}

func TestRunRepository_GetMissing(t *testing.T) {
	_, err := NewRunRepository().Get(context.Background(), core.NewRunID())
	assert.ErrorIs(t, err, core.ErrRunNotFound)
	assert.True(t, core.IsNotFoundError(err))
}

func TestRunRepository_RejectsTamperedManifest(t *testing.T) {
	result := sampleResult(t, "a", time.Now())
	result.Manifest.Seed++

	assert.Error(t, NewRunRepository().Save(context.Background(), result))
}

func TestRunRepository_ListNewestFirst(t *testing.T) {
	repo := NewRunRepository()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, name := range []string{"first", "second", "third"} {
		require.NoError(t, repo.Save(ctx, sampleResult(t, name, base.Add(time.Duration(i)*time.Minute))))
	}

	all, err := repo.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "third", all[0].Manifest.Name)
	assert.Equal(t, "first", all[2].Manifest.Name)

	limited, err := repo.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}
