package kernel

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcsim/domain/core"
)

func revenueModel(t *testing.T) (*InputSet, *ModelProgram) {
	t.Helper()
	inputs, err := NewInputSet(
		[]DistributionSpec{{Param1: 100, Param2: 10}, {Param1: 2, Param2: 4}},
		[]Family{FamilyNormal, FamilyUniform},
	)
	require.NoError(t, err)
	// units * price
	return inputs, MustModelProgram(PushInput(0), PushInput(1), Binary(OpMul))
}

func TestRunTrial_SamplesInDeclarationOrder(t *testing.T) {
	inputs, program := revenueModel(t)

	g := seeded()
	got := RunTrial(&g, inputs, program)

	ref := seeded()
	units := Sample(&ref, DistributionSpec{Param1: 100, Param2: 10}, FamilyNormal)
	price := Sample(&ref, DistributionSpec{Param1: 2, Param2: 4}, FamilyUniform)

	assert.Equal(t, units*price, got)
	assert.Equal(t, ref, g)
	assert.Equal(t, 3, inputs.DrawsPerTrial())
}

func TestRunLane_MatchesRepeatedTrials(t *testing.T) {
	inputs, program := revenueModel(t)

	g := seeded()
	out := make([]float64, 50)
	RunLane(&g, inputs, program, out)

	ref := seeded()
	for i := range out {
		assert.Equal(t, RunTrial(&ref, inputs, program), out[i], "trial %d", i)
	}
	assert.Equal(t, ref, g)
}

func TestRunTrial_NoAllocations(t *testing.T) {
	inputs, program := revenueModel(t)
	g := seeded()

	allocs := testing.AllocsPerRun(1000, func() {
		RunTrial(&g, inputs, program)
	})
	assert.Zero(t, allocs)
}

func TestNewInputSet_Limits(t *testing.T) {
	specs := make([]DistributionSpec, MaxInputs+1)
	families := make([]Family, MaxInputs+1)

	_, err := NewInputSet(specs, families)
	assert.ErrorIs(t, err, core.ErrTooManyInputs)

	_, err = NewInputSet(specs[:2], families[:1])
	assert.Error(t, err)

	s, err := NewInputSet(specs[:MaxInputs], families[:MaxInputs])
	require.NoError(t, err)
	assert.Equal(t, MaxInputs, s.Len())
}

func TestCheckCompatible(t *testing.T) {
	inputs, program := revenueModel(t)
	require.NoError(t, CheckCompatible(program, inputs))

	wide := MustModelProgram(PushInput(2))
	assert.ErrorIs(t, CheckCompatible(wide, inputs), core.ErrInputIndex)
}

func TestLayout_RoundTrip(t *testing.T) {
	state := GeneratorState{S0: 0x0102030405060708, S1: 0x1112131415161718}
	b, err := state.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, []byte{8, 7, 6, 5, 4, 3, 2, 1}, b[:8], "s0 little-endian first")

	var decoded GeneratorState
	require.NoError(t, decoded.UnmarshalBinary(b))
	assert.Equal(t, state, decoded)

	_, program := revenueModel(t)
	encoded := EncodeProgram(program)
	assert.Len(t, encoded, program.Len()*InstructionSize)
	assert.Equal(t, []byte{4, 0, 0, 0}, encoded[:4], "PUSH_INPUT opcode is 4")

	back, err := DecodeProgram(encoded)
	require.NoError(t, err)
	assert.Equal(t, program.Instructions(), back.Instructions())
	assert.True(t, bytes.Equal(encoded, EncodeProgram(back)))
}

func TestLayout_ShortBuffers(t *testing.T) {
	var g GeneratorState
	assert.ErrorIs(t, g.UnmarshalBinary(make([]byte, 15)), core.ErrShortBuffer)

	var d DistributionSpec
	assert.ErrorIs(t, d.UnmarshalBinary(make([]byte, 11)), core.ErrShortBuffer)

	_, err := DecodeProgram(make([]byte, 13))
	assert.ErrorIs(t, err, core.ErrShortBuffer)

	spec := DistributionSpec{Param1: 1.5, Param2: -2, Param3: 3}
	b, err := spec.MarshalBinary()
	require.NoError(t, err)
	require.NoError(t, d.UnmarshalBinary(b))
	assert.Equal(t, spec, d)
}
