package kernel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcsim/domain/core"
)

func TestEvaluate_LiteralCases(t *testing.T) {
	t.Run("const add", func(t *testing.T) {
		p := MustModelProgram(PushConst(5), PushConst(3), Binary(OpAdd))
		assert.Equal(t, 8.0, Evaluate(p, nil))
	})

	t.Run("input mul", func(t *testing.T) {
		p := MustModelProgram(PushInput(0), PushConst(2), Binary(OpMul))
		assert.Equal(t, 20.0, Evaluate(p, []float64{10}))
	})

	t.Run("divide by zero", func(t *testing.T) {
		p := MustModelProgram(PushConst(1), PushConst(0), Binary(OpDiv))
		assert.True(t, math.IsInf(Evaluate(p, nil), 1))
	})

	t.Run("zero over zero", func(t *testing.T) {
		p := MustModelProgram(PushConst(0), PushConst(0), Binary(OpDiv))
		assert.True(t, math.IsNaN(Evaluate(p, nil)))
	})
}

func TestEvaluate_OperandOrder(t *testing.T) {
	sub := MustModelProgram(PushInput(0), PushInput(1), Binary(OpSub))
	div := MustModelProgram(PushInput(0), PushInput(1), Binary(OpDiv))
	in := []float64{10, 4}

	assert.Equal(t, 6.0, Evaluate(sub, in), "SUB computes a - b")
	assert.Equal(t, 2.5, Evaluate(div, in), "DIV computes a / b")
}

func TestEvaluate_InfinityPropagates(t *testing.T) {
	// (1/0) * -2 + 7
	p := MustModelProgram(
		PushConst(1), PushConst(0), Binary(OpDiv),
		PushConst(-2), Binary(OpMul),
		PushConst(7), Binary(OpAdd),
	)
	assert.True(t, math.IsInf(Evaluate(p, nil), -1))
}

func TestEvaluate_NestedExpression(t *testing.T) {
	// (a + b) * (c - d) / 2
	p := MustModelProgram(
		PushInput(0), PushInput(1), Binary(OpAdd),
		PushInput(2), PushInput(3), Binary(OpSub),
		Binary(OpMul),
		PushConst(2), Binary(OpDiv),
	)
	assert.Equal(t, 3, p.MaxDepth())
	assert.Equal(t, 4, p.InputCount())
	assert.Equal(t, 15.0, Evaluate(p, []float64{1, 2, 20, 10}))
}

func TestEvaluate_ZeroProgram(t *testing.T) {
	assert.Equal(t, 0.0, Evaluate(&ModelProgram{}, nil))
}

func TestEvaluate_NoAllocations(t *testing.T) {
	p := MustModelProgram(PushInput(0), PushInput(1), Binary(OpMul), PushConst(3), Binary(OpSub))
	in := []float64{2, 5}

	allocs := testing.AllocsPerRun(1000, func() {
		Evaluate(p, in)
	})
	assert.Zero(t, allocs)
}

func TestNewModelProgram_Capacity(t *testing.T) {
	// 64 pushes and 63 adds is the longest balanced program.
	ops := []Instruction{PushConst(1)}
	for len(ops) < MaxOps-1 {
		ops = append(ops, PushConst(1), Binary(OpAdd))
	}
	p, err := NewModelProgram(ops)
	require.NoError(t, err)
	assert.Equal(t, 64.0, Evaluate(p, nil))

	// Balanced programs have odd length, so MaxOps instructions clear the
	// length check and fail only on the leftover value.
	full := append(append([]Instruction{}, ops...), PushConst(7))
	require.Len(t, full, MaxOps)
	_, err = NewModelProgram(full)
	assert.ErrorIs(t, err, core.ErrUnbalancedResult)
	assert.NotErrorIs(t, err, core.ErrProgramTooLong)

	_, err = NewModelProgram(append(full, Binary(OpAdd)))
	assert.ErrorIs(t, err, core.ErrProgramTooLong)
}

func TestNewModelProgram_SingleResult(t *testing.T) {
	_, err := NewModelProgram([]Instruction{PushConst(1), PushConst(2)})
	assert.ErrorIs(t, err, core.ErrUnbalancedResult)

	_, err = NewModelProgram([]Instruction{PushInput(0), PushInput(1), PushInput(2), Binary(OpMul)})
	assert.ErrorIs(t, err, core.ErrUnbalancedResult)

	p, err := NewModelProgram([]Instruction{PushConst(1), PushConst(2), Binary(OpSub)})
	require.NoError(t, err)
	assert.Equal(t, -1.0, Evaluate(p, nil))
}

func TestNewModelProgram_InputIndex(t *testing.T) {
	_, err := NewModelProgram([]Instruction{PushInput(MaxInputs)})
	assert.ErrorIs(t, err, core.ErrInputIndex)

	_, err = NewModelProgram([]Instruction{PushInput(-1)})
	assert.ErrorIs(t, err, core.ErrInputIndex)

	p, err := NewModelProgram([]Instruction{PushInput(MaxInputs - 1)})
	require.NoError(t, err)
	assert.Equal(t, MaxInputs, p.InputCount())
}

func TestNewModelProgram_StackDiscipline(t *testing.T) {
	deep := make([]Instruction, 0, 2*MaxStack)
	for i := 0; i < MaxStack; i++ {
		deep = append(deep, PushConst(float32(i)))
	}
	for i := 0; i < MaxStack-1; i++ {
		deep = append(deep, Binary(OpAdd))
	}
	p, err := NewModelProgram(deep)
	require.NoError(t, err)
	assert.Equal(t, MaxStack, p.MaxDepth())
	assert.Equal(t, float64(MaxStack*(MaxStack-1)/2), Evaluate(p, nil))

	over := make([]Instruction, MaxStack+1)
	for i := range over {
		over[i] = PushConst(1)
	}
	_, err = NewModelProgram(over)
	assert.ErrorIs(t, err, core.ErrStackOverflow)

	_, err = NewModelProgram([]Instruction{PushConst(1), Binary(OpAdd)})
	assert.ErrorIs(t, err, core.ErrStackUnderflow)

	_, err = NewModelProgram([]Instruction{{Op: 9}})
	assert.ErrorIs(t, err, core.ErrUnknownOpcode)

	_, err = NewModelProgram(nil)
	assert.ErrorIs(t, err, core.ErrEmptyProgram)
	assert.True(t, core.IsProgramError(err))
}

func TestModelProgram_Immutable(t *testing.T) {
	ops := []Instruction{PushConst(1), PushConst(2), Binary(OpAdd)}
	p := MustModelProgram(ops...)

	ops[0] = PushConst(100)
	copied := p.Instructions()
	copied[1] = PushConst(100)

	assert.Equal(t, 3.0, Evaluate(p, nil))
	assert.Equal(t, []string{"000 PUSH_CONST 1", "001 PUSH_CONST 2", "002 ADD"}, p.Disassemble())
}

func BenchmarkEvaluate(b *testing.B) {
	p := MustModelProgram(
		PushInput(0), PushInput(1), Binary(OpAdd),
		PushInput(2), Binary(OpMul),
		PushConst(4), Binary(OpDiv),
	)
	in := []float64{1, 2, 3}
	b.ReportAllocs()
	var sink float64
	for i := 0; i < b.N; i++ {
		sink += Evaluate(p, in)
	}
	_ = sink
}
