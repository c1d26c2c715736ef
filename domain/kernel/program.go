package kernel

import (
	"fmt"
	"strconv"

	"mcsim/domain/core"
)

// Opcode selects an instruction. The integer values are part of the host
// encoding and must not change.
type Opcode int32

const (
	OpAdd       Opcode = 0
	OpSub       Opcode = 1
	OpMul       Opcode = 2
	OpDiv       Opcode = 3
	OpPushInput Opcode = 4
	OpPushConst Opcode = 5
)

var opcodeNames = [...]string{
	OpAdd:       "ADD",
	OpSub:       "SUB",
	OpMul:       "MUL",
	OpDiv:       "DIV",
	OpPushInput: "PUSH_INPUT",
	OpPushConst: "PUSH_CONST",
}

// Valid reports whether op is a known opcode.
func (op Opcode) Valid() bool {
	return op >= OpAdd && op <= OpPushConst
}

// IsBinary reports whether op pops two values and pushes one.
func (op Opcode) IsBinary() bool {
	return op >= OpAdd && op <= OpDiv
}

func (op Opcode) String() string {
	if !op.Valid() {
		return "OP(" + strconv.Itoa(int(op)) + ")"
	}
	return opcodeNames[op]
}

// Instruction is one bytecode operation. Index is the input slot for
// PUSH_INPUT; Literal is the value for PUSH_CONST. Both are ignored otherwise.
type Instruction struct {
	Op      Opcode  `json:"op"`
	Index   int32   `json:"index"`
	Literal float32 `json:"literal"`
}

// PushConst, PushInput and Binary build instructions.
func PushConst(v float32) Instruction { return Instruction{Op: OpPushConst, Literal: v} }
func PushInput(i int) Instruction     { return Instruction{Op: OpPushInput, Index: int32(i)} }
func Binary(op Opcode) Instruction    { return Instruction{Op: op} }

func (ins Instruction) String() string {
	switch ins.Op {
	case OpPushConst:
		return fmt.Sprintf("%s %g", ins.Op, ins.Literal)
	case OpPushInput:
		return fmt.Sprintf("%s %d", ins.Op, ins.Index)
	default:
		return ins.Op.String()
	}
}

// ModelProgram is an immutable, fixed-capacity instruction sequence. The
// only way to obtain a non-empty one is NewModelProgram, which proves the
// stack discipline once so that Evaluate never has to.
type ModelProgram struct {
	ops      [MaxOps]Instruction
	n        int
	maxDepth int
	inputs   int
}

// NewModelProgram copies ops into a program after checking capacity,
// opcodes, input indices and stack depth. The program must end with
// exactly one value on the stack, which is the trial result.
func NewModelProgram(ops []Instruction) (*ModelProgram, error) {
	if len(ops) == 0 {
		return nil, core.ErrEmptyProgram
	}
	if len(ops) > MaxOps {
		return nil, fmt.Errorf("%w: %d > %d", core.ErrProgramTooLong, len(ops), MaxOps)
	}

	p := &ModelProgram{n: len(ops)}
	depth := 0
	for i, ins := range ops {
		switch {
		case ins.Op == OpPushConst:
			depth++
		case ins.Op == OpPushInput:
			if ins.Index < 0 || ins.Index >= MaxInputs {
				return nil, core.NewProgramError(core.ErrInputIndex, i, fmt.Sprintf("index %d not in [0,%d)", ins.Index, MaxInputs))
			}
			if int(ins.Index)+1 > p.inputs {
				p.inputs = int(ins.Index) + 1
			}
			depth++
		case ins.Op.IsBinary():
			if depth < 2 {
				return nil, core.NewProgramError(core.ErrStackUnderflow, i, fmt.Sprintf("%s needs 2 operands, have %d", ins.Op, depth))
			}
			depth--
		default:
			return nil, core.NewProgramError(core.ErrUnknownOpcode, i, ins.Op.String())
		}
		if depth > MaxStack {
			return nil, core.NewProgramError(core.ErrStackOverflow, i, fmt.Sprintf("depth %d > %d", depth, MaxStack))
		}
		if depth > p.maxDepth {
			p.maxDepth = depth
		}
		p.ops[i] = ins
	}
	if depth != 1 {
		return nil, core.NewProgramError(core.ErrUnbalancedResult, len(ops)-1, fmt.Sprintf("final depth %d", depth))
	}
	return p, nil
}

// MustModelProgram is like NewModelProgram but panics on error. It is meant
// for fixed programs in tests and examples.
func MustModelProgram(ops ...Instruction) *ModelProgram {
	p, err := NewModelProgram(ops)
	if err != nil {
		panic(err)
	}
	return p
}

// Len returns the number of instructions.
func (p *ModelProgram) Len() int { return p.n }

// At returns instruction i.
func (p *ModelProgram) At(i int) Instruction { return p.ops[i] }

// MaxDepth returns the deepest stack the program reaches.
func (p *ModelProgram) MaxDepth() int { return p.maxDepth }

// InputCount returns one past the highest input index the program reads.
func (p *ModelProgram) InputCount() int { return p.inputs }

// Instructions returns a copy of the instruction sequence.
func (p *ModelProgram) Instructions() []Instruction {
	out := make([]Instruction, p.n)
	copy(out, p.ops[:p.n])
	return out
}

// Disassemble renders one instruction per line, prefixed with its offset.
func (p *ModelProgram) Disassemble() []string {
	lines := make([]string, p.n)
	for i := 0; i < p.n; i++ {
		lines[i] = fmt.Sprintf("%03d %s", i, p.ops[i])
	}
	return lines
}
