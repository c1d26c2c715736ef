package kernel

import (
	"encoding/binary"
	"fmt"
	"math"

	"mcsim/domain/core"
)

// Encoded sizes in bytes. All encodings are little-endian.
const (
	GeneratorStateSize   = 16
	DistributionSpecSize = 12
	InstructionSize      = 12
)

func (g GeneratorState) MarshalBinary() ([]byte, error) {
	b := make([]byte, GeneratorStateSize)
	binary.LittleEndian.PutUint64(b[0:], g.S0)
	binary.LittleEndian.PutUint64(b[8:], g.S1)
	return b, nil
}

func (g *GeneratorState) UnmarshalBinary(b []byte) error {
	if len(b) < GeneratorStateSize {
		return fmt.Errorf("generator state: %w (%d < %d)", core.ErrShortBuffer, len(b), GeneratorStateSize)
	}
	g.S0 = binary.LittleEndian.Uint64(b[0:])
	g.S1 = binary.LittleEndian.Uint64(b[8:])
	return nil
}

func (d DistributionSpec) MarshalBinary() ([]byte, error) {
	b := make([]byte, DistributionSpecSize)
	binary.LittleEndian.PutUint32(b[0:], math.Float32bits(d.Param1))
	binary.LittleEndian.PutUint32(b[4:], math.Float32bits(d.Param2))
	binary.LittleEndian.PutUint32(b[8:], math.Float32bits(d.Param3))
	return b, nil
}

func (d *DistributionSpec) UnmarshalBinary(b []byte) error {
	if len(b) < DistributionSpecSize {
		return fmt.Errorf("distribution spec: %w (%d < %d)", core.ErrShortBuffer, len(b), DistributionSpecSize)
	}
	d.Param1 = math.Float32frombits(binary.LittleEndian.Uint32(b[0:]))
	d.Param2 = math.Float32frombits(binary.LittleEndian.Uint32(b[4:]))
	d.Param3 = math.Float32frombits(binary.LittleEndian.Uint32(b[8:]))
	return nil
}

func (ins Instruction) MarshalBinary() ([]byte, error) {
	b := make([]byte, InstructionSize)
	ins.put(b)
	return b, nil
}

func (ins Instruction) put(b []byte) {
	binary.LittleEndian.PutUint32(b[0:], uint32(ins.Op))
	binary.LittleEndian.PutUint32(b[4:], uint32(ins.Index))
	binary.LittleEndian.PutUint32(b[8:], math.Float32bits(ins.Literal))
}

func (ins *Instruction) UnmarshalBinary(b []byte) error {
	if len(b) < InstructionSize {
		return fmt.Errorf("instruction: %w (%d < %d)", core.ErrShortBuffer, len(b), InstructionSize)
	}
	ins.Op = Opcode(int32(binary.LittleEndian.Uint32(b[0:])))
	ins.Index = int32(binary.LittleEndian.Uint32(b[4:]))
	ins.Literal = math.Float32frombits(binary.LittleEndian.Uint32(b[8:]))
	return nil
}

// EncodeProgram packs the program's instructions back to back.
func EncodeProgram(p *ModelProgram) []byte {
	b := make([]byte, p.n*InstructionSize)
	for i := 0; i < p.n; i++ {
		p.ops[i].put(b[i*InstructionSize:])
	}
	return b
}

// DecodeProgram unpacks instructions and validates them with NewModelProgram.
func DecodeProgram(b []byte) (*ModelProgram, error) {
	if len(b)%InstructionSize != 0 {
		return nil, fmt.Errorf("program: %w (length %d is not a multiple of %d)", core.ErrShortBuffer, len(b), InstructionSize)
	}
	ops := make([]Instruction, len(b)/InstructionSize)
	for i := range ops {
		if err := ops[i].UnmarshalBinary(b[i*InstructionSize:]); err != nil {
			return nil, err
		}
	}
	return NewModelProgram(ops)
}
