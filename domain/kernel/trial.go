package kernel

import (
	"fmt"

	"mcsim/domain/core"
)

// InputSet is the read-only list of declared model inputs, in declaration
// order. Input i of the set feeds PUSH_INPUT i.
type InputSet struct {
	specs    [MaxInputs]DistributionSpec
	families [MaxInputs]Family
	n        int
}

// NewInputSet builds an InputSet from parallel slices. Family tags are not
// range-checked here: an unknown family samples 0 at run time.
func NewInputSet(specs []DistributionSpec, families []Family) (*InputSet, error) {
	if len(specs) != len(families) {
		return nil, fmt.Errorf("%d specs but %d families", len(specs), len(families))
	}
	if len(specs) > MaxInputs {
		return nil, fmt.Errorf("%w: %d > %d", core.ErrTooManyInputs, len(specs), MaxInputs)
	}
	s := &InputSet{n: len(specs)}
	copy(s.specs[:], specs)
	copy(s.families[:], families)
	return s, nil
}

// Len returns the number of declared inputs.
func (s *InputSet) Len() int { return s.n }

// At returns the spec and family of input i.
func (s *InputSet) At(i int) (DistributionSpec, Family) {
	return s.specs[i], s.families[i]
}

// DrawsPerTrial returns how many uniform draws one trial consumes.
func (s *InputSet) DrawsPerTrial() int {
	total := 0
	for i := 0; i < s.n; i++ {
		total += DrawCount(s.families[i])
	}
	return total
}

// SampleInto draws every input once, in declaration order, into dst.
func (s *InputSet) SampleInto(state *GeneratorState, dst *[MaxInputs]float64) {
	for i := 0; i < s.n; i++ {
		dst[i] = Sample(state, s.specs[i], s.families[i])
	}
}

// CheckCompatible reports whether program only reads inputs that exist.
func CheckCompatible(program *ModelProgram, inputs *InputSet) error {
	if program.InputCount() > inputs.Len() {
		return fmt.Errorf("%w: program reads input %d but only %d declared",
			core.ErrInputIndex, program.InputCount()-1, inputs.Len())
	}
	return nil
}

// RunTrial samples every input once and evaluates program on the result.
func RunTrial(state *GeneratorState, inputs *InputSet, program *ModelProgram) float64 {
	var scratch [MaxInputs]float64
	inputs.SampleInto(state, &scratch)
	return Evaluate(program, scratch[:inputs.n])
}

// RunLane runs len(out) consecutive trials on one lane's state, writing one
// result per slot.
func RunLane(state *GeneratorState, inputs *InputSet, program *ModelProgram, out []float64) {
	var scratch [MaxInputs]float64
	for t := range out {
		inputs.SampleInto(state, &scratch)
		out[t] = Evaluate(program, scratch[:inputs.n])
	}
}
