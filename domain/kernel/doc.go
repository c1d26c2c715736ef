// Package kernel is the per-lane Monte Carlo core: a xorshift128+ generator,
// the inverse-CDF samplers driven by it, and a bounded stack machine that
// turns one trial's sampled inputs into a scalar result.
//
// Nothing here allocates, blocks, logs or returns an error on the hot path.
// Every lane owns its GeneratorState exclusively; ModelProgram and InputSet
// values are immutable once built and may be shared by any number of lanes.
// Failure modes degrade to numeric sentinels: an unknown family samples 0,
// division by zero yields the IEEE-754 result, and an all-zero generator
// state yields zero forever. Validation happens upstream, in NewModelProgram
// and in the orchestrator.
package kernel

// Fixed capacities shared with the host encoding.
const (
	MaxInputs = 32
	MaxStack  = 32
	MaxOps    = 128
)
