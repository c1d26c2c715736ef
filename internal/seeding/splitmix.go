package seeding

import (
	"context"
	"fmt"

	"mcsim/domain/core"
	"mcsim/domain/kernel"
	"mcsim/ports"
)

// golden gamma of splitmix64
const gamma = 0x9E3779B97F4A7C15

// mix is the splitmix64 finalizer. It is a bijection with mix(0) == 0.
func mix(z uint64) uint64 {
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

// hashString is 64-bit djb2, used to fold run and stage names into seeds.
func hashString(s string) uint64 {
	var hash uint64 = 5381
	for _, c := range s {
		hash = ((hash << 5) + hash) + uint64(c)
	}
	return hash
}

// LaneState returns the generator state of one lane. Lane i reads outputs
// 2i+1 and 2i+2 of a splitmix64 stream rooted at root, so lanes never share
// words. Because mix is a bijection the two words are distinct and at most
// one of them can be zero; the all-zero pair cannot occur.
func LaneState(root uint64, lane int) kernel.GeneratorState {
	k := uint64(lane)
	return kernel.GeneratorState{
		S0: mix(root + (2*k+1)*gamma),
		S1: mix(root + (2*k+2)*gamma),
	}
}

// Root combines a stream key and a user seed into a stream root.
func Root(streamKey string, baseSeed int64) uint64 {
	return mix(uint64(baseSeed)) ^ hashString(streamKey)
}

// SplitMixSeeder implements ports.RNGPort with splitmix64 lane derivation.
type SplitMixSeeder struct{}

var _ ports.RNGPort = (*SplitMixSeeder)(nil)

// NewSplitMixSeeder creates a seeder.
func NewSplitMixSeeder() *SplitMixSeeder {
	return &SplitMixSeeder{}
}

// SeedLanes derives lanes generator states for a run.
func (s *SplitMixSeeder) SeedLanes(ctx context.Context, streamKey string, baseSeed int64, lanes int) ([]kernel.GeneratorState, error) {
	if lanes <= 0 {
		return nil, core.NewValidationError("lanes", fmt.Sprintf("must be positive, got %d", lanes))
	}
	root := Root(streamKey, baseSeed)
	states := make([]kernel.GeneratorState, lanes)
	for i := range states {
		// Seeding millions of lanes is cheap, but honour cancellation anyway.
		if i&0xFFFF == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		states[i] = LaneState(root, i)
	}
	return states, nil
}

// ValidateSeed replays state and compares its first uniform draws with expected.
func (s *SplitMixSeeder) ValidateSeed(ctx context.Context, state kernel.GeneratorState, expected []float64) error {
	if err := ValidateState(state); err != nil {
		return err
	}
	for i, want := range expected {
		if got := state.NextUniform(); got != want {
			return fmt.Errorf("%w: draw %d is %v, expected %v", core.ErrSeedMismatch, i, got, want)
		}
	}
	return nil
}

// ValidateState rejects the all-zero state.
func ValidateState(state kernel.GeneratorState) error {
	if state.IsDegenerate() {
		return core.ErrDegenerateSeed
	}
	return nil
}
