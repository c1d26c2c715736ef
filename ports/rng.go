package ports

import (
	"context"

	"mcsim/domain/kernel"
)

// RNGPort provides seeded random number generation for deterministic runs
type RNGPort interface {
	// SeedLanes derives one non-degenerate, mutually decorrelated generator
	// state per lane. The same stream key, baseSeed and lane count always
	// yield the same states.
	SeedLanes(ctx context.Context, streamKey string, baseSeed int64, lanes int) ([]kernel.GeneratorState, error)

	// ValidateSeed replays a lane state and checks its first uniform draws
	ValidateSeed(ctx context.Context, state kernel.GeneratorState, expected []float64) error
}
