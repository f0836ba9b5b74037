package ports

import (
	"context"
	"math/rand"
)

// RNGPort provides seeded random number generation for deterministic operations
type RNGPort interface {
	// Stream creates the deterministic generator for one trial of a named
	// operation, so concurrent trials draw identical values regardless of
	// scheduling.
	Stream(ctx context.Context, name string, trial int, baseSeed int64) (*rand.Rand, error)
}
