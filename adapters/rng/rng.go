package rng

import (
	"context"
	"hash/fnv"
	"math/rand"
)

// SeededAdapter implements ports.RNGPort with math/rand sources whose seeds are
// derived from the operation name, trial number and base seed.
type SeededAdapter struct{}

// NewSeededAdapter creates a seeded RNG adapter
func NewSeededAdapter() *SeededAdapter {
	return &SeededAdapter{}
}

// Stream creates the generator for one trial of a named operation
func (a *SeededAdapter) Stream(ctx context.Context, name string, trial int, baseSeed int64) (*rand.Rand, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	seed := mix(uint64(baseSeed)^hashString(name)) + uint64(trial)*0x9e3779b97f4a7c15
	return rand.New(rand.NewSource(int64(mix(seed)))), nil
}

func hashString(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

// mix is the splitmix64 finalizer; neighbouring trial numbers end up with
// unrelated seeds.
func mix(z uint64) uint64 {
	z ^= z >> 30
	z *= 0xbf58476d1ce4e5b9
	z ^= z >> 27
	z *= 0x94d049bb133111eb
	z ^= z >> 31
	return z
}
