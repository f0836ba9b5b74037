package fair

import (
	"fmt"
	"math/rand"
)

// Generator implements ports.FairRankingGenerator
type Generator struct{}

// NewGenerator creates a fair ranking generator
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate merges the protected and unprotected members of pool, keeping each
// group's relative order. Every position takes the next protected item with
// probability p; once a group runs out the other fills the remaining slots.
func (g *Generator) Generate(rng *rand.Rand, pool []int, protected []int, p float64) ([]int, error) {
	if rng == nil {
		return nil, fmt.Errorf("random source is nil")
	}
	if !(p >= 0 && p <= 1) {
		return nil, fmt.Errorf("protected probability must lie in [0, 1], got %v", p)
	}

	inPool := make(map[int]bool, len(pool))
	for _, id := range pool {
		inPool[id] = true
	}
	isProtected := make(map[int]bool, len(protected))
	for _, id := range protected {
		if !inPool[id] {
			return nil, fmt.Errorf("protected id %d is not in the pool", id)
		}
		isProtected[id] = true
	}

	pro := make([]int, 0, len(protected))
	unpro := make([]int, 0, len(pool)-len(protected))
	for _, id := range pool {
		if isProtected[id] {
			pro = append(pro, id)
		} else {
			unpro = append(unpro, id)
		}
	}

	out := make([]int, 0, len(pool))
	for len(pro) > 0 || len(unpro) > 0 {
		takePro := len(unpro) == 0 || (len(pro) > 0 && rng.Float64() < p)
		if takePro {
			out = append(out, pro[0])
			pro = pro[1:]
		} else {
			out = append(out, unpro[0])
			unpro = unpro[1:]
		}
	}
	return out, nil
}
