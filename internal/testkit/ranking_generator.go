package testkit

import (
	"fmt"
	"math"
	"math/rand"

	"rankfair/domain/ranking"
)

// RankingGeneratorConfig configures the synthetic ranking generator
type RankingGeneratorConfig struct {
	Records          int     `json:"records"`
	ProtectedShare   float64 `json:"protected_share"`
	Bias             float64 `json:"bias"` // score penalty applied to protected records
	ScoreColumn      string  `json:"score_column"`
	Attribute        string  `json:"attribute"`
	ProtectedValue   string  `json:"protected_value"`
	UnprotectedValue string  `json:"unprotected_value"`
	Seed             int64   `json:"seed"`
}

// DefaultRankingConfig returns sensible defaults for ranking generation
func DefaultRankingConfig() RankingGeneratorConfig {
	return RankingGeneratorConfig{
		Records:          400,
		ProtectedShare:   0.5,
		ScoreColumn:      "Score",
		Attribute:        "group",
		ProtectedValue:   "P",
		UnprotectedValue: "U",
		Seed:             42,
	}
}

// RankingGenerator generates scored records with a protected attribute
type RankingGenerator struct {
	config RankingGeneratorConfig
	rng    *rand.Rand
}

// NewRankingGenerator creates a new ranking generator
func NewRankingGenerator(config RankingGeneratorConfig) *RankingGenerator {
	return &RankingGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Generate draws uniform scores and assigns exactly
// round(Records*ProtectedShare) records to the protected group at random.
// Protected scores are lowered by Bias.
func (g *RankingGenerator) Generate() (*ranking.Dataset, error) {
	n := g.config.Records
	if n < 1 {
		return nil, fmt.Errorf("records must be positive, got %d", n)
	}
	if g.config.ProtectedShare < 0 || g.config.ProtectedShare > 1 {
		return nil, fmt.Errorf("protected share %v outside [0, 1]", g.config.ProtectedShare)
	}

	proN := int(math.Round(float64(n) * g.config.ProtectedShare))
	perm := g.rng.Perm(n)

	ids := make([]string, n)
	scores := make([]float64, n)
	groups := make([]string, n)
	for i := 0; i < n; i++ {
		ids[i] = fmt.Sprintf("rec_%04d", i+1)
		scores[i] = g.rng.Float64() * 100
		groups[i] = g.config.UnprotectedValue
	}
	for _, idx := range perm[:proN] {
		groups[idx] = g.config.ProtectedValue
		scores[idx] -= g.config.Bias
	}

	return ranking.FromColumns(ids,
		map[string][]float64{g.config.ScoreColumn: scores},
		map[string][]string{g.config.Attribute: groups},
	)
}
