package ports

import (
	"math/rand"

	"rankfair/domain/classification"
	"rankfair/domain/ranking"
)

// RankProbability is the answer of a fair-ranking-probability primitive
type RankProbability struct {
	PValue float64
	Fair   bool
	// FailPosition is the 1-based prefix length at which the ranking first
	// falls short of the required protected count, nil if it never does.
	FailPosition    *int
	AdjustedAlpha   float64
	ProtectedNeeded []int
}

// RankFairnessTester decides whether a top-k ranking could have been
// produced by a process that picks a TagProtected item with probability p at
// every position.
type RankFairnessTester interface {
	FairRankingProbability(k int, p float64, ranking []ranking.TaggedItem) (RankProbability, error)
}

// FairRankingGenerator produces a randomized fair permutation of pool where
// each position is filled from protected with probability p.
type FairRankingGenerator interface {
	Generate(rng *rand.Rand, pool []int, protected []int, p float64) ([]int, error)
}

// PairCount is the observed protected-preferred pair count of a ranking
type PairCount struct {
	Preferred int
	ProN      int
	UnproN    int
}

// PairCounter counts protected-preferred pairs in a prepared ranking
type PairCounter interface {
	CountPreferredPairs(r *ranking.Ranking, g ranking.ProtectedGroup) (PairCount, error)
}

// ClassificationMetrics computes the five classification fairness statistics
// for one privileged/unprivileged split.
type ClassificationMetrics interface {
	Compute(ds *classification.LabeledDataset, predicted []float64, privileged, unprivileged classification.GroupSpec) (classification.MetricValues, error)
}
