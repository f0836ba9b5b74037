package oracle

import (
	"context"
	"fmt"
	"math"

	"rankfair/domain/ranking"
	"rankfair/domain/verdict"
	"rankfair/internal/errors"
	"rankfair/internal/profiling"
	"rankfair/ports"
)

// RankProbabilityOracle tests the top-k window against a ranking process that
// picks a protected record at each position with the full-dataset base rate.
type RankProbabilityOracle struct {
	tester ports.RankFairnessTester
}

// NewRankProbabilityOracle creates the oracle around a fair-ranking primitive
func NewRankProbabilityOracle(tester ports.RankFairnessTester) *RankProbabilityOracle {
	return &RankProbabilityOracle{tester: tester}
}

// Evaluate clamps top-k to half the ranking, tags the window and asks the
// primitive for its p-value, verdict, first failing position and adjusted
// alpha. Only the adjusted alpha is rounded.
func (o *RankProbabilityOracle) Evaluate(ctx context.Context, r *ranking.Ranking, g ranking.ProtectedGroup, opts Options) (*verdict.RankProbabilityResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	view, err := r.Group(g)
	if err != nil {
		return nil, err
	}

	k := ranking.ClampTopK(opts.TopK, view.Rates.TotalN)
	flip := opts.Alternative.Flipped()
	p := view.Rates.ProProb
	if flip {
		p = 1 - p
	}

	res, err := o.tester.FairRankingProbability(k, p, view.Transform(k, flip))
	if err != nil {
		return nil, errors.ExternalOracleFailure("fair ranking probability", err)
	}
	if err := checkRankProbability(res, k); err != nil {
		return nil, errors.ExternalOracleFailure("fair ranking probability", err)
	}

	alpha, err := profiling.Round(res.AdjustedAlpha, opts.Precision)
	if err != nil {
		return nil, errors.ExternalOracleFailure("fair ranking probability", err)
	}

	return &verdict.RankProbabilityResult{
		TopK:            k,
		PValue:          res.PValue,
		Fair:            res.Fair,
		FailPosition:    res.FailPosition,
		AdjustedAlpha:   alpha,
		ProtectedNeeded: res.ProtectedNeeded,
	}, nil
}

func checkRankProbability(res ports.RankProbability, k int) error {
	if math.IsNaN(res.PValue) || res.PValue < 0 || res.PValue > 1 {
		return fmt.Errorf("p-value %v outside [0, 1]", res.PValue)
	}
	if math.IsNaN(res.AdjustedAlpha) || res.AdjustedAlpha <= 0 || res.AdjustedAlpha > 1 {
		return fmt.Errorf("adjusted alpha %v outside (0, 1]", res.AdjustedAlpha)
	}
	if res.FailPosition != nil {
		if res.Fair {
			return fmt.Errorf("fair verdict reported with failing position %d", *res.FailPosition)
		}
		if *res.FailPosition < 1 || *res.FailPosition > k {
			return fmt.Errorf("failing position %d outside [1, %d]", *res.FailPosition, k)
		}
	}
	return nil
}
