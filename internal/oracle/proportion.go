package oracle

import (
	"context"
	"math"

	"rankfair/domain/ranking"
	"rankfair/domain/verdict"
	"rankfair/internal/errors"
	"rankfair/internal/profiling"

	"gonum.org/v1/gonum/stat/distuv"
)

// ProportionOracle compares the share of each group that reaches the top-k
// with a two-proportion z-test.
type ProportionOracle struct{}

// NewProportionOracle creates the z-test oracle
func NewProportionOracle() *ProportionOracle {
	return &ProportionOracle{}
}

// Evaluate computes z = (ru - rp) / SE where rp and ru are the fractions of
// the protected and unprotected groups found in the clamped top-k, and
// returns the upper-tail standard normal probability of z. The lower tail is
// used when the alternative is flipped.
func (o *ProportionOracle) Evaluate(ctx context.Context, r *ranking.Ranking, g ranking.ProtectedGroup, opts Options) (*verdict.ProportionResult, error) {
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
	proK := view.ProtectedInTop(k)
	unproK := k - proK

	proN := float64(view.Rates.ProN)
	unproN := float64(view.Rates.UnproN)
	rp := float64(proK) / proN
	ru := float64(unproK) / unproN

	se := math.Sqrt(rp*(1-rp)/proN + ru*(1-ru)/unproN)
	if se == 0 || math.IsNaN(se) {
		return nil, errors.DegenerateGroup("pooled standard error is zero: top-%d selection rates are %v and %v", k, rp, ru)
	}
	z := (ru - rp) / se
	if math.IsNaN(z) || math.IsInf(z, 0) {
		return nil, errors.DegenerateGroup("z statistic is not finite for top-%d", k)
	}

	var tail float64
	if opts.Alternative.Flipped() {
		tail = distuv.UnitNormal.CDF(z)
	} else {
		tail = distuv.UnitNormal.Survival(z)
	}
	pValue, err := profiling.Round(tail, opts.Precision)
	if err != nil {
		return nil, errors.Wrap(err, "round proportion p-value")
	}

	return &verdict.ProportionResult{
		TopK:     k,
		ProK:     proK,
		UnproK:   unproK,
		Z:        z,
		PooledSE: se,
		PValue:   pValue,
	}, nil
}
