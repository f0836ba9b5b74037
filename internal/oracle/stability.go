package oracle

import (
	"math"

	"rankfair/domain/ranking"
	"rankfair/domain/verdict"
	"rankfair/internal/errors"
	"rankfair/internal/profiling"

	"gonum.org/v1/gonum/stat"
)

// Slope fits an ordinary least-squares line to scores against the positions
// 1..N and returns the absolute value of the slope rounded to precision
// decimal places.
func Slope(scores []float64, precision int) (float64, error) {
	if len(scores) < 2 {
		return 0, errors.InvalidInput("slope needs at least 2 scores, got %d", len(scores))
	}
	if precision < 0 || precision > maxPrecision {
		return 0, errors.InvalidInput("precision must be between 0 and %d, got %d", maxPrecision, precision)
	}

	xs := make([]float64, len(scores))
	for i, s := range scores {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return 0, errors.InvalidInput("score at position %d is not finite", i+1)
		}
		xs[i] = float64(i + 1)
	}

	_, beta := stat.LinearRegression(xs, scores, nil, false)
	rounded, err := profiling.Round(beta, precision)
	if err != nil {
		return 0, errors.Wrap(err, "round slope")
	}
	return math.Abs(rounded), nil
}

// RankingSlope computes the slope over the sorted scores of a ranking
func RankingSlope(r *ranking.Ranking, precision int) (*verdict.StabilityResult, error) {
	slope, err := Slope(r.Scores, precision)
	if err != nil {
		return nil, err
	}
	return &verdict.StabilityResult{Slope: slope, N: len(r.Scores)}, nil
}
