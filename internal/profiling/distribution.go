package profiling

import (
	"sort"

	"rankfair/domain/verdict"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// DistributionAnalyzer summarises simulated null distributions
type DistributionAnalyzer struct{}

// NewDistributionAnalyzer creates a new distribution analyzer
func NewDistributionAnalyzer() *DistributionAnalyzer {
	return &DistributionAnalyzer{}
}

// Summarize computes the location and spread of a set of simulated samples
func (da *DistributionAnalyzer) Summarize(data []float64) (verdict.NullDistributionSummary, error) {
	summary := verdict.NullDistributionSummary{}

	mean, err := stats.Mean(data)
	if err != nil {
		return summary, err
	}

	stdDev, err := stats.StandardDeviation(data)
	if err != nil {
		return summary, err
	}

	min, err := stats.Min(data)
	if err != nil {
		return summary, err
	}

	max, err := stats.Max(data)
	if err != nil {
		return summary, err
	}

	// stats.Percentile rejects low percentiles of short samples
	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)
	p5 := stat.Quantile(0.05, stat.Empirical, sorted, nil)
	p95 := stat.Quantile(0.95, stat.Empirical, sorted, nil)

	summary.Mean = mean
	summary.StdDev = stdDev
	summary.Min = min
	summary.Max = max
	summary.Percentile5 = p5
	summary.Percentile95 = p95

	return summary, nil
}

// Round rounds half away from zero to the given number of decimal places
func Round(value float64, places int) (float64, error) {
	return stats.Round(value, places)
}
