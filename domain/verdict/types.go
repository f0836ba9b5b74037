package verdict

import (
	"fmt"
	"strings"
	"time"

	"rankfair/domain/core"
	"rankfair/domain/ranking"
)

// Alternative fixes which direction of unfairness a one-sided test looks for
type Alternative string

const (
	// ProtectedDisadvantaged: a small p-value means the protected group is
	// under-represented at the top.
	ProtectedDisadvantaged Alternative = "disadvantaged"
	// ProtectedAdvantaged: a small p-value means the protected group is
	// over-represented at the top.
	ProtectedAdvantaged Alternative = "advantaged"
)

// ParseAlternative accepts the two direction names, case-insensitively.
// An empty string selects ProtectedDisadvantaged.
func ParseAlternative(s string) (Alternative, error) {
	switch Alternative(strings.ToLower(strings.TrimSpace(s))) {
	case "", ProtectedDisadvantaged:
		return ProtectedDisadvantaged, nil
	case ProtectedAdvantaged:
		return ProtectedAdvantaged, nil
	default:
		return "", fmt.Errorf("unknown alternative %q (want %q or %q)", s, ProtectedDisadvantaged, ProtectedAdvantaged)
	}
}

// Flipped reports whether the roles of the two groups are swapped
func (a Alternative) Flipped() bool {
	return a == ProtectedAdvantaged
}

// RankProbabilityResult is the outcome of the FA*IR-style rank test
type RankProbabilityResult struct {
	TopK            int     `json:"top_k" yaml:"top_k"`
	PValue          float64 `json:"p_value" yaml:"p_value"`
	// Fair is the test's own verdict: no prefix failed at AdjustedAlpha.
	// Summary.RankFair is decided from PValue instead.
	Fair            bool    `json:"fair" yaml:"fair"`
	FailPosition    *int    `json:"fail_position,omitempty" yaml:"fail_position,omitempty"`
	AdjustedAlpha   float64 `json:"adjusted_alpha" yaml:"adjusted_alpha"`
	ProtectedNeeded []int   `json:"protected_needed,omitempty" yaml:"protected_needed,omitempty"`
}

// NullDistributionSummary provides key statistics about the simulated distribution
type NullDistributionSummary struct {
	Mean         float64 `json:"mean" yaml:"mean"`
	StdDev       float64 `json:"std_dev" yaml:"std_dev"`
	Min          float64 `json:"min" yaml:"min"`
	Max          float64 `json:"max" yaml:"max"`
	Percentile5  float64 `json:"percentile_5" yaml:"percentile_5"`
	Percentile95 float64 `json:"percentile_95" yaml:"percentile_95"`
}

// PairwiseResult is the outcome of the pairwise simulation test
type PairwiseResult struct {
	Runs          int                     `json:"runs" yaml:"runs"`
	ObservedPairs int                     `json:"observed_pairs" yaml:"observed_pairs"`
	PValue        float64                 `json:"p_value" yaml:"p_value"`
	Null          NullDistributionSummary `json:"null_distribution" yaml:"null_distribution"`
}

// ProportionResult is the outcome of the two-proportion z-test
type ProportionResult struct {
	TopK     int     `json:"top_k" yaml:"top_k"`
	ProK     int     `json:"pro_k" yaml:"pro_k"`
	UnproK   int     `json:"unpro_k" yaml:"unpro_k"`
	Z        float64 `json:"z" yaml:"z"`
	PooledSE float64 `json:"pooled_se" yaml:"pooled_se"`
	PValue   float64 `json:"p_value" yaml:"p_value"`
}

// StabilityResult is the absolute slope of the score trend
type StabilityResult struct {
	Slope float64 `json:"slope" yaml:"slope"`
	N     int     `json:"n" yaml:"n"`
}

// Summary applies the classifiers to each diagnostic
type Summary struct {
	RankFair       bool `json:"rank_fair" yaml:"rank_fair"`
	PairwiseFair   bool `json:"pairwise_fair" yaml:"pairwise_fair"`
	ProportionFair bool `json:"proportion_fair" yaml:"proportion_fair"`
	Stable         bool `json:"stable" yaml:"stable"`
}

// Report bundles every diagnostic computed for one ranking and group
type Report struct {
	ID              core.ReportID             `json:"id" yaml:"id"`
	DatasetName     string                    `json:"dataset_name,omitempty" yaml:"dataset_name,omitempty"`
	DatasetHash     core.Hash                 `json:"dataset_hash" yaml:"dataset_hash"`
	ScoreColumn     string                    `json:"score_column" yaml:"score_column"`
	Group           ranking.ProtectedGroup    `json:"group" yaml:"group"`
	Rates           ranking.BaseRates         `json:"base_rates" yaml:"base_rates"`
	Alternative     Alternative               `json:"alternative" yaml:"alternative"`
	Seed            int64                     `json:"seed" yaml:"seed"`
	RankProbability *RankProbabilityResult    `json:"rank_probability" yaml:"rank_probability"`
	Pairwise        *PairwiseResult           `json:"pairwise" yaml:"pairwise"`
	Proportion      *ProportionResult         `json:"proportion" yaml:"proportion"`
	Stability       *StabilityResult          `json:"stability" yaml:"stability"`
	Diversity       *ranking.DiversityProfile `json:"diversity,omitempty" yaml:"diversity,omitempty"`
	Summary         Summary                   `json:"summary" yaml:"summary"`
	CreatedAt       time.Time                 `json:"created_at" yaml:"created_at"`
}
