package ranking

import (
	"sort"

	"rankfair/internal/errors"
)

// DefaultDiversityTopN is the head size compared against the full ranking
const DefaultDiversityTopN = 10

// CategoryShare compares how often one attribute value appears at the head of
// the ranking with how often it appears overall.
type CategoryShare struct {
	Value    string  `json:"value" yaml:"value"`
	TopCount int     `json:"top_count" yaml:"top_count"`
	TopShare float64 `json:"top_share" yaml:"top_share"`
	AllCount int     `json:"all_count" yaml:"all_count"`
	AllShare float64 `json:"all_share" yaml:"all_share"`
}

// DiversityProfile lists category shares for one attribute, most common first
type DiversityProfile struct {
	Attribute string          `json:"attribute" yaml:"attribute"`
	TopN      int             `json:"top_n" yaml:"top_n"`
	Shares    []CategoryShare `json:"shares" yaml:"shares"`
}

// Diversity compares the value distribution of attr in the first topN ranks
// with its distribution over the whole ranking. topN larger than the ranking
// is reduced to its length.
func (r *Ranking) Diversity(attr string, topN int) (*DiversityProfile, error) {
	if topN <= 0 {
		return nil, errors.InvalidInput("top-n must be positive, got %d", topN)
	}
	values, err := r.Attribute(attr)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, errors.InvalidInput("ranking is empty")
	}
	if topN > len(values) {
		topN = len(values)
	}

	top := make(map[string]int)
	all := make(map[string]int)
	for i, v := range values {
		all[v]++
		if i < topN {
			top[v]++
		}
	}

	shares := make([]CategoryShare, 0, len(all))
	for v, n := range all {
		shares = append(shares, CategoryShare{
			Value:    v,
			TopCount: top[v],
			TopShare: float64(top[v]) / float64(topN),
			AllCount: n,
			AllShare: float64(n) / float64(len(values)),
		})
	}
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].AllCount != shares[j].AllCount {
			return shares[i].AllCount > shares[j].AllCount
		}
		return shares[i].Value < shares[j].Value
	})

	return &DiversityProfile{Attribute: attr, TopN: topN, Shares: shares}, nil
}
