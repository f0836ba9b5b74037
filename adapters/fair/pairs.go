package fair

import (
	"rankfair/domain/ranking"
	"rankfair/ports"
)

// PairCounter implements ports.PairCounter over a prepared ranking
type PairCounter struct{}

// NewPairCounter creates a pair counter
func NewPairCounter() *PairCounter {
	return &PairCounter{}
}

// CountPreferredPairs applies ranking.PreferredPairs to the real protected
// positions, the same count the simulation draws for each fair ranking.
func (c *PairCounter) CountPreferredPairs(r *ranking.Ranking, g ranking.ProtectedGroup) (ports.PairCount, error) {
	view, err := r.Group(g)
	if err != nil {
		return ports.PairCount{}, err
	}
	return ports.PairCount{
		Preferred: ranking.PreferredPairs(view.ProtectedPositions(), view.Rates.TotalN),
		ProN:      view.Rates.ProN,
		UnproN:    view.Rates.UnproN,
	}, nil
}
