package testkit

import (
	"context"
	"sort"
	"sync"

	"rankfair/domain/classification"
	"rankfair/domain/core"
	"rankfair/domain/ranking"
	"rankfair/domain/verdict"
	"rankfair/internal/errors"
)

// ScenarioGroup is the protected group of ScenarioDataset
var ScenarioGroup = ranking.ProtectedGroup{Attribute: "group", Value: "P"}

// ScenarioDataset returns ten records where the two protected records hold
// the two highest scores. The protected base rate is 0.2 and the clamped
// top-k window is 5.
func ScenarioDataset() (*ranking.Dataset, error) {
	return ranking.FromColumns(
		[]string{"r01", "r02", "r03", "r04", "r05", "r06", "r07", "r08", "r09", "r10"},
		map[string][]float64{"Score": {95, 90, 80, 75, 70, 60, 55, 50, 40, 30}},
		map[string][]string{"group": {"P", "P", "U", "U", "U", "U", "U", "U", "U", "U"}},
	)
}

// CountdownDataset is ScenarioDataset with the scores 10 down to 1, so the
// scores fall exactly one point per rank.
func CountdownDataset() (*ranking.Dataset, error) {
	return ranking.FromColumns(
		[]string{"r01", "r02", "r03", "r04", "r05", "r06", "r07", "r08", "r09", "r10"},
		map[string][]float64{"Score": {10, 9, 8, 7, 6, 5, 4, 3, 2, 1}},
		map[string][]string{"group": {"P", "P", "U", "U", "U", "U", "U", "U", "U", "U"}},
	)
}

// BalancedDataset returns n records, half protected, whose group labels are
// shuffled independently of the scores.
func BalancedDataset(seed int64, n int) (*ranking.Dataset, error) {
	cfg := DefaultRankingConfig()
	cfg.Records = n
	cfg.ProtectedShare = 0.5
	cfg.Seed = seed
	return NewRankingGenerator(cfg).Generate()
}

// LabeledFixture returns a small labeled dataset with two protected
// attributes and the predictions of a classifier biased against sex == 0.
func LabeledFixture() (*classification.LabeledDataset, []float64) {
	ds := &classification.LabeledDataset{
		Labels:         []float64{1, 1, 0, 0, 1, 1, 0, 0},
		FavorableLabel: 1,
		ProtectedAttributes: []classification.ProtectedAttribute{
			{Name: "sex", Privileged: []float64{1}, Unprivileged: []float64{0}},
			{Name: "race", Privileged: []float64{1}, Unprivileged: []float64{0}},
		},
		Features: map[string][]float64{
			"sex":  {1, 1, 1, 1, 0, 0, 0, 0},
			"race": {1, 0, 1, 0, 1, 0, 1, 0},
		},
	}
	predicted := []float64{1, 1, 1, 0, 1, 0, 0, 0}
	return ds, predicted
}

// InMemoryReportRepository implements ReportRepository with in-memory storage
type InMemoryReportRepository struct {
	reports map[core.ReportID]*verdict.Report
	mu      sync.RWMutex
}

func NewInMemoryReportRepository() *InMemoryReportRepository {
	return &InMemoryReportRepository{
		reports: make(map[core.ReportID]*verdict.Report),
	}
}

func (s *InMemoryReportRepository) Save(ctx context.Context, report *verdict.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *report
	s.reports[report.ID] = &stored
	return nil
}

func (s *InMemoryReportRepository) Get(ctx context.Context, id core.ReportID) (*verdict.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report, exists := s.reports[id]
	if !exists {
		return nil, errors.NotFound("report " + id.String())
	}
	out := *report
	return &out, nil
}

// List returns the most recent reports first
func (s *InMemoryReportRepository) List(ctx context.Context, limit int) ([]*verdict.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]*verdict.Report, 0, len(s.reports))
	for _, report := range s.reports {
		out := *report
		results = append(results, &out)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].CreatedAt.Equal(results[j].CreatedAt) {
			return results[i].ID > results[j].ID
		}
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
