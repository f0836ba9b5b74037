package app

import (
	"context"
	"log"

	"rankfair/domain/classification"
	"rankfair/internal/oracle"
	"rankfair/ports"
)

// MetricsService builds classification fairness tables
type MetricsService struct {
	builder *oracle.MetricsTableBuilder
	bands   [5]classification.Band
}

// MetricsReport is a fairness table with the bias count of each attribute
type MetricsReport struct {
	Table      *classification.MetricsTable `json:"table" yaml:"table"`
	BiasCounts map[string]int               `json:"bias_counts" yaml:"bias_counts"`
}

// NewMetricsService creates a metrics service using the default bands
func NewMetricsService(lib ports.ClassificationMetrics) *MetricsService {
	return &MetricsService{
		builder: oracle.NewMetricsTableBuilder(lib),
		bands:   classification.DefaultBands,
	}
}

// Build computes the table and counts the metrics outside their bands
func (s *MetricsService) Build(ctx context.Context, ds *classification.LabeledDataset, predicted []float64) (*MetricsReport, error) {
	table, err := s.builder.Build(ctx, ds, predicted)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(ds.ProtectedAttributes))
	for _, attr := range ds.ProtectedAttributes {
		count, err := table.BiasCount(attr.Name, s.bands)
		if err != nil {
			return nil, err
		}
		counts[attr.Name] = count
	}

	log.Printf("[MetricsService] built fairness table for %d attributes over %d rows",
		len(ds.ProtectedAttributes), len(ds.Labels))
	return &MetricsReport{Table: table, BiasCounts: counts}, nil
}
