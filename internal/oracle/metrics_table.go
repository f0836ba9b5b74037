package oracle

import (
	"context"

	"rankfair/domain/classification"
	"rankfair/internal/errors"
	"rankfair/ports"
)

// MetricsTableBuilder assembles a classification fairness table, one row per
// protected attribute.
type MetricsTableBuilder struct {
	lib ports.ClassificationMetrics
}

// NewMetricsTableBuilder creates a builder around a metrics library
func NewMetricsTableBuilder(lib ports.ClassificationMetrics) *MetricsTableBuilder {
	return &MetricsTableBuilder{lib: lib}
}

// Build computes the metrics of every protected attribute using its first
// privileged and first unprivileged value.
func (b *MetricsTableBuilder) Build(ctx context.Context, ds *classification.LabeledDataset, predicted []float64) (*classification.MetricsTable, error) {
	return BuildMetricsTable(ctx, ds, predicted, b.lib)
}

// BuildMetricsTable is the function form of MetricsTableBuilder.Build
func BuildMetricsTable(ctx context.Context, ds *classification.LabeledDataset, predicted []float64, lib ports.ClassificationMetrics) (*classification.MetricsTable, error) {
	if ds == nil {
		return nil, errors.InvalidInput("labeled dataset is nil")
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	if len(predicted) != len(ds.Labels) {
		return nil, errors.InvalidInput("%d predictions for %d labels", len(predicted), len(ds.Labels))
	}

	rows := make([]classification.MetricsRow, 0, len(ds.ProtectedAttributes))
	for _, attr := range ds.ProtectedAttributes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		privileged := classification.GroupSpec{Attribute: attr.Name, Value: attr.Privileged[0]}
		unprivileged := classification.GroupSpec{Attribute: attr.Name, Value: attr.Unprivileged[0]}

		values, err := lib.Compute(ds, predicted, privileged, unprivileged)
		if err != nil {
			if errors.IsAppError(err) {
				return nil, err
			}
			return nil, errors.ExternalOracleFailure("classification metrics", err)
		}
		rows = append(rows, classification.MetricsRow{Name: attr.Name, Values: values})
	}
	return classification.NewMetricsTable(rows), nil
}
