package classification

import (
	"math"

	"rankfair/internal/errors"
)

// ProtectedAttribute names a protected feature column and its privileged and
// unprivileged values. Only the first entry of each list is used when
// building a metrics table.
type ProtectedAttribute struct {
	Name         string    `json:"name" yaml:"name"`
	Privileged   []float64 `json:"privileged" yaml:"privileged"`
	Unprivileged []float64 `json:"unprivileged" yaml:"unprivileged"`
}

// LabeledDataset holds ground-truth binary labels together with the protected
// feature columns they are evaluated against.
type LabeledDataset struct {
	Labels              []float64            `json:"labels" yaml:"labels"`
	FavorableLabel      float64              `json:"favorable_label" yaml:"favorable_label"`
	ProtectedAttributes []ProtectedAttribute `json:"protected_attributes" yaml:"protected_attributes"`
	Features            map[string][]float64 `json:"features" yaml:"features"`
}

// Validate checks that every protected attribute has a feature column of the
// right length and at least one privileged and one unprivileged value.
func (d *LabeledDataset) Validate() error {
	if len(d.Labels) == 0 {
		return errors.InvalidInput("labeled dataset is empty")
	}
	if len(d.ProtectedAttributes) == 0 {
		return errors.InvalidInput("labeled dataset declares no protected attributes")
	}
	for _, attr := range d.ProtectedAttributes {
		col, ok := d.Features[attr.Name]
		if !ok {
			return errors.InvalidInput("protected attribute %q has no feature column", attr.Name)
		}
		if len(col) != len(d.Labels) {
			return errors.InvalidInput("feature %q has %d rows, labels have %d", attr.Name, len(col), len(d.Labels))
		}
		if len(attr.Privileged) == 0 || len(attr.Unprivileged) == 0 {
			return errors.InvalidInput("protected attribute %q needs a privileged and an unprivileged value", attr.Name)
		}
	}
	return nil
}

// GroupSpec selects the rows whose Attribute feature equals Value
type GroupSpec struct {
	Attribute string  `json:"attribute" yaml:"attribute"`
	Value     float64 `json:"value" yaml:"value"`
}

// Metric names, in table column order
const (
	StatisticalParityDifference = "statistical_parity_difference"
	EqualOpportunityDifference  = "equal_opportunity_difference"
	AverageAbsOddsDifference    = "average_abs_odds_difference"
	DisparateImpact             = "disparate_impact"
	TheilIndex                  = "theil_index"
)

// Columns lists the metric names in table order
var Columns = [5]string{
	StatisticalParityDifference,
	EqualOpportunityDifference,
	AverageAbsOddsDifference,
	DisparateImpact,
	TheilIndex,
}

// MetricValues holds the five fairness statistics in Columns order
type MetricValues [5]float64

// ObjectiveRow is the value each metric takes for a perfectly fair classifier
var ObjectiveRow = MetricValues{0, 0, 0, 1, 0}

// InfinitySentinel replaces infinite metric values, which disparate impact
// produces when the privileged favourable rate is zero.
const InfinitySentinel = 2

// ObjectiveRowName labels the reference row of a MetricsTable
const ObjectiveRowName = "objective"

// MetricsRow is one named row of a MetricsTable
type MetricsRow struct {
	Name   string       `json:"name" yaml:"name"`
	Values MetricValues `json:"values" yaml:"values"`
}

// MetricsTable is the objective row followed by one row per protected attribute
type MetricsTable struct {
	Rows []MetricsRow `json:"rows" yaml:"rows"`
}

// NewMetricsTable builds a table with the objective row first. Infinite
// values are replaced with InfinitySentinel; NaN values are kept.
func NewMetricsTable(rows []MetricsRow) *MetricsTable {
	table := &MetricsTable{Rows: make([]MetricsRow, 0, len(rows)+1)}
	table.Rows = append(table.Rows, MetricsRow{Name: ObjectiveRowName, Values: ObjectiveRow})
	for _, row := range rows {
		for i, v := range row.Values {
			if math.IsInf(v, 0) {
				row.Values[i] = InfinitySentinel
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

// Row returns the row with the given name
func (t *MetricsTable) Row(name string) (MetricsRow, bool) {
	for _, r := range t.Rows {
		if r.Name == name {
			return r, true
		}
	}
	return MetricsRow{}, false
}

// Value returns one cell of the table
func (t *MetricsTable) Value(row, column string) (float64, bool) {
	r, ok := t.Row(row)
	if !ok {
		return 0, false
	}
	for i, c := range Columns {
		if c == column {
			return r.Values[i], true
		}
	}
	return 0, false
}

// Band is an open interval of acceptable metric values
type Band struct {
	Low  float64 `json:"low" yaml:"low"`
	High float64 `json:"high" yaml:"high"`
}

// Contains reports whether Low < v < High
func (b Band) Contains(v float64) bool {
	return b.Low < v && v < b.High
}

// DefaultBands are the acceptable ranges for each metric, in Columns order
var DefaultBands = [5]Band{
	{Low: -0.1, High: 0.1},
	{Low: -0.1, High: 0.1},
	{Low: -0.1, High: 0.1},
	{Low: 0.8, High: 1.2},
	{Low: 0, High: 0.25},
}

// BiasCount returns how many of the five metrics of row fall outside bands,
// i.e. the number of metrics signalling bias against the unprivileged group.
func (t *MetricsTable) BiasCount(row string, bands [5]Band) (int, error) {
	r, ok := t.Row(row)
	if !ok {
		return 0, errors.NotFound("metrics row " + row)
	}
	count := 0
	for i, v := range r.Values {
		if !bands[i].Contains(v) {
			count++
		}
	}
	return count, nil
}
