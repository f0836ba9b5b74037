// Package classmetrics computes group fairness statistics of a binary
// classifier's predictions against ground-truth labels.
package classmetrics

import (
	"math"

	"rankfair/domain/classification"
	"rankfair/internal/errors"

	"gonum.org/v1/gonum/stat"
)

// Library implements ports.ClassificationMetrics
type Library struct{}

// NewLibrary creates a metrics library
func NewLibrary() *Library {
	return &Library{}
}

// confusion holds the rates of one group
type confusion struct {
	n             int
	selection     float64 // P(yhat = fav)
	truePositive  float64 // P(yhat = fav | y = fav)
	falsePositive float64 // P(yhat = fav | y != fav)
}

// Compute returns statistical parity difference, equal opportunity
// difference, average absolute odds difference, disparate impact and the
// Theil index. Differences are unprivileged minus privileged. The Theil index
// is computed over every row, not per group.
func (l *Library) Compute(ds *classification.LabeledDataset, predicted []float64, privileged, unprivileged classification.GroupSpec) (classification.MetricValues, error) {
	var out classification.MetricValues
	if ds == nil {
		return out, errors.InvalidInput("labeled dataset is nil")
	}
	if len(predicted) != len(ds.Labels) {
		return out, errors.InvalidInput("%d predictions for %d labels", len(predicted), len(ds.Labels))
	}

	priv, err := groupRates(ds, predicted, privileged)
	if err != nil {
		return out, err
	}
	unpriv, err := groupRates(ds, predicted, unprivileged)
	if err != nil {
		return out, err
	}

	out[0] = unpriv.selection - priv.selection
	out[1] = unpriv.truePositive - priv.truePositive
	out[2] = 0.5 * (math.Abs(unpriv.falsePositive-priv.falsePositive) + math.Abs(unpriv.truePositive-priv.truePositive))
	out[3] = unpriv.selection / priv.selection
	out[4] = theilIndex(ds.Labels, predicted, ds.FavorableLabel)
	return out, nil
}

func groupRates(ds *classification.LabeledDataset, predicted []float64, g classification.GroupSpec) (confusion, error) {
	col, ok := ds.Features[g.Attribute]
	if !ok {
		return confusion{}, errors.InvalidInput("feature %q not found", g.Attribute)
	}
	if len(col) != len(ds.Labels) {
		return confusion{}, errors.InvalidInput("feature %q has %d rows, labels have %d", g.Attribute, len(col), len(ds.Labels))
	}

	var n, selected, pos, truePos, neg, falsePos float64
	for i, v := range col {
		if v != g.Value {
			continue
		}
		n++
		predFav := predicted[i] == ds.FavorableLabel
		if predFav {
			selected++
		}
		if ds.Labels[i] == ds.FavorableLabel {
			pos++
			if predFav {
				truePos++
			}
		} else {
			neg++
			if predFav {
				falsePos++
			}
		}
	}
	if n == 0 {
		return confusion{}, errors.DegenerateGroup("no rows with %s = %v", g.Attribute, g.Value)
	}

	// 0/0 stays NaN, which marks a rate the group cannot define
	return confusion{
		n:             int(n),
		selection:     selected / n,
		truePositive:  truePos / pos,
		falsePositive: falsePos / neg,
	}, nil
}

// theilIndex is the generalized entropy index with alpha = 1 of the benefits
// b = yhat - y + 1, where the favourable label counts as 1.
func theilIndex(labels, predicted []float64, favorable float64) float64 {
	b := make([]float64, len(labels))
	for i := range labels {
		b[i] = indicator(predicted[i] == favorable) - indicator(labels[i] == favorable) + 1
	}
	mu := stat.Mean(b, nil)

	terms := make([]float64, len(b))
	for i, v := range b {
		if v == 0 {
			continue
		}
		ratio := v / mu
		terms[i] = ratio * math.Log(ratio)
	}
	return stat.Mean(terms, nil)
}

func indicator(ok bool) float64 {
	if ok {
		return 1
	}
	return 0
}
