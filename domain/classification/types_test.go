package classification

import (
	"encoding/json"
	"math"
	"testing"

	"rankfair/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsTable_ObjectiveAndSentinel(t *testing.T) {
	table := NewMetricsTable([]MetricsRow{
		{Name: "sex", Values: MetricValues{-0.2, 0.05, 0.1, math.Inf(1), 0.1}},
		{Name: "race", Values: MetricValues{0.01, math.NaN(), 0, math.Inf(-1), 0.3}},
	})

	require.Len(t, table.Rows, 3)
	assert.Equal(t, ObjectiveRowName, table.Rows[0].Name)
	assert.Equal(t, ObjectiveRow, table.Rows[0].Values)

	di, ok := table.Value("sex", DisparateImpact)
	require.True(t, ok)
	assert.Equal(t, 2.0, di)

	di, ok = table.Value("race", DisparateImpact)
	require.True(t, ok)
	assert.Equal(t, 2.0, di)

	eod, ok := table.Value("race", EqualOpportunityDifference)
	require.True(t, ok)
	assert.True(t, math.IsNaN(eod), "NaN is left as-is")

	_, ok = table.Value("missing", DisparateImpact)
	assert.False(t, ok)
	_, ok = table.Value("sex", "missing")
	assert.False(t, ok)
}

func TestBiasCount(t *testing.T) {
	table := NewMetricsTable([]MetricsRow{
		{Name: "sex", Values: MetricValues{-0.2, 0.05, 0.1, 1.0, 0.1}},
	})

	// objective row: theil 0 sits on the open lower bound
	n, err := table.BiasCount(ObjectiveRowName, DefaultBands)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// -0.2 outside, 0.05 inside, 0.1 on the bound, 1.0 inside, 0.1 inside
	n, err = table.BiasCount("sex", DefaultBands)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = table.BiasCount("nope", DefaultBands)
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))
}

func TestLabeledDataset_Validate(t *testing.T) {
	valid := LabeledDataset{
		Labels:         []float64{1, 0},
		FavorableLabel: 1,
		ProtectedAttributes: []ProtectedAttribute{
			{Name: "sex", Privileged: []float64{1}, Unprivileged: []float64{0}},
		},
		Features: map[string][]float64{"sex": {1, 0}},
	}
	require.NoError(t, valid.Validate())

	missing := valid
	missing.Features = map[string][]float64{}
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(missing.Validate()))

	short := valid
	short.Features = map[string][]float64{"sex": {1}}
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(short.Validate()))

	noValues := valid
	noValues.ProtectedAttributes = []ProtectedAttribute{{Name: "sex", Privileged: []float64{1}}}
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(noValues.Validate()))
}

func TestMetricValues_JSONNull(t *testing.T) {
	in := MetricValues{0.1, math.NaN(), 0, 2, 0.3}

	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `[0.1, null, 0, 2, 0.3]`, string(data))

	var out MetricValues
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, 0.1, out[0])
	assert.True(t, math.IsNaN(out[1]))
	assert.Equal(t, 0.3, out[4])
}
