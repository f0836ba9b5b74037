package oracle

import (
	"context"
	"fmt"
	"math"
	"testing"

	"rankfair/adapters/classmetrics"
	"rankfair/domain/classification"
	"rankfair/internal/errors"
	"rankfair/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockMetrics struct {
	mock.Mock
}

func (m *mockMetrics) Compute(ds *classification.LabeledDataset, predicted []float64, privileged, unprivileged classification.GroupSpec) (classification.MetricValues, error) {
	args := m.Called(ds, predicted, privileged, unprivileged)
	return args.Get(0).(classification.MetricValues), args.Error(1)
}

func TestBuildMetricsTable(t *testing.T) {
	ds, predicted := testkit.LabeledFixture()

	table, err := NewMetricsTableBuilder(classmetrics.NewLibrary()).Build(context.Background(), ds, predicted)
	require.NoError(t, err)

	require.Len(t, table.Rows, 3)
	assert.Equal(t, classification.ObjectiveRowName, table.Rows[0].Name)
	assert.Equal(t, classification.ObjectiveRow, table.Rows[0].Values)
	assert.Equal(t, "sex", table.Rows[1].Name)
	assert.Equal(t, "race", table.Rows[2].Name)

	spd, ok := table.Value("sex", classification.StatisticalParityDifference)
	require.True(t, ok)
	assert.InDelta(t, -0.5, spd, 1e-12)

	count, err := table.BiasCount("sex", classification.DefaultBands)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestBuildMetricsTable_UsesFirstValuesAndReplacesInfinity(t *testing.T) {
	ds, predicted := testkit.LabeledFixture()
	ds.ProtectedAttributes = []classification.ProtectedAttribute{
		{Name: "sex", Privileged: []float64{1, 2}, Unprivileged: []float64{0, 3}},
	}

	lib := &mockMetrics{}
	lib.On("Compute", ds, predicted,
		classification.GroupSpec{Attribute: "sex", Value: 1},
		classification.GroupSpec{Attribute: "sex", Value: 0},
	).Return(classification.MetricValues{0.1, math.NaN(), 0, math.Inf(1), math.Inf(-1)}, nil)

	table, err := BuildMetricsTable(context.Background(), ds, predicted, lib)
	require.NoError(t, err)
	lib.AssertExpectations(t)

	row, ok := table.Row("sex")
	require.True(t, ok)
	assert.Equal(t, float64(classification.InfinitySentinel), row.Values[3])
	assert.Equal(t, float64(classification.InfinitySentinel), row.Values[4])
	assert.True(t, math.IsNaN(row.Values[1]))
}

func TestBuildMetricsTable_Errors(t *testing.T) {
	ctx := context.Background()
	ds, predicted := testkit.LabeledFixture()
	lib := classmetrics.NewLibrary()

	_, err := BuildMetricsTable(ctx, ds, predicted[:5], lib)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidInput))

	_, err = BuildMetricsTable(ctx, nil, predicted, lib)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidInput))

	missing, _ := testkit.LabeledFixture()
	missing.ProtectedAttributes = append(missing.ProtectedAttributes, classification.ProtectedAttribute{
		Name: "age", Privileged: []float64{1}, Unprivileged: []float64{0},
	})
	_, err = BuildMetricsTable(ctx, missing, predicted, lib)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidInput))

	empty, _ := testkit.LabeledFixture()
	empty.ProtectedAttributes[0].Unprivileged = []float64{5}
	_, err = BuildMetricsTable(ctx, empty, predicted, lib)
	assert.True(t, errors.HasCode(err, errors.CodeDegenerateGroup))

	failing := &mockMetrics{}
	failing.On("Compute", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(classification.MetricValues{}, fmt.Errorf("solver diverged"))
	_, err = BuildMetricsTable(ctx, ds, predicted, failing)
	assert.True(t, errors.HasCode(err, errors.CodeExternalOracle))
}
