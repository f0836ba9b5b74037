package oracle

import (
	"math"
	"testing"

	"rankfair/domain/verdict"
	"rankfair/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlope(t *testing.T) {
	tests := []struct {
		name   string
		scores []float64
		want   float64
	}{
		{name: "constant", scores: []float64{5, 5, 5, 5, 5}, want: 0},
		{name: "descending step 2", scores: []float64{10, 8, 6, 4, 2}, want: 2},
		{name: "ascending step 0.5", scores: []float64{1, 1.5, 2, 2.5}, want: 0.5},
		{name: "two points", scores: []float64{3, 1}, want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Slope(tt.scores, DefaultStabilityPrecision)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.False(t, math.Signbit(got))
		})
	}
}

func TestSlope_Rounding(t *testing.T) {
	got, err := Slope([]float64{0, 0.333, 0.666}, 2)
	require.NoError(t, err)
	assert.Equal(t, 0.33, got)
}

func TestSlope_InvalidInput(t *testing.T) {
	_, err := Slope([]float64{1}, 10)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidInput))

	_, err = Slope(nil, 10)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidInput))

	_, err = Slope([]float64{1, math.NaN(), 3}, 10)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidInput))

	_, err = Slope([]float64{1, 2}, -1)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidInput))
}

func TestRankingSlope(t *testing.T) {
	res, err := RankingSlope(scenarioRanking(t), DefaultStabilityPrecision)
	require.NoError(t, err)

	assert.Equal(t, 10, res.N)
	assert.Greater(t, res.Slope, 0.0)
	// scenario scores fall by about 7 points per rank
	assert.True(t, verdict.IsStable(res.Slope))
}
