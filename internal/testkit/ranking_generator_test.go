package testkit

import (
	"testing"

	"rankfair/domain/ranking"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankingGenerator_GroupSizes(t *testing.T) {
	cfg := DefaultRankingConfig()
	cfg.Records = 50
	cfg.ProtectedShare = 0.3

	ds, err := NewRankingGenerator(cfg).Generate()
	require.NoError(t, err)
	assert.Equal(t, 50, ds.Len())

	r, err := ranking.Prepare(ds, cfg.ScoreColumn)
	require.NoError(t, err)
	view, err := r.Group(ranking.ProtectedGroup{Attribute: cfg.Attribute, Value: cfg.ProtectedValue})
	require.NoError(t, err)
	assert.Equal(t, 15, view.Rates.ProN)
	assert.Equal(t, 35, view.Rates.UnproN)
}

func TestRankingGenerator_Deterministic(t *testing.T) {
	a, err := BalancedDataset(7, 40)
	require.NoError(t, err)
	b, err := BalancedDataset(7, 40)
	require.NoError(t, err)
	c, err := BalancedDataset(8, 40)
	require.NoError(t, err)

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}

func TestRankingGenerator_BiasPushesProtectedDown(t *testing.T) {
	cfg := DefaultRankingConfig()
	cfg.Records = 100
	cfg.Bias = 1000

	ds, err := NewRankingGenerator(cfg).Generate()
	require.NoError(t, err)
	r, err := ranking.Prepare(ds, cfg.ScoreColumn)
	require.NoError(t, err)
	view, err := r.Group(ranking.ProtectedGroup{Attribute: cfg.Attribute, Value: cfg.ProtectedValue})
	require.NoError(t, err)

	assert.Equal(t, 0, view.ProtectedInTop(50))
}

func TestRankingGenerator_InvalidConfig(t *testing.T) {
	cfg := DefaultRankingConfig()
	cfg.Records = 0
	_, err := NewRankingGenerator(cfg).Generate()
	assert.Error(t, err)

	cfg = DefaultRankingConfig()
	cfg.ProtectedShare = 1.5
	_, err = NewRankingGenerator(cfg).Generate()
	assert.Error(t, err)
}

func TestScenarioDataset(t *testing.T) {
	ds, err := ScenarioDataset()
	require.NoError(t, err)
	r, err := ranking.Prepare(ds, "Score")
	require.NoError(t, err)

	view, err := r.Group(ScenarioGroup)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, view.Rates.ProProb, 1e-12)
	assert.Equal(t, 5, ranking.ClampTopK(ranking.DefaultTopK, view.Rates.TotalN))
}
