package postgres

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"rankfair/domain/core"
	"rankfair/domain/ranking"
	"rankfair/domain/verdict"
	"rankfair/internal/errors"
	"rankfair/internal/migration"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *verdict.Report {
	fail := 3
	return &verdict.Report{
		ID:          core.NewReportID(),
		DatasetName: "applicants",
		DatasetHash: core.Hash(strings.Repeat("0f", 32)),
		ScoreColumn: "Score",
		Group:       ranking.ProtectedGroup{Attribute: "group", Value: "P"},
		Rates:       ranking.BaseRates{TotalN: 10, ProN: 2, UnproN: 8, ProProb: 0.2},
		Alternative: verdict.ProtectedDisadvantaged,
		Seed:        42,
		RankProbability: &verdict.RankProbabilityResult{
			TopK: 5, PValue: 0.01, FailPosition: &fail, AdjustedAlpha: 0.04, ProtectedNeeded: []int{0, 0, 1, 1, 1},
		},
		Pairwise:   &verdict.PairwiseResult{Runs: 100, ObservedPairs: 12, PValue: 0.3},
		Proportion: &verdict.ProportionResult{TopK: 5, ProK: 0, UnproK: 5, Z: 1.2, PooledSE: 0.1, PValue: 0.11},
		Stability:  &verdict.StabilityResult{Slope: 7.2, N: 10},
		Summary:    verdict.Summary{PairwiseFair: true, ProportionFair: true, Stable: true},
		CreatedAt:  time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC),
	}
}

func TestReportPayload_Scan(t *testing.T) {
	report := sampleReport()
	value, err := reportPayload{report}.Value()
	require.NoError(t, err)

	var fromBytes reportPayload
	require.NoError(t, fromBytes.Scan(value))
	assert.Equal(t, report.ID, fromBytes.ID)
	require.NotNil(t, fromBytes.RankProbability.FailPosition)
	assert.Equal(t, 3, *fromBytes.RankProbability.FailPosition)
	assert.True(t, report.CreatedAt.Equal(fromBytes.CreatedAt))

	var fromString reportPayload
	require.NoError(t, fromString.Scan(string(value.([]byte))))
	assert.Equal(t, report.Summary, fromString.Summary)

	var bad reportPayload
	assert.Error(t, bad.Scan(nil))
	assert.Error(t, bad.Scan(42))
	assert.Error(t, bad.Scan([]byte("{")))
}

// The repository round trip needs a live database:
// RANKFAIR_TEST_DATABASE_URL=postgres://... go test ./adapters/postgres
func TestReportRepository_Postgres(t *testing.T) {
	url := os.Getenv("RANKFAIR_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("RANKFAIR_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	db, err := sqlx.Connect("postgres", url)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, migration.NewRunner().Run(ctx, db))

	repo := NewReportRepository(db)
	report := sampleReport()
	require.NoError(t, repo.Save(ctx, report))

	loaded, err := repo.Get(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, report.Summary, loaded.Summary)
	assert.Equal(t, report.Rates, loaded.Rates)

	reports, err := repo.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, reports, 1)

	_, err = repo.Get(ctx, core.NewReportID())
	assert.True(t, errors.HasCode(err, errors.CodeNotFound))

	assert.True(t, errors.HasCode(repo.Save(ctx, report), errors.CodeDatabaseError))
}
