package oracle

import (
	"context"
	"fmt"
	"sort"

	"rankfair/domain/ranking"
	"rankfair/domain/verdict"
	"rankfair/internal"
	"rankfair/internal/errors"
	"rankfair/internal/profiling"
	"rankfair/ports"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

const pairwiseStream = "pairwise"

// PairwiseOracle compares the observed protected-preferred pair count with
// the counts of fair rankings drawn at the protected base rate.
type PairwiseOracle struct {
	generator ports.FairRankingGenerator
	counter   ports.PairCounter
	rng       ports.RNGPort
	analyzer  *profiling.DistributionAnalyzer
	logger    *internal.Logger
}

// NewPairwiseOracle creates the simulation oracle
func NewPairwiseOracle(generator ports.FairRankingGenerator, counter ports.PairCounter, rng ports.RNGPort) *PairwiseOracle {
	return &PairwiseOracle{
		generator: generator,
		counter:   counter,
		rng:       rng,
		analyzer:  profiling.NewDistributionAnalyzer(),
		logger:    internal.DefaultLogger,
	}
}

// Evaluate runs opts.Runs simulations over synthetic ids, where ids
// [0, ProN) stand for the protected records. Every trial draws from its own
// seeded stream and writes only its own sample, so the result for a seed does
// not depend on opts.Workers.
func (o *PairwiseOracle) Evaluate(ctx context.Context, r *ranking.Ranking, g ranking.ProtectedGroup, opts Options) (*verdict.PairwiseResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	view, err := r.Group(g)
	if err != nil {
		return nil, err
	}
	n, proN := view.Rates.TotalN, view.Rates.ProN

	pool := make([]int, n)
	for i := range pool {
		pool[i] = i
	}
	protectedIDs := pool[:proN:proN]

	samples := make([]float64, opts.Runs)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(opts.Workers)
	for trial := 0; trial < opts.Runs; trial++ {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			rng, err := o.rng.Stream(egCtx, pairwiseStream, trial, opts.Seed)
			if err != nil {
				return err
			}
			fair, err := o.generator.Generate(rng, pool, protectedIDs, view.Rates.ProProb)
			if err != nil {
				return errors.ExternalOracleFailure("fair ranking generator", err)
			}
			if len(fair) != n {
				return errors.ExternalOracleFailure("fair ranking generator",
					fmt.Errorf("generated %d items, want %d", len(fair), n))
			}

			positions := make([]int, 0, proN)
			for pos, id := range fair {
				if id < proN {
					positions = append(positions, pos)
				}
			}
			samples[trial] = float64(ranking.PreferredPairs(positions, n))
			o.logger.Trace("[PairwiseOracle] trial %d: %.0f preferred pairs", trial, samples[trial])
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	observed, err := o.counter.CountPreferredPairs(r, g)
	if err != nil {
		if errors.IsAppError(err) {
			return nil, err
		}
		return nil, errors.ExternalOracleFailure("pair counter", err)
	}

	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)

	var tail float64
	if opts.Alternative.Flipped() {
		// samples are integers, so P(S >= obs) = 1 - P(S <= obs-1)
		tail = 1 - empiricalCDF(sorted, float64(observed.Preferred-1))
	} else {
		tail = empiricalCDF(sorted, float64(observed.Preferred))
	}
	pValue, err := profiling.Round(tail, opts.Precision)
	if err != nil {
		return nil, errors.Wrap(err, "round pairwise p-value")
	}

	null, err := o.analyzer.Summarize(samples)
	if err != nil {
		return nil, errors.Wrap(err, "summarize null distribution")
	}

	o.logger.Debug("[PairwiseOracle] %d trials on %d workers: observed %d pairs, null mean %.2f (p5 %.0f, p95 %.0f), p=%.4f",
		opts.Runs, opts.Workers, observed.Preferred, null.Mean, null.Percentile5, null.Percentile95, pValue)

	return &verdict.PairwiseResult{
		Runs:          opts.Runs,
		ObservedPairs: observed.Preferred,
		PValue:        pValue,
		Null:          null,
	}, nil
}

// empiricalCDF is the fraction of sorted samples less than or equal to q
func empiricalCDF(sorted []float64, q float64) float64 {
	return stat.CDF(q, stat.Empirical, sorted, nil)
}
