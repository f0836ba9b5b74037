// Package oracle holds the fairness computations: three independent p-value
// oracles over a prepared ranking, the score-slope stability estimator and
// the classification metrics table builder.
package oracle

import (
	"rankfair/domain/ranking"
	"rankfair/domain/verdict"
	"rankfair/internal/errors"
)

// Defaults used when a caller does not configure an option
const (
	DefaultRuns               = 100
	DefaultPrecision          = 2
	DefaultStabilityPrecision = 10
	DefaultSeed               = 42
	DefaultWorkers            = 4
)

// maxPrecision keeps rounding within float64's decimal resolution
const maxPrecision = 15

// Options controls every oracle. Each oracle reads only the fields it needs.
type Options struct {
	TopK               int
	Runs               int
	Precision          int
	StabilityPrecision int
	Seed               int64
	Workers            int
	Alternative        verdict.Alternative
}

// DefaultOptions returns the documented defaults
func DefaultOptions() Options {
	return Options{
		TopK:               ranking.DefaultTopK,
		Runs:               DefaultRuns,
		Precision:          DefaultPrecision,
		StabilityPrecision: DefaultStabilityPrecision,
		Seed:               DefaultSeed,
		Workers:            DefaultWorkers,
		Alternative:        verdict.ProtectedDisadvantaged,
	}
}

// Validate rejects options no oracle can run with
func (o Options) Validate() error {
	if o.TopK < 1 {
		return errors.InvalidInput("top-k must be positive, got %d", o.TopK)
	}
	if o.Runs < 1 {
		return errors.InvalidInput("simulation runs must be positive, got %d", o.Runs)
	}
	if o.Precision < 0 || o.Precision > maxPrecision {
		return errors.InvalidInput("precision must be between 0 and %d, got %d", maxPrecision, o.Precision)
	}
	if o.StabilityPrecision < 0 || o.StabilityPrecision > maxPrecision {
		return errors.InvalidInput("stability precision must be between 0 and %d, got %d", maxPrecision, o.StabilityPrecision)
	}
	if o.Workers < 1 {
		return errors.InvalidInput("workers must be positive, got %d", o.Workers)
	}
	if _, err := verdict.ParseAlternative(string(o.Alternative)); err != nil {
		return errors.InvalidInput("%v", err)
	}
	return nil
}
