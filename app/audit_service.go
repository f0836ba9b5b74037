package app

import (
	"context"
	"log"
	"time"

	"rankfair/domain/core"
	"rankfair/domain/ranking"
	"rankfair/domain/verdict"
	"rankfair/internal"
	"rankfair/internal/errors"
	"rankfair/internal/oracle"
	"rankfair/ports"

	"golang.org/x/sync/errgroup"
)

// AuditService runs every ranking diagnostic for one dataset and group
type AuditService struct {
	rank       *oracle.RankProbabilityOracle
	pairwise   *oracle.PairwiseOracle
	proportion *oracle.ProportionOracle
	thresholds verdict.Thresholds
	repo       ports.ReportRepository // optional
	now        func() time.Time
}

// AuditRequest defines the inputs of one audit
type AuditRequest struct {
	DatasetName string
	ScoreColumn string
	Group       ranking.ProtectedGroup
	Options     oracle.Options

	// DiversityAttribute defaults to Group.Attribute
	DiversityAttribute string
	DiversityTopN      int
	Persist            bool
}

// NewAuditService creates an audit service. repo may be nil, in which case
// reports are never persisted.
func NewAuditService(
	tester ports.RankFairnessTester,
	generator ports.FairRankingGenerator,
	counter ports.PairCounter,
	rngPort ports.RNGPort,
	thresholds verdict.Thresholds,
	repo ports.ReportRepository,
) *AuditService {
	return &AuditService{
		rank:       oracle.NewRankProbabilityOracle(tester),
		pairwise:   oracle.NewPairwiseOracle(generator, counter, rngPort),
		proportion: oracle.NewProportionOracle(),
		thresholds: thresholds,
		repo:       repo,
		now:        time.Now,
	}
}

// Run prepares the ranking once and evaluates the three oracles, the score
// slope and the diversity profile concurrently.
func (s *AuditService) Run(ctx context.Context, ds *ranking.Dataset, req AuditRequest) (*verdict.Report, error) {
	startTime := time.Now()

	opts := req.Options
	alternative, err := verdict.ParseAlternative(string(opts.Alternative))
	if err != nil {
		return nil, errors.InvalidInput("%v", err)
	}
	opts.Alternative = alternative
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	r, err := ranking.Prepare(ds, req.ScoreColumn)
	if err != nil {
		return nil, err
	}
	view, err := r.Group(req.Group)
	if err != nil {
		return nil, err
	}

	report := &verdict.Report{
		ID:          core.NewReportID(),
		DatasetName: req.DatasetName,
		DatasetHash: ds.Fingerprint(),
		ScoreColumn: req.ScoreColumn,
		Group:       req.Group,
		Rates:       view.Rates,
		Alternative: opts.Alternative,
		Seed:        opts.Seed,
		CreatedAt:   s.now().UTC(),
	}

	diversityAttr := req.DiversityAttribute
	if diversityAttr == "" {
		diversityAttr = req.Group.Attribute
	}
	diversityTopN := req.DiversityTopN
	if diversityTopN <= 0 {
		diversityTopN = ranking.DefaultDiversityTopN
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		res, err := s.rank.Evaluate(egCtx, r, req.Group, opts)
		report.RankProbability = res
		return err
	})
	eg.Go(func() error {
		res, err := s.pairwise.Evaluate(egCtx, r, req.Group, opts)
		report.Pairwise = res
		return err
	})
	eg.Go(func() error {
		res, err := s.proportion.Evaluate(egCtx, r, req.Group, opts)
		report.Proportion = res
		return err
	})
	eg.Go(func() error {
		res, err := oracle.RankingSlope(r, opts.StabilityPrecision)
		report.Stability = res
		return err
	})
	eg.Go(func() error {
		res, err := r.Diversity(diversityAttr, diversityTopN)
		report.Diversity = res
		return err
	})
	if err := eg.Wait(); err != nil {
		internal.DefaultLogger.Error("[AuditService] audit of %q failed: %v", req.DatasetName, err)
		return nil, err
	}

	report.Summary = verdict.Summary{
		RankFair:       s.thresholds.IsFair(report.RankProbability.PValue),
		PairwiseFair:   s.thresholds.IsFair(report.Pairwise.PValue),
		ProportionFair: s.thresholds.IsFair(report.Proportion.PValue),
		Stable:         s.thresholds.IsStable(report.Stability.Slope),
	}

	if req.Persist && s.repo != nil {
		if err := s.repo.Save(ctx, report); err != nil {
			return nil, errors.Wrap(err, "failed to persist audit report")
		}
	}

	log.Printf("[AuditService] audit %s completed in %v (rank p=%.4f, pairwise p=%.2f, z-test p=%.2f, slope=%.4f)",
		report.ID, time.Since(startTime), report.RankProbability.PValue, report.Pairwise.PValue,
		report.Proportion.PValue, report.Stability.Slope)

	return report, nil
}

// Get loads a persisted report
func (s *AuditService) Get(ctx context.Context, id core.ReportID) (*verdict.Report, error) {
	if s.repo == nil {
		return nil, errors.NotFound("report " + id.String())
	}
	return s.repo.Get(ctx, id)
}

// List returns up to limit persisted reports, newest first
func (s *AuditService) List(ctx context.Context, limit int) ([]*verdict.Report, error) {
	if s.repo == nil {
		return []*verdict.Report{}, nil
	}
	return s.repo.List(ctx, limit)
}
