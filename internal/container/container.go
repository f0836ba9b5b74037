package container

import (
	"context"
	"fmt"

	"rankfair/adapters/classmetrics"
	"rankfair/adapters/fair"
	"rankfair/adapters/postgres"
	rngadapter "rankfair/adapters/rng"
	"rankfair/app"
	"rankfair/internal"
	"rankfair/internal/api"
	"rankfair/internal/config"
	"rankfair/ports"

	"github.com/jmoiron/sqlx"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config

	// Infrastructure
	DB *sqlx.DB

	// Repositories (data access layer); nil without a database
	ReportRepo ports.ReportRepository

	// Fairness primitives
	Tester      ports.RankFairnessTester
	Generator   ports.FairRankingGenerator
	PairCounter ports.PairCounter
	RNG         ports.RNGPort
	Classifier  ports.ClassificationMetrics

	// Services
	AuditService   *app.AuditService
	MetricsService *app.MetricsService

	// HTTP
	Metrics *api.Metrics
	Server  *api.Server
}

// New creates a new dependency injection container. Reports are not
// persisted until InitWithDatabase is called.
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	c := &Container{
		Config:      cfg,
		Tester:      fair.NewTester(cfg.Audit.Alpha),
		Generator:   fair.NewGenerator(),
		PairCounter: fair.NewPairCounter(),
		RNG:         rngadapter.NewSeededAdapter(),
		Classifier:  classmetrics.NewLibrary(),
		Metrics:     api.NewMetrics(),
	}
	c.initServices()

	return c, nil
}

// InitWithDatabase initializes components that require database access
func (c *Container) InitWithDatabase(db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("database connection cannot be nil")
	}

	c.DB = db

	// Test database connection
	if err := db.Ping(); err != nil {
		return fmt.Errorf("database connection test failed: %w", err)
	}

	c.ReportRepo = postgres.NewReportRepository(db)
	c.initServices()

	internal.DefaultLogger.Info("[Container] initialized with database connection")
	return nil
}

func (c *Container) initServices() {
	c.AuditService = app.NewAuditService(
		c.Tester,
		c.Generator,
		c.PairCounter,
		c.RNG,
		c.Config.ClassifierThresholds(),
		c.ReportRepo,
	)
	c.MetricsService = app.NewMetricsService(c.Classifier)
	c.Server = api.NewServer(
		c.AuditService,
		c.MetricsService,
		c.Config.OracleOptions(),
		c.Config.ClassifierThresholds(),
		c.Metrics,
	)
}

// Readiness returns the check backing /readyz; nil without a database
func (c *Container) Readiness() api.ReadinessCheck {
	if c.DB == nil {
		return nil
	}
	return func(ctx context.Context) error {
		return c.DB.PingContext(ctx)
	}
}

// Shutdown gracefully shuts down all components
func (c *Container) Shutdown(ctx context.Context) error {
	// Close database connection
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
