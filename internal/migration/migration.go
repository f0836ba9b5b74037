package migration

import (
	"context"

	"rankfair/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Reset(ctx context.Context, db *sqlx.DB) error
	Version() string
}

var _ Migrator = (*MigrationRunner)(nil)

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order. Every statement
// is idempotent.
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createReportsTable(ctx, db); err != nil {
		return errors.DatabaseError("failed to create fairness_reports table", err)
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.DatabaseError("failed to create indexes", err)
	}

	return nil
}

func (r *MigrationRunner) createReportsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS fairness_reports (
			id UUID PRIMARY KEY,
			dataset_name TEXT NOT NULL DEFAULT '',
			dataset_hash VARCHAR(64) NOT NULL,
			score_column TEXT NOT NULL,
			group_attribute TEXT NOT NULL,
			group_value TEXT NOT NULL,
			alternative VARCHAR(20) NOT NULL,
			rank_fair BOOLEAN NOT NULL,
			pairwise_fair BOOLEAN NOT NULL,
			proportion_fair BOOLEAN NOT NULL,
			stable BOOLEAN NOT NULL,
			payload JSONB NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	statements := []string{
		`CREATE INDEX IF NOT EXISTS idx_fairness_reports_created_at ON fairness_reports (created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_fairness_reports_dataset_hash ON fairness_reports (dataset_hash)`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Reset drops every table owned by rankfair
func (r *MigrationRunner) Reset(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS fairness_reports CASCADE`); err != nil {
		return errors.DatabaseError("failed to drop fairness_reports", err)
	}
	return nil
}
