package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"rankfair/domain/core"
	"rankfair/domain/verdict"
	"rankfair/internal/errors"
	"rankfair/ports"

	"github.com/jmoiron/sqlx"
)

// reportPayload stores a full report in a JSONB column
type reportPayload struct {
	*verdict.Report
}

// Value implements driver.Valuer interface
func (p reportPayload) Value() (driver.Value, error) {
	if p.Report == nil {
		return nil, nil
	}
	return json.Marshal(p.Report)
}

// Scan implements sql.Scanner interface
func (p *reportPayload) Scan(value interface{}) error {
	var bytes []byte
	switch v := value.(type) {
	case nil:
		return fmt.Errorf("report payload is NULL")
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("unsupported payload type %T", value)
	}

	report := &verdict.Report{}
	if err := json.Unmarshal(bytes, report); err != nil {
		return err
	}
	p.Report = report
	return nil
}

// ReportRepositoryImpl implements ReportRepository for PostgreSQL
type ReportRepositoryImpl struct {
	db *sqlx.DB
}

// NewReportRepository creates a new PostgreSQL report repository
func NewReportRepository(db *sqlx.DB) ports.ReportRepository {
	return &ReportRepositoryImpl{db: db}
}

// Save inserts a report. The summary columns duplicate the payload so that
// reports can be filtered without decoding JSON.
func (r *ReportRepositoryImpl) Save(ctx context.Context, report *verdict.Report) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO fairness_reports (id, dataset_name, dataset_hash, score_column, group_attribute, group_value,
			alternative, rank_fair, pairwise_fair, proportion_fair, stable, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, report.ID.String(), report.DatasetName, report.DatasetHash.String(), report.ScoreColumn,
		report.Group.Attribute, report.Group.Value, string(report.Alternative),
		report.Summary.RankFair, report.Summary.PairwiseFair, report.Summary.ProportionFair, report.Summary.Stable,
		reportPayload{report}, report.CreatedAt)
	if err != nil {
		return errors.DatabaseError("failed to save report", err)
	}
	return nil
}

// Get retrieves a report by ID
func (r *ReportRepositoryImpl) Get(ctx context.Context, id core.ReportID) (*verdict.Report, error) {
	var payload reportPayload
	err := r.db.GetContext(ctx, &payload, `
		SELECT payload FROM fairness_reports WHERE id = $1
	`, id.String())
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFound("report " + id.String())
	}
	if err != nil {
		return nil, errors.DatabaseError("failed to load report", err)
	}
	return payload.Report, nil
}

// List returns reports, newest first, optionally limited
func (r *ReportRepositoryImpl) List(ctx context.Context, limit int) ([]*verdict.Report, error) {
	query := `
		SELECT payload FROM fairness_reports
		ORDER BY created_at DESC, id DESC
	`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	var payloads []reportPayload
	if err := r.db.SelectContext(ctx, &payloads, query, args...); err != nil {
		return nil, errors.DatabaseError("failed to list reports", err)
	}

	reports := make([]*verdict.Report, 0, len(payloads))
	for _, p := range payloads {
		reports = append(reports, p.Report)
	}
	return reports, nil
}
