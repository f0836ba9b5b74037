package ports

import (
	"context"

	"rankfair/domain/core"
	"rankfair/domain/verdict"
)

// ReportRepository persists audit reports
type ReportRepository interface {
	Save(ctx context.Context, report *verdict.Report) error
	Get(ctx context.Context, id core.ReportID) (*verdict.Report, error)
	List(ctx context.Context, limit int) ([]*verdict.Report, error)
}
