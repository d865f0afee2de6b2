package ports

import (
	"context"

	"hdmed/models"

	"github.com/google/uuid"
)

// ResultsRepository persists estimation run reports
type ResultsRepository interface {
	SaveReport(ctx context.Context, report *models.Report) error
	GetReport(ctx context.Context, runID uuid.UUID) (*models.Report, error)
	ListReports(ctx context.Context, limit int) ([]models.ReportSummary, error)
}
