package http

import (
	"context"
	"io"

	"survdash/internal/exporter"
	"survdash/internal/services"
	"survdash/pkg/contracts/domain"
)

// DashboardServiceInterface defines the dataset and dashboard operations
// served over HTTP
type DashboardServiceInterface interface {
	Ingest(ctx context.Context, req services.IngestRequest) (domain.DatasetInfo, error)
	Analyze(ctx context.Context, req services.IngestRequest) (*domain.Dashboard, error)
	Get(ctx context.Context, id string) (domain.DatasetInfo, error)
	List(ctx context.Context) []domain.DatasetInfo
	Delete(ctx context.Context, id string) error
	Dashboard(ctx context.Context, id string) (*domain.Dashboard, error)
	View(ctx context.Context, id string, name domain.ViewName, top int) (interface{}, error)
	Report(ctx context.Context, id string) (domain.SummaryReport, error)
	ExportCSV(ctx context.Context, id string, w io.Writer) (string, error)
	Chart(ctx context.Context, id string, name exporter.ChartName, w io.Writer) error
}

var _ DashboardServiceInterface = (*services.DashboardService)(nil)
