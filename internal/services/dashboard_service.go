package services

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"survdash/internal/config"
	"survdash/internal/dataprocessing"
	"survdash/internal/exporter"
	"survdash/internal/infrastructure"
	"survdash/internal/validation"
	"survdash/pkg/contracts/domain"
	"survdash/pkg/contracts/events"
)

// EventPublisher receives dataset lifecycle events for connected clients
type EventPublisher interface {
	PublishDatasetEvent(ctx context.Context, msgType events.MessageType, event events.DatasetEvent)
}

// IngestRequest describes one uploaded line-list
type IngestRequest struct {
	Filename string
	// Size is the declared upload size; negative when unknown
	Size   int64
	Reader io.Reader
	// HeaderRow and Sheet override the configured defaults when set
	HeaderRow int
	Sheet     string
}

// DashboardService coordinates ingestion, the dataset store and the outputs
type DashboardService struct {
	store      *DatasetStore
	validator  *validation.FileValidator
	summarizer *dataprocessing.Summarizer
	csv        *exporter.CSVWriter
	charts     *exporter.ChartRenderer
	publisher  EventPublisher
	metrics    *infrastructure.BusinessMetrics
	logger     *slog.Logger

	ingest config.IngestConfig
	bom    bool
	now    func() time.Time
}

// NewDashboardService wires the service to its store. publisher and metrics
// may be nil.
func NewDashboardService(cfg *config.Config, store *DatasetStore, publisher EventPublisher, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *DashboardService {
	if logger == nil {
		logger = slog.Default()
	}

	s := &DashboardService{
		store:     store,
		validator: validation.NewFileValidator(logger, cfg.Ingest),
		csv:       exporter.NewCSVWriter(nil),
		charts:    exporter.NewChartRenderer(cfg.Export.ChartWidth, cfg.Export.ChartHeight),
		publisher: publisher,
		metrics:   metrics,
		logger:    logger.With(slog.String("component", "dashboard_service")),
		ingest:    cfg.Ingest,
		bom:       cfg.Export.BOM,
		now:       time.Now,
	}
	s.summarizer = dataprocessing.NewSummarizer(logger, dataprocessing.SummarizerConfig{
		Program: cfg.Report.Program,
		Options: domain.DashboardOptions{
			TopComplications: cfg.Report.TopComplications,
			TopDistricts:     cfg.Report.CrossTabDistrict,
			ReportDistricts:  cfg.Report.TopDistricts,
		},
		Now: func() time.Time { return s.now() },
	})

	store.OnEvict(s.publishEvictions)
	return s
}

// Ingest parses an upload and stores it as a new snapshot
func (s *DashboardService) Ingest(ctx context.Context, req IngestRequest) (domain.DatasetInfo, error) {
	ctx, span := infrastructure.StartSpan(ctx, "dashboard.ingest",
		attribute.String("file.name", req.Filename),
		attribute.Int64("file.size", req.Size))
	defer span.End()

	start := time.Now()
	ds, format, err := s.load(ctx, req)
	if err != nil {
		infrastructure.RecordIngest(ctx, s.metrics, format, 0, time.Since(start), err)
		s.fail(ctx, span, "Ingest failed", req.Filename, err)
		return domain.DatasetInfo{}, err
	}

	info, err := s.store.Put(ctx, baseName(req.Filename), ds)
	if err != nil {
		infrastructure.RecordSystemError(ctx, s.metrics, "dataset_store")
		infrastructure.RecordIngest(ctx, s.metrics, format, 0, time.Since(start), err)
		s.fail(ctx, span, "Ingest failed", req.Filename, err)
		return domain.DatasetInfo{}, err
	}

	infrastructure.RecordIngest(ctx, s.metrics, format, info.RawRows, time.Since(start), nil)
	infrastructure.SetSpanAttributes(ctx, map[string]interface{}{"dataset.id": info.ID})

	s.publish(ctx, events.MessageTypeDatasetLoaded, events.DatasetEvent{Dataset: info})
	return info, nil
}

// Analyze builds the full dashboard for an upload without storing it
func (s *DashboardService) Analyze(ctx context.Context, req IngestRequest) (*domain.Dashboard, error) {
	ctx, span := infrastructure.StartSpan(ctx, "dashboard.analyze",
		attribute.String("file.name", req.Filename))
	defer span.End()

	start := time.Now()
	ds, format, err := s.load(ctx, req)
	infrastructure.RecordIngest(ctx, s.metrics, format, rowsOf(ds), time.Since(start), err)
	if err != nil {
		s.fail(ctx, span, "Analyze failed", req.Filename, err)
		return nil, err
	}

	return s.build(ctx, ds), nil
}

// load validates and parses an upload. The returned format is empty when
// the extension was not recognised.
func (s *DashboardService) load(ctx context.Context, req IngestRequest) (*dataprocessing.Dataset, string, error) {
	if req.Reader == nil {
		return nil, "", fmt.Errorf("%w: no file provided", ErrInvalidInput)
	}

	if err := s.validator.ValidateUpload(req.Filename, req.Size); err != nil {
		return nil, "", err
	}

	format, err := dataprocessing.DetectFormat(req.Filename)
	if err != nil {
		return nil, "", err
	}

	br := bufio.NewReader(req.Reader)
	header, _ := br.Peek(validation.SignatureLen)
	if len(header) == 0 {
		return nil, string(format), fmt.Errorf("%w: %w", ErrEmptyUpload, validation.ErrEmptyFile)
	}
	if err := s.validator.ValidateWorkbookSignature(req.Filename, header); err != nil {
		return nil, string(format), err
	}

	opts := dataprocessing.ParseOptions{HeaderRow: req.HeaderRow, Sheet: req.Sheet}
	if opts.HeaderRow <= 0 {
		if format == dataprocessing.FormatCSV {
			opts.HeaderRow = s.ingest.CSVHeaderRow
		} else {
			opts.HeaderRow = s.ingest.HeaderRow
		}
	}
	if opts.Sheet == "" && format == dataprocessing.FormatWorkbook {
		opts.Sheet = s.ingest.Sheet
	}

	table, err := dataprocessing.Parse(req.Filename, br, opts)
	if err != nil {
		if errors.Is(err, dataprocessing.ErrUnsupportedFormat) {
			return nil, string(format), err
		}
		return nil, string(format), fmt.Errorf("%w: %w", ErrUnreadableFile, err)
	}

	ds := dataprocessing.NewDataset(table)
	infrastructure.AddSpanEvent(ctx, "line-list parsed", map[string]interface{}{
		"rows.raw":     len(ds.Records),
		"rows.cleaned": len(ds.CleanRecords),
		"header_row":   table.HeaderRow(),
	})
	s.logger.InfoContext(ctx, "Line-list parsed",
		slog.String("file", baseName(req.Filename)),
		slog.String("format", string(format)),
		slog.Int("header_row", table.HeaderRow()),
		slog.Int("raw_rows", len(ds.Records)),
		slog.Int("cleaned_rows", len(ds.CleanRecords)),
		slog.Int("unparsed_ages", ds.UnparsedAges),
		slog.Int("unparsed_dates", ds.UnparsedDates))

	if missing := ds.MissingColumns(); len(missing) > 0 {
		s.logger.WarnContext(ctx, "Line-list is missing expected columns",
			slog.Any("columns", missing))
	}

	return ds, string(format), nil
}

func (s *DashboardService) build(ctx context.Context, ds *dataprocessing.Dataset) *domain.Dashboard {
	infrastructure.RecordDashboardBuild(ctx, s.metrics, "all")
	return s.summarizer.Dashboard(ctx, ds)
}

// Get returns snapshot metadata
func (s *DashboardService) Get(ctx context.Context, id string) (domain.DatasetInfo, error) {
	snap, err := s.store.Get(id)
	if err != nil {
		return domain.DatasetInfo{}, err
	}
	return snap.Info(), nil
}

// List returns every live snapshot, newest first
func (s *DashboardService) List(ctx context.Context) []domain.DatasetInfo {
	return s.store.List()
}

// Delete drops a snapshot and tells connected clients
func (s *DashboardService) Delete(ctx context.Context, id string) error {
	info, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	s.publish(ctx, events.MessageTypeDatasetDeleted, events.DatasetEvent{Dataset: info})
	return nil
}

// Dashboard returns every view of a snapshot, built once per snapshot
func (s *DashboardService) Dashboard(ctx context.Context, id string) (*domain.Dashboard, error) {
	ctx, span := infrastructure.StartSpan(ctx, "dashboard.build", attribute.String("dataset.id", id))
	defer span.End()

	d, err := s.store.Dashboard(ctx, id, s.build)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return d, nil
}

// View returns one view. A positive top overrides every Top-N limit and
// bypasses the memoized dashboard. The report view is always stamped fresh.
func (s *DashboardService) View(ctx context.Context, id string, name domain.ViewName, top int) (interface{}, error) {
	if !name.IsValid() {
		return nil, fmt.Errorf("%w: %q", dataprocessing.ErrUnknownView, name)
	}

	if name == domain.ViewReport && top <= 0 {
		return s.Report(ctx, id)
	}

	if top <= 0 {
		d, err := s.Dashboard(ctx, id)
		if err != nil {
			return nil, err
		}
		return d.View(name), nil
	}

	snap, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}

	summarizer := s.summarizer.WithOptions(domain.DashboardOptions{
		TopComplications: top,
		TopDistricts:     top,
		ReportDistricts:  top,
	})
	infrastructure.RecordDashboardBuild(ctx, s.metrics, string(name))
	return summarizer.View(snap.Dataset(), name)
}

// Report returns a freshly stamped summary report
func (s *DashboardService) Report(ctx context.Context, id string) (domain.SummaryReport, error) {
	snap, err := s.store.Get(id)
	if err != nil {
		return domain.SummaryReport{}, err
	}
	infrastructure.RecordDashboardBuild(ctx, s.metrics, string(domain.ViewReport))
	return s.summarizer.Report(snap.Dataset()), nil
}

// ExportCSV writes the snapshot's raw rows as CSV and returns the download name
func (s *DashboardService) ExportCSV(ctx context.Context, id string, w io.Writer) (string, error) {
	snap, err := s.store.Get(id)
	if err != nil {
		return "", err
	}

	err = s.csv.WriteTable(w, snap.Dataset().Raw, s.bom)
	infrastructure.RecordExport(ctx, s.metrics, err)
	if err != nil {
		s.logger.ErrorContext(ctx, "CSV export failed",
			slog.String("dataset_id", id),
			slog.String("error", err.Error()))
		return "", fmt.Errorf("export failed: %w", err)
	}

	return exporter.ExportFilename(s.now()), nil
}

// Chart renders one dashboard chart as PNG
func (s *DashboardService) Chart(ctx context.Context, id string, name exporter.ChartName, w io.Writer) error {
	d, err := s.Dashboard(ctx, id)
	if err != nil {
		return err
	}

	err = s.charts.Render(w, name, d)
	infrastructure.RecordChart(ctx, s.metrics, string(name), err)
	return err
}

// ActiveDatasets returns the number of snapshots held
func (s *DashboardService) ActiveDatasets() int {
	return s.store.Len()
}

// Close stops the store's background sweep
func (s *DashboardService) Close() {
	s.store.Stop()
}

func (s *DashboardService) publishEvictions(ctx context.Context, evicted []domain.DatasetInfo, reason string) {
	for _, info := range evicted {
		s.publish(ctx, events.MessageTypeDatasetExpired, events.DatasetEvent{Dataset: info, Reason: reason})
	}
}

func (s *DashboardService) publish(ctx context.Context, msgType events.MessageType, event events.DatasetEvent) {
	if s.publisher == nil {
		return
	}
	s.publisher.PublishDatasetEvent(ctx, msgType, event)
}

func (s *DashboardService) fail(ctx context.Context, span trace.Span, msg, file string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.logger.WarnContext(ctx, msg,
		slog.String("file", baseName(file)),
		slog.String("error", err.Error()))
}

func baseName(name string) string {
	return filepath.Base(strings.ReplaceAll(name, "\\", "/"))
}

func rowsOf(ds *dataprocessing.Dataset) int {
	if ds == nil {
		return 0
	}
	return len(ds.Records)
}
