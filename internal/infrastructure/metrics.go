package infrastructure

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// BusinessMetrics holds all application-specific instruments
type BusinessMetrics struct {
	// HTTP metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	// Dataset metrics
	DatasetsIngested      metric.Int64Counter
	DatasetRowsIngested   metric.Int64Counter
	DatasetIngestDuration metric.Float64Histogram
	DatasetsEvicted       metric.Int64Counter

	// Output metrics
	DashboardBuilds metric.Int64Counter
	ChartsRendered  metric.Int64Counter
	ExportsTotal    metric.Int64Counter

	// System metrics
	SystemErrors metric.Int64Counter
}

// CreateBusinessMetrics creates application-specific metrics
func CreateBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	m := &BusinessMetrics{}
	var err error

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
		unit string
	}{
		{&m.HTTPRequestsTotal, "http_requests_total", "Total number of HTTP requests", ""},
		{&m.DatasetsIngested, "datasets_ingested_total", "Line-list uploads processed, by format and status", ""},
		{&m.DatasetRowsIngested, "dataset_rows_ingested_total", "Line-list rows read from successful uploads", ""},
		{&m.DatasetsEvicted, "datasets_evicted_total", "Datasets dropped from the store, by reason", ""},
		{&m.DashboardBuilds, "dashboard_builds_total", "Dashboard aggregations computed, by view", ""},
		{&m.ChartsRendered, "charts_rendered_total", "PNG charts rendered, by chart and status", ""},
		{&m.ExportsTotal, "exports_total", "CSV exports written", ""},
		{&m.SystemErrors, "system_errors_total", "Total number of system errors", ""},
	}
	for _, c := range counters {
		opts := []metric.Int64CounterOption{metric.WithDescription(c.desc)}
		if c.unit != "" {
			opts = append(opts, metric.WithUnit(c.unit))
		}
		if *c.dst, err = meter.Int64Counter(c.name, opts...); err != nil {
			return nil, fmt.Errorf("create %s: %w", c.name, err)
		}
	}

	m.HTTPRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	m.HTTPActiveRequests, err = meter.Int64UpDownCounter(
		"http_active_requests",
		metric.WithDescription("Number of active HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	m.DatasetIngestDuration, err = meter.Float64Histogram(
		"dataset_ingest_duration_seconds",
		metric.WithDescription("Time to parse and derive an uploaded line-list"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func statusAttr(err error) attribute.KeyValue {
	if err != nil {
		return attribute.String("status", "failure")
	}
	return attribute.String("status", "success")
}

// RecordIngest records one upload attempt
func RecordIngest(ctx context.Context, metrics *BusinessMetrics, format string, rows int, duration time.Duration, err error) {
	if metrics == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("format", format), statusAttr(err))
	metrics.DatasetsIngested.Add(ctx, 1, attrs)
	metrics.DatasetIngestDuration.Record(ctx, duration.Seconds(), attrs)
	if err == nil {
		metrics.DatasetRowsIngested.Add(ctx, int64(rows), metric.WithAttributes(attribute.String("format", format)))
	}

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.AddEvent("dataset.ingest_recorded",
			trace.WithAttributes(
				attribute.String("format", format),
				attribute.Int("rows", rows),
				attribute.Bool("success", err == nil),
				attribute.Float64("duration_seconds", duration.Seconds()),
			),
		)
	}
}

// RecordDashboardBuild records an aggregation of one view ("all" for the full dashboard)
func RecordDashboardBuild(ctx context.Context, metrics *BusinessMetrics, view string) {
	if metrics == nil {
		return
	}
	metrics.DashboardBuilds.Add(ctx, 1, metric.WithAttributes(attribute.String("view", view)))
}

// RecordEviction records datasets dropped from the store
func RecordEviction(ctx context.Context, metrics *BusinessMetrics, reason string, count int) {
	if metrics == nil || count <= 0 {
		return
	}
	metrics.DatasetsEvicted.Add(ctx, int64(count), metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordChart records a chart render attempt
func RecordChart(ctx context.Context, metrics *BusinessMetrics, chart string, err error) {
	if metrics == nil {
		return
	}
	metrics.ChartsRendered.Add(ctx, 1, metric.WithAttributes(attribute.String("chart", chart), statusAttr(err)))
}

// RecordExport records a CSV export
func RecordExport(ctx context.Context, metrics *BusinessMetrics, err error) {
	if metrics == nil {
		return
	}
	metrics.ExportsTotal.Add(ctx, 1, metric.WithAttributes(statusAttr(err)))
}

// RecordSystemError counts an unexpected failure in a component
func RecordSystemError(ctx context.Context, metrics *BusinessMetrics, component string) {
	if metrics == nil {
		return
	}
	metrics.SystemErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("component", component)))
}
