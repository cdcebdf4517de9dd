// Package services implements the orchestration layer between the HTTP
// handlers and the dataprocessing and exporter packages.
//
// # Dataset store
//
// DatasetStore keeps each upload as an immutable Snapshot keyed by UUID.
// Snapshots leave the store when their TTL passes, when the store is over
// capacity (oldest first) or when they are deleted. Expired snapshots are
// invisible to readers as soon as the TTL passes; a cron-scheduled sweep
// removes them and notifies the eviction handler.
//
// The full dashboard of a snapshot is computed at most once. Concurrent
// first requests share the build through a singleflight group.
//
// # Dashboard service
//
// DashboardService validates and parses uploads, stores them and produces
// views, reports, CSV exports and charts. Lifecycle changes are published as
// dataset:loaded, dataset:deleted and dataset:expired events so that open
// dashboards can refresh:
//
//	store := services.NewDatasetStore(storeCfg, logger, metrics)
//	svc := services.NewDashboardService(cfg, store, hub, metrics, logger)
//	info, err := svc.Ingest(ctx, services.IngestRequest{Filename: name, Size: size, Reader: r})
//
// # Errors
//
// Services return sentinel errors wrapped with context. Handlers map them to
// problem responses with errors.Is:
//
//   - ErrDatasetNotFound for unknown or expired snapshot IDs
//   - ErrUnreadableFile for uploads the parser rejected
//   - validation and dataprocessing sentinels pass through unchanged
package services
