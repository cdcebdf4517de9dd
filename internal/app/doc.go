// Package app wires the survdash service together and owns its lifecycle.
//
// New resolves the data directories, starts OpenTelemetry, the WebSocket hub
// and the dataset store, then builds the chi router:
//
//	/ws                      live dataset and status events
//	/metrics                 Prometheus exposition
//	/api/health[/ready|/live] health checks
//	/api/version             build information
//	/api/stats               runtime and hub counters
//	/api/analyze             one-shot upload, nothing retained
//	/api/datasets/...        upload, dashboard, views, report, export, charts
//
// Run blocks until SIGINT or SIGTERM and then calls Stop, which announces the
// shutdown to connected clients before draining the HTTP server.
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := application.Run(); err != nil {
//	    log.Fatal(err)
//	}
package app
