package http

import (
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	ws "survdash/internal/websocket"
)

// DatasetCounter reports the snapshots currently held
type DatasetCounter interface {
	ActiveDatasets() int
}

// HubStatsSource reports WebSocket hub counters
type HubStatsSource interface {
	Stats() ws.HubStats
}

// MetricsHandler serves a JSON summary of runtime counters. Prometheus
// metrics are served separately on /metrics.
type MetricsHandler struct {
	datasets  DatasetCounter
	hub       HubStatsSource
	startTime time.Time
}

// NewMetricsHandler creates a new metrics handler. hub may be nil.
func NewMetricsHandler(datasets DatasetCounter, hub HubStatsSource) *MetricsHandler {
	return &MetricsHandler{
		datasets:  datasets,
		hub:       hub,
		startTime: time.Now(),
	}
}

// Routes sets up the metrics routes
func (h *MetricsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.GetMetrics)
	return r
}

// GetMetrics handles GET /api/stats
func (h *MetricsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	response := map[string]interface{}{
		"status":          "ok",
		"timestamp":       time.Now().UTC(),
		"uptime_seconds":  int64(time.Since(h.startTime).Seconds()),
		"active_datasets": h.datasets.ActiveDatasets(),
		"runtime": map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"heap_alloc": mem.HeapAlloc,
			"gc_cycles":  mem.NumGC,
			"go_version": runtime.Version(),
		},
	}
	if h.hub != nil {
		response["websocket"] = h.hub.Stats()
	}
	render.JSON(w, r, response)
}
