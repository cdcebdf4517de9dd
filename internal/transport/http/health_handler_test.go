package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"survdash/internal/services"
	"survdash/internal/shared/testutil"
	ws "survdash/internal/websocket"
)

type fixedClients int

func (c fixedClients) ClientCount() int { return int(c) }

func newHealthRouter(t *testing.T, store *services.DatasetStore) http.Handler {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	svc := services.NewHealthService(services.BuildInfo{Version: "v0.3.0", BuildID: "abc123"}, store, fixedClients(2), logger)
	h := NewHealthHandler(svc, logger)

	r := chi.NewRouter()
	r.Get("/api/health", h.HealthCheck)
	r.Get("/api/health/ready", h.ReadinessCheck)
	r.Get("/api/health/live", h.LivenessCheck)
	r.Get("/api/version", h.Version)
	return r
}

func TestHealthHandler_Endpoints(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	store := services.NewDatasetStore(services.StoreConfig{}, logger, nil)
	router := newHealthRouter(t, store)

	tests := []struct {
		path       string
		wantStatus string
	}{
		{"/api/health", "ok"},
		{"/api/health/ready", "ready"},
		{"/api/health/live", "alive"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			require.Equal(t, http.StatusOK, rec.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantStatus, body["status"])
			assert.Equal(t, "v0.3.0", body["version"])
		})
	}
}

func TestHealthHandler_NotReady(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	store := services.NewDatasetStore(services.StoreConfig{}, logger, nil)
	store.Stop()
	router := newHealthRouter(t, store)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"not_ready"`)
}

func TestHealthHandler_Version(t *testing.T) {
	router := newHealthRouter(t, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/version", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "v0.3.0", body["version"])
	assert.Equal(t, "abc123", body["build_id"])
	assert.NotContains(t, body, "repo_url")
}

type fixedDatasets int

func (d fixedDatasets) ActiveDatasets() int { return int(d) }

type fixedHub ws.HubStats

func (h fixedHub) Stats() ws.HubStats { return ws.HubStats(h) }

func TestMetricsHandler_GetMetrics(t *testing.T) {
	h := NewMetricsHandler(fixedDatasets(3), fixedHub{ActiveClients: 2, MessagesSent: 9})

	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(3), body["active_datasets"])

	hub, ok := body["websocket"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(2), hub["active_clients"])
	assert.Equal(t, float64(9), hub["messages_sent"])
	assert.Contains(t, body, "runtime")
}

func TestMetricsHandler_WithoutHub(t *testing.T) {
	h := NewMetricsHandler(fixedDatasets(0), nil)

	rec := httptest.NewRecorder()
	h.GetMetrics(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "websocket")
}
