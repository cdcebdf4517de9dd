package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"survdash/internal/dataprocessing"
	apierrors "survdash/internal/errors"
	"survdash/internal/exporter"
	"survdash/internal/services"
	"survdash/internal/shared/testutil"
	"survdash/internal/validation"
	"survdash/pkg/contracts/domain"
)

const testDatasetID = "3f0c2a9e-8a4b-4c1d-9e2f-1a2b3c4d5e6f"

// MockDashboardService is a mock implementation of DashboardServiceInterface
type MockDashboardService struct {
	mock.Mock
}

func (m *MockDashboardService) Ingest(ctx context.Context, req services.IngestRequest) (domain.DatasetInfo, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.DatasetInfo), args.Error(1)
}

func (m *MockDashboardService) Analyze(ctx context.Context, req services.IngestRequest) (*domain.Dashboard, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Dashboard), args.Error(1)
}

func (m *MockDashboardService) Get(ctx context.Context, id string) (domain.DatasetInfo, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.DatasetInfo), args.Error(1)
}

func (m *MockDashboardService) List(ctx context.Context) []domain.DatasetInfo {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]domain.DatasetInfo)
}

func (m *MockDashboardService) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockDashboardService) Dashboard(ctx context.Context, id string) (*domain.Dashboard, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Dashboard), args.Error(1)
}

func (m *MockDashboardService) View(ctx context.Context, id string, name domain.ViewName, top int) (interface{}, error) {
	args := m.Called(ctx, id, name, top)
	return args.Get(0), args.Error(1)
}

func (m *MockDashboardService) Report(ctx context.Context, id string) (domain.SummaryReport, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.SummaryReport), args.Error(1)
}

func (m *MockDashboardService) ExportCSV(ctx context.Context, id string, w io.Writer) (string, error) {
	args := m.Called(ctx, id, w)
	return args.String(0), args.Error(1)
}

func (m *MockDashboardService) Chart(ctx context.Context, id string, name exporter.ChartName, w io.Writer) error {
	return m.Called(ctx, id, name, w).Error(0)
}

func newDashboardRouter(t *testing.T, svc *MockDashboardService) http.Handler {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	errorHandler := apierrors.NewErrorHandler(logger, false)

	h := NewDashboardHandler(svc, 1<<20, logger, errorHandler)
	h.now = func() time.Time { return time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC) }

	r := chi.NewRouter()
	r.Post("/api/analyze", h.Analyze)
	r.Mount("/api/datasets", h.Routes())
	return r
}

func multipartUpload(t *testing.T, filename string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestDashboardHandler_UploadDataset(t *testing.T) {
	svc := new(MockDashboardService)
	router := newDashboardRouter(t, svc)

	info := domain.DatasetInfo{ID: testDatasetID, Filename: "cases.xlsx", HeaderRow: 3, RawRows: 7, CleanedRows: 5}
	svc.On("Ingest", mock.Anything, mock.MatchedBy(func(req services.IngestRequest) bool {
		return req.Reader != nil &&
			req.Filename == "cases.xlsx" &&
			req.HeaderRow == 3 &&
			req.Sheet == "Line list" &&
			req.Size == int64(len("PK\x03\x04data"))
	})).Return(info, nil)

	body, contentType := multipartUpload(t, "cases.xlsx", []byte("PK\x03\x04data"), map[string]string{
		"header_row": "3",
		"sheet":      "Line list",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/datasets", body)
	req.Header.Set("Content-Type", contentType)

	rec := serve(router, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "/api/datasets/"+testDatasetID, rec.Header().Get("Location"))
	got := decodeBody(t, rec)
	assert.Equal(t, testDatasetID, got["id"])
	assert.Equal(t, float64(7), got["raw_rows"])
	svc.AssertExpectations(t)
}

func TestDashboardHandler_UploadRejected(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		fields      map[string]string
		contentType string
		serviceErr  error
		wantStatus  int
		wantCode    string
	}{
		{
			name:       "missing file",
			wantStatus: http.StatusBadRequest,
			wantCode:   apierrors.CodeValidationFailed,
		},
		{
			name:       "header row not a number",
			filename:   "cases.xlsx",
			fields:     map[string]string{"header_row": "two"},
			wantStatus: http.StatusBadRequest,
			wantCode:   apierrors.CodeValidationFailed,
		},
		{
			name:       "header row out of range",
			filename:   "cases.xlsx",
			fields:     map[string]string{"header_row": "5000"},
			wantStatus: http.StatusBadRequest,
			wantCode:   apierrors.CodeValidationFailed,
		},
		{
			name:        "not multipart",
			contentType: "application/json",
			wantStatus:  http.StatusUnsupportedMediaType,
			wantCode:    apierrors.CodeUnsupportedFile,
		},
		{
			name:       "extension not allowed",
			filename:   "cases.xlsx",
			serviceErr: fmt.Errorf("%w: .xls", validation.ErrExtensionNotAllowed),
			wantStatus: http.StatusUnsupportedMediaType,
			wantCode:   apierrors.CodeUnsupportedFile,
		},
		{
			name:       "legacy workbook",
			filename:   "cases.xlsx",
			serviceErr: dataprocessing.ErrLegacyWorkbook,
			wantStatus: http.StatusUnsupportedMediaType,
			wantCode:   apierrors.CodeUnsupportedFile,
		},
		{
			name:       "unreadable",
			filename:   "cases.xlsx",
			serviceErr: fmt.Errorf("%w: %w", services.ErrUnreadableFile, dataprocessing.ErrHeaderRowMissing),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   apierrors.CodeUnreadableFile,
		},
		{
			name:       "too large",
			filename:   "cases.xlsx",
			serviceErr: validation.ErrFileTooLarge,
			wantStatus: http.StatusRequestEntityTooLarge,
			wantCode:   apierrors.CodePayloadTooLarge,
		},
		{
			name:       "empty",
			filename:   "cases.xlsx",
			serviceErr: fmt.Errorf("%w: %w", services.ErrEmptyUpload, validation.ErrEmptyFile),
			wantStatus: http.StatusBadRequest,
			wantCode:   apierrors.CodeValidationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockDashboardService)
			if tt.serviceErr != nil {
				svc.On("Ingest", mock.Anything, mock.Anything).Return(domain.DatasetInfo{}, tt.serviceErr)
			}
			router := newDashboardRouter(t, svc)

			body, contentType := multipartUpload(t, tt.filename, []byte("PK\x03\x04"), tt.fields)
			if tt.contentType != "" {
				contentType = tt.contentType
			}
			req := httptest.NewRequest(http.MethodPost, "/api/datasets", body)
			req.Header.Set("Content-Type", contentType)

			rec := serve(router, req)

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantCode, decodeBody(t, rec)["error_code"])
			svc.AssertExpectations(t)
		})
	}
}

func TestDashboardHandler_Analyze(t *testing.T) {
	svc := new(MockDashboardService)
	router := newDashboardRouter(t, svc)

	dashboard := &domain.Dashboard{Overview: domain.OverviewView{TotalCases: 5}}
	svc.On("Analyze", mock.Anything, mock.MatchedBy(func(req services.IngestRequest) bool {
		return req.Filename == "cases.csv"
	})).Return(dashboard, nil)

	body, contentType := multipartUpload(t, "cases.csv", []byte("District,Sex\nGilgit,Male\n"), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)

	rec := serve(router, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decodeBody(t, rec)
	assert.Equal(t, "cases.csv", got["filename"])
	assert.Contains(t, got, "dashboard")
	svc.AssertExpectations(t)
}

func TestDashboardHandler_ListDatasets(t *testing.T) {
	svc := new(MockDashboardService)
	svc.On("List", mock.Anything).Return(nil).Once()
	router := newDashboardRouter(t, svc)

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/api/datasets", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody(t, rec)
	assert.Equal(t, float64(0), got["count"])
	assert.Equal(t, []interface{}{}, got["datasets"])
}

func TestDashboardHandler_GetDataset(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		setup      func(*MockDashboardService)
		wantStatus int
		wantCode   string
	}{
		{
			name: "found",
			id:   testDatasetID,
			setup: func(m *MockDashboardService) {
				m.On("Get", mock.Anything, testDatasetID).Return(domain.DatasetInfo{ID: testDatasetID}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "expired",
			id:   testDatasetID,
			setup: func(m *MockDashboardService) {
				m.On("Get", mock.Anything, testDatasetID).
					Return(domain.DatasetInfo{}, fmt.Errorf("%w: %s", services.ErrDatasetNotFound, testDatasetID))
			},
			wantStatus: http.StatusNotFound,
			wantCode:   apierrors.CodeDatasetNotFound,
		},
		{
			name:       "malformed id",
			id:         "not-a-uuid",
			setup:      func(*MockDashboardService) {},
			wantStatus: http.StatusBadRequest,
			wantCode:   apierrors.CodeValidationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockDashboardService)
			tt.setup(svc)
			router := newDashboardRouter(t, svc)

			rec := serve(router, httptest.NewRequest(http.MethodGet, "/api/datasets/"+tt.id, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeBody(t, rec)["error_code"])
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestDashboardHandler_DeleteDataset(t *testing.T) {
	svc := new(MockDashboardService)
	svc.On("Delete", mock.Anything, testDatasetID).Return(nil)
	router := newDashboardRouter(t, svc)

	rec := serve(router, httptest.NewRequest(http.MethodDelete, "/api/datasets/"+testDatasetID, nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
	svc.AssertExpectations(t)
}

func TestDashboardHandler_GetDashboard(t *testing.T) {
	svc := new(MockDashboardService)
	svc.On("Dashboard", mock.Anything, testDatasetID).Return(&domain.Dashboard{DatasetID: testDatasetID}, nil)
	router := newDashboardRouter(t, svc)

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/api/datasets/"+testDatasetID+"/dashboard", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, testDatasetID, decodeBody(t, rec)["dataset_id"])
}

func TestDashboardHandler_GetView(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		setup      func(*MockDashboardService)
		wantStatus int
		wantCode   string
	}{
		{
			name: "with top",
			path: "/views/clinical?top=3",
			setup: func(m *MockDashboardService) {
				m.On("View", mock.Anything, testDatasetID, domain.ViewClinical, 3).
					Return(map[string]int{"complications": 3}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "default top",
			path: "/views/overview",
			setup: func(m *MockDashboardService) {
				m.On("View", mock.Anything, testDatasetID, domain.ViewOverview, 0).
					Return(domain.OverviewView{TotalCases: 5}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "unknown view",
			path:       "/views/weather",
			setup:      func(*MockDashboardService) {},
			wantStatus: http.StatusNotFound,
			wantCode:   apierrors.CodeViewNotFound,
		},
		{
			name:       "top out of range",
			path:       "/views/clinical?top=500",
			setup:      func(*MockDashboardService) {},
			wantStatus: http.StatusBadRequest,
			wantCode:   apierrors.CodeValidationFailed,
		},
		{
			name:       "top not a number",
			path:       "/views/clinical?top=all",
			setup:      func(*MockDashboardService) {},
			wantStatus: http.StatusBadRequest,
			wantCode:   apierrors.CodeValidationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockDashboardService)
			tt.setup(svc)
			router := newDashboardRouter(t, svc)

			rec := serve(router, httptest.NewRequest(http.MethodGet, "/api/datasets/"+testDatasetID+tt.path, nil))

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			got := decodeBody(t, rec)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, got["error_code"])
			} else {
				assert.Equal(t, testDatasetID, got["dataset_id"])
				assert.Equal(t, "2024-03-05T14:30:00Z", got["generated_at"])
				assert.NotNil(t, got["data"])
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestDashboardHandler_GetReport(t *testing.T) {
	report := domain.SummaryReport{
		GeneratedAt: time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC),
		Program:     "EPI Skardu",
		TotalCases:  7,
	}

	t.Run("text", func(t *testing.T) {
		svc := new(MockDashboardService)
		svc.On("Report", mock.Anything, testDatasetID).Return(report, nil)
		router := newDashboardRouter(t, svc)

		rec := serve(router, httptest.NewRequest(http.MethodGet, "/api/datasets/"+testDatasetID+"/report", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
		assert.Equal(t, exporter.FormatReport(report), rec.Body.String())
	})

	t.Run("json", func(t *testing.T) {
		svc := new(MockDashboardService)
		svc.On("Report", mock.Anything, testDatasetID).Return(report, nil)
		router := newDashboardRouter(t, svc)

		rec := serve(router, httptest.NewRequest(http.MethodGet, "/api/datasets/"+testDatasetID+"/report?format=json", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		got := decodeBody(t, rec)
		assert.Equal(t, "EPI Skardu", got["program"])
		assert.Equal(t, float64(7), got["total_cases"])
	})

	t.Run("unknown format", func(t *testing.T) {
		svc := new(MockDashboardService)
		router := newDashboardRouter(t, svc)

		rec := serve(router, httptest.NewRequest(http.MethodGet, "/api/datasets/"+testDatasetID+"/report?format=pdf", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		svc.AssertNotCalled(t, "Report", mock.Anything, mock.Anything)
	})
}

func TestDashboardHandler_ExportCSV(t *testing.T) {
	svc := new(MockDashboardService)
	svc.On("ExportCSV", mock.Anything, testDatasetID, mock.Anything).
		Run(func(args mock.Arguments) {
			io.WriteString(args.Get(2).(io.Writer), "District,Sex\nGilgit,Male\n")
		}).
		Return("disease_surveillance_20240305_143000.csv", nil)
	router := newDashboardRouter(t, svc)

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/api/datasets/"+testDatasetID+"/export", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="disease_surveillance_20240305_143000.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "District,Sex\nGilgit,Male\n", rec.Body.String())
}

func TestDashboardHandler_ExportNotFound(t *testing.T) {
	svc := new(MockDashboardService)
	svc.On("ExportCSV", mock.Anything, testDatasetID, mock.Anything).
		Return("", services.ErrDatasetNotFound)
	router := newDashboardRouter(t, svc)

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/api/datasets/"+testDatasetID+"/export", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	assert.Empty(t, rec.Header().Get("Content-Disposition"))
}

func TestDashboardHandler_GetChart(t *testing.T) {
	tests := []struct {
		name       string
		chart      exporter.ChartName
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "rendered", chart: exporter.ChartSex, wantStatus: http.StatusOK},
		{name: "no data", chart: exporter.ChartMonthly, err: exporter.ErrNoChartData, wantStatus: http.StatusUnprocessableEntity, wantCode: apierrors.CodeChartUnavailable},
		{name: "unknown", chart: "weather", err: exporter.ErrUnknownChart, wantStatus: http.StatusNotFound, wantCode: apierrors.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockDashboardService)
			svc.On("Chart", mock.Anything, testDatasetID, tt.chart, mock.Anything).
				Run(func(args mock.Arguments) {
					if tt.err == nil {
						args.Get(3).(io.Writer).Write([]byte("\x89PNG\r\n\x1a\n"))
					}
				}).
				Return(tt.err)
			router := newDashboardRouter(t, svc)

			path := fmt.Sprintf("/api/datasets/%s/charts/%s.png", testDatasetID, tt.chart)
			rec := serve(router, httptest.NewRequest(http.MethodGet, path, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantCode == "" {
				assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
				assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
			} else {
				assert.Equal(t, tt.wantCode, decodeBody(t, rec)["error_code"])
			}
			svc.AssertExpectations(t)
		})
	}
}
