package http

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"survdash/internal/dataprocessing"
	apierrors "survdash/internal/errors"
	"survdash/internal/exporter"
	"survdash/internal/infrastructure"
	custommw "survdash/internal/middleware"
	"survdash/internal/services"
	"survdash/internal/validation"
	api "survdash/pkg/contracts/api/v1"
	"survdash/pkg/contracts/domain"
)

// multipartMemory is the part of an upload kept in memory before spilling to disk
const multipartMemory = 8 << 20

// maxTop bounds the ?top= override of a view
const maxTop = 100

// DashboardHandler serves uploads, snapshots and their dashboard views
type DashboardHandler struct {
	service        DashboardServiceInterface
	validator      *custommw.ValidationMiddleware
	query          *custommw.QueryParamValidator
	maxUploadBytes int64
	logger         *slog.Logger
	errorHandler   *apierrors.ErrorHandler
	now            func() time.Time
}

// NewDashboardHandler creates the dashboard handler. maxUploadBytes bounds
// the request body of uploads.
func NewDashboardHandler(service DashboardServiceInterface, maxUploadBytes int64, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DashboardHandler {
	return &DashboardHandler{
		service:        service,
		validator:      custommw.NewValidationMiddleware(logger, errorHandler),
		query:          custommw.NewQueryParamValidator(logger, errorHandler),
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With(slog.String("component", "dashboard_handler")),
		errorHandler:   errorHandler,
		now:            time.Now,
	}
}

// Routes returns the /api/datasets routes
func (h *DashboardHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListDatasets)
	r.With(custommw.ContentTypeValidator(h.errorHandler, "multipart/form-data")).Post("/", h.UploadDataset)

	r.Route("/{id}", func(r chi.Router) {
		r.Use(h.DatasetCtx)
		r.Get("/", h.GetDataset)
		r.Delete("/", h.DeleteDataset)
		r.Get("/dashboard", h.GetDashboard)
		r.Get("/views/{view}", h.GetView)
		r.Get("/report", h.GetReport)
		r.Get("/export", h.ExportCSV)
		r.Get("/charts/{chart}.png", h.GetChart)
	})

	return r
}

// DatasetCtx middleware validates the dataset id path parameter and scopes
// the request context to it
func (h *DashboardHandler) DatasetCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := api.DatasetRequest{DatasetID: chi.URLParam(r, "id")}
		if err := h.validator.ValidateStruct(req); err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		ctx := infrastructure.WithDatasetID(r.Context(), req.DatasetID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Analyze handles POST /api/analyze: the dashboard of an upload, nothing stored
func (h *DashboardHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	req, cleanup, err := h.readUpload(w, r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	defer cleanup()

	dashboard, err := h.service.Analyze(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, r, err, "")
		return
	}

	render.JSON(w, r, api.AnalyzeResponse{
		Filename:  req.Filename,
		Dashboard: dashboard,
	})
}

// UploadDataset handles POST /api/datasets
func (h *DashboardHandler) UploadDataset(w http.ResponseWriter, r *http.Request) {
	req, cleanup, err := h.readUpload(w, r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	defer cleanup()

	info, err := h.service.Ingest(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, r, err, "")
		return
	}

	h.logger.InfoContext(r.Context(), "Dataset uploaded",
		slog.String("request_id", custommw.GetRequestID(r.Context())),
		slog.String("dataset_id", info.ID),
		slog.String("filename", info.Filename),
		slog.Int("raw_rows", info.RawRows))

	w.Header().Set("Location", "/api/datasets/"+info.ID)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, info)
}

// readUpload limits the body, parses the multipart form and validates its
// fields. cleanup releases the form's temporary files.
func (h *DashboardHandler) readUpload(w http.ResponseWriter, r *http.Request) (services.IngestRequest, func(), error) {
	noop := func() {}

	if h.maxUploadBytes > 0 {
		// Allow for the multipart framing around the file
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartMemory)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return services.IngestRequest{}, noop, apierrors.PayloadTooLarge(h.maxUploadBytes)
		}
		return services.IngestRequest{}, noop, apierrors.InvalidRequestWithError(err)
	}
	cleanup := func() {
		if r.MultipartForm != nil {
			r.MultipartForm.RemoveAll()
		}
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		cleanup()
		if errors.Is(err, http.ErrMissingFile) {
			return services.IngestRequest{}, noop, apierrors.ErrValidation("file", "file is required")
		}
		return services.IngestRequest{}, noop, apierrors.InvalidRequestWithError(err)
	}

	upload, err := h.uploadRequest(r, header)
	if err != nil {
		file.Close()
		cleanup()
		return services.IngestRequest{}, noop, err
	}

	return services.IngestRequest{
			Filename:  upload.Filename,
			Size:      header.Size,
			Reader:    file,
			HeaderRow: upload.HeaderRow,
			Sheet:     upload.Sheet,
		}, func() {
			file.Close()
			cleanup()
		}, nil
}

func (h *DashboardHandler) uploadRequest(r *http.Request, header *multipart.FileHeader) (api.UploadRequest, error) {
	upload := api.UploadRequest{
		Filename: header.Filename,
		Sheet:    r.FormValue("sheet"),
	}
	if v := r.FormValue("header_row"); v != "" {
		row, err := strconv.Atoi(v)
		if err != nil {
			return upload, apierrors.ErrValidation("header_row", "header_row must be a valid integer")
		}
		upload.HeaderRow = row
	}
	if err := h.validator.ValidateStruct(upload); err != nil {
		return upload, err
	}
	return upload, nil
}

// ListDatasets handles GET /api/datasets
func (h *DashboardHandler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	datasets := h.service.List(r.Context())
	if datasets == nil {
		datasets = []domain.DatasetInfo{}
	}
	render.JSON(w, r, api.DatasetListResponse{
		Datasets: datasets,
		Count:    len(datasets),
	})
}

// GetDataset handles GET /api/datasets/{id}
func (h *DashboardHandler) GetDataset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	info, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err, id)
		return
	}
	render.JSON(w, r, info)
}

// DeleteDataset handles DELETE /api/datasets/{id}
func (h *DashboardHandler) DeleteDataset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.handleServiceError(w, r, err, id)
		return
	}
	render.NoContent(w, r)
}

// GetDashboard handles GET /api/datasets/{id}/dashboard
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	dashboard, err := h.service.Dashboard(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err, id)
		return
	}
	render.JSON(w, r, dashboard)
}

// GetView handles GET /api/datasets/{id}/views/{view}?top=N
func (h *DashboardHandler) GetView(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	view := chi.URLParam(r, "view")

	if !domain.ViewName(view).IsValid() {
		h.errorHandler.HandleError(w, r, apierrors.ViewNotFound(view, viewNames()))
		return
	}

	top, ok := h.query.ValidateInt(w, r, "top", 0, maxTop, 0)
	if !ok {
		return
	}

	req := api.ViewRequest{DatasetID: id, View: view, Top: top}
	if err := h.validator.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	data, err := h.service.View(r.Context(), id, domain.ViewName(view), top)
	if err != nil {
		h.handleServiceError(w, r, err, id)
		return
	}

	render.JSON(w, r, api.ViewResponse{
		DatasetID:   id,
		View:        domain.ViewName(view),
		Top:         top,
		GeneratedAt: h.now().UTC(),
		Data:        data,
	})
}

// GetReport handles GET /api/datasets/{id}/report?format=text|json
func (h *DashboardHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	format, ok := h.query.ValidateEnum(w, r, "format", []string{"text", "json"}, "text")
	if !ok {
		return
	}

	report, err := h.service.Report(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err, id)
		return
	}

	if format == "json" {
		render.JSON(w, r, report)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := exporter.WriteReport(w, report); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to write report",
			slog.String("dataset_id", id),
			slog.String("error", err.Error()))
	}
}

// ExportCSV handles GET /api/datasets/{id}/export
func (h *DashboardHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var buf bytes.Buffer
	filename, err := h.service.ExportCSV(r.Context(), id, &buf)
	if err != nil {
		h.handleServiceError(w, r, err, id)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

// GetChart handles GET /api/datasets/{id}/charts/{chart}.png
func (h *DashboardHandler) GetChart(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	name := exporter.ChartName(chi.URLParam(r, "chart"))

	var buf bytes.Buffer
	if err := h.service.Chart(r.Context(), id, name, &buf); err != nil {
		h.handleServiceError(w, r, err, id)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

// handleServiceError maps service errors to API errors
func (h *DashboardHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error, id string) {
	h.errorHandler.HandleError(w, r, h.toAPIError(r, err, id))
}

func (h *DashboardHandler) toAPIError(r *http.Request, err error, id string) error {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesErr):
		return apierrors.PayloadTooLarge(h.maxUploadBytes)
	case errors.Is(err, services.ErrStoreClosed):
		return apierrors.ErrServiceUnavailable
	case errors.Is(err, services.ErrDatasetNotFound):
		return apierrors.DatasetNotFound(id)
	case errors.Is(err, dataprocessing.ErrUnknownView):
		return apierrors.ViewNotFound(chi.URLParam(r, "view"), viewNames())
	case errors.Is(err, exporter.ErrUnknownChart):
		return apierrors.NewWithDetails(http.StatusNotFound, apierrors.CodeNotFound,
			fmt.Sprintf("chart %q not found", chi.URLParam(r, "chart")),
			map[string]interface{}{"available": exporter.Charts})
	case errors.Is(err, exporter.ErrNoChartData):
		return apierrors.ChartUnavailable(chi.URLParam(r, "chart"), err)
	case errors.Is(err, validation.ErrFileTooLarge):
		return apierrors.PayloadTooLarge(h.maxUploadBytes)
	case errors.Is(err, services.ErrEmptyUpload), errors.Is(err, validation.ErrEmptyFile):
		return apierrors.ErrValidation("file", "uploaded file is empty")
	case errors.Is(err, validation.ErrExtensionNotAllowed),
		errors.Is(err, validation.ErrTemporaryFile),
		errors.Is(err, validation.ErrSignatureMismatch),
		errors.Is(err, dataprocessing.ErrUnsupportedFormat):
		return apierrors.UnsupportedFile(err)
	case errors.Is(err, services.ErrUnreadableFile):
		return apierrors.UnreadableFile(err)
	case errors.Is(err, services.ErrInvalidInput):
		return apierrors.InvalidRequestWithError(err)
	default:
		return err
	}
}

func viewNames() []string {
	names := make([]string, len(domain.Views))
	for i, v := range domain.Views {
		names[i] = string(v)
	}
	return names
}
