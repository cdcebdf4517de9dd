package errors

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// APIError represents a structured API error response
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// Render implements the render.Renderer interface for chi/render
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// ValidationError represents validation errors
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error codes
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeNotFound           = "NOT_FOUND"
	CodeDatasetNotFound    = "DATASET_NOT_FOUND"
	CodeViewNotFound       = "VIEW_NOT_FOUND"
	CodeChartUnavailable   = "CHART_UNAVAILABLE"
	CodeUnsupportedFile    = "UNSUPPORTED_FILE"
	CodeUnreadableFile     = "UNREADABLE_FILE"
	CodePayloadTooLarge    = "PAYLOAD_TOO_LARGE"
	CodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	CodeInternalServer     = "INTERNAL_SERVER_ERROR"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// New creates a new APIError with the given parameters
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
	}
}

// NewWithDetails creates a new APIError with additional details
func NewWithDetails(statusCode int, errorCode, message string, details interface{}) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
		Details:    details,
	}
}

// Predefined error types for common scenarios
var (
	// 400 Bad Request
	ErrInvalidRequest   = New(http.StatusBadRequest, CodeInvalidRequest, "Invalid request format")
	ErrValidationFailed = New(http.StatusBadRequest, CodeValidationFailed, "Request validation failed")

	// 404 Not Found
	ErrNotFound = New(http.StatusNotFound, CodeNotFound, "Resource not found")

	// 429 Too Many Requests
	ErrRateLimitExceeded = New(http.StatusTooManyRequests, CodeRateLimitExceeded, "Rate limit exceeded")

	// 500 Internal Server Error
	ErrInternalServer = New(http.StatusInternalServerError, CodeInternalServer, "Internal server error")

	// 503 Service Unavailable
	ErrServiceUnavailable = New(http.StatusServiceUnavailable, CodeServiceUnavailable, "Service temporarily unavailable")
)

// InvalidRequestWithError creates an invalid request error with details
func InvalidRequestWithError(err error) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeInvalidRequest, "Invalid request format", err.Error())
}

// ErrValidation creates a validation error with field details
func ErrValidation(field, message string) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeValidationFailed, "Request validation failed", ValidationError{
		Field:   field,
		Message: message,
	})
}

// ValidationErrors represents multiple validation errors
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

// NewValidationErrors creates validation errors from multiple fields
func NewValidationErrors(errors []ValidationError) *APIError {
	return NewWithDetails(
		http.StatusBadRequest,
		CodeValidationFailed,
		"Request validation failed",
		ValidationErrors{Errors: errors},
	)
}

// DatasetNotFound reports an unknown or expired dataset id
func DatasetNotFound(id string) *APIError {
	return NewWithDetails(http.StatusNotFound, CodeDatasetNotFound,
		fmt.Sprintf("dataset %s not found or expired", id), map[string]string{"dataset_id": id})
}

// ViewNotFound reports an unknown dashboard view
func ViewNotFound(view string, known []string) *APIError {
	return NewWithDetails(http.StatusNotFound, CodeViewNotFound,
		fmt.Sprintf("view %q not found", view), map[string]interface{}{"view": view, "available": known})
}

// ChartUnavailable reports a chart whose aggregate is missing or empty
func ChartUnavailable(chart string, err error) *APIError {
	return NewWithDetails(http.StatusUnprocessableEntity, CodeChartUnavailable,
		fmt.Sprintf("chart %q is unavailable for this dataset", chart), err.Error())
}

// UnsupportedFile reports an upload whose type cannot be read
func UnsupportedFile(err error) *APIError {
	return NewWithDetails(http.StatusUnsupportedMediaType, CodeUnsupportedFile,
		"Unsupported file type; upload an .xlsx workbook or a .csv file", err.Error())
}

// UnreadableFile reports an upload of a supported type that failed to parse
func UnreadableFile(err error) *APIError {
	return NewWithDetails(http.StatusUnprocessableEntity, CodeUnreadableFile,
		"The uploaded file could not be read as a line-list", err.Error())
}

// PayloadTooLarge reports an upload over the configured limit
func PayloadTooLarge(limit int64) *APIError {
	return NewWithDetails(http.StatusRequestEntityTooLarge, CodePayloadTooLarge,
		fmt.Sprintf("Upload exceeds the %d byte limit", limit), map[string]int64{"limit_bytes": limit})
}
