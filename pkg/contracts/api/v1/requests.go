// Package api contains the request and response contracts of the dashboard
// REST API. Version v1 represents the current stable API version.
package api

import (
	"time"

	"survdash/pkg/contracts/domain"
)

// UploadRequest carries the form fields sent with a line-list upload
type UploadRequest struct {
	Filename  string `json:"filename" form:"file" validate:"required,filename"`
	HeaderRow int    `json:"header_row,omitempty" form:"header_row" validate:"omitempty,min=1,max=1000"`
	Sheet     string `json:"sheet,omitempty" form:"sheet" validate:"omitempty,max=31"`
}

// DatasetRequest identifies a stored snapshot
type DatasetRequest struct {
	DatasetID string `json:"id" param:"id" validate:"required,uuid"`
}

// ViewRequest selects one dashboard view. Top overrides every Top-N limit
// of the view when set.
type ViewRequest struct {
	DatasetID string `json:"id" param:"id" validate:"required,uuid"`
	View      string `json:"view" param:"view" validate:"required,view"`
	Top       int    `json:"top,omitempty" query:"top" validate:"gte=0,lte=100"`
}

// ReportRequest selects the summary report rendering
type ReportRequest struct {
	DatasetID string `json:"id" param:"id" validate:"required,uuid"`
	Format    string `json:"format" query:"format" validate:"omitempty,oneof=text json"`
}

// DatasetListResponse lists the snapshots held by the server
type DatasetListResponse struct {
	Datasets []domain.DatasetInfo `json:"datasets"`
	Count    int                  `json:"count"`
}

// AnalyzeResponse is the dashboard of an upload that was not stored
type AnalyzeResponse struct {
	Filename  string            `json:"filename"`
	Dashboard *domain.Dashboard `json:"dashboard"`
}

// ViewResponse wraps a single dashboard view
type ViewResponse struct {
	DatasetID   string          `json:"dataset_id"`
	View        domain.ViewName `json:"view"`
	Top         int             `json:"top,omitempty"`
	GeneratedAt time.Time       `json:"generated_at"`
	Data        interface{}     `json:"data"`
}
