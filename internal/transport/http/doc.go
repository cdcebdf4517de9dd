// Package http implements the REST handlers of the surveillance dashboard.
// Handlers stay thin: they parse and validate the request, call the
// dashboard service and render the result.
//
// # Routes
//
//	POST   /api/analyze                          dashboard of an upload, nothing stored
//	POST   /api/datasets                         store an upload as a snapshot
//	GET    /api/datasets                         list snapshots
//	GET    /api/datasets/{id}                    snapshot info
//	DELETE /api/datasets/{id}                    drop a snapshot
//	GET    /api/datasets/{id}/dashboard          every view
//	GET    /api/datasets/{id}/views/{view}       one view, ?top=N overrides Top-N limits
//	GET    /api/datasets/{id}/report             summary report, ?format=text|json
//	GET    /api/datasets/{id}/export             CSV attachment of the raw rows
//	GET    /api/datasets/{id}/charts/{chart}.png PNG chart
//
// # Error Handling
//
// Service errors are mapped to coded API errors and written as RFC 7807
// problem details by errors.ErrorHandler:
//
//	{
//	    "type": "/errors/dataset/not-found",
//	    "title": "Dataset Not Found",
//	    "status": 404,
//	    "detail": "dataset 6f1c... not found or expired",
//	    "instance": "/api/datasets/6f1c.../dashboard"
//	}
package http
