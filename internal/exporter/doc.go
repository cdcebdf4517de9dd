// Package exporter renders dashboard data for download.
//
// This package contains three main components:
//
// CSVWriter: row-preserving CSV export of an uploaded line-list, with an
// optional UTF-8 BOM for Excel compatibility.
//
// FormatReport / WriteReport: the plain-text summary report.
//
// ChartRenderer: PNG bar, pie and stacked-bar charts of dashboard aggregates.
//
// Example usage:
//
//	writer := exporter.NewCSVWriter(paths)
//	name := exporter.ExportFilename(time.Now())
//	path, err := writer.WriteFile(name, ds.Raw, true)
//
//	fmt.Print(exporter.FormatReport(dashboard.Report))
//
//	err = exporter.NewChartRenderer(0, 0).Render(w, exporter.ChartAge, dashboard)
package exporter
