// Package dataprocessing turns an uploaded surveillance line-list into the
// aggregates shown on the dashboard.
//
// # Architecture
//
// The package is organized into three main components:
//
// 1. Parser: reads .xlsx workbooks (header on row 2) and CSV exports into a Table
// 2. Dataset: derives the cleaned table and per-record age bands and onset months
// 3. Summarizer: frequency counts, cross-tabulations, the monthly trend and
// the summary report
//
// # Usage
//
//	table, err := dataprocessing.Parse("linelist.xlsx", file, dataprocessing.ParseOptions{})
//	if err != nil {
//	    return err
//	}
//	ds := dataprocessing.NewDataset(table)
//	summarizer := dataprocessing.NewSummarizer(logger, dataprocessing.DefaultSummarizerConfig())
//	dashboard := summarizer.Dashboard(ctx, ds)
//
// # Data Flow
//
//	Upload → Parser → Table → Dataset (raw + cleaned records) → Summarizer → views
//
// # Missing data
//
// Blank cells are missing values and are left out of every count. A missing
// expected column disables only the aggregates that need it; the view
// reports those aggregates in its unavailable list.
//
// A Dataset is never modified after NewDataset returns, so one instance can
// serve any number of concurrent requests.
package dataprocessing
