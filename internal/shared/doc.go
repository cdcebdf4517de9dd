// Package shared holds helpers used across survdash packages that belong to
// no single layer.
//
// The testutil subpackage provides:
//
//   - NewTestLogger: a slog logger whose records can be asserted on
//   - LineListWorkbook / LineListCSV: an in-memory surveillance line-list
//     with known aggregates, for service and handler tests
//
// Example usage:
//
//	func TestIngest(t *testing.T) {
//	    logger, logs := testutil.NewTestLogger(t)
//	    info, err := svc.Ingest(ctx, services.IngestRequest{
//	        Filename: "cases.xlsx",
//	        Size:     -1,
//	        Reader:   testutil.LineListWorkbook(t),
//	    })
//	    testutil.AssertLogContains(t, logs, slog.LevelInfo, "Line-list parsed")
//	}
package shared
