package dataprocessing

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Header row defaults (1-based). Line-list workbooks carry a title row
// above the header; CSV exports do not.
const (
	DefaultWorkbookHeaderRow = 2
	DefaultCSVHeaderRow      = 1
)

var (
	// ErrUnsupportedFormat is returned for file types the parser cannot read
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrLegacyWorkbook is returned for binary .xls workbooks
	ErrLegacyWorkbook = fmt.Errorf("%w: legacy .xls workbooks must be re-saved as .xlsx", ErrUnsupportedFormat)
	// ErrHeaderRowMissing is returned when the sheet has fewer rows than the header position
	ErrHeaderRowMissing = errors.New("header row not found")
	// ErrSheetNotFound is returned when a requested worksheet does not exist
	ErrSheetNotFound = errors.New("worksheet not found")
)

// ParseOptions controls how an upload is read
type ParseOptions struct {
	// HeaderRow is the 1-based row holding column names. Zero selects the
	// format default.
	HeaderRow int
	// Sheet selects a worksheet by name. Empty selects the first sheet.
	Sheet string
}

// Format identifies an input file type
type Format string

const (
	FormatWorkbook Format = "xlsx"
	FormatCSV      Format = "csv"
)

// DetectFormat maps a filename to an input format
func DetectFormat(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		return FormatWorkbook, nil
	case ".csv":
		return FormatCSV, nil
	case ".xls":
		return "", ErrLegacyWorkbook
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(name))
	}
}

// Parse reads an upload, choosing the reader from the file extension
func Parse(name string, r io.Reader, opts ParseOptions) (*Table, error) {
	format, err := DetectFormat(name)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatCSV:
		return ParseCSV(r, opts)
	default:
		return ParseWorkbook(r, opts)
	}
}

// ParseWorkbook reads a line-list from an Excel workbook
func ParseWorkbook(r io.Reader, opts ParseOptions) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrSheetNotFound)
	}

	sheet := sheets[0]
	if opts.Sheet != "" {
		sheet = ""
		for _, name := range sheets {
			if strings.EqualFold(strings.TrimSpace(name), strings.TrimSpace(opts.Sheet)) {
				sheet = name
				break
			}
		}
		if sheet == "" {
			return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, opts.Sheet)
		}
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	values, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q values: %w", sheet, err)
	}

	headerRow := opts.HeaderRow
	if headerRow <= 0 {
		headerRow = DefaultWorkbookHeaderRow
	}

	table, err := tableFromRows(rows, values, headerRow)
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", sheet, err)
	}
	table.sheet = sheet
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		table.date1904 = *props.Date1904
	}

	slog.Debug("workbook parsed",
		slog.String("sheet", sheet),
		slog.Int("header_row", headerRow),
		slog.Int("columns", len(table.headers)),
		slog.Int("rows", table.Len()))

	return table, nil
}

// ParseCSV reads a line-list from comma-separated text, such as a previous export
func ParseCSV(r io.Reader, opts ParseOptions) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}

	headerRow := opts.HeaderRow
	if headerRow <= 0 {
		headerRow = DefaultCSVHeaderRow
	}

	return tableFromRows(rows, nil, headerRow)
}

// tableFromRows splits rows at the header. values, when present, holds the
// unformatted cells of the same rows.
func tableFromRows(rows, values [][]string, headerRow int) (*Table, error) {
	if len(rows) < headerRow {
		return nil, fmt.Errorf("%w: expected header at row %d, sheet has %d rows", ErrHeaderRowMissing, headerRow, len(rows))
	}
	if isBlankRow(rows[headerRow-1]) {
		return nil, fmt.Errorf("%w: row %d is empty", ErrHeaderRowMissing, headerRow)
	}

	var data [][]string
	if len(values) > headerRow {
		data = values[headerRow:]
	} else if values != nil {
		data = [][]string{}
	}

	table := newTable(rows[headerRow-1], rows[headerRow:], data)
	table.headerRow = headerRow
	return table, nil
}
