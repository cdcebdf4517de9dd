package dataprocessing

import (
	"fmt"
	"strings"
)

// Table is an immutable rectangular view of an uploaded sheet.
// Headers are unique; every row has exactly len(Headers) cells.
//
// Rows hold the text as displayed. Workbook tables also keep the unformatted
// cell values, so a date cell reads as its Excel serial whatever number
// format the sheet applies.
type Table struct {
	headers   []string
	rows      [][]string
	values    [][]string
	index     map[string]int
	sheet     string
	headerRow int
	date1904  bool
}

// NewTable builds a table from a raw header row and data rows. Header names
// are trimmed, blank names become "Unnamed: N" and repeated names get a ".N"
// suffix. Rows are padded or extended to a common width and rows without any
// non-blank cell are dropped.
func NewTable(header []string, rows [][]string) *Table {
	return newTable(header, rows, nil)
}

// newTable builds a table whose cells have unformatted values alongside the
// displayed text. values is indexed like rows and may be nil.
func newTable(header []string, rows, values [][]string) *Table {
	width := len(header)
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	headers := uniqueHeaders(header, width)
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		index[h] = i
	}

	kept := make([][]string, 0, len(rows))
	var keptValues [][]string
	if values != nil {
		keptValues = make([][]string, 0, len(rows))
	}
	for r, row := range rows {
		if isBlankRow(row) {
			continue
		}
		cells := make([]string, width)
		copy(cells, row)
		kept = append(kept, cells)

		if values != nil {
			typed := make([]string, width)
			if r < len(values) {
				copy(typed, values[r])
			}
			keptValues = append(keptValues, typed)
		}
	}

	return &Table{headers: headers, rows: kept, values: keptValues, index: index}
}

func uniqueHeaders(header []string, width int) []string {
	headers := make([]string, width)
	seen := make(map[string]int, width)
	for i := 0; i < width; i++ {
		name := ""
		if i < len(header) {
			name = strings.TrimSpace(header[i])
		}
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		base := name
		for {
			n, dup := seen[name]
			if !dup {
				break
			}
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", base, n+1)
		}
		seen[name] = 0
		headers[i] = name
	}
	return headers
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// Headers returns a copy of the column names in source order
func (t *Table) Headers() []string {
	out := make([]string, len(t.headers))
	copy(out, t.headers)
	return out
}

// Len returns the number of data rows
func (t *Table) Len() int {
	return len(t.rows)
}

// Sheet returns the worksheet name the table was read from, if any
func (t *Table) Sheet() string {
	return t.sheet
}

// HeaderRow returns the 1-based row number the header was read from
func (t *Table) HeaderRow() int {
	return t.headerRow
}

// HasColumn reports whether the table has a column with the given name
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// MissingColumns returns the names in want that the table lacks
func (t *Table) MissingColumns(want []string) []string {
	var missing []string
	for _, name := range want {
		if !t.HasColumn(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// Raw returns the cell as read from the source
func (t *Table) Raw(row int, column string) string {
	i, ok := t.index[column]
	if !ok || row < 0 || row >= len(t.rows) {
		return ""
	}
	return t.rows[row][i]
}

// Value returns the trimmed cell value. An empty result means missing.
func (t *Table) Value(row int, column string) string {
	return strings.TrimSpace(t.Raw(row, column))
}

// CellValue returns the trimmed cell value without number formatting.
// Workbook date cells read as Excel serial numbers; see Date1904 for their
// epoch. Tables without unformatted values return Value.
func (t *Table) CellValue(row int, column string) string {
	i, ok := t.index[column]
	if !ok || row < 0 || row >= len(t.rows) {
		return ""
	}
	if t.values == nil {
		return strings.TrimSpace(t.rows[row][i])
	}
	return strings.TrimSpace(t.values[row][i])
}

// Date1904 reports whether the workbook counts date serials from 1904
func (t *Table) Date1904() bool {
	return t.date1904
}

// Row returns a copy of one data row
func (t *Table) Row(row int) []string {
	out := make([]string, len(t.headers))
	copy(out, t.rows[row])
	return out
}

// Select returns a new table restricted to the named columns that exist,
// keeping only the rows for which keep returns true.
func (t *Table) Select(columns []string, keep func(row int) bool) *Table {
	var cols []int
	var headers []string
	for _, name := range columns {
		if i, ok := t.index[name]; ok {
			cols = append(cols, i)
			headers = append(headers, name)
		}
	}

	index := make(map[string]int, len(headers))
	for i, h := range headers {
		index[h] = i
	}

	pick := func(src []string) []string {
		cells := make([]string, len(cols))
		for j, c := range cols {
			cells[j] = src[c]
		}
		return cells
	}

	rows := make([][]string, 0, len(t.rows))
	var values [][]string
	for r, src := range t.rows {
		if keep != nil && !keep(r) {
			continue
		}
		rows = append(rows, pick(src))
		if t.values != nil {
			values = append(values, pick(t.values[r]))
		}
	}

	return &Table{
		headers:   headers,
		rows:      rows,
		values:    values,
		index:     index,
		sheet:     t.sheet,
		headerRow: t.headerRow,
		date1904:  t.date1904,
	}
}
