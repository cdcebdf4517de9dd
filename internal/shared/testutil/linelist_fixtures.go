package testutil

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/xuri/excelize/v2"
)

// LineListHeader is the full set of line-list columns in workbook order
var LineListHeader = []string{
	"District",
	"Sex",
	"Epi linked(Msl/Rub/No)",
	"Age in month",
	"D/ rash onset",
	"Final classification",
	"Complications",
	"Lab Result Measles",
}

// LineListRows is a small outbreak: 7 rows, one missing a district, one
// missing sex, one non-numeric age and one unparsable onset date.
// Raw counts: Male 4, Female 2, Gilgit 3, Skardu 2, Hunza 1, Msl 4, No 2, Rub 1.
// Cleaned: 5 rows in 3 districts, Male 4, Female 1.
var LineListRows = [][]string{
	{"Gilgit", "Male", "Msl", "8", "2024-01-15", "Confirmed", "Pneumonia", "Positive"},
	{"Gilgit", "Female", "No", "9", "2024-01-20", "Confirmed", "", "Negative"},
	{"Skardu", "Male", "Msl", "59", "2024-02-03", "Discarded", "Diarrhea", "Negative"},
	{"Hunza", "Male", "Rub", "60", "not a date", "Confirmed", "Pneumonia", "Positive"},
	{"", "Female", "No", "179", "2024-03-01", "Pending", "", ""},
	{"Skardu", "", "Msl", "180", "", "Confirmed", "Pneumonia", "Positive"},
	{"Gilgit", "Male", "Msl", "abc", "2024-02-10", "Confirmed", "Diarrhea", "Positive"},
}

// BuildWorkbook writes an xlsx with a title row followed by the header on
// row 2 and the data rows, matching the surveillance export layout.
func BuildWorkbook(t testing.TB, header []string, rows [][]string) *bytes.Buffer {
	return BuildWorkbookAt(t, 2, header, rows)
}

// BuildWorkbookAt writes the header on the 1-based headerRow. A title fills
// the first row when the header is below it.
func BuildWorkbookAt(t testing.TB, headerRow int, header []string, rows [][]string) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	if headerRow > 1 {
		if err := f.SetSheetRow(sheet, "A1", &[]interface{}{"Measles Line List"}); err != nil {
			t.Fatalf("write title row: %v", err)
		}
	}
	all := append([][]string{header}, rows...)
	for i, row := range all {
		cell, err := excelize.CoordinatesToCellName(1, headerRow+i)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, toCells(row)); err != nil {
			t.Fatalf("write row %d: %v", headerRow+i, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf
}

// LineListWorkbook returns the LineListRows fixture as an xlsx
func LineListWorkbook(t testing.TB) *bytes.Buffer {
	return BuildWorkbook(t, LineListHeader, LineListRows)
}

// LineListCSV returns the LineListRows fixture as CSV with the header on row 1
func LineListCSV(t testing.TB) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(LineListHeader); err != nil {
		t.Fatalf("write header: %v", err)
	}
	if err := w.WriteAll(LineListRows); err != nil {
		t.Fatalf("write rows: %v", err)
	}
	return &buf
}

func toCells(values []string) *[]interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return &cells
}
