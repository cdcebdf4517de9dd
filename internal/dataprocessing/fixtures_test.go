package dataprocessing

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"survdash/pkg/contracts/domain"
)

var lineListHeader = []interface{}{
	domain.ColumnDistrict,
	domain.ColumnSex,
	domain.ColumnEpiLinked,
	domain.ColumnAgeInMonths,
	domain.ColumnRashOnset,
	domain.ColumnFinalClassification,
	domain.ColumnComplications,
	domain.ColumnLabResult,
}

// lineListRows is a small outbreak with one row missing a district, one
// missing sex, one unparseable age and one unparseable onset date.
var lineListRows = [][]interface{}{
	{"Gilgit", "Male", "Msl", 8, "2024-01-15", "Confirmed", "Pneumonia", "Positive"},
	{"Gilgit", "Female", "No", 9, "2024-01-20", "Confirmed", "", "Negative"},
	{"Skardu", "Male", "Msl", 59, "2024-02-03", "Discarded", "Diarrhea", "Negative"},
	{"Hunza", "Male", "Rub", 60, "not a date", "Confirmed", "Pneumonia", "Positive"},
	{"", "Female", "No", 179, "2024-03-01", "Pending", "", ""},
	{"Skardu", "", "Msl", 180, "", "Confirmed", "Pneumonia", "Positive"},
	{"Gilgit", "Male", "Msl", "abc", "2024-02-10", "Confirmed", "Diarrhea", "Positive"},
}

// buildWorkbook writes a title row, then the header, then rows
func buildWorkbook(t *testing.T, header []interface{}, rows [][]interface{}) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	all := append([][]interface{}{{"Measles line list 2024"}, header}, rows...)
	for i := range all {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &all[i]))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func loadLineList(t *testing.T) *Dataset {
	t.Helper()
	table, err := ParseWorkbook(buildWorkbook(t, lineListHeader, lineListRows), ParseOptions{})
	require.NoError(t, err)
	return NewDataset(table)
}

// buildDatedWorkbook writes a line-list whose onset column holds real date
// cells rather than text. numFmt, when set, replaces the default date format
// of those cells.
func buildDatedWorkbook(t *testing.T, numFmt string, date1904 bool, onsets []time.Time) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	if date1904 {
		enabled := true
		require.NoError(t, f.SetWorkbookProps(&excelize.WorkbookPropsOptions{Date1904: &enabled}))
	}

	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Measles line list 2024"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{
		domain.ColumnDistrict, domain.ColumnSex, domain.ColumnRashOnset, domain.ColumnLabResult,
	}))

	style := 0
	if numFmt != "" {
		var err error
		style, err = f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
		require.NoError(t, err)
	}

	for i, onset := range onsets {
		row := i + 3
		require.NoError(t, f.SetSheetRow(sheet, fmt.Sprintf("A%d", row), &[]interface{}{"Gilgit", "Male", onset, "Positive"}))
		if style != 0 {
			cell := fmt.Sprintf("C%d", row)
			require.NoError(t, f.SetCellStyle(sheet, cell, cell, style))
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}
