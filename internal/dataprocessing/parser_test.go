package dataprocessing

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"survdash/pkg/contracts/domain"
)

func TestParseWorkbook(t *testing.T) {
	buf := buildWorkbook(t, lineListHeader, lineListRows)

	table, err := ParseWorkbook(buf, ParseOptions{})
	require.NoError(t, err)

	assert.Equal(t, "Sheet1", table.Sheet())
	assert.Equal(t, DefaultWorkbookHeaderRow, table.HeaderRow())
	assert.Equal(t, domain.ExpectedColumns, table.Headers())
	assert.Equal(t, len(lineListRows), table.Len())
	assert.Equal(t, "Gilgit", table.Value(0, domain.ColumnDistrict))
	assert.Equal(t, "8", table.Value(0, domain.ColumnAgeInMonths))
	assert.Equal(t, "", table.Value(4, domain.ColumnDistrict))
	assert.Empty(t, table.MissingColumns(domain.ExpectedColumns))
}

func TestParseWorkbook_HeaderRowOption(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"District", "Sex"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"Gilgit", "Male"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	table, err := ParseWorkbook(bytes.NewReader(buf.Bytes()), ParseOptions{HeaderRow: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"District", "Sex"}, table.Headers())
	assert.Equal(t, 1, table.Len())

	// The default treats row 2 as the header, leaving no data rows
	table, err = ParseWorkbook(bytes.NewReader(buf.Bytes()), ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Gilgit", "Male"}, table.Headers())
	assert.Equal(t, 0, table.Len())
}

func TestParseWorkbook_Sheet(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	_, err := f.NewSheet("Cases")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Cases", "A1", &[]interface{}{"Title"}))
	require.NoError(t, f.SetSheetRow("Cases", "A2", &[]interface{}{"District"}))
	require.NoError(t, f.SetSheetRow("Cases", "A3", &[]interface{}{"Gilgit"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	table, err := ParseWorkbook(bytes.NewReader(buf.Bytes()), ParseOptions{Sheet: "cases"})
	require.NoError(t, err)
	assert.Equal(t, "Cases", table.Sheet())
	assert.Equal(t, 1, table.Len())

	_, err = ParseWorkbook(bytes.NewReader(buf.Bytes()), ParseOptions{Sheet: "Deaths"})
	assert.ErrorIs(t, err, ErrSheetNotFound)
}

func TestParseWorkbook_Errors(t *testing.T) {
	t.Run("not a workbook", func(t *testing.T) {
		_, err := ParseWorkbook(strings.NewReader("District,Sex\n"), ParseOptions{})
		assert.Error(t, err)
	})

	t.Run("header row beyond data", func(t *testing.T) {
		f := excelize.NewFile()
		defer f.Close()
		require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"only a title"}))
		buf, err := f.WriteToBuffer()
		require.NoError(t, err)

		_, err = ParseWorkbook(buf, ParseOptions{})
		assert.ErrorIs(t, err, ErrHeaderRowMissing)
	})
}

func TestParseCSV(t *testing.T) {
	input := "\ufeffDistrict,Sex,Age in month\nGilgit,Male,12\n,,\nSkardu,Female,\n"

	table, err := ParseCSV(strings.NewReader(input), ParseOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"District", "Sex", "Age in month"}, table.Headers())
	assert.Equal(t, 2, table.Len())
	assert.Equal(t, "Skardu", table.Value(1, "District"))
	assert.Equal(t, DefaultCSVHeaderRow, table.HeaderRow())
}

func TestParseCSV_HeaderRow(t *testing.T) {
	input := "Measles line list\nDistrict,Sex\nGilgit,Male\n"

	table, err := ParseCSV(strings.NewReader(input), ParseOptions{HeaderRow: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"District", "Sex"}, table.Headers())
	assert.Equal(t, 1, table.Len())

	_, err = ParseCSV(strings.NewReader(""), ParseOptions{})
	assert.ErrorIs(t, err, ErrHeaderRowMissing)
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name    string
		want    Format
		wantErr error
	}{
		{name: "cases.xlsx", want: FormatWorkbook},
		{name: "CASES.XLSX", want: FormatWorkbook},
		{name: "macro.xlsm", want: FormatWorkbook},
		{name: "export.csv", want: FormatCSV},
		{name: "old.xls", wantErr: ErrLegacyWorkbook},
		{name: "notes.txt", wantErr: ErrUnsupportedFormat},
		{name: "noext", wantErr: ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectFormat(tt.name)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.ErrorIs(t, ErrLegacyWorkbook, ErrUnsupportedFormat)
}

func TestParse_Dispatch(t *testing.T) {
	table, err := Parse("cases.csv", strings.NewReader("District\nGilgit\n"), ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())

	table, err = Parse("cases.xlsx", buildWorkbook(t, lineListHeader, lineListRows), ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, len(lineListRows), table.Len())

	_, err = Parse("cases.xls", strings.NewReader(""), ParseOptions{})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
