package dataprocessing

import (
	"survdash/pkg/contracts/domain"
)

// Dataset pairs a raw table with its cleaned table and derived records.
// It is built once per upload and never modified afterwards.
type Dataset struct {
	Raw           *Table
	Cleaned       *Table
	Records       []domain.CaseRecord
	CleanRecords  []domain.CaseRecord
	UnparsedAges  int
	UnparsedDates int
}

// NewDataset derives the cleaned table and case records from a raw table
func NewDataset(raw *Table) *Dataset {
	derived := Derive(raw)

	clean := make([]domain.CaseRecord, 0, len(derived.Records))
	for _, rec := range derived.Records {
		if rec.IsClean() {
			clean = append(clean, rec)
		}
	}

	return &Dataset{
		Raw:           raw,
		Cleaned:       Clean(raw),
		Records:       derived.Records,
		CleanRecords:  clean,
		UnparsedAges:  derived.UnparsedAges,
		UnparsedDates: derived.UnparsedDates,
	}
}

// Clean restricts the raw table to the district, sex, epi-link and age
// columns and drops rows whose district or sex is blank. A table without a
// District or Sex column cleans to zero rows.
func Clean(raw *Table) *Table {
	return raw.Select(domain.CleanedColumns, func(row int) bool {
		return raw.Value(row, domain.ColumnDistrict) != "" &&
			raw.Value(row, domain.ColumnSex) != ""
	})
}

// HasColumn reports whether the raw upload carried the named column
func (d *Dataset) HasColumn(name string) bool {
	return d.Raw.HasColumn(name)
}

// MissingColumns lists the expected columns absent from the upload
func (d *Dataset) MissingColumns() []string {
	return d.Raw.MissingColumns(domain.ExpectedColumns)
}
