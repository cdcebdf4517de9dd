package dataprocessing

import (
	"survdash/pkg/contracts/domain"
)

// Field selects one categorical value from a case record. An empty
// result means the value is missing and the record is not counted.
type Field struct {
	Column string
	Value  func(domain.CaseRecord) string
}

var (
	FieldDistrict = Field{
		Column: domain.ColumnDistrict,
		Value:  func(c domain.CaseRecord) string { return c.District },
	}
	FieldSex = Field{
		Column: domain.ColumnSex,
		Value:  func(c domain.CaseRecord) string { return c.Sex },
	}
	FieldEpiLinked = Field{
		Column: domain.ColumnEpiLinked,
		Value:  func(c domain.CaseRecord) string { return c.EpiLinked },
	}
	FieldFinalClassification = Field{
		Column: domain.ColumnFinalClassification,
		Value:  func(c domain.CaseRecord) string { return c.FinalClassification },
	}
	FieldLabResult = Field{
		Column: domain.ColumnLabResult,
		Value:  func(c domain.CaseRecord) string { return c.LabResultMeasles },
	}
	// FieldComplications counts blank complications as "None"
	FieldComplications = Field{
		Column: domain.ColumnComplications,
		Value: func(c domain.CaseRecord) string {
			if c.Complications == "" {
				return domain.ComplicationsNone
			}
			return c.Complications
		},
	}
)
