package domain

import (
	"time"
)

// Line-list column names as they appear in the header row of the upload
const (
	ColumnDistrict            = "District"
	ColumnSex                 = "Sex"
	ColumnEpiLinked           = "Epi linked(Msl/Rub/No)"
	ColumnAgeInMonths         = "Age in month"
	ColumnRashOnset           = "D/ rash onset"
	ColumnFinalClassification = "Final classification"
	ColumnComplications       = "Complications"
	ColumnLabResult           = "Lab Result Measles"
)

// ExpectedColumns lists every column the dashboard knows how to use
var ExpectedColumns = []string{
	ColumnDistrict,
	ColumnSex,
	ColumnEpiLinked,
	ColumnAgeInMonths,
	ColumnRashOnset,
	ColumnFinalClassification,
	ColumnComplications,
	ColumnLabResult,
}

// CleanedColumns are the columns kept in the cleaned dataset
var CleanedColumns = []string{
	ColumnDistrict,
	ColumnSex,
	ColumnEpiLinked,
	ColumnAgeInMonths,
}

// Well-known categorical values
const (
	SexMale           = "Male"
	SexFemale         = "Female"
	LabResultPositive = "Positive"
	ComplicationsNone = "None"
)

// CaseRecord is a single line-list entry with its derived fields.
// Empty strings mean the value is missing in the source row.
type CaseRecord struct {
	District            string      `json:"district,omitempty"`
	Sex                 string      `json:"sex,omitempty"`
	EpiLinked           string      `json:"epi_linked,omitempty"`
	AgeInMonths         *float64    `json:"age_in_months,omitempty"`
	RashOnsetDate       *time.Time  `json:"rash_onset_date,omitempty"`
	FinalClassification string      `json:"final_classification,omitempty"`
	Complications       string      `json:"complications,omitempty"`
	LabResultMeasles    string      `json:"lab_result_measles,omitempty"`
	AgeCategory         AgeCategory `json:"age_category,omitempty"`
	OnsetMonth          string      `json:"onset_month,omitempty"`
}

// IsClean reports whether the record survives cleaning
func (c CaseRecord) IsClean() bool {
	return c.District != "" && c.Sex != ""
}

// AgeCategory is a fixed age band measured in months
type AgeCategory string

const (
	AgeCategoryUndefined AgeCategory = ""
	AgeUnder9M           AgeCategory = "0-9M"
	Age9To24M            AgeCategory = "9-24M"
	Age24To60M           AgeCategory = "24-60M"
	Age60To120M          AgeCategory = "60-120M"
	Age120To180M         AgeCategory = "120-180M"
	AgeOver180M          AgeCategory = ">180M"
)

// AgeCategories holds every defined band in display order
var AgeCategories = []AgeCategory{
	AgeUnder9M,
	Age9To24M,
	Age24To60M,
	Age60To120M,
	Age120To180M,
	AgeOver180M,
}

// Index returns the display position of the band, or -1 when undefined
func (a AgeCategory) Index() int {
	for i, c := range AgeCategories {
		if c == a {
			return i
		}
	}
	return -1
}

// MonthAbbreviation returns the three-letter month bucket label
func MonthAbbreviation(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return m.String()[:3]
}
