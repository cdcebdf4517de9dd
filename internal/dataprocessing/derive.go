package dataprocessing

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"survdash/pkg/contracts/domain"
)

// ParseAge reads an age in months. Blank, non-numeric and negative
// values are undefined.
func ParseAge(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}
	return v, true
}

// CategorizeAge maps an age in months to its band. Lower bounds are
// inclusive and upper bounds exclusive.
func CategorizeAge(months float64) domain.AgeCategory {
	switch {
	case math.IsNaN(months) || months < 0:
		return domain.AgeCategoryUndefined
	case months < 9:
		return domain.AgeUnder9M
	case months < 24:
		return domain.Age9To24M
	case months < 60:
		return domain.Age24To60M
	case months < 120:
		return domain.Age60To120M
	case months < 180:
		return domain.Age120To180M
	default:
		return domain.AgeOver180M
	}
}

// Month-first layouts are tried before day-first ones
var onsetLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"20060102T150405Z",
	"20060102T150405",
	"2006/01/02",
	"01-02-06",
	"1-2-06",
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"1/2/06",
	"01-02-2006",
	"1-2-2006",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2-1-2006",
	"02.01.2006",
	"2.1.2006",
	"02-Jan-2006",
	"2-Jan-2006",
	"02-Jan-06",
	"2-Jan-06",
	"02 Jan 2006",
	"2 Jan 2006",
	"2 January 2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// ParseOnsetDate reads a rash-onset date. Excel serial numbers in the 1900
// date system and the common textual layouts are accepted.
func ParseOnsetDate(s string) (time.Time, bool) {
	return parseOnsetDate(s, false)
}

func parseOnsetDate(s string, date1904 bool) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if serial <= 0 || math.IsNaN(serial) || math.IsInf(serial, 0) {
			return time.Time{}, false
		}
		t, err := excelize.ExcelDateToTime(serial, date1904)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}

	for _, layout := range onsetLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Derivation is the result of one pass over a table
type Derivation struct {
	Records       []domain.CaseRecord
	UnparsedAges  int
	UnparsedDates int
}

// Derive maps every row of the table to a case record, computing the age
// band and onset month in the same pass. Blank ages and dates are not
// counted as unparsed.
func Derive(t *Table) Derivation {
	d := Derivation{Records: make([]domain.CaseRecord, t.Len())}

	for i := 0; i < t.Len(); i++ {
		rec := domain.CaseRecord{
			District:            t.Value(i, domain.ColumnDistrict),
			Sex:                 t.Value(i, domain.ColumnSex),
			EpiLinked:           t.Value(i, domain.ColumnEpiLinked),
			FinalClassification: t.Value(i, domain.ColumnFinalClassification),
			Complications:       t.Value(i, domain.ColumnComplications),
			LabResultMeasles:    t.Value(i, domain.ColumnLabResult),
		}

		if raw := t.CellValue(i, domain.ColumnAgeInMonths); raw != "" {
			if age, ok := ParseAge(raw); ok {
				rec.AgeInMonths = &age
				rec.AgeCategory = CategorizeAge(age)
			} else {
				d.UnparsedAges++
			}
		}

		// Workbook date cells arrive as serials, independent of their display format
		if raw := t.CellValue(i, domain.ColumnRashOnset); raw != "" {
			if onset, ok := parseOnsetDate(raw, t.Date1904()); ok {
				rec.RashOnsetDate = &onset
				rec.OnsetMonth = domain.MonthAbbreviation(onset.Month())
			} else {
				d.UnparsedDates++
			}
		}

		d.Records[i] = rec
	}

	return d
}
