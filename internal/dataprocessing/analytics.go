package dataprocessing

import (
	"sort"
	"strings"
	"time"

	"survdash/pkg/contracts/domain"
)

// ValueCounts counts each distinct non-blank value of a field. Items are
// ordered by descending count; equal counts keep first-appearance order.
func ValueCounts(records []domain.CaseRecord, field Field) domain.FrequencyTable {
	counts := make(map[string]int)
	var order []string
	total := 0

	for _, rec := range records {
		v := field.Value(rec)
		if v == "" {
			continue
		}
		if _, seen := counts[v]; !seen {
			order = append(order, v)
		}
		counts[v]++
		total++
	}

	items := make([]domain.Frequency, len(order))
	for i, v := range order {
		items[i] = domain.Frequency{Value: v, Count: counts[v]}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Count > items[j].Count
	})

	return withPercents(domain.FrequencyTable{
		Dimension: field.Column,
		Total:     total,
		Items:     items,
	})
}

func withPercents(t domain.FrequencyTable) domain.FrequencyTable {
	for i := range t.Items {
		t.Items[i].Percent = domain.NewPercent(t.Items[i].Count, t.Total)
	}
	return t
}

// TopN keeps the first n items of a sorted table. Total still covers every
// counted record, so percentages stay relative to the full count.
func TopN(t domain.FrequencyTable, n int) domain.FrequencyTable {
	if n < 0 {
		n = 0
	}
	if len(t.Items) <= n {
		return t
	}
	items := make([]domain.Frequency, n)
	copy(items, t.Items[:n])
	t.Items = items
	return t
}

// AgeDistribution counts records per age band, ordered by band rather than
// by frequency. Records without a defined band are excluded.
func AgeDistribution(records []domain.CaseRecord) domain.FrequencyTable {
	counts := make([]int, len(domain.AgeCategories))
	total := 0
	for _, rec := range records {
		if i := rec.AgeCategory.Index(); i >= 0 {
			counts[i]++
			total++
		}
	}

	var items []domain.Frequency
	for i, c := range domain.AgeCategories {
		if counts[i] > 0 {
			items = append(items, domain.Frequency{Value: string(c), Count: counts[i]})
		}
	}

	return withPercents(domain.FrequencyTable{
		Dimension: domain.ColumnAgeInMonths,
		Total:     total,
		Items:     items,
	})
}

// CrossTabulate counts records by a pair of fields. Records blank in either
// field are skipped, as are rows rejected by rowFilter when it is non-nil.
// Rows and columns are sorted lexicographically; absent pairs count zero.
func CrossTabulate(records []domain.CaseRecord, rowField, colField Field, rowFilter func(string) bool) domain.CrossTab {
	type pair struct{ row, col string }
	counts := make(map[pair]int)
	rowSet := make(map[string]struct{})
	colSet := make(map[string]struct{})

	for _, rec := range records {
		r, c := rowField.Value(rec), colField.Value(rec)
		if r == "" || c == "" {
			continue
		}
		if rowFilter != nil && !rowFilter(r) {
			continue
		}
		counts[pair{r, c}]++
		rowSet[r] = struct{}{}
		colSet[c] = struct{}{}
	}

	ct := domain.CrossTab{
		RowDimension:    rowField.Column,
		ColumnDimension: colField.Column,
		Rows:            sortedKeys(rowSet),
		Columns:         sortedKeys(colSet),
	}
	ct.Cells = make([][]int, len(ct.Rows))
	ct.RowTotals = make([]int, len(ct.Rows))
	ct.ColumnTotals = make([]int, len(ct.Columns))

	for i, r := range ct.Rows {
		ct.Cells[i] = make([]int, len(ct.Columns))
		for j, c := range ct.Columns {
			n := counts[pair{r, c}]
			ct.Cells[i][j] = n
			ct.RowTotals[i] += n
			ct.ColumnTotals[j] += n
			ct.Total += n
		}
	}

	return ct
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// InSet returns a row filter accepting only the given values
func InSet(values []domain.Frequency) func(string) bool {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v.Value] = struct{}{}
	}
	return func(s string) bool {
		_, ok := set[s]
		return ok
	}
}

// MonthlyUnavailableMessage is reported when no onset date could be used
const MonthlyUnavailableMessage = "Date data not available for monthly breakdown"

// MonthlyBreakdown counts cases and lab-positive cases per onset month in
// calendar order. Months without cases are omitted. The series is marked
// unavailable when no record has a parsed onset date.
func MonthlyBreakdown(records []domain.CaseRecord, unparsed int) domain.MonthlySeries {
	var totals, positives [12]int
	found := false

	for _, rec := range records {
		if rec.RashOnsetDate == nil {
			continue
		}
		m := rec.RashOnsetDate.Month() - time.January
		totals[m]++
		if strings.EqualFold(rec.LabResultMeasles, domain.LabResultPositive) {
			positives[m]++
		}
		found = true
	}

	series := domain.MonthlySeries{UnparsedDates: unparsed}
	if !found {
		series.Message = MonthlyUnavailableMessage
		return series
	}

	series.Available = true
	for i := range totals {
		if totals[i] == 0 {
			continue
		}
		series.Months = append(series.Months, domain.MonthlyCount{
			Month:    domain.MonthAbbreviation(time.January + time.Month(i)),
			Total:    totals[i],
			Positive: positives[i],
		})
	}
	return series
}

// CountEqualFold counts records whose field matches value, ignoring case
func CountEqualFold(records []domain.CaseRecord, field Field, value string) int {
	n := 0
	for _, rec := range records {
		if strings.EqualFold(field.Value(rec), value) {
			n++
		}
	}
	return n
}

// DistinctCount counts the distinct non-blank values of a field
func DistinctCount(records []domain.CaseRecord, field Field) int {
	seen := make(map[string]struct{})
	for _, rec := range records {
		if v := field.Value(rec); v != "" {
			seen[v] = struct{}{}
		}
	}
	return len(seen)
}
