package domain

import (
	"encoding/json"
	"fmt"
	"math"
)

// NotAvailable is shown wherever a ratio has a zero denominator
const NotAvailable = "N/A"

// Ratio is a one-decimal figure that may be undefined.
// It marshals to a JSON number, or null when undefined.
type Ratio struct {
	Value float64
	Valid bool
}

// NewPercent returns count/total*100 rounded to one decimal.
// Shares round independently, so a breakdown may sum to 100.1.
func NewPercent(count, total int) Ratio {
	if total <= 0 {
		return Ratio{}
	}
	return Ratio{Value: round1(float64(count) / float64(total) * 100), Valid: true}
}

// NewRatio returns numerator/denominator rounded to one decimal
func NewRatio(numerator, denominator int) Ratio {
	if denominator <= 0 {
		return Ratio{}
	}
	return Ratio{Value: round1(float64(numerator) / float64(denominator)), Valid: true}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// String formats the ratio with one decimal place
func (r Ratio) String() string {
	if !r.Valid {
		return NotAvailable
	}
	return fmt.Sprintf("%.1f", r.Value)
}

// Percent formats the ratio as a percentage
func (r Ratio) Percent() string {
	if !r.Valid {
		return NotAvailable
	}
	return fmt.Sprintf("%.1f%%", r.Value)
}

// MarshalJSON implements json.Marshaler
func (r Ratio) MarshalJSON() ([]byte, error) {
	if !r.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(r.Value)
}

// UnmarshalJSON implements json.Unmarshaler
func (r *Ratio) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = Ratio{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid ratio: %w", err)
	}
	*r = Ratio{Value: v, Valid: true}
	return nil
}

// Frequency is the count of one categorical value
type Frequency struct {
	Value   string `json:"value"`
	Count   int    `json:"count"`
	Percent Ratio  `json:"percent"`
}

// FrequencyTable is an ordered value count over one column
type FrequencyTable struct {
	Dimension string      `json:"dimension"`
	Total     int         `json:"total"`
	Items     []Frequency `json:"items"`
}

// Len returns the number of distinct values in the table
func (f FrequencyTable) Len() int {
	return len(f.Items)
}

// Count returns the count recorded for value, or zero
func (f FrequencyTable) Count(value string) int {
	for _, item := range f.Items {
		if item.Value == value {
			return item.Count
		}
	}
	return 0
}

// Sum adds up every count in the table
func (f FrequencyTable) Sum() int {
	sum := 0
	for _, item := range f.Items {
		sum += item.Count
	}
	return sum
}

// CrossTab is a two-way contingency table. Cells[i][j] counts records
// with Rows[i] in the row dimension and Columns[j] in the column dimension.
type CrossTab struct {
	RowDimension    string   `json:"row_dimension"`
	ColumnDimension string   `json:"column_dimension"`
	Rows            []string `json:"rows"`
	Columns         []string `json:"columns"`
	Cells           [][]int  `json:"cells"`
	RowTotals       []int    `json:"row_totals"`
	ColumnTotals    []int    `json:"column_totals"`
	Total           int      `json:"total"`
}

// Cell returns the count for a row/column pair, zero when either is absent
func (c CrossTab) Cell(row, column string) int {
	ri, ci := -1, -1
	for i, r := range c.Rows {
		if r == row {
			ri = i
			break
		}
	}
	for j, col := range c.Columns {
		if col == column {
			ci = j
			break
		}
	}
	if ri < 0 || ci < 0 {
		return 0
	}
	return c.Cells[ri][ci]
}

// MonthlyCount holds case totals for one onset month
type MonthlyCount struct {
	Month    string `json:"month"`
	Total    int    `json:"total"`
	Positive int    `json:"positive"`
}

// MonthlySeries is the month-by-month total vs lab-positive breakdown
type MonthlySeries struct {
	Available     bool           `json:"available"`
	Message       string         `json:"message,omitempty"`
	Months        []MonthlyCount `json:"months,omitempty"`
	UnparsedDates int            `json:"unparsed_dates"`
}
