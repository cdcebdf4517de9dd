package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPercent(t *testing.T) {
	tests := []struct {
		name      string
		count     int
		total     int
		wantValid bool
		want      float64
		text      string
	}{
		{name: "one third", count: 1, total: 3, wantValid: true, want: 33.3, text: "33.3%"},
		{name: "two thirds rounds up", count: 2, total: 3, wantValid: true, want: 66.7, text: "66.7%"},
		{name: "whole", count: 4, total: 4, wantValid: true, want: 100, text: "100.0%"},
		{name: "zero count", count: 0, total: 7, wantValid: true, want: 0, text: "0.0%"},
		{name: "zero total", count: 0, total: 0, wantValid: false, text: "N/A"},
		{name: "negative total", count: 3, total: -1, wantValid: false, text: "N/A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewPercent(tt.count, tt.total)
			assert.Equal(t, tt.wantValid, got.Valid)
			if tt.wantValid {
				assert.InDelta(t, tt.want, got.Value, 1e-9)
			}
			assert.Equal(t, tt.text, got.Percent())
		})
	}
}

func TestNewRatio(t *testing.T) {
	assert.Equal(t, "2.5", NewRatio(5, 2).String())
	assert.Equal(t, "3.3", NewRatio(10, 3).String())
	assert.Equal(t, NotAvailable, NewRatio(10, 0).String())
}

func TestRatioJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		A Ratio `json:"a"`
		B Ratio `json:"b"`
	}{A: NewPercent(1, 8), B: NewPercent(1, 0)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":12.5,"b":null}`, string(data))

	var decoded struct {
		A Ratio `json:"a"`
		B Ratio `json:"b"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, decoded.A.Valid)
	assert.InDelta(t, 12.5, decoded.A.Value, 1e-9)
	assert.False(t, decoded.B.Valid)

	var bad Ratio
	assert.Error(t, bad.UnmarshalJSON([]byte(`"x"`)))
}

func TestFrequencyTable(t *testing.T) {
	table := FrequencyTable{
		Dimension: ColumnSex,
		Total:     5,
		Items: []Frequency{
			{Value: "Male", Count: 3},
			{Value: "Female", Count: 2},
		},
	}

	assert.Equal(t, 2, table.Len())
	assert.Equal(t, 3, table.Count("Male"))
	assert.Equal(t, 0, table.Count("Other"))
	assert.Equal(t, 5, table.Sum())
}

func TestCrossTabCell(t *testing.T) {
	ct := CrossTab{
		Rows:    []string{"Gilgit", "Skardu"},
		Columns: []string{"Negative", "Positive"},
		Cells:   [][]int{{1, 2}, {0, 4}},
	}

	assert.Equal(t, 2, ct.Cell("Gilgit", "Positive"))
	assert.Equal(t, 0, ct.Cell("Skardu", "Negative"))
	assert.Equal(t, 0, ct.Cell("Hunza", "Positive"))
	assert.Equal(t, 0, ct.Cell("Gilgit", "Pending"))
}

func TestAgeCategoryIndex(t *testing.T) {
	for i, c := range AgeCategories {
		assert.Equal(t, i, c.Index(), c)
	}
	assert.Equal(t, -1, AgeCategoryUndefined.Index())
}

func TestMonthAbbreviation(t *testing.T) {
	assert.Equal(t, "Jan", MonthAbbreviation(time.January))
	assert.Equal(t, "Sep", MonthAbbreviation(time.September))
	assert.Equal(t, "", MonthAbbreviation(0))
	assert.Equal(t, "", MonthAbbreviation(13))
}

func TestViewNameIsValid(t *testing.T) {
	for _, v := range Views {
		assert.True(t, v.IsValid(), v)
	}
	assert.False(t, ViewName("geographic").IsValid())
}

func TestDashboardView(t *testing.T) {
	d := &Dashboard{Overview: OverviewView{TotalCases: 4}}

	overview, ok := d.View(ViewOverview).(OverviewView)
	require.True(t, ok)
	assert.Equal(t, 4, overview.TotalCases)
	assert.Nil(t, d.View("missing"))
}

func TestCaseRecordIsClean(t *testing.T) {
	assert.True(t, CaseRecord{District: "Gilgit", Sex: "Male"}.IsClean())
	assert.False(t, CaseRecord{District: "Gilgit"}.IsClean())
	assert.False(t, CaseRecord{Sex: "Female"}.IsClean())
}
