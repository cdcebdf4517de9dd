package domain

import (
	"time"
)

// SummaryReport holds the figures of the downloadable text report.
// Every figure is computed over the raw dataset.
type SummaryReport struct {
	GeneratedAt   time.Time   `json:"generated_at"`
	Program       string      `json:"program"`
	TotalCases    int         `json:"total_cases"`
	DistrictCount int         `json:"district_count"`
	MaleCount     int         `json:"male_count"`
	MalePercent   Ratio       `json:"male_percent"`
	FemaleCount   int         `json:"female_count"`
	FemalePercent Ratio       `json:"female_percent"`
	TopDistricts  []Frequency `json:"top_districts"`
	EpiLinkStatus []Frequency `json:"epi_link_status"`
}

// DatasetInfo describes an ingested snapshot
type DatasetInfo struct {
	ID             string    `json:"id"`
	Filename       string    `json:"filename"`
	Sheet          string    `json:"sheet,omitempty"`
	HeaderRow      int       `json:"header_row"`
	Columns        []string  `json:"columns"`
	MissingColumns []string  `json:"missing_columns,omitempty"`
	RawRows        int       `json:"raw_rows"`
	CleanedRows    int       `json:"cleaned_rows"`
	UnparsedAges   int       `json:"unparsed_ages"`
	UnparsedDates  int       `json:"unparsed_dates"`
	UploadedAt     time.Time `json:"uploaded_at"`
	ExpiresAt      time.Time `json:"expires_at,omitempty"`
}
