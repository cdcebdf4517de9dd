package domain

import (
	"time"
)

// ViewName identifies one dashboard view
type ViewName string

const (
	ViewOverview     ViewName = "overview"
	ViewClinical     ViewName = "clinical"
	ViewDistricts    ViewName = "districts"
	ViewDemographics ViewName = "demographics"
	ViewEpidemiology ViewName = "epidemiology"
	ViewReport       ViewName = "report"
)

// Views lists every view in dashboard order
var Views = []ViewName{
	ViewOverview,
	ViewClinical,
	ViewDistricts,
	ViewDemographics,
	ViewEpidemiology,
	ViewReport,
}

// IsValid reports whether v names a known view
func (v ViewName) IsValid() bool {
	for _, known := range Views {
		if v == known {
			return true
		}
	}
	return false
}

// OverviewView carries the headline metrics computed on the cleaned dataset
type OverviewView struct {
	TotalCases       int            `json:"total_cases"`
	DistrictCount    int            `json:"district_count"`
	CasesPerDistrict Ratio          `json:"cases_per_district"`
	MaleCount        int            `json:"male_count"`
	FemaleCount      int            `json:"female_count"`
	MalePercent      Ratio          `json:"male_percent"`
	SexDistribution  FrequencyTable `json:"sex_distribution"`
}

// ClinicalView groups the classification, lab, age and complication counts
type ClinicalView struct {
	FinalClassification *FrequencyTable `json:"final_classification,omitempty"`
	LabResult           *FrequencyTable `json:"lab_result,omitempty"`
	AgeDistribution     *FrequencyTable `json:"age_distribution,omitempty"`
	TopComplications    *FrequencyTable `json:"top_complications,omitempty"`
	Unavailable         []string        `json:"unavailable,omitempty"`
}

// DistrictView groups the geographic aggregates
type DistrictView struct {
	DistrictCases       *FrequencyTable `json:"district_cases,omitempty"`
	TopDistricts        *FrequencyTable `json:"top_districts,omitempty"`
	DistrictByLabResult *CrossTab       `json:"district_by_lab_result,omitempty"`
	Unavailable         []string        `json:"unavailable,omitempty"`
}

// DemographicsView groups sex by district and the monthly trend
type DemographicsView struct {
	SexByTopDistricts *CrossTab      `json:"sex_by_top_districts,omitempty"`
	Monthly           *MonthlySeries `json:"monthly,omitempty"`
	Unavailable       []string       `json:"unavailable,omitempty"`
}

// EpidemiologyView groups the epidemiological-link aggregates
type EpidemiologyView struct {
	EpiLinked           *FrequencyTable `json:"epi_linked,omitempty"`
	DistrictByEpiLinked *CrossTab       `json:"district_by_epi_linked,omitempty"`
	Unavailable         []string        `json:"unavailable,omitempty"`
}

// Dashboard is the complete set of views for one dataset snapshot
type Dashboard struct {
	DatasetID    string           `json:"dataset_id,omitempty"`
	GeneratedAt  time.Time        `json:"generated_at"`
	Overview     OverviewView     `json:"overview"`
	Clinical     ClinicalView     `json:"clinical"`
	Districts    DistrictView     `json:"districts"`
	Demographics DemographicsView `json:"demographics"`
	Epidemiology EpidemiologyView `json:"epidemiology"`
	Report       SummaryReport    `json:"report"`
}

// View returns the payload for a single view, or nil for an unknown name
func (d *Dashboard) View(name ViewName) interface{} {
	switch name {
	case ViewOverview:
		return d.Overview
	case ViewClinical:
		return d.Clinical
	case ViewDistricts:
		return d.Districts
	case ViewDemographics:
		return d.Demographics
	case ViewEpidemiology:
		return d.Epidemiology
	case ViewReport:
		return d.Report
	}
	return nil
}

// DashboardOptions tunes the Top-N limits of a dashboard build
type DashboardOptions struct {
	TopComplications int `json:"top_complications" validate:"min=1,max=100"`
	TopDistricts     int `json:"top_districts" validate:"min=1,max=100"`
	ReportDistricts  int `json:"report_districts" validate:"min=1,max=100"`
}

// DefaultDashboardOptions returns the limits used by the dashboard screens
func DefaultDashboardOptions() DashboardOptions {
	return DashboardOptions{
		TopComplications: 10,
		TopDistricts:     10,
		ReportDistricts:  5,
	}
}
