package dataprocessing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"survdash/pkg/contracts/domain"
)

// ErrUnknownView is returned for a view name the summarizer does not build
var ErrUnknownView = errors.New("unknown view")

// DefaultProgram is the programme line printed in the summary report
const DefaultProgram = "Epidemiology Program, Gilgit-Baltistan"

// Summarizer turns a dataset into dashboard views and the summary report.
// It holds no per-dataset state and is safe for concurrent use.
type Summarizer struct {
	logger  *slog.Logger
	program string
	options domain.DashboardOptions
	now     func() time.Time
}

// SummarizerConfig holds configuration options for the Summarizer.
type SummarizerConfig struct {
	Program string
	Options domain.DashboardOptions
	// Now overrides the report clock; tests pin it
	Now func() time.Time
}

// DefaultSummarizerConfig returns the dashboard defaults
func DefaultSummarizerConfig() SummarizerConfig {
	return SummarizerConfig{
		Program: DefaultProgram,
		Options: domain.DefaultDashboardOptions(),
		Now:     time.Now,
	}
}

// NewSummarizer creates a summarizer, filling unset config with defaults
func NewSummarizer(logger *slog.Logger, config SummarizerConfig) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}

	defaults := DefaultSummarizerConfig()
	if config.Program == "" {
		config.Program = defaults.Program
	}
	if config.Options.TopComplications <= 0 {
		config.Options.TopComplications = defaults.Options.TopComplications
	}
	if config.Options.TopDistricts <= 0 {
		config.Options.TopDistricts = defaults.Options.TopDistricts
	}
	if config.Options.ReportDistricts <= 0 {
		config.Options.ReportDistricts = defaults.Options.ReportDistricts
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &Summarizer{
		logger:  logger.With(slog.String("component", "summarizer")),
		program: config.Program,
		options: config.Options,
		now:     config.Now,
	}
}

// Options returns the Top-N limits the summarizer was built with
func (s *Summarizer) Options() domain.DashboardOptions {
	return s.options
}

// WithOptions returns a copy of the summarizer using different limits.
// Unset limits keep their current value.
func (s *Summarizer) WithOptions(opts domain.DashboardOptions) *Summarizer {
	c := *s
	if opts.TopComplications > 0 {
		c.options.TopComplications = opts.TopComplications
	}
	if opts.TopDistricts > 0 {
		c.options.TopDistricts = opts.TopDistricts
	}
	if opts.ReportDistricts > 0 {
		c.options.ReportDistricts = opts.ReportDistricts
	}
	return &c
}

// Report computes the summary report over the raw dataset
func (s *Summarizer) Report(ds *Dataset) domain.SummaryReport {
	total := len(ds.Records)
	male := CountEqualFold(ds.Records, FieldSex, domain.SexMale)
	female := CountEqualFold(ds.Records, FieldSex, domain.SexFemale)

	report := domain.SummaryReport{
		GeneratedAt:   s.now(),
		Program:       s.program,
		TotalCases:    total,
		DistrictCount: DistinctCount(ds.Records, FieldDistrict),
		MaleCount:     male,
		MalePercent:   domain.NewPercent(male, total),
		FemaleCount:   female,
		FemalePercent: domain.NewPercent(female, total),
		TopDistricts:  []domain.Frequency{},
		EpiLinkStatus: []domain.Frequency{},
	}

	if ds.HasColumn(domain.ColumnDistrict) {
		top := TopN(ValueCounts(ds.Records, FieldDistrict), s.options.ReportDistricts)
		report.TopDistricts = percentOfTotal(top.Items, total)
	}
	if ds.HasColumn(domain.ColumnEpiLinked) {
		report.EpiLinkStatus = percentOfTotal(ValueCounts(ds.Records, FieldEpiLinked).Items, total)
	}

	return report
}

// percentOfTotal rebases item percentages on the total case count
func percentOfTotal(items []domain.Frequency, total int) []domain.Frequency {
	out := make([]domain.Frequency, len(items))
	for i, item := range items {
		item.Percent = domain.NewPercent(item.Count, total)
		out[i] = item
	}
	return out
}

// Overview computes the headline metrics over the cleaned dataset
func (s *Summarizer) Overview(ds *Dataset) domain.OverviewView {
	total := len(ds.CleanRecords)
	districts := DistinctCount(ds.CleanRecords, FieldDistrict)
	male := CountEqualFold(ds.CleanRecords, FieldSex, domain.SexMale)

	return domain.OverviewView{
		TotalCases:       total,
		DistrictCount:    districts,
		CasesPerDistrict: domain.NewRatio(total, districts),
		MaleCount:        male,
		FemaleCount:      CountEqualFold(ds.CleanRecords, FieldSex, domain.SexFemale),
		MalePercent:      domain.NewPercent(male, total),
		SexDistribution:  ValueCounts(ds.CleanRecords, FieldSex),
	}
}

// Clinical computes classification, lab, age and complication counts over
// the raw dataset. Aggregates whose column is absent are listed as unavailable.
func (s *Summarizer) Clinical(ds *Dataset) domain.ClinicalView {
	var v domain.ClinicalView

	if ds.HasColumn(domain.ColumnFinalClassification) {
		t := ValueCounts(ds.Records, FieldFinalClassification)
		v.FinalClassification = &t
	} else {
		v.Unavailable = append(v.Unavailable, "final_classification")
	}

	if ds.HasColumn(domain.ColumnLabResult) {
		t := ValueCounts(ds.Records, FieldLabResult)
		v.LabResult = &t
	} else {
		v.Unavailable = append(v.Unavailable, "lab_result")
	}

	if ds.HasColumn(domain.ColumnAgeInMonths) {
		t := AgeDistribution(ds.Records)
		v.AgeDistribution = &t
	} else {
		v.Unavailable = append(v.Unavailable, "age_distribution")
	}

	if ds.HasColumn(domain.ColumnComplications) {
		t := TopN(ValueCounts(ds.Records, FieldComplications), s.options.TopComplications)
		v.TopComplications = &t
	} else {
		v.Unavailable = append(v.Unavailable, "top_complications")
	}

	return v
}

// Districts computes the per-district aggregates over the raw dataset
func (s *Summarizer) Districts(ds *Dataset) domain.DistrictView {
	var v domain.DistrictView

	if !ds.HasColumn(domain.ColumnDistrict) {
		v.Unavailable = []string{"district_cases", "top_districts", "district_by_lab_result"}
		return v
	}

	cases := ValueCounts(ds.Records, FieldDistrict)
	top := TopN(cases, s.options.TopDistricts)
	v.DistrictCases = &cases
	v.TopDistricts = &top

	if ds.HasColumn(domain.ColumnLabResult) {
		ct := CrossTabulate(ds.Records, FieldDistrict, FieldLabResult, nil)
		v.DistrictByLabResult = &ct
	} else {
		v.Unavailable = append(v.Unavailable, "district_by_lab_result")
	}

	return v
}

// Demographics computes sex by the top districts and the monthly trend
func (s *Summarizer) Demographics(ds *Dataset) domain.DemographicsView {
	var v domain.DemographicsView

	if ds.HasColumn(domain.ColumnDistrict) && ds.HasColumn(domain.ColumnSex) {
		top := TopN(ValueCounts(ds.Records, FieldDistrict), s.options.TopDistricts)
		ct := CrossTabulate(ds.Records, FieldDistrict, FieldSex, InSet(top.Items))
		v.SexByTopDistricts = &ct
	} else {
		v.Unavailable = append(v.Unavailable, "sex_by_top_districts")
	}

	// The trend compares totals with lab positives, so it needs both columns
	monthly := domain.MonthlySeries{Message: MonthlyUnavailableMessage}
	if ds.HasColumn(domain.ColumnRashOnset) && ds.HasColumn(domain.ColumnLabResult) {
		monthly = MonthlyBreakdown(ds.Records, ds.UnparsedDates)
	} else {
		v.Unavailable = append(v.Unavailable, "monthly")
	}
	v.Monthly = &monthly

	return v
}

// Epidemiology computes epi-link counts over the cleaned dataset and the
// district breakdown over the raw dataset
func (s *Summarizer) Epidemiology(ds *Dataset) domain.EpidemiologyView {
	var v domain.EpidemiologyView

	if !ds.HasColumn(domain.ColumnEpiLinked) {
		v.Unavailable = []string{"epi_linked", "district_by_epi_linked"}
		return v
	}

	counts := ValueCounts(ds.CleanRecords, FieldEpiLinked)
	v.EpiLinked = &counts

	if ds.HasColumn(domain.ColumnDistrict) {
		ct := CrossTabulate(ds.Records, FieldDistrict, FieldEpiLinked, nil)
		v.DistrictByEpiLinked = &ct
	} else {
		v.Unavailable = append(v.Unavailable, "district_by_epi_linked")
	}

	return v
}

// Dashboard computes every view
func (s *Summarizer) Dashboard(ctx context.Context, ds *Dataset) *domain.Dashboard {
	start := time.Now()
	d := &domain.Dashboard{
		GeneratedAt:  s.now(),
		Overview:     s.Overview(ds),
		Clinical:     s.Clinical(ds),
		Districts:    s.Districts(ds),
		Demographics: s.Demographics(ds),
		Epidemiology: s.Epidemiology(ds),
		Report:       s.Report(ds),
	}

	s.logger.DebugContext(ctx, "dashboard built",
		slog.Int("raw_rows", len(ds.Records)),
		slog.Int("cleaned_rows", len(ds.CleanRecords)),
		slog.Duration("duration", time.Since(start)))

	return d
}

// View computes a single view by name
func (s *Summarizer) View(ds *Dataset, name domain.ViewName) (interface{}, error) {
	switch name {
	case domain.ViewOverview:
		return s.Overview(ds), nil
	case domain.ViewClinical:
		return s.Clinical(ds), nil
	case domain.ViewDistricts:
		return s.Districts(ds), nil
	case domain.ViewDemographics:
		return s.Demographics(ds), nil
	case domain.ViewEpidemiology:
		return s.Epidemiology(ds), nil
	case domain.ViewReport:
		return s.Report(ds), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownView, name)
}
