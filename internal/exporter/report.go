package exporter

import (
	"fmt"
	"io"
	"strings"

	"survdash/pkg/contracts/domain"
)

// ReportTimestampLayout is the layout of the "Generated" line
const ReportTimestampLayout = "2006-01-02 15:04:05"

// ReportTitle heads the text summary
const ReportTitle = "Disease Surveillance Summary Report"

// FormatReport renders the summary report as a plain-text block
func FormatReport(r domain.SummaryReport) string {
	var b strings.Builder
	// strings.Builder never fails
	_ = WriteReport(&b, r)
	return b.String()
}

// WriteReport writes the text block for the report to w
func WriteReport(w io.Writer, r domain.SummaryReport) error {
	var b strings.Builder

	fmt.Fprintln(&b, ReportTitle)
	fmt.Fprintln(&b, strings.Repeat("=", len(ReportTitle)))
	fmt.Fprintf(&b, "Generated: %s\n", r.GeneratedAt.Format(ReportTimestampLayout))
	fmt.Fprintf(&b, "Program: %s\n", r.Program)
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "Executive Summary")
	fmt.Fprintf(&b, "- Total Cases: %d\n", r.TotalCases)
	fmt.Fprintf(&b, "- Districts Affected: %d\n", r.DistrictCount)
	fmt.Fprintf(&b, "- Male Cases: %d (%s)\n", r.MaleCount, r.MalePercent.Percent())
	fmt.Fprintf(&b, "- Female Cases: %d (%s)\n", r.FemaleCount, r.FemalePercent.Percent())
	fmt.Fprintln(&b)

	fmt.Fprintf(&b, "Top %d Affected Districts\n", len(r.TopDistricts))
	if len(r.TopDistricts) == 0 {
		fmt.Fprintln(&b, "No district data")
	}
	for i, d := range r.TopDistricts {
		fmt.Fprintf(&b, "%d. %s: %d cases (%s)\n", i+1, d.Value, d.Count, d.Percent.Percent())
	}

	if len(r.EpiLinkStatus) > 0 {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "Epidemiological Link Status")
		for _, s := range r.EpiLinkStatus {
			fmt.Fprintf(&b, "- %s: %d cases (%s)\n", s.Value, s.Count, s.Percent.Percent())
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
