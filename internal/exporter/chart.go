package exporter

import (
	"errors"
	"fmt"
	"io"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"survdash/pkg/contracts/domain"
)

// ChartName identifies a renderable dashboard chart
type ChartName string

const (
	ChartSex                 ChartName = "sex"
	ChartFinalClassification ChartName = "final-classification"
	ChartLabResult           ChartName = "lab-result"
	ChartAge                 ChartName = "age"
	ChartComplications       ChartName = "complications"
	ChartDistricts           ChartName = "districts"
	ChartEpiLinked           ChartName = "epi-linked"
	ChartMonthly             ChartName = "monthly"
)

// Charts lists every chart the renderer can draw
var Charts = []ChartName{
	ChartSex,
	ChartFinalClassification,
	ChartLabResult,
	ChartAge,
	ChartComplications,
	ChartDistricts,
	ChartEpiLinked,
	ChartMonthly,
}

var (
	// ErrUnknownChart is returned for a chart name not in Charts
	ErrUnknownChart = errors.New("unknown chart")
	// ErrNoChartData is returned when the aggregate behind a chart is empty or unavailable
	ErrNoChartData = errors.New("no data to chart")
)

var (
	colorTotal    = drawing.ColorFromHex("1f77b4")
	colorPositive = drawing.ColorFromHex("d62728")
)

// ChartRenderer draws dashboard aggregates as PNG images
type ChartRenderer struct {
	Width  int
	Height int
}

// NewChartRenderer creates a renderer; non-positive sizes use 800x450
func NewChartRenderer(width, height int) *ChartRenderer {
	if width <= 0 {
		width = 800
	}
	if height <= 0 {
		height = 450
	}
	return &ChartRenderer{Width: width, Height: height}
}

// Render draws the named chart from a built dashboard
func (r *ChartRenderer) Render(w io.Writer, name ChartName, d *domain.Dashboard) error {
	switch name {
	case ChartSex:
		return r.Pie(w, "Gender Distribution", &d.Overview.SexDistribution)
	case ChartFinalClassification:
		return r.Bar(w, "Final Classification", d.Clinical.FinalClassification)
	case ChartLabResult:
		return r.Bar(w, "Lab Results", d.Clinical.LabResult)
	case ChartAge:
		return r.Bar(w, "Age Wise Cases", d.Clinical.AgeDistribution)
	case ChartComplications:
		return r.Bar(w, "Top Complications", d.Clinical.TopComplications)
	case ChartDistricts:
		return r.Bar(w, "Cases by District", d.Districts.TopDistricts)
	case ChartEpiLinked:
		return r.Pie(w, "Epi Linked Status", d.Epidemiology.EpiLinked)
	case ChartMonthly:
		return r.Monthly(w, d.Demographics.Monthly)
	}
	return fmt.Errorf("%w: %q", ErrUnknownChart, name)
}

// Bar draws one bar per item of a frequency table
func (r *ChartRenderer) Bar(w io.Writer, title string, t *domain.FrequencyTable) error {
	if t == nil || len(t.Items) == 0 {
		return fmt.Errorf("%s: %w", title, ErrNoChartData)
	}

	bars := make([]chart.Value, len(t.Items))
	for i, item := range t.Items {
		bars[i] = chart.Value{Value: float64(item.Count), Label: item.Value}
	}

	bc := chart.BarChart{
		Title:      title,
		Width:      r.Width,
		Height:     r.Height,
		BarWidth:   r.barWidth(len(bars)),
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		Bars:       bars,
	}
	if err := bc.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render %s: %w", title, err)
	}
	return nil
}

// Pie draws the share of each item of a frequency table
func (r *ChartRenderer) Pie(w io.Writer, title string, t *domain.FrequencyTable) error {
	if t == nil || t.Sum() == 0 {
		return fmt.Errorf("%s: %w", title, ErrNoChartData)
	}

	values := make([]chart.Value, len(t.Items))
	for i, item := range t.Items {
		values[i] = chart.Value{
			Value: float64(item.Count),
			Label: fmt.Sprintf("%s (%s)", item.Value, item.Percent.Percent()),
		}
	}

	pc := chart.PieChart{
		Title:  title,
		Width:  r.Width,
		Height: r.Height,
		Values: values,
	}
	if err := pc.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render %s: %w", title, err)
	}
	return nil
}

// Monthly draws total cases per month with the lab-positive share stacked
// at the bottom of each bar
func (r *ChartRenderer) Monthly(w io.Writer, s *domain.MonthlySeries) error {
	const title = "Total Cases Vs Lab Positive"
	if s == nil || !s.Available || len(s.Months) == 0 {
		return fmt.Errorf("%s: %w", title, ErrNoChartData)
	}

	bars := make([]chart.StackedBar, len(s.Months))
	for i, m := range s.Months {
		var values []chart.Value
		if m.Positive > 0 {
			values = append(values, chart.Value{
				Value: float64(m.Positive),
				Label: "Positive",
				Style: chart.Style{FillColor: colorPositive, StrokeColor: colorPositive},
			})
		}
		if other := m.Total - m.Positive; other > 0 {
			values = append(values, chart.Value{
				Value: float64(other),
				Label: "Other",
				Style: chart.Style{FillColor: colorTotal, StrokeColor: colorTotal},
			})
		}
		bars[i] = chart.StackedBar{Name: m.Month, Values: values}
	}

	sbc := chart.StackedBarChart{
		Title:      title,
		Width:      r.Width,
		Height:     r.Height,
		BarSpacing: 20,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		Bars:       bars,
	}
	if err := sbc.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render %s: %w", title, err)
	}
	return nil
}

func (r *ChartRenderer) barWidth(n int) int {
	if n <= 0 {
		return 40
	}
	width := (r.Width - 120) / (n * 2)
	switch {
	case width < 10:
		return 10
	case width > 80:
		return 80
	}
	return width
}
