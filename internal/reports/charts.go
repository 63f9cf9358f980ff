package reports

import (
	"bytes"
	"errors"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/wolfman30/dentalbook/internal/dental"
)

var errNoChartData = errors.New("reports: nothing to chart")

// Chart renders one PNG image of the summary. Width is the printed width
// in millimetres.
type Chart struct {
	Name   string
	Title  string
	Width  float64
	Render func(s Summary) ([]byte, error)
}

// DefaultCharts are the monthly revenue bar chart and the status pie chart.
func DefaultCharts() []Chart {
	return []Chart{
		{Name: "monthly_revenue", Title: "Monthly Revenue", Width: 180, Render: RevenueChart},
		{Name: "status_distribution", Title: "Appointment Status Distribution", Width: 120, Render: StatusChart},
	}
}

var statusColors = map[dental.AppointmentStatus]drawing.Color{
	dental.StatusScheduled:   drawing.ColorFromHex("3b82f6"),
	dental.StatusCompleted:   drawing.ColorFromHex("10b981"),
	dental.StatusCancelled:   drawing.ColorFromHex("ef4444"),
	dental.StatusNoShow:      drawing.ColorFromHex("f59e0b"),
	dental.StatusRescheduled: drawing.ColorFromHex("8b5cf6"),
}

// RevenueChart is a bar per month of completed revenue.
func RevenueChart(s Summary) ([]byte, error) {
	var max float64
	bars := make([]chart.Value, 0, len(s.MonthlyRevenue))
	for _, m := range s.MonthlyRevenue {
		v := float64(m.Revenue)
		if v > max {
			max = v
		}
		bars = append(bars, chart.Value{Label: m.Month, Value: v})
	}
	if max <= 0 {
		return nil, errNoChartData
	}

	graph := chart.BarChart{
		Title:      "Monthly Revenue",
		Background: chart.Style{Padding: chart.Box{Top: 40}},
		Width:      1024,
		Height:     512,
		BarWidth:   48,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: max * 1.1},
		},
		Bars: bars,
	}
	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// StatusChart is a pie of the non-zero status counts.
func StatusChart(s Summary) ([]byte, error) {
	values := make([]chart.Value, 0, len(ReportedStatuses))
	for _, st := range ReportedStatuses {
		n := s.StatusCounts[st]
		if n == 0 {
			continue
		}
		values = append(values, chart.Value{
			Label: string(st),
			Value: float64(n),
			Style: chart.Style{FillColor: statusColors[st]},
		})
	}
	if len(values) == 0 {
		return nil, errNoChartData
	}

	pie := chart.PieChart{
		Title:  "Status Distribution",
		Width:  512,
		Height: 512,
		Values: values,
	}
	var buf bytes.Buffer
	if err := pie.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
