package reports

import (
	"bytes"
	"fmt"
	"image/png"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/wolfman30/dentalbook/internal/observability/metrics"
	"github.com/wolfman30/dentalbook/pkg/logging"
)

// Exporter renders summaries as multi-page PDFs.
type Exporter struct {
	charts  []Chart
	metrics *metrics.ClinicMetrics
	logger  *logging.Logger
	now     func() time.Time
}

func NewExporter(charts []Chart, m *metrics.ClinicMetrics, logger *logging.Logger) *Exporter {
	if logger == nil {
		logger = logging.Default()
	}
	if charts == nil {
		charts = DefaultCharts()
	}
	return &Exporter{charts: charts, metrics: m, logger: logger, now: time.Now}
}

// FormatPeso renders whole pesos with thousands separators.
func FormatPeso(amount int64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-PHP " + b.String()
	}
	return "PHP " + b.String()
}

func heading(pdf *fpdf.Fpdf, text string) {
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 9, text, "", 1, "L", false, 0, "")
}

func table(pdf *fpdf.Fpdf, widths []float64, header []string, rows [][]string) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetFillColor(224, 236, 248)
	for i, h := range header {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 11)
	for _, row := range rows {
		for i, cell := range row {
			align := "L"
			if i > 0 {
				align = "R"
			}
			pdf.CellFormat(widths[i], 7, cell, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}
}

// Render writes the report: title and tables, the charts, then the
// procedure distribution. A chart that fails to render is logged and left
// out; the chart page only exists when at least one chart rendered.
func (e *Exporter) Render(w io.Writer, s Summary, clinicName string) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(clinicName+" Financial Report", true)
	pdf.SetCreator("dentalbook", true)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 12, clinicName, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 8, "Financial Report: "+s.Filter.Label(), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 6, "Generated "+e.now().Format("January 2, 2006 3:04 PM"), "", 1, "L", false, 0, "")

	heading(pdf, "Key Metrics")
	table(pdf, []float64{110, 70}, []string{"Metric", "Value"}, [][]string{
		{"Total revenue", FormatPeso(s.TotalRevenue)},
		{"Total appointments", strconv.Itoa(s.TotalAppointments)},
		{"Completed appointments", strconv.Itoa(s.Completed)},
		{"Completion rate", fmt.Sprintf("%.1f%%", s.CompletionRate)},
		{"Average revenue per visit", FormatPeso(s.AverageRevenue)},
		{"Cancelled", strconv.Itoa(s.Cancelled)},
		{"No-shows", strconv.Itoa(s.NoShow)},
	})

	heading(pdf, "Status Breakdown")
	statusRows := make([][]string, 0, len(ReportedStatuses))
	for _, st := range ReportedStatuses {
		n := s.StatusCounts[st]
		share := 0.0
		if s.TotalAppointments > 0 {
			share = float64(n) / float64(s.TotalAppointments) * 100
		}
		statusRows = append(statusRows, []string{string(st), strconv.Itoa(n), fmt.Sprintf("%.1f%%", share)})
	}
	table(pdf, []float64{90, 45, 45}, []string{"Status", "Count", "Share"}, statusRows)

	chartPage := false
	for _, c := range e.charts {
		img, err := e.renderChart(c, s)
		if err != nil {
			e.logger.Warn("reports: chart skipped", "chart", c.Name, "error", err)
			e.metrics.ObserveChartFailure(c.Name)
			continue
		}
		if !chartPage {
			pdf.AddPage()
			chartPage = true
		}
		heading(pdf, c.Title)
		name := "chart-" + c.Name
		opts := fpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(img))
		pdf.ImageOptions(name, 15, 0, c.Width, 0, true, opts, 0, "")
	}

	pdf.AddPage()
	heading(pdf, "Procedure Distribution")
	procRows := make([][]string, 0, len(s.ProcedureCounts))
	for _, pc := range s.ProcedureCounts {
		procRows = append(procRows, []string{pc.Procedure, strconv.Itoa(pc.Count), FormatPeso(pc.Revenue)})
	}
	if len(procRows) == 0 {
		procRows = append(procRows, []string{"No appointments in range", "0", FormatPeso(0)})
	}
	table(pdf, []float64{100, 30, 50}, []string{"Procedure", "Count", "Revenue"}, procRows)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("reports: render pdf: %w", err)
	}
	return nil
}

// renderChart turns a panic or a non-PNG result into an error.
func (e *Exporter) renderChart(c Chart, s Summary) (img []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("chart panicked: %v", r)
		}
	}()
	img, err = c.Render(s)
	if err != nil {
		return nil, err
	}
	if _, err := png.DecodeConfig(bytes.NewReader(img)); err != nil {
		return nil, fmt.Errorf("invalid chart image: %w", err)
	}
	return img, nil
}
