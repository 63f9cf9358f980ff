// Package reports reduces appointments into revenue and distribution
// figures and exports them as a PDF.
package reports

import (
	"fmt"
	"sort"

	"github.com/wolfman30/dentalbook/internal/dental"
)

// Filter restricts a report to an inclusive date range. Empty bounds are
// open.
type Filter struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// Validate checks both bounds parse and are ordered.
func (f Filter) Validate() error {
	for _, d := range []string{f.Start, f.End} {
		if d == "" {
			continue
		}
		if _, err := dental.ParseDate(d); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidRange, d)
		}
	}
	if f.Start != "" && f.End != "" && f.End < f.Start {
		return fmt.Errorf("%w: end before start", ErrInvalidRange)
	}
	return nil
}

// Label describes the range for titles, e.g. "2025-01-01 to 2025-06-30".
func (f Filter) Label() string {
	switch {
	case f.Start == "" && f.End == "":
		return "All time"
	case f.Start == "":
		return "Up to " + f.End
	case f.End == "":
		return "From " + f.Start
	}
	return f.Start + " to " + f.End
}

// Filename is the export file name for the range.
func (f Filter) Filename() string {
	if f.Start == "" && f.End == "" {
		return "dental-report_all-time.pdf"
	}
	start, end := f.Start, f.End
	if start == "" {
		start = "beginning"
	}
	if end == "" {
		end = "present"
	}
	return fmt.Sprintf("dental-report_%s_to_%s.pdf", start, end)
}

// ProcedureCount is one bar of the procedure distribution.
type ProcedureCount struct {
	Procedure string `json:"procedure"`
	Count     int    `json:"count"`
	Revenue   int64  `json:"revenue"`
}

// MonthRevenue is completed revenue for one YYYY-MM.
type MonthRevenue struct {
	Month   string `json:"month"`
	Revenue int64  `json:"revenue"`
}

// Summary is the reduced report.
type Summary struct {
	Filter            Filter                           `json:"filter"`
	TotalRevenue      int64                            `json:"total_revenue"`
	TotalAppointments int                              `json:"total_appointments"`
	Completed         int                              `json:"completed"`
	Cancelled         int                              `json:"cancelled"`
	NoShow            int                              `json:"no_show"`
	CompletionRate    float64                          `json:"completion_rate"`
	AverageRevenue    int64                            `json:"average_revenue"`
	StatusCounts      map[dental.AppointmentStatus]int `json:"status_counts"`
	ProcedureCounts   []ProcedureCount                 `json:"procedure_counts"`
	MonthlyRevenue    []MonthRevenue                   `json:"monthly_revenue"`
}

// ReportedStatuses are the statuses a report counts, in display order.
// Pending requests are not yet part of the clinic's books.
var ReportedStatuses = []dental.AppointmentStatus{
	dental.StatusScheduled,
	dental.StatusCompleted,
	dental.StatusCancelled,
	dental.StatusNoShow,
	dental.StatusRescheduled,
}

// Aggregate reduces appts. Revenue counts completed appointments only, at
// price times the occurrence multiplier.
func Aggregate(appts []dental.Appointment, f Filter) Summary {
	s := Summary{
		Filter:       f,
		StatusCounts: make(map[dental.AppointmentStatus]int, len(ReportedStatuses)),
	}
	for _, st := range ReportedStatuses {
		s.StatusCounts[st] = 0
	}

	procs := make(map[string]*ProcedureCount)
	months := make(map[string]int64)
	for _, a := range appts {
		if a.Status == dental.StatusPending || !dental.InRange(a.Date, f.Start, f.End) {
			continue
		}
		s.TotalAppointments++
		s.StatusCounts[a.Status]++

		pc, ok := procs[a.Procedure]
		if !ok {
			pc = &ProcedureCount{Procedure: a.Procedure}
			procs[a.Procedure] = pc
		}
		pc.Count++

		switch a.Status {
		case dental.StatusCompleted:
			s.Completed++
			revenue := a.Price * a.Multiplier()
			s.TotalRevenue += revenue
			pc.Revenue += revenue
			if len(a.Date) >= 7 {
				months[a.Date[:7]] += revenue
			}
		case dental.StatusCancelled:
			s.Cancelled++
		case dental.StatusNoShow:
			s.NoShow++
		}
	}

	if s.TotalAppointments > 0 {
		s.CompletionRate = float64(s.Completed) / float64(s.TotalAppointments) * 100
	}
	if s.Completed > 0 {
		s.AverageRevenue = s.TotalRevenue / int64(s.Completed)
	}

	s.ProcedureCounts = make([]ProcedureCount, 0, len(procs))
	for _, pc := range procs {
		s.ProcedureCounts = append(s.ProcedureCounts, *pc)
	}
	sort.Slice(s.ProcedureCounts, func(i, j int) bool {
		a, b := s.ProcedureCounts[i], s.ProcedureCounts[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Procedure < b.Procedure
	})

	s.MonthlyRevenue = make([]MonthRevenue, 0, len(months))
	for m, rev := range months {
		s.MonthlyRevenue = append(s.MonthlyRevenue, MonthRevenue{Month: m, Revenue: rev})
	}
	sort.Slice(s.MonthlyRevenue, func(i, j int) bool { return s.MonthlyRevenue[i].Month < s.MonthlyRevenue[j].Month })
	return s
}
