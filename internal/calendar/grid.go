// Package calendar renders the staff month view and owns the operations
// that take days out of service: blocking dates and emergency reschedules.
package calendar

import (
	"fmt"
	"time"

	"github.com/wolfman30/dentalbook/internal/dental"
	"github.com/wolfman30/dentalbook/internal/store"
)

// GridCells is the fixed size of a month grid: six weeks of seven days.
const GridCells = 42

// Day is one cell of the month grid.
type Day struct {
	Date         string               `json:"date"`
	Day          int                  `json:"day"`
	InMonth      bool                 `json:"in_month"`
	IsToday      bool                 `json:"is_today"`
	Blocked      bool                 `json:"blocked"`
	Appointments []dental.Appointment `json:"appointments"`
}

// Month is a Sunday-first grid padded with days of the adjacent months.
type Month struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Title string     `json:"title"`
	Days  []Day      `json:"days"`
}

// GridBounds returns the first and last date shown for the month.
func GridBounds(year int, month time.Month) (string, string) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	start := first.AddDate(0, 0, -int(first.Weekday()))
	return dental.FormatDate(start), dental.FormatDate(start.AddDate(0, 0, GridCells-1))
}

// MonthGrid lays out the month. Appointments outside the grid are ignored;
// each day's appointments are ordered by slot.
func MonthGrid(year int, month time.Month, appts []dental.Appointment, blocked map[string]struct{}, today string) (*Month, error) {
	if month < time.January || month > time.December {
		return nil, fmt.Errorf("calendar: month %d out of range", month)
	}

	byDate := make(map[string][]dental.Appointment)
	for _, a := range appts {
		byDate[a.Date] = append(byDate[a.Date], a)
	}

	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	start := first.AddDate(0, 0, -int(first.Weekday()))

	m := &Month{
		Year:  year,
		Month: month,
		Title: first.Format("January 2006"),
		Days:  make([]Day, 0, GridCells),
	}
	for i := 0; i < GridCells; i++ {
		d := start.AddDate(0, 0, i)
		date := dental.FormatDate(d)
		_, isBlocked := blocked[date]

		dayAppts := append([]dental.Appointment{}, byDate[date]...)
		store.SortAppointments(dayAppts)

		m.Days = append(m.Days, Day{
			Date:         date,
			Day:          d.Day(),
			InMonth:      d.Month() == month,
			IsToday:      date == today,
			Blocked:      isBlocked,
			Appointments: dayAppts,
		})
	}
	return m, nil
}
