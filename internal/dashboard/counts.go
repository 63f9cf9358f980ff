package dashboard

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wolfman30/dentalbook/internal/dental"
	"github.com/wolfman30/dentalbook/internal/store"
)

// Counts are the headline numbers of the staff shell.
type Counts struct {
	TodayAppointments int64 `json:"today_appointments"`
	PendingRequests   int64 `json:"pending_requests"`
	TotalPatients     int64 `json:"total_patients"`
	ActivePatients    int64 `json:"active_patients"`
	UpcomingWeek      int64 `json:"upcoming_week"`
}

// DayCount is the number of slot-holding appointments on one date.
type DayCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// Counter computes dashboard figures. today and weekEnd are YYYY-MM-DD; the
// upcoming window is (today, weekEnd].
type Counter interface {
	Counts(ctx context.Context, today, weekEnd string) (Counts, error)
	Daily(ctx context.Context, from, to string) ([]DayCount, error)
}

// countsDB is the part of a pgx pool the Postgres counter needs.
type countsDB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresCounter counts in SQL rather than loading rows.
type PostgresCounter struct {
	db countsDB
}

func NewPostgresCounter(db countsDB) *PostgresCounter {
	if db == nil {
		panic("dashboard: db required")
	}
	return &PostgresCounter{db: db}
}

func (c *PostgresCounter) Counts(ctx context.Context, today, weekEnd string) (Counts, error) {
	var out Counts

	todayQuery := `SELECT COUNT(*) FROM appointments WHERE appt_date = $1 AND status <> 'cancelled'`
	if err := c.db.QueryRow(ctx, todayQuery, today).Scan(&out.TodayAppointments); err != nil {
		return Counts{}, fmt.Errorf("dashboard: count today: %w", err)
	}

	pendingQuery := `SELECT COUNT(*) FROM appointments WHERE status = 'pending'`
	if err := c.db.QueryRow(ctx, pendingQuery).Scan(&out.PendingRequests); err != nil {
		return Counts{}, fmt.Errorf("dashboard: count pending: %w", err)
	}

	patientsQuery := `SELECT COUNT(*), COUNT(*) FILTER (WHERE status = 'active') FROM patients`
	if err := c.db.QueryRow(ctx, patientsQuery).Scan(&out.TotalPatients, &out.ActivePatients); err != nil {
		return Counts{}, fmt.Errorf("dashboard: count patients: %w", err)
	}

	upcomingQuery := `SELECT COUNT(*) FROM appointments WHERE appt_date > $1 AND appt_date <= $2 AND status IN ('pending', 'scheduled')`
	if err := c.db.QueryRow(ctx, upcomingQuery, today, weekEnd).Scan(&out.UpcomingWeek); err != nil {
		return Counts{}, fmt.Errorf("dashboard: count upcoming: %w", err)
	}
	return out, nil
}

func (c *PostgresCounter) Daily(ctx context.Context, from, to string) ([]DayCount, error) {
	rows, err := c.db.Query(ctx, `
		SELECT appt_date, COUNT(*)
		FROM appointments
		WHERE appt_date >= $1
		  AND appt_date <= $2
		  AND status <> 'cancelled'
		GROUP BY appt_date
		ORDER BY appt_date
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("dashboard: query daily: %w", err)
	}
	defer rows.Close()

	var out []DayCount
	for rows.Next() {
		var d DayCount
		if err := rows.Scan(&d.Date, &d.Count); err != nil {
			return nil, fmt.Errorf("dashboard: scan daily: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dashboard: iterate daily: %w", err)
	}
	return out, nil
}

// StoreCounter derives the figures from any store by listing rows. It backs
// the in-memory deployment.
type StoreCounter struct {
	store store.Store
}

func NewStoreCounter(st store.Store) *StoreCounter {
	return &StoreCounter{store: st}
}

func (c *StoreCounter) Counts(ctx context.Context, today, weekEnd string) (Counts, error) {
	var out Counts

	appts, err := c.store.ListAppointments(ctx, store.AppointmentFilter{})
	if err != nil {
		return Counts{}, fmt.Errorf("dashboard: list appointments: %w", err)
	}
	for _, a := range appts {
		if a.Date == today && a.Status.OccupiesSlot() {
			out.TodayAppointments++
		}
		if a.Status == dental.StatusPending {
			out.PendingRequests++
		}
		if a.Date > today && a.Date <= weekEnd &&
			(a.Status == dental.StatusPending || a.Status == dental.StatusScheduled) {
			out.UpcomingWeek++
		}
	}

	patients, err := c.store.ListPatients(ctx)
	if err != nil {
		return Counts{}, fmt.Errorf("dashboard: list patients: %w", err)
	}
	out.TotalPatients = int64(len(patients))
	for _, p := range patients {
		if p.Status == dental.PatientActive {
			out.ActivePatients++
		}
	}
	return out, nil
}

func (c *StoreCounter) Daily(ctx context.Context, from, to string) ([]DayCount, error) {
	appts, err := c.store.ListAppointments(ctx, store.AppointmentFilter{From: from, To: to})
	if err != nil {
		return nil, fmt.Errorf("dashboard: list appointments: %w", err)
	}
	byDate := map[string]int64{}
	var order []string
	for _, a := range appts {
		if !a.Status.OccupiesSlot() {
			continue
		}
		if _, ok := byDate[a.Date]; !ok {
			order = append(order, a.Date)
		}
		byDate[a.Date]++
	}
	out := make([]DayCount, 0, len(order))
	for _, d := range order {
		out = append(out, DayCount{Date: d, Count: byDate[d]})
	}
	return out, nil
}

// fillMissingDays returns one entry per date in [from, to], zero-filled.
func fillMissingDays(existing []DayCount, from, to string) []DayCount {
	days, err := dental.DatesBetween(from, to)
	if err != nil {
		return existing
	}
	lookup := make(map[string]int64, len(existing))
	for _, d := range existing {
		lookup[d.Date] = d.Count
	}
	out := make([]DayCount, 0, len(days))
	for _, d := range days {
		out = append(out, DayCount{Date: d, Count: lookup[d]})
	}
	return out
}
