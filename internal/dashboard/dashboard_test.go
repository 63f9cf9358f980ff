package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/dentalbook/internal/dental"
	"github.com/wolfman30/dentalbook/internal/observability/metrics"
	"github.com/wolfman30/dentalbook/internal/store"
	"github.com/wolfman30/dentalbook/pkg/logging"
)

func seed(t *testing.T, st store.Store) {
	t.Helper()
	ctx := context.Background()
	patients := []dental.Patient{
		{FirstName: "Ana", LastName: "Cruz", Status: dental.PatientActive},
		{FirstName: "Ben", LastName: "Reyes", Status: dental.PatientActive},
		{FirstName: "Carl", LastName: "Lim", Status: dental.PatientInactive},
	}
	for i := range patients {
		require.NoError(t, st.CreatePatient(ctx, &patients[i]))
	}
	appts := []dental.Appointment{
		{PatientID: patients[0].ID, Date: "2025-07-01", Time: "10:00 AM", Procedure: "Cleaning", Status: dental.StatusScheduled},
		{PatientID: patients[1].ID, Date: "2025-07-01", Time: "9:00 AM", Procedure: "Cleaning", Status: dental.StatusPending},
		{PatientID: patients[1].ID, Date: "2025-07-01", Time: "1:00 PM", Procedure: "Cleaning", Status: dental.StatusCancelled},
		{PatientID: patients[0].ID, Date: "2025-07-03", Time: "9:00 AM", Procedure: "Cleaning", Status: dental.StatusScheduled},
		{PatientID: patients[0].ID, Date: "2025-07-08", Time: "9:00 AM", Procedure: "Cleaning", Status: dental.StatusPending},
		{PatientID: patients[0].ID, Date: "2025-07-09", Time: "9:00 AM", Procedure: "Cleaning", Status: dental.StatusScheduled},
		{PatientID: patients[0].ID, Date: "2025-06-20", Time: "9:00 AM", Procedure: "Cleaning", Status: dental.StatusPending},
	}
	for i := range appts {
		require.NoError(t, st.CreateAppointment(ctx, &appts[i]))
	}
	require.NoError(t, st.AddBlockedDateSet(ctx, &dental.BlockedDateSet{Dates: []string{"2025-06-15", "2025-07-04"}}))
	require.NoError(t, st.AddBlockedDateSet(ctx, &dental.BlockedDateSet{Dates: []string{"2025-07-01", "2025-07-02"}}))
}

func newTestService(t *testing.T, gatherer prometheus.Gatherer) *Service {
	t.Helper()
	st := store.NewMemoryStore()
	seed(t, st)
	svc := NewService(st, nil, gatherer, logging.Default(), time.UTC)
	svc.now = func() time.Time { return time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC) }
	return svc
}

func TestSummaryFromStore(t *testing.T) {
	svc := newTestService(t, prometheus.NewRegistry())

	s, err := svc.Summary(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "2025-07-01", s.Today)
	assert.Equal(t, Counts{
		TodayAppointments: 2,
		PendingRequests:   3,
		TotalPatients:     3,
		ActivePatients:    2,
		UpcomingWeek:      2,
	}, s.Counts)

	require.Len(t, s.TodayAppointments, 2)
	assert.Equal(t, "9:00 AM", s.TodayAppointments[0].Time)
	assert.Equal(t, "10:00 AM", s.TodayAppointments[1].Time)

	require.Len(t, s.Upcoming, UpcomingDays)
	assert.Equal(t, DayCount{Date: "2025-07-02", Count: 0}, s.Upcoming[0])
	assert.Equal(t, DayCount{Date: "2025-07-03", Count: 1}, s.Upcoming[1])
	assert.Equal(t, DayCount{Date: "2025-07-08", Count: 1}, s.Upcoming[6])

	assert.Equal(t, []string{"2025-07-01", "2025-07-02", "2025-07-04"}, s.BlockedAhead)
	assert.Zero(t, s.Bookings.Total)
}

func TestSummaryIncludesBookingMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewClinicMetrics(reg)
	for i := 0; i < 19; i++ {
		m.ObserveBooking("accepted", 0.02)
	}
	m.ObserveBooking("accepted", 4)
	m.ObserveBooking("conflict", 0.01)

	svc := newTestService(t, reg)
	s, err := svc.Summary(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(21), s.Bookings.Total)
	assert.Equal(t, int64(20), s.Bookings.Outcomes["accepted"])
	assert.Equal(t, int64(1), s.Bookings.Outcomes["conflict"])
	assert.InDelta(t, 25.0, s.Bookings.P95Ms, 0.001)
}

func TestHistogramQuantileInterpolates(t *testing.T) {
	uppers := []float64{0.1, 0.5, 1}
	cum := map[float64]uint64{0.1: 50, 0.5: 90, 1: 100}

	assert.InDelta(t, 0.1, histogramQuantile(0.5, 100, uppers, cum), 1e-9)
	assert.InDelta(t, 0.75, histogramQuantile(0.95, 100, uppers, cum), 1e-9)
	assert.Equal(t, 1.0, histogramQuantile(1, 100, uppers, cum))
	assert.Zero(t, histogramQuantile(0.5, 0, uppers, cum))
}

func TestFillMissingDays(t *testing.T) {
	got := fillMissingDays([]DayCount{{Date: "2025-07-03", Count: 4}}, "2025-07-02", "2025-07-04")
	assert.Equal(t, []DayCount{
		{Date: "2025-07-02"},
		{Date: "2025-07-03", Count: 4},
		{Date: "2025-07-04"},
	}, got)
}

func TestPostgresCounterCounts(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM appointments WHERE appt_date = \$1 AND status <> 'cancelled'`).
		WithArgs("2025-07-01").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(4)))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM appointments WHERE status = 'pending'`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(2)))
	mock.ExpectQuery(`SELECT COUNT\(\*\), COUNT\(\*\) FILTER \(WHERE status = 'active'\) FROM patients`).
		WillReturnRows(pgxmock.NewRows([]string{"total", "active"}).AddRow(int64(30), int64(25)))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM appointments WHERE appt_date > \$1 AND appt_date <= \$2`).
		WithArgs("2025-07-01", "2025-07-08").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(9)))

	c := NewPostgresCounter(mock)
	counts, err := c.Counts(context.Background(), "2025-07-01", "2025-07-08")
	require.NoError(t, err)
	assert.Equal(t, Counts{TodayAppointments: 4, PendingRequests: 2, TotalPatients: 30, ActivePatients: 25, UpcomingWeek: 9}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCounterWrapsErrors(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	boom := errors.New("connection reset")
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM appointments WHERE appt_date = \$1`).
		WithArgs("2025-07-01").
		WillReturnError(boom)

	_, err = NewPostgresCounter(mock).Counts(context.Background(), "2025-07-01", "2025-07-08")
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "dashboard: count today")
}

func TestPostgresCounterDaily(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT appt_date, COUNT\(\*\)`).
		WithArgs("2025-07-02", "2025-07-08").
		WillReturnRows(pgxmock.NewRows([]string{"appt_date", "count"}).
			AddRow("2025-07-03", int64(3)).
			AddRow("2025-07-07", int64(1)))

	daily, err := NewPostgresCounter(mock).Daily(context.Background(), "2025-07-02", "2025-07-08")
	require.NoError(t, err)
	assert.Equal(t, []DayCount{{Date: "2025-07-03", Count: 3}, {Date: "2025-07-07", Count: 1}}, daily)
	assert.NoError(t, mock.ExpectationsWereMet())
}

type failingCounter struct{}

func (failingCounter) Counts(context.Context, string, string) (Counts, error) {
	return Counts{}, errors.New("db down")
}

func (failingCounter) Daily(context.Context, string, string) ([]DayCount, error) {
	return nil, nil
}

func TestHandlerGet(t *testing.T) {
	h := NewHandler(newTestService(t, prometheus.NewRegistry()), logging.Default())

	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, "/api/staff/dashboard", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(3), body.Counts.PendingRequests)
}

func TestHandlerGetFailure(t *testing.T) {
	svc := NewService(store.NewMemoryStore(), failingCounter{}, prometheus.NewRegistry(), logging.Default(), time.UTC)
	h := NewHandler(svc, logging.Default())

	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, "/api/staff/dashboard", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal_error")
}
