package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/dentalbook/internal/dental"
)

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = memTx{}
	_ Store = (*PostgresStore)(nil)
)

func TestMemoryStoreAppointmentsOrderedByDateThenSlot(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for _, a := range []dental.Appointment{
		{Date: "2025-06-16", Time: "9:00 AM", Status: dental.StatusScheduled},
		{Date: "2025-06-15", Time: "2:00 PM", Status: dental.StatusScheduled},
		{Date: "2025-06-15", Time: "10:00 AM", Status: dental.StatusPending},
	} {
		a := a
		require.NoError(t, s.CreateAppointment(ctx, &a))
	}

	all, err := s.ListAppointments(ctx, AppointmentFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "10:00 AM", all[0].Time)
	assert.Equal(t, "2:00 PM", all[1].Time)
	assert.Equal(t, "2025-06-16", all[2].Date)

	scheduled, err := s.ListAppointments(ctx, AppointmentFilter{
		Statuses: []dental.AppointmentStatus{dental.StatusScheduled},
		From:     "2025-06-15",
		To:       "2025-06-15",
	})
	require.NoError(t, err)
	require.Len(t, scheduled, 1)
	assert.Equal(t, "2:00 PM", scheduled[0].Time)
}

func TestMemoryStoreWithinTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	p := &dental.Patient{FirstName: "Ana", LastName: "Santos"}
	require.NoError(t, s.CreatePatient(ctx, p))

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(tx Store) error {
		if err := tx.CreateAppointment(ctx, &dental.Appointment{PatientID: p.ID, Date: "2025-06-15", Time: "9:00 AM"}); err != nil {
			return err
		}
		if err := tx.DeletePatient(ctx, p.ID); err != nil {
			return err
		}
		// nested transactions join the outer one
		return tx.WithinTx(ctx, func(inner Store) error { return boom })
	})
	require.ErrorIs(t, err, boom)

	appts, err := s.ListAppointments(ctx, AppointmentFilter{})
	require.NoError(t, err)
	assert.Empty(t, appts)

	got, err := s.GetPatient(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", got.FirstName)
}

func TestMemoryStoreRollbackKeepsWritesMadeOutsideTx(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	started := make(chan struct{})
	written := make(chan error, 1)
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(tx Store) error {
		go func() {
			close(started)
			written <- s.CreatePatient(ctx, &dental.Patient{FirstName: "Ben", LastName: "Cruz"})
		}()
		<-started
		if err := tx.CreatePatient(ctx, &dental.Patient{FirstName: "Ana", LastName: "Santos"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.NoError(t, <-written)

	patients, err := s.ListPatients(ctx)
	require.NoError(t, err)
	require.Len(t, patients, 1)
	assert.Equal(t, "Ben", patients[0].FirstName)
}

func TestMemoryStoreTxWritesHiddenUntilCommit(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	err := s.WithinTx(ctx, func(tx Store) error {
		if err := tx.CreatePatient(ctx, &dental.Patient{FirstName: "Ana", LastName: "Santos"}); err != nil {
			return err
		}
		outside, err := s.ListPatients(ctx)
		require.NoError(t, err)
		assert.Empty(t, outside)

		inside, err := tx.ListPatients(ctx)
		require.NoError(t, err)
		assert.Len(t, inside, 1)
		return nil
	})
	require.NoError(t, err)

	patients, err := s.ListPatients(ctx)
	require.NoError(t, err)
	assert.Len(t, patients, 1)
}

func TestMemoryStoreWithinTxCommits(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	err := s.WithinTx(ctx, func(tx Store) error {
		if err := tx.AddBlockedDateSet(ctx, &dental.BlockedDateSet{Dates: []string{"2025-07-01"}}); err != nil {
			return err
		}
		return tx.AddEmergencyReschedule(ctx, &dental.EmergencyReschedule{StartDate: "2025-07-01", EndDate: "2025-07-01"})
	})
	require.NoError(t, err)

	sets, err := s.ListBlockedDateSets(ctx)
	require.NoError(t, err)
	require.Len(t, sets, 1)
	assert.NotEmpty(t, sets[0].ID)

	logs, err := s.ListEmergencyReschedules(ctx)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestMemoryStoreNotFound(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.GetPatient(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.UpdateAppointment(ctx, &dental.Appointment{ID: "missing"}), ErrNotFound)
	assert.ErrorIs(t, s.DeleteAppointment(ctx, "missing"), ErrNotFound)
	assert.ErrorIs(t, s.DeletePatient(ctx, "missing"), ErrNotFound)
}

func TestPostgresStoreGetAppointment(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	created := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT id, patient_id, patient_name, phone, procedure, price, appt_date, appt_time, status, notes, occurrences, series_id, created_at, updated_at FROM appointments WHERE id = \$1`).
		WithArgs("appt-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "patient_id", "patient_name", "phone", "procedure", "price", "appt_date", "appt_time",
			"status", "notes", "occurrences", "series_id", "created_at", "updated_at",
		}).AddRow("appt-1", "pat-1", "Ana Santos", "09171234567", "Consultation", int64(500), "2025-06-15", "9:00 AM",
			"scheduled", "", 1, "", created, created))

	s := NewPostgresStore(mock)
	appt, err := s.GetAppointment(context.Background(), "appt-1")
	require.NoError(t, err)
	assert.Equal(t, dental.StatusScheduled, appt.Status)
	assert.EqualValues(t, 500, appt.Price)
	assert.Equal(t, "9:00 AM", appt.Time)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreListAppointmentsBuildsFilter(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`FROM appointments WHERE patient_id = \$1 AND appt_date >= \$2 AND appt_date <= \$3 AND status = ANY\(\$4\) ORDER BY appt_date, created_at`).
		WithArgs("pat-1", "2025-06-01", "2025-06-30", []string{"completed"}).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "patient_id", "patient_name", "phone", "procedure", "price", "appt_date", "appt_time",
			"status", "notes", "occurrences", "series_id", "created_at", "updated_at",
		}))

	s := NewPostgresStore(mock)
	out, err := s.ListAppointments(context.Background(), AppointmentFilter{
		PatientID: "pat-1",
		From:      "2025-06-01",
		To:        "2025-06-30",
		Statuses:  []dental.AppointmentStatus{dental.StatusCompleted},
	})
	require.NoError(t, err)
	assert.Empty(t, out)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreWithinTxCommitsAndRollsBack(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewPostgresStore(mock)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO patients`).
		WithArgs(pgxmock.AnyArg(), "Ana", "", "Santos", "Maria Santos", "ana@gmail.com", "09171234567",
			30, "female", "active", "", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err = s.WithinTx(ctx, func(tx Store) error {
		return tx.CreatePatient(ctx, &dental.Patient{
			FirstName: "Ana", LastName: "Santos", ContactName: "Maria Santos",
			Email: "ana@gmail.com", Phone: "09171234567", Age: 30, Sex: "female", Status: dental.PatientActive,
		})
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectRollback()
	err = s.WithinTx(ctx, func(tx Store) error { return boom })
	require.ErrorIs(t, err, boom)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreUpdateMissingReturnsNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`UPDATE appointments`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	s := NewPostgresStore(mock)
	err = s.UpdateAppointment(context.Background(), &dental.Appointment{ID: "nope", Status: dental.StatusCompleted})
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
