package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wolfman30/dentalbook/internal/dental"
)

// DB is the subset of pgxpool.Pool (and pgx.Tx) used by PostgresStore.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore persists the collections in Postgres.
type PostgresStore struct {
	db   DB
	inTx bool
}

// NewPostgresStore wraps a pool (or any DB implementation such as pgxmock).
func NewPostgresStore(db DB) *PostgresStore {
	if db == nil {
		panic("store: postgres db required")
	}
	return &PostgresStore{db: db}
}

// WithinTx begins a transaction, or joins the current one.
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	if err := fn(&PostgresStore{db: tx, inTx: true}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

const patientColumns = `id, first_name, middle_name, last_name, contact_name, email, phone, age, sex, status, last_visit, created_at, updated_at`

func scanPatient(row pgx.Row) (*dental.Patient, error) {
	var p dental.Patient
	var status string
	err := row.Scan(
		&p.ID,
		&p.FirstName,
		&p.MiddleName,
		&p.LastName,
		&p.ContactName,
		&p.Email,
		&p.Phone,
		&p.Age,
		&p.Sex,
		&status,
		&p.LastVisit,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	p.Status = dental.PatientStatus(status)
	return &p, nil
}

func (s *PostgresStore) ListPatients(ctx context.Context) ([]dental.Patient, error) {
	rows, err := s.db.Query(ctx, `SELECT `+patientColumns+` FROM patients ORDER BY last_name, first_name`)
	if err != nil {
		return nil, fmt.Errorf("store: list patients: %w", err)
	}
	defer rows.Close()

	var out []dental.Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan patient: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list patients: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) GetPatient(ctx context.Context, id string) (*dental.Patient, error) {
	p, err := scanPatient(s.db.QueryRow(ctx, `SELECT `+patientColumns+` FROM patients WHERE id = $1`, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("store: get patient: %w", err)
	}
	return p, err
}

func (s *PostgresStore) CreatePatient(ctx context.Context, p *dental.Patient) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now

	_, err := s.db.Exec(ctx, `
		INSERT INTO patients (`+patientColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, p.ID, p.FirstName, p.MiddleName, p.LastName, p.ContactName, p.Email, p.Phone,
		p.Age, p.Sex, string(p.Status), p.LastVisit, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: insert patient: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdatePatient(ctx context.Context, p *dental.Patient) error {
	p.UpdatedAt = time.Now().UTC()
	tag, err := s.db.Exec(ctx, `
		UPDATE patients
		SET first_name = $2, middle_name = $3, last_name = $4, contact_name = $5, email = $6,
		    phone = $7, age = $8, sex = $9, status = $10, last_visit = $11, updated_at = $12
		WHERE id = $1
	`, p.ID, p.FirstName, p.MiddleName, p.LastName, p.ContactName, p.Email, p.Phone,
		p.Age, p.Sex, string(p.Status), p.LastVisit, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: update patient: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeletePatient(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("store: delete patient: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const appointmentColumns = `id, patient_id, patient_name, phone, procedure, price, appt_date, appt_time, status, notes, occurrences, series_id, created_at, updated_at`

func scanAppointment(row pgx.Row) (*dental.Appointment, error) {
	var a dental.Appointment
	var status string
	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.PatientName,
		&a.Phone,
		&a.Procedure,
		&a.Price,
		&a.Date,
		&a.Time,
		&status,
		&a.Notes,
		&a.Occurrences,
		&a.SeriesID,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	a.Status = dental.AppointmentStatus(status)
	return &a, nil
}

func (s *PostgresStore) ListAppointments(ctx context.Context, filter AppointmentFilter) ([]dental.Appointment, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.PatientID != "" {
		add("patient_id = $%d", filter.PatientID)
	}
	if filter.From != "" {
		add("appt_date >= $%d", filter.From)
	}
	if filter.To != "" {
		add("appt_date <= $%d", filter.To)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		add("status = ANY($%d)", statuses)
	}

	query := `SELECT ` + appointmentColumns + ` FROM appointments`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY appt_date, created_at`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list appointments: %w", err)
	}
	defer rows.Close()

	var out []dental.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan appointment: %w", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list appointments: %w", err)
	}
	SortAppointments(out)
	return out, nil
}

func (s *PostgresStore) GetAppointment(ctx context.Context, id string) (*dental.Appointment, error) {
	a, err := scanAppointment(s.db.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("store: get appointment: %w", err)
	}
	return a, err
}

func (s *PostgresStore) CreateAppointment(ctx context.Context, a *dental.Appointment) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now

	_, err := s.db.Exec(ctx, `
		INSERT INTO appointments (`+appointmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, a.ID, a.PatientID, a.PatientName, a.Phone, a.Procedure, a.Price, a.Date, a.Time,
		string(a.Status), a.Notes, a.Occurrences, a.SeriesID, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: insert appointment: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateAppointment(ctx context.Context, a *dental.Appointment) error {
	a.UpdatedAt = time.Now().UTC()
	tag, err := s.db.Exec(ctx, `
		UPDATE appointments
		SET patient_id = $2, patient_name = $3, phone = $4, procedure = $5, price = $6,
		    appt_date = $7, appt_time = $8, status = $9, notes = $10, occurrences = $11,
		    series_id = $12, updated_at = $13
		WHERE id = $1
	`, a.ID, a.PatientID, a.PatientName, a.Phone, a.Procedure, a.Price, a.Date, a.Time,
		string(a.Status), a.Notes, a.Occurrences, a.SeriesID, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: update appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteAppointment(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("store: delete appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListBlockedDateSets(ctx context.Context) ([]dental.BlockedDateSet, error) {
	rows, err := s.db.Query(ctx, `SELECT id, dates, reason, created_at FROM blocked_dates ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("store: list blocked dates: %w", err)
	}
	defer rows.Close()

	var out []dental.BlockedDateSet
	for rows.Next() {
		var set dental.BlockedDateSet
		if err := rows.Scan(&set.ID, &set.Dates, &set.Reason, &set.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan blocked dates: %w", err)
		}
		out = append(out, set)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list blocked dates: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) AddBlockedDateSet(ctx context.Context, set *dental.BlockedDateSet) error {
	if set.ID == "" {
		set.ID = uuid.NewString()
	}
	set.CreatedAt = time.Now().UTC()
	_, err := s.db.Exec(ctx, `
		INSERT INTO blocked_dates (id, dates, reason, created_at)
		VALUES ($1, $2, $3, $4)
	`, set.ID, set.Dates, set.Reason, set.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: insert blocked dates: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListEmergencyReschedules(ctx context.Context) ([]dental.EmergencyReschedule, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, start_date, end_date, affected_appointment_ids, message, created_by, created_at
		FROM emergency_reschedules
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("store: list emergency reschedules: %w", err)
	}
	defer rows.Close()

	var out []dental.EmergencyReschedule
	for rows.Next() {
		var r dental.EmergencyReschedule
		if err := rows.Scan(&r.ID, &r.StartDate, &r.EndDate, &r.AffectedAppointmentIDs, &r.Message, &r.CreatedBy, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan emergency reschedule: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list emergency reschedules: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) AddEmergencyReschedule(ctx context.Context, r *dental.EmergencyReschedule) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.CreatedAt = time.Now().UTC()
	_, err := s.db.Exec(ctx, `
		INSERT INTO emergency_reschedules (id, start_date, end_date, affected_appointment_ids, message, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, r.ID, r.StartDate, r.EndDate, r.AffectedAppointmentIDs, r.Message, r.CreatedBy, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: insert emergency reschedule: %w", err)
	}
	return nil
}
