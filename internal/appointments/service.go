// Package appointments is the staff side of appointment management: direct
// add and edit, status changes, the pending request queue and the date-fix
// maintenance job.
package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/dentalbook/internal/availability"
	"github.com/wolfman30/dentalbook/internal/dental"
	"github.com/wolfman30/dentalbook/internal/observability/metrics"
	"github.com/wolfman30/dentalbook/internal/store"
	"github.com/wolfman30/dentalbook/pkg/logging"
)

var (
	ErrInvalidInput      = errors.New("appointments: invalid input")
	ErrNotFound          = errors.New("appointments: appointment not found")
	ErrPatientNotFound   = errors.New("appointments: patient not found")
	ErrInvalidTransition = errors.New("appointments: invalid status transition")
)

// CreateInput is a staff-entered appointment. A recurrence fans out into
// one independent row per occurrence.
type CreateInput struct {
	PatientID  string                   `json:"patient_id"`
	Procedure  string                   `json:"procedure"`
	Date       string                   `json:"date"`
	Time       string                   `json:"time"`
	Status     dental.AppointmentStatus `json:"status,omitempty"`
	Notes      string                   `json:"notes,omitempty"`
	Recurrence *dental.Recurrence       `json:"recurrence,omitempty"`
}

// UpdateInput edits an appointment. Nil fields are unchanged.
type UpdateInput struct {
	Procedure *string `json:"procedure,omitempty"`
	Date      *string `json:"date,omitempty"`
	Time      *string `json:"time,omitempty"`
	Notes     *string `json:"notes,omitempty"`
}

// Service manages appointments for staff.
type Service struct {
	store   store.Store
	loader  *availability.Loader
	metrics *metrics.ClinicMetrics
	logger  *logging.Logger
	loc     *time.Location
}

func NewService(st store.Store, m *metrics.ClinicMetrics, logger *logging.Logger, loc *time.Location) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		store:   st,
		loader:  availability.NewLoader(logger, m),
		metrics: m,
		logger:  logger,
		loc:     loc,
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func (s *Service) List(ctx context.Context, f store.AppointmentFilter) ([]dental.Appointment, error) {
	for _, st := range f.Statuses {
		if !st.Valid() {
			return nil, invalid("unknown status %q", st)
		}
	}
	appts, err := s.store.ListAppointments(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("appointments: list: %w", err)
	}
	return appts, nil
}

func (s *Service) Get(ctx context.Context, id string) (*dental.Appointment, error) {
	a, err := s.store.GetAppointment(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("appointments: get: %w", err)
	}
	return a, nil
}

// checkSlot rejects blocked or taken slots, recording the conflict.
func (s *Service) checkSlot(slot availability.Slot, snap availability.Snapshot) error {
	res := availability.Check(slot, snap)
	if !res.OK() {
		s.metrics.ObserveConflict("staff", res.Reason())
		return res.Err()
	}
	return nil
}

// Create adds one appointment, or one per occurrence when a recurrence is
// given. Every occurrence is conflict-checked; any conflict creates nothing.
func (s *Service) Create(ctx context.Context, in CreateInput) ([]dental.Appointment, error) {
	procedure, ok := dental.CanonicalProcedure(in.Procedure)
	if !ok {
		return nil, invalid("unknown procedure %q", in.Procedure)
	}
	if !dental.ValidTimeSlot(in.Time) {
		return nil, invalid("time must be one of %s", strings.Join(dental.TimeSlots, ", "))
	}
	if in.Status == "" {
		in.Status = dental.StatusScheduled
	}
	if !in.Status.Valid() {
		return nil, invalid("unknown status %q", in.Status)
	}
	dates, err := in.Recurrence.Expand(in.Date)
	if err != nil {
		return nil, invalid("%v", err)
	}

	patient, err := s.store.GetPatient(ctx, in.PatientID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("appointments: get patient: %w", err)
	}

	snap := s.loader.LoadForDates(ctx, s.store, dates...)
	if in.Status.OccupiesSlot() {
		for _, d := range dates {
			if err := s.checkSlot(availability.Slot{Date: d, Time: in.Time}, snap); err != nil {
				return nil, err
			}
		}
	}

	price, _ := dental.PriceFor(procedure)
	seriesID := ""
	if len(dates) > 1 {
		seriesID = uuid.NewString()
	}

	created := make([]dental.Appointment, 0, len(dates))
	err = s.store.WithinTx(ctx, func(tx store.Store) error {
		for _, d := range dates {
			a := dental.Appointment{
				PatientID:   patient.ID,
				PatientName: patient.FullName(),
				Phone:       patient.Phone,
				Procedure:   procedure,
				Price:       price,
				Date:        d,
				Time:        in.Time,
				Status:      in.Status,
				Notes:       strings.TrimSpace(in.Notes),
				Occurrences: 1,
				SeriesID:    seriesID,
			}
			if err := tx.CreateAppointment(ctx, &a); err != nil {
				return fmt.Errorf("appointments: create: %w", err)
			}
			created = append(created, a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("appointments created", "patient_id", patient.ID, "count", len(created), "series_id", seriesID)
	return created, nil
}

// Update edits procedure, date, time or notes. Moving the appointment is
// conflict-checked against every other appointment.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*dental.Appointment, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Procedure != nil {
		procedure, ok := dental.CanonicalProcedure(*in.Procedure)
		if !ok {
			return nil, invalid("unknown procedure %q", *in.Procedure)
		}
		if procedure != a.Procedure {
			a.Procedure = procedure
			a.Price, _ = dental.PriceFor(procedure)
		}
	}
	moved := false
	if in.Date != nil && *in.Date != a.Date {
		if _, err := dental.ParseDate(*in.Date); err != nil {
			return nil, invalid("date must be YYYY-MM-DD")
		}
		a.Date = *in.Date
		moved = true
	}
	if in.Time != nil && *in.Time != a.Time {
		if !dental.ValidTimeSlot(*in.Time) {
			return nil, invalid("time must be one of %s", strings.Join(dental.TimeSlots, ", "))
		}
		a.Time = *in.Time
		moved = true
	}
	if in.Notes != nil {
		a.Notes = strings.TrimSpace(*in.Notes)
	}

	if moved && a.Status.OccupiesSlot() {
		snap := s.loader.LoadForDates(ctx, s.store, a.Date)
		if err := s.checkSlot(availability.Slot{Date: a.Date, Time: a.Time, ExcludeID: a.ID}, snap); err != nil {
			return nil, err
		}
	}

	if err := s.store.UpdateAppointment(ctx, a); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("appointments: update: %w", err)
	}
	return a, nil
}

// SetStatus changes the status, appending note to the notes when given.
// Leaving cancelled re-checks the slot. Completing stamps the patient's
// last visit in the same transaction.
func (s *Service) SetStatus(ctx context.Context, id string, status dental.AppointmentStatus, note string) (*dental.Appointment, error) {
	if !status.Valid() {
		return nil, invalid("unknown status %q", status)
	}
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status == status && strings.TrimSpace(note) == "" {
		return a, nil
	}

	if !a.Status.OccupiesSlot() && status.OccupiesSlot() {
		snap := s.loader.LoadForDates(ctx, s.store, a.Date)
		if err := s.checkSlot(availability.Slot{Date: a.Date, Time: a.Time, ExcludeID: a.ID}, snap); err != nil {
			return nil, err
		}
	}

	a.Status = status
	a.AppendNote(note)
	err = s.store.WithinTx(ctx, func(tx store.Store) error {
		if err := tx.UpdateAppointment(ctx, a); err != nil {
			return err
		}
		if status != dental.StatusCompleted {
			return nil
		}
		p, err := tx.GetPatient(ctx, a.PatientID)
		if errors.Is(err, store.ErrNotFound) {
			// patient was deleted; the appointment keeps its denormalized name
			return nil
		}
		if err != nil {
			return err
		}
		if p.LastVisit >= a.Date {
			return nil
		}
		p.LastVisit = a.Date
		return tx.UpdatePatient(ctx, p)
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("appointments: set status: %w", err)
	}
	s.logger.Info("appointment status changed", "appointment_id", a.ID, "status", status)
	return a, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteAppointment(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("appointments: delete: %w", err)
	}
	s.logger.Info("appointment deleted", "appointment_id", id)
	return nil
}

// Requests lists the pending booking requests.
func (s *Service) Requests(ctx context.Context) ([]dental.Appointment, error) {
	return s.List(ctx, store.AppointmentFilter{Statuses: []dental.AppointmentStatus{dental.StatusPending}})
}

// Accept schedules a pending request after re-checking its slot.
func (s *Service) Accept(ctx context.Context, id string) (*dental.Appointment, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status != dental.StatusPending {
		return nil, fmt.Errorf("%w: appointment is %s, not pending", ErrInvalidTransition, a.Status)
	}
	snap := s.loader.LoadForDates(ctx, s.store, a.Date)
	if err := s.checkSlot(availability.Slot{Date: a.Date, Time: a.Time, ExcludeID: a.ID}, snap); err != nil {
		return nil, err
	}
	return s.SetStatus(ctx, id, dental.StatusScheduled, "")
}

// Decline cancels a pending request.
func (s *Service) Decline(ctx context.Context, id, reason string) (*dental.Appointment, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status != dental.StatusPending {
		return nil, fmt.Errorf("%w: appointment is %s, not pending", ErrInvalidTransition, a.Status)
	}
	if reason = strings.TrimSpace(reason); reason != "" {
		reason = "Declined: " + reason
	}
	return s.SetStatus(ctx, id, dental.StatusCancelled, reason)
}

// FixReport summarizes a date-fix run.
type FixReport struct {
	Scanned int      `json:"scanned"`
	Fixed   int      `json:"fixed"`
	Invalid []string `json:"invalid,omitempty"`
}

// FixDates rewrites every stored appointment date to YYYY-MM-DD. All
// rewrites are committed together; unparseable dates are reported and left.
func (s *Service) FixDates(ctx context.Context) (*FixReport, error) {
	report := &FixReport{}
	err := s.store.WithinTx(ctx, func(tx store.Store) error {
		appts, err := tx.ListAppointments(ctx, store.AppointmentFilter{})
		if err != nil {
			return err
		}
		report.Scanned = len(appts)
		for i := range appts {
			a := appts[i]
			fixed, err := dental.NormalizeDate(a.Date, s.loc)
			if err != nil {
				report.Invalid = append(report.Invalid, a.ID)
				continue
			}
			if fixed == a.Date {
				continue
			}
			a.Date = fixed
			if err := tx.UpdateAppointment(ctx, &a); err != nil {
				return err
			}
			report.Fixed++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("appointments: fix dates: %w", err)
	}
	s.logger.Info("appointment dates normalized", "scanned", report.Scanned, "fixed", report.Fixed, "invalid", len(report.Invalid))
	return report, nil
}
