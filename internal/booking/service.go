package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/dentalbook/internal/availability"
	"github.com/wolfman30/dentalbook/internal/dental"
	"github.com/wolfman30/dentalbook/internal/locks"
	"github.com/wolfman30/dentalbook/internal/notify"
	"github.com/wolfman30/dentalbook/internal/observability/metrics"
	"github.com/wolfman30/dentalbook/internal/store"
	"github.com/wolfman30/dentalbook/pkg/logging"
)

var bookingTracer = otel.Tracer("dentalbook.internal.booking")

// Notifier is told about committed bookings.
type Notifier interface {
	NotifyBookingReceived(ctx context.Context, b notify.BookingReceived) error
}

// Result is what a successful submission created.
type Result struct {
	Step         Step                 `json:"step"`
	Patients     []dental.Patient     `json:"patients"`
	Appointments []dental.Appointment `json:"appointments"`
}

// Service validates booking steps and commits submissions.
type Service struct {
	store    store.Store
	loader   *availability.Loader
	locker   locks.Locker
	notifier Notifier
	metrics  *metrics.ClinicMetrics
	logger   *logging.Logger
	loc      *time.Location
	now      func() time.Time
}

// Options carries the optional collaborators of Service.
type Options struct {
	Locker   locks.Locker
	Notifier Notifier
	Metrics  *metrics.ClinicMetrics
	Logger   *logging.Logger
	Location *time.Location
	Now      func() time.Time
}

// NewService constructs a booking service.
func NewService(st store.Store, opts Options) *Service {
	if st == nil {
		panic("booking: store required")
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	if opts.Locker == nil {
		opts.Locker = locks.NewMemoryLocker(0)
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		store:    st,
		loader:   availability.NewLoader(opts.Logger, opts.Metrics),
		locker:   opts.Locker,
		notifier: opts.Notifier,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
		loc:      opts.Location,
		now:      opts.Now,
	}
}

// Today is the current date in the clinic's timezone.
func (s *Service) Today() string {
	return dental.FormatDate(s.now().In(s.loc))
}

func requestedDates(patients []PatientEntry) []string {
	dates := make([]string, 0, len(patients))
	for _, p := range patients {
		dates = append(dates, p.Date)
	}
	return dates
}

// Validate runs the transition for one step. Only the details step reads
// the store.
func (s *Service) Validate(ctx context.Context, step Step, form Form) (Step, error) {
	form.Normalize()
	env := Env{Today: s.Today()}
	if step == StepAppointmentDetails {
		env.Snapshot = s.loader.LoadForDates(ctx, s.store, requestedDates(form.Patients)...)
	}
	next, err := Advance(step, form, env)
	var verr *ValidationError
	if errors.As(err, &verr) && verr.Conflict() {
		s.metrics.ObserveConflict("booking", "step")
	}
	return next, err
}

// Availability returns the snapshot for a single day.
func (s *Service) Availability(ctx context.Context, date string) availability.Snapshot {
	return s.loader.Load(ctx, s.store, date, date)
}

// Submit re-validates every step against a fresh snapshot and creates one
// patient and one pending appointment per roster entry. Everything is
// written in one transaction while holding a lock on each requested slot.
func (s *Service) Submit(ctx context.Context, form Form) (*Result, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.submit")
	defer span.End()
	start := s.now()

	form.Normalize()
	span.SetAttributes(attribute.Int("dental.patients", len(form.Patients)))

	result, err := s.submit(ctx, form)
	outcome := "accepted"
	if err != nil {
		span.RecordError(err)
		var verr *ValidationError
		switch {
		case errors.As(err, &verr) && verr.Conflict():
			outcome = "conflict"
			s.metrics.ObserveConflict("booking", "submit")
		case errors.As(err, &verr):
			outcome = "rejected"
		case errors.Is(err, ErrSlotBusy):
			outcome = "busy"
		default:
			outcome = "error"
		}
	}
	s.metrics.ObserveBooking(outcome, s.now().Sub(start).Seconds())
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking submitted",
		"contact_phone", form.Contact.Phone,
		"patients", len(result.Patients),
	)

	if s.notifier != nil {
		msg := notify.BookingReceived{
			ContactName:  form.Contact.Name,
			ContactEmail: form.Contact.Email,
			ContactPhone: form.Contact.Phone,
			Appointments: result.Appointments,
		}
		if err := s.notifier.NotifyBookingReceived(ctx, msg); err != nil {
			s.logger.Warn("booking: confirmation email failed", "error", err)
		}
	}
	return result, nil
}

func (s *Service) submit(ctx context.Context, form Form) (*Result, error) {
	if fields := ValidateContact(form.Contact); len(fields) > 0 {
		return nil, &ValidationError{Step: StepContactInfo, Fields: fields}
	}
	if fields := ValidateRoster(form.Patients); len(fields) > 0 {
		return nil, &ValidationError{Step: StepPatientRoster, Fields: fields}
	}

	keys := make([]string, 0, len(form.Patients))
	for _, p := range form.Patients {
		keys = append(keys, locks.SlotKey(p.Date, p.Time))
	}

	var result *Result
	err := s.locker.WithSlotLocks(ctx, keys, func(ctx context.Context) error {
		snap := s.loader.LoadForDates(ctx, s.store, requestedDates(form.Patients)...)
		if fields := ValidateDetails(form.Patients, snap, s.Today()); len(fields) > 0 {
			return &ValidationError{Step: StepAppointmentDetails, Fields: fields}
		}

		return s.store.WithinTx(ctx, func(tx store.Store) error {
			res := &Result{Step: StepSubmitted}
			for _, entry := range form.Patients {
				patient := dental.Patient{
					FirstName:   entry.FirstName,
					MiddleName:  entry.MiddleName,
					LastName:    entry.LastName,
					ContactName: form.Contact.Name,
					Email:       form.Contact.Email,
					Phone:       form.Contact.Phone,
					Age:         entry.Age,
					Sex:         entry.Sex,
					Status:      dental.PatientActive,
				}
				if err := tx.CreatePatient(ctx, &patient); err != nil {
					return fmt.Errorf("booking: create patient: %w", err)
				}

				price, _ := dental.PriceFor(entry.Procedure)
				appt := dental.Appointment{
					PatientID:   patient.ID,
					PatientName: patient.FullName(),
					Phone:       form.Contact.Phone,
					Procedure:   entry.Procedure,
					Price:       price,
					Date:        entry.Date,
					Time:        entry.Time,
					Status:      dental.StatusPending,
					Notes:       entry.Notes,
					Occurrences: 1,
				}
				if err := tx.CreateAppointment(ctx, &appt); err != nil {
					return fmt.Errorf("booking: create appointment: %w", err)
				}
				res.Patients = append(res.Patients, patient)
				res.Appointments = append(res.Appointments, appt)
			}
			result = res
			return nil
		})
	})
	if errors.Is(err, locks.ErrLockNotAcquired) {
		return nil, ErrSlotBusy
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}
