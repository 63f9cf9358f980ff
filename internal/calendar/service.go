package calendar

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/dentalbook/internal/dental"
	"github.com/wolfman30/dentalbook/internal/notify"
	"github.com/wolfman30/dentalbook/internal/observability/metrics"
	"github.com/wolfman30/dentalbook/internal/store"
	"github.com/wolfman30/dentalbook/pkg/logging"
)

var calendarTracer = otel.Tracer("dentalbook.internal.calendar")

var (
	ErrInvalidInput   = errors.New("calendar: invalid input")
	ErrAlreadyBlocked = errors.New("calendar: dates already blocked")
	ErrNotFound       = errors.New("calendar: appointment not found")
	ErrOutsideRange   = errors.New("calendar: appointment outside reschedule range")
)

// Notifier tells patients their appointment has to move.
type Notifier interface {
	NotifyRescheduled(ctx context.Context, recipients []notify.Recipient, message string) error
}

type Service struct {
	store    store.Store
	notifier Notifier
	metrics  *metrics.ClinicMetrics
	logger   *logging.Logger
	loc      *time.Location
	now      func() time.Time
}

func NewService(st store.Store, notifier Notifier, m *metrics.ClinicMetrics, logger *logging.Logger, loc *time.Location) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		store:    st,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
		loc:      loc,
		now:      time.Now,
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Today is the clinic-local date.
func (s *Service) Today() string {
	return dental.FormatDate(s.now().In(s.loc))
}

// Month loads the grid for a month. Both collections must load; unlike the
// booking check the staff view reports a backend failure.
func (s *Service) Month(ctx context.Context, year int, month time.Month) (*Month, error) {
	if month < time.January || month > time.December {
		return nil, invalid("month must be 1-12")
	}
	from, to := GridBounds(year, month)
	appts, err := s.store.ListAppointments(ctx, store.AppointmentFilter{From: from, To: to})
	if err != nil {
		return nil, fmt.Errorf("calendar: list appointments: %w", err)
	}
	sets, err := s.store.ListBlockedDateSets(ctx)
	if err != nil {
		return nil, fmt.Errorf("calendar: list blocked dates: %w", err)
	}
	return MonthGrid(year, month, appts, dental.BlockedUnion(sets), s.Today())
}

// BlockedDates returns the sorted union of every batch plus the batches.
func (s *Service) BlockedDates(ctx context.Context) ([]string, []dental.BlockedDateSet, error) {
	sets, err := s.store.ListBlockedDateSets(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("calendar: list blocked dates: %w", err)
	}
	union := dental.BlockedUnion(sets)
	dates := make([]string, 0, len(union))
	for d := range union {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates, sets, nil
}

// AddBlockedDates appends a batch. Duplicates and dates that are already
// blocked are dropped; a batch with nothing new is rejected.
func (s *Service) AddBlockedDates(ctx context.Context, dates []string, reason string) (*dental.BlockedDateSet, error) {
	if len(dates) == 0 {
		return nil, invalid("at least one date is required")
	}
	existing, _, err := s.BlockedDates(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(existing)+len(dates))
	for _, d := range existing {
		seen[d] = struct{}{}
	}

	fresh := make([]string, 0, len(dates))
	for _, raw := range dates {
		t, err := dental.ParseDate(raw)
		if err != nil {
			return nil, invalid("%q: %v", raw, err)
		}
		d := dental.FormatDate(t)
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		fresh = append(fresh, d)
	}
	if len(fresh) == 0 {
		return nil, ErrAlreadyBlocked
	}
	sort.Strings(fresh)

	set := &dental.BlockedDateSet{Dates: fresh, Reason: strings.TrimSpace(reason)}
	if err := s.store.AddBlockedDateSet(ctx, set); err != nil {
		return nil, fmt.Errorf("calendar: add blocked dates: %w", err)
	}
	s.logger.Info("dates blocked", "count", len(fresh), "first", fresh[0], "last", fresh[len(fresh)-1])
	return set, nil
}

func parseRange(start, end string) ([]string, error) {
	days, err := dental.DatesBetween(start, end)
	if err != nil {
		return nil, invalid("%v", err)
	}
	return days, nil
}

// Candidates lists the appointments an emergency over [start, end] would
// affect: everything in range that is neither completed nor cancelled.
func (s *Service) Candidates(ctx context.Context, start, end string) ([]dental.Appointment, error) {
	if _, err := parseRange(start, end); err != nil {
		return nil, err
	}
	appts, err := s.store.ListAppointments(ctx, store.AppointmentFilter{From: start, To: end})
	if err != nil {
		return nil, fmt.Errorf("calendar: list appointments: %w", err)
	}
	out := appts[:0]
	for _, a := range appts {
		if a.Status == dental.StatusCompleted || a.Status == dental.StatusCancelled {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// RescheduleInput is an operator's emergency reschedule request.
type RescheduleInput struct {
	StartDate      string   `json:"start_date"`
	EndDate        string   `json:"end_date"`
	AppointmentIDs []string `json:"appointment_ids"`
	Message        string   `json:"message"`
	CreatedBy      string   `json:"-"`
}

// RescheduleResult is what an emergency reschedule changed.
type RescheduleResult struct {
	Record      dental.EmergencyReschedule `json:"record"`
	Blocked     []string                   `json:"blocked_dates"`
	Rescheduled []dental.Appointment       `json:"rescheduled"`
	Skipped     []string                   `json:"skipped,omitempty"`
}

// EmergencyReschedule blocks every day of the range and moves the selected
// appointments to rescheduled, appending the message to their notes.
// Completed appointments are left alone. Everything, including the audit
// record, is written in one transaction.
func (s *Service) EmergencyReschedule(ctx context.Context, in RescheduleInput) (*RescheduleResult, error) {
	ctx, span := calendarTracer.Start(ctx, "calendar.emergency_reschedule")
	defer span.End()

	result, err := s.reschedule(ctx, in)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("dental.start_date", in.StartDate),
		attribute.String("dental.end_date", in.EndDate),
		attribute.Int("dental.rescheduled", len(result.Rescheduled)),
	)
	s.metrics.ObserveReschedule(len(result.Rescheduled))
	s.logger.Info("emergency reschedule applied",
		"reschedule_id", result.Record.ID,
		"start_date", in.StartDate,
		"end_date", in.EndDate,
		"rescheduled", len(result.Rescheduled),
		"skipped", len(result.Skipped),
		"created_by", in.CreatedBy,
	)

	if s.notifier != nil && len(result.Rescheduled) > 0 {
		if err := s.notifier.NotifyRescheduled(ctx, s.recipients(ctx, result.Rescheduled), in.Message); err != nil {
			s.logger.Warn("calendar: reschedule notices failed", "error", err)
		}
	}
	return result, nil
}

func (s *Service) reschedule(ctx context.Context, in RescheduleInput) (*RescheduleResult, error) {
	days, err := parseRange(in.StartDate, in.EndDate)
	if err != nil {
		return nil, err
	}
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return nil, invalid("message is required")
	}

	result := &RescheduleResult{Blocked: days}
	err = s.store.WithinTx(ctx, func(tx store.Store) error {
		selected := make([]*dental.Appointment, 0, len(in.AppointmentIDs))
		seen := make(map[string]struct{}, len(in.AppointmentIDs))
		for _, id := range in.AppointmentIDs {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			a, err := tx.GetAppointment(ctx, id)
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("%w: %s", ErrNotFound, id)
			}
			if err != nil {
				return err
			}
			if !dental.InRange(a.Date, in.StartDate, in.EndDate) {
				return fmt.Errorf("%w: %s is on %s", ErrOutsideRange, id, a.Date)
			}
			selected = append(selected, a)
		}

		if err := tx.AddBlockedDateSet(ctx, &dental.BlockedDateSet{Dates: days, Reason: message}); err != nil {
			return fmt.Errorf("calendar: block range: %w", err)
		}

		affected := make([]string, 0, len(selected))
		for _, a := range selected {
			if a.Status == dental.StatusCompleted {
				result.Skipped = append(result.Skipped, a.ID)
				continue
			}
			a.Status = dental.StatusRescheduled
			a.AppendNote(message)
			if err := tx.UpdateAppointment(ctx, a); err != nil {
				return fmt.Errorf("calendar: reschedule %s: %w", a.ID, err)
			}
			affected = append(affected, a.ID)
			result.Rescheduled = append(result.Rescheduled, *a)
		}

		record := dental.EmergencyReschedule{
			StartDate:              in.StartDate,
			EndDate:                in.EndDate,
			AffectedAppointmentIDs: affected,
			Message:                message,
			CreatedBy:              in.CreatedBy,
		}
		if err := tx.AddEmergencyReschedule(ctx, &record); err != nil {
			return fmt.Errorf("calendar: audit record: %w", err)
		}
		result.Record = record
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// recipients resolves patient addresses for the notices. Lookups that fail
// only cost that patient the email.
func (s *Service) recipients(ctx context.Context, appts []dental.Appointment) []notify.Recipient {
	out := make([]notify.Recipient, 0, len(appts))
	for _, a := range appts {
		p, err := s.store.GetPatient(ctx, a.PatientID)
		if err != nil {
			s.logger.Debug("calendar: no patient for reschedule notice", "appointment_id", a.ID, "error", err)
			continue
		}
		out = append(out, notify.Recipient{Email: p.Email, Name: a.PatientName, Appointment: a})
	}
	return out
}

// History lists past emergency reschedules, newest first.
func (s *Service) History(ctx context.Context) ([]dental.EmergencyReschedule, error) {
	out, err := s.store.ListEmergencyReschedules(ctx)
	if err != nil {
		return nil, fmt.Errorf("calendar: list reschedules: %w", err)
	}
	return out, nil
}
