package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/wolfman30/dentalbook/internal/clinic"
	"github.com/wolfman30/dentalbook/internal/dental"
	"github.com/wolfman30/dentalbook/pkg/logging"
)

// ProfileSource retrieves the clinic profile.
type ProfileSource interface {
	Get(ctx context.Context) (*clinic.Profile, error)
}

// Service sends booking emails to patients and the clinic.
type Service struct {
	email    EmailSender
	profiles ProfileSource
	logger   *logging.Logger
}

// NewService creates a notification service.
func NewService(email EmailSender, profiles ProfileSource, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		email:    email,
		profiles: profiles,
		logger:   logger,
	}
}

// BookingReceived is what the booking workflow committed for one submission.
type BookingReceived struct {
	ContactName  string
	ContactEmail string
	ContactPhone string
	Appointments []dental.Appointment
}

// Recipient pairs a patient's address with one of their appointments.
type Recipient struct {
	Email       string
	Name        string
	Appointment dental.Appointment
}

func (s *Service) profile(ctx context.Context) *clinic.Profile {
	if s.profiles == nil {
		return clinic.DefaultProfile("")
	}
	p, err := s.profiles.Get(ctx)
	if err != nil {
		s.logger.Warn("notify: clinic profile unavailable, using defaults", "error", err)
		return clinic.DefaultProfile("")
	}
	return p
}

// NotifyBookingReceived acknowledges a booking request to the contact and,
// when enabled, tells the clinic inbox a request is waiting.
func (s *Service) NotifyBookingReceived(ctx context.Context, b BookingReceived) error {
	if s.email == nil {
		s.logger.Debug("notify: email sender not configured, skipping booking notification")
		return nil
	}
	p := s.profile(ctx)
	if !p.NotifyOnBooking {
		s.logger.Debug("notify: booking notifications disabled")
		return nil
	}

	lines := make([]string, 0, len(b.Appointments))
	rows := make([]string, 0, len(b.Appointments))
	for _, a := range b.Appointments {
		lines = append(lines, fmt.Sprintf("- %s: %s on %s at %s", a.PatientName, a.Procedure, a.Date, a.Time))
		rows = append(rows, fmt.Sprintf(`<tr><td style="padding: 8px;">%s</td><td style="padding: 8px;">%s</td><td style="padding: 8px;">%s</td><td style="padding: 8px;">%s</td></tr>`,
			html.EscapeString(a.PatientName), html.EscapeString(a.Procedure), a.Date, a.Time))
	}

	var errs []error

	if b.ContactEmail != "" {
		body := fmt.Sprintf(`Hi %s,

We received your appointment request:

%s

Our staff will review it and confirm shortly. Requests stay pending until confirmed.

%s
%s`, b.ContactName, strings.Join(lines, "\n"), p.Name, p.Phone)

		htmlBody := fmt.Sprintf(`<div style="font-family: sans-serif; max-width: 600px;">
<h2>Appointment request received</h2>
<p>Hi %s, we received your request:</p>
<table style="border-collapse: collapse; margin: 20px 0;">%s</table>
<p>Our staff will review it and confirm shortly.</p>
<p style="color: #6b7280; font-size: 12px;">%s</p>
</div>`, html.EscapeString(b.ContactName), strings.Join(rows, ""), html.EscapeString(p.Name))

		msg := EmailMessage{
			To:          b.ContactEmail,
			ToName:      b.ContactName,
			ReplyTo:     p.Email,
			ReplyToName: p.Name,
			Subject:     fmt.Sprintf("%s: appointment request received", p.Name),
			Body:        body,
			HTML:        htmlBody,
			Category:    CategoryBookingReceived,
		}
		if err := s.email.Send(ctx, msg); err != nil {
			s.logger.Error("notify: failed to send booking acknowledgement", "error", err, "to", b.ContactEmail)
			errs = append(errs, err)
		}
	}

	if p.Email != "" {
		msg := EmailMessage{
			To:       p.Email,
			ToName:   p.Name,
			ReplyTo:  b.ContactEmail,
			Category: CategoryBookingAlert,
			Subject:  fmt.Sprintf("New appointment request from %s", b.ContactName),
			Body: fmt.Sprintf("Contact: %s\nPhone: %s\nEmail: %s\n\n%s\n\nReview it on the requests page.",
				b.ContactName, b.ContactPhone, b.ContactEmail, strings.Join(lines, "\n")),
		}
		if err := s.email.Send(ctx, msg); err != nil {
			s.logger.Error("notify: failed to send clinic booking alert", "error", err, "to", p.Email)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d notification(s) failed", len(errs))
	}
	return nil
}

// NotifyRescheduled tells each patient their appointment has to move.
func (s *Service) NotifyRescheduled(ctx context.Context, recipients []Recipient, message string) error {
	if s.email == nil || len(recipients) == 0 {
		return nil
	}
	p := s.profile(ctx)
	if !p.NotifyOnReschedule {
		s.logger.Debug("notify: reschedule notifications disabled")
		return nil
	}

	var errs []error
	for _, r := range recipients {
		if r.Email == "" {
			continue
		}
		a := r.Appointment
		msg := EmailMessage{
			To:          r.Email,
			ToName:      r.Name,
			ReplyTo:     p.Email,
			ReplyToName: p.Name,
			Category:    CategoryRescheduleNotice,
			Subject:     fmt.Sprintf("%s: your %s appointment needs to be rescheduled", p.Name, a.Date),
			Body: fmt.Sprintf(`Hi %s,

Your %s appointment on %s at %s can no longer go ahead.

%s

Please contact us at %s to choose a new schedule.

%s`, r.Name, a.Procedure, a.Date, a.Time, message, p.Phone, p.Name),
		}
		if err := s.email.Send(ctx, msg); err != nil {
			s.logger.Error("notify: failed to send reschedule notice", "error", err, "to", r.Email, "appointment_id", a.ID)
			errs = append(errs, err)
			continue
		}
		s.logger.Info("notify: reschedule notice sent", "to", r.Email, "appointment_id", a.ID)
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d notification(s) failed", len(errs))
	}
	return nil
}
