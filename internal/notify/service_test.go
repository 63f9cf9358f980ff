package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/wolfman30/dentalbook/internal/clinic"
	"github.com/wolfman30/dentalbook/internal/dental"
)

type mockEmailSender struct {
	sent    []EmailMessage
	failOn  string // fail if To matches this
	callErr error
}

func (m *mockEmailSender) Send(ctx context.Context, msg EmailMessage) error {
	if m.callErr != nil {
		return m.callErr
	}
	if m.failOn != "" && msg.To == m.failOn {
		return errors.New("mock email error")
	}
	m.sent = append(m.sent, msg)
	return nil
}

type mockProfiles struct {
	profile *clinic.Profile
	err     error
}

func (m *mockProfiles) Get(ctx context.Context) (*clinic.Profile, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.profile, nil
}

func booking() BookingReceived {
	return BookingReceived{
		ContactName:  "Maria Santos",
		ContactEmail: "maria@gmail.com",
		ContactPhone: "09171234567",
		Appointments: []dental.Appointment{
			{PatientName: "Ana Santos", Procedure: "Consultation", Date: "2025-06-15", Time: "9:00 AM"},
			{PatientName: "Ben Santos", Procedure: "Tooth Filling", Date: "2025-06-15", Time: "10:00 AM"},
		},
	}
}

func TestService_NotifyBookingReceived_ContactAndClinic(t *testing.T) {
	sender := &mockEmailSender{}
	profile := clinic.DefaultProfile("")
	profile.Name = "Smile Dental"
	profile.Email = "frontdesk@smiledental.ph"
	svc := NewService(sender, &mockProfiles{profile: profile}, nil)

	if err := svc.NotifyBookingReceived(context.Background(), booking()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.sent) != 2 {
		t.Fatalf("expected 2 emails, got %d", len(sender.sent))
	}
	ack := sender.sent[0]
	if ack.To != "maria@gmail.com" || !strings.Contains(ack.Subject, "Smile Dental") {
		t.Errorf("unexpected acknowledgement: %+v", ack)
	}
	if !strings.Contains(ack.Body, "Ben Santos: Tooth Filling on 2025-06-15 at 10:00 AM") {
		t.Errorf("acknowledgement body missing appointment line: %s", ack.Body)
	}
	if ack.ReplyTo != "frontdesk@smiledental.ph" || ack.Category != CategoryBookingReceived {
		t.Errorf("acknowledgement should reply to the clinic inbox: %+v", ack)
	}
	alert := sender.sent[1]
	if alert.To != "frontdesk@smiledental.ph" {
		t.Errorf("expected clinic alert, got %+v", alert)
	}
	if alert.ReplyTo != "maria@gmail.com" || alert.Category != CategoryBookingAlert {
		t.Errorf("alert should reply to the contact: %+v", alert)
	}
}

func TestService_NotifyBookingReceived_Disabled(t *testing.T) {
	sender := &mockEmailSender{}
	profile := clinic.DefaultProfile("")
	profile.NotifyOnBooking = false
	svc := NewService(sender, &mockProfiles{profile: profile}, nil)

	if err := svc.NotifyBookingReceived(context.Background(), booking()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Errorf("expected no emails, got %d", len(sender.sent))
	}
}

func TestService_NotifyBookingReceived_ProfileErrorUsesDefaults(t *testing.T) {
	sender := &mockEmailSender{}
	svc := NewService(sender, &mockProfiles{err: errors.New("redis down")}, nil)

	if err := svc.NotifyBookingReceived(context.Background(), booking()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected only the contact acknowledgement, got %d", len(sender.sent))
	}
}

func TestService_NotifyBookingReceived_EmailFailure(t *testing.T) {
	sender := &mockEmailSender{failOn: "maria@gmail.com"}
	svc := NewService(sender, nil, nil)

	if err := svc.NotifyBookingReceived(context.Background(), booking()); err == nil {
		t.Fatal("expected error when send fails")
	}
}

func TestService_NilSender(t *testing.T) {
	svc := NewService(nil, nil, nil)
	if err := svc.NotifyBookingReceived(context.Background(), booking()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.NotifyRescheduled(context.Background(), []Recipient{{Email: "a@gmail.com"}}, "closed"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestService_NotifyRescheduled(t *testing.T) {
	sender := &mockEmailSender{}
	svc := NewService(sender, nil, nil)

	recipients := []Recipient{
		{Email: "ana@gmail.com", Name: "Ana", Appointment: dental.Appointment{ID: "a1", Procedure: "Consultation", Date: "2025-07-01", Time: "9:00 AM"}},
		{Email: "", Name: "No Email", Appointment: dental.Appointment{ID: "a2"}},
	}
	if err := svc.NotifyRescheduled(context.Background(), recipients, "Clinic closed due to typhoon."); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 email, got %d", len(sender.sent))
	}
	if sender.sent[0].Category != CategoryRescheduleNotice {
		t.Errorf("unexpected category %q", sender.sent[0].Category)
	}
	if !strings.Contains(sender.sent[0].Body, "Clinic closed due to typhoon.") {
		t.Errorf("body missing operator message: %s", sender.sent[0].Body)
	}
}
