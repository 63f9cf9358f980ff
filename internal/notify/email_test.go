package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
)

func TestNewSendGridSender_NilWithoutAPIKey(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{
		APIKey:    "",
		FromEmail: "test@example.com",
	}, nil)

	if sender != nil {
		t.Error("expected nil sender when API key is empty")
	}
}

func TestNewSendGridSender_DefaultFromName(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{
		APIKey:    "test-key",
		FromEmail: "test@example.com",
		FromName:  "",
	}, nil)

	if sender == nil {
		t.Fatal("expected non-nil sender")
	}
	if sender.fromName != "Dental Clinic" {
		t.Errorf("expected default from name 'Dental Clinic', got %q", sender.fromName)
	}
}

func TestNewSendGridSender_CustomFromName(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{
		APIKey:    "test-key",
		FromEmail: "test@example.com",
		FromName:  "Custom Name",
	}, nil)

	if sender == nil {
		t.Fatal("expected non-nil sender")
	}
	if sender.fromName != "Custom Name" {
		t.Errorf("expected from name 'Custom Name', got %q", sender.fromName)
	}
}

func TestSendGridSender_Send_NilClient(t *testing.T) {
	sender := &SendGridSender{
		client: nil,
	}

	err := sender.Send(context.Background(), EmailMessage{
		To:      "recipient@example.com",
		Subject: "Test",
		Body:    "Test body",
	})

	if err == nil {
		t.Error("expected error when client is nil")
	}
}

func TestStubEmailSender_Send(t *testing.T) {
	sender := NewStubEmailSender(nil)

	err := sender.Send(context.Background(), EmailMessage{
		To:      "recipient@example.com",
		Subject: "Test Subject",
		Body:    "Test body",
	})

	if err != nil {
		t.Errorf("stub sender should not return error, got: %v", err)
	}
}

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSESSender_Send(t *testing.T) {
	client := &fakeSES{}
	sender := NewSESSender(client, SESConfig{FromEmail: "noreply@smiledental.ph"}, nil)

	err := sender.Send(context.Background(), EmailMessage{
		To:      "ana@gmail.com",
		Subject: "Appointment request received",
		Body:    "plain",
		HTML:    "<p>html</p>",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := aws.ToString(client.input.FromEmailAddress); got != "Dental Clinic <noreply@smiledental.ph>" {
		t.Errorf("unexpected from address %q", got)
	}
	if client.input.Content.Simple.Body.Html == nil || client.input.Content.Simple.Body.Text == nil {
		t.Error("expected both text and html bodies")
	}
}

func TestSESSender_ReplyToAndCategory(t *testing.T) {
	client := &fakeSES{}
	sender := NewSESSender(client, SESConfig{FromEmail: "noreply@smiledental.ph", FromName: "Smile Dental"}, nil)

	err := sender.Send(context.Background(), EmailMessage{
		To:          "ana@gmail.com",
		ToName:      "Ana Santos",
		ReplyTo:     "frontdesk@smiledental.ph",
		ReplyToName: "Smile Dental",
		Subject:     "Reschedule",
		Body:        "plain",
		Category:    CategoryRescheduleNotice,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := client.input.Destination.ToAddresses; len(got) != 1 || got[0] != "Ana Santos <ana@gmail.com>" {
		t.Errorf("unexpected to addresses %v", got)
	}
	if got := client.input.ReplyToAddresses; len(got) != 1 || got[0] != "Smile Dental <frontdesk@smiledental.ph>" {
		t.Errorf("unexpected reply-to %v", got)
	}
	if len(client.input.EmailTags) != 1 || aws.ToString(client.input.EmailTags[0].Value) != CategoryRescheduleNotice {
		t.Errorf("expected category tag, got %+v", client.input.EmailTags)
	}
	if client.input.Content.Simple.Body.Html != nil {
		t.Error("html body should be omitted when empty")
	}
}

func TestSendGridSender_BuildMessage(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{APIKey: "k", FromEmail: "noreply@smiledental.ph"}, nil)

	m := sender.buildMessage(EmailMessage{
		To:       "ana@gmail.com",
		ReplyTo:  "frontdesk@smiledental.ph",
		Subject:  "Appointment request received",
		Body:     "plain",
		Category: CategoryBookingReceived,
	})
	if m.ReplyTo == nil || m.ReplyTo.Address != "frontdesk@smiledental.ph" {
		t.Errorf("unexpected reply-to %+v", m.ReplyTo)
	}
	if len(m.Categories) != 1 || m.Categories[0] != CategoryBookingReceived {
		t.Errorf("unexpected categories %v", m.Categories)
	}
	if m.From.Name != "Dental Clinic" {
		t.Errorf("unexpected from name %q", m.From.Name)
	}

	plain := sender.buildMessage(EmailMessage{To: "ana@gmail.com", Body: "plain"})
	if plain.ReplyTo != nil || len(plain.Categories) != 0 {
		t.Errorf("reply-to and categories should be unset: %+v", plain)
	}
}

func TestSESSender_SendError(t *testing.T) {
	sender := NewSESSender(&fakeSES{err: errors.New("throttled")}, SESConfig{}, nil)
	if err := sender.Send(context.Background(), EmailMessage{To: "ana@gmail.com"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewSender_ProviderSelection(t *testing.T) {
	if _, ok := NewSender(SenderConfig{Provider: "sendgrid", SendGrid: SendGridConfig{APIKey: "k"}}, nil).(*SendGridSender); !ok {
		t.Error("expected sendgrid sender")
	}
	if _, ok := NewSender(SenderConfig{Provider: "SES", SESClient: &fakeSES{}}, nil).(*SESSender); !ok {
		t.Error("expected SES sender")
	}
	if _, ok := NewSender(SenderConfig{Provider: "sendgrid"}, nil).(*StubEmailSender); !ok {
		t.Error("expected stub fallback without API key")
	}
	if _, ok := NewSender(SenderConfig{Provider: "ses"}, nil).(*StubEmailSender); !ok {
		t.Error("expected stub fallback without SES client")
	}
	if _, ok := NewSender(SenderConfig{}, nil).(*StubEmailSender); !ok {
		t.Error("expected stub sender by default")
	}
}
