package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/wolfman30/dentalbook/pkg/logging"
)

// EmailSender delivers one message through a provider.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// Categories tag each message so provider dashboards can split
// patient-facing mail from front-desk alerts.
const (
	CategoryBookingReceived  = "booking_received"
	CategoryBookingAlert     = "booking_alert"
	CategoryRescheduleNotice = "reschedule_notice"
)

// EmailMessage is one outbound email. ReplyTo routes patient replies to the
// clinic inbox instead of the no-reply sender.
type EmailMessage struct {
	To          string
	ToName      string
	ReplyTo     string
	ReplyToName string
	Subject     string
	Body        string
	HTML        string
	Category    string
}

// SendGridSender sends through the SendGrid v3 mail API.
type SendGridSender struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	logger    *logging.Logger
}

// SendGridConfig holds configuration for SendGrid.
type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// NewSendGridSender returns nil without an API key.
func NewSendGridSender(cfg SendGridConfig, logger *logging.Logger) *SendGridSender {
	if cfg.APIKey == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.FromName == "" {
		cfg.FromName = "Dental Clinic"
	}
	return &SendGridSender{
		client:    sendgrid.NewSendClient(cfg.APIKey),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		logger:    logger,
	}
}

func (s *SendGridSender) Send(ctx context.Context, msg EmailMessage) error {
	if s.client == nil {
		return fmt.Errorf("notify: sendgrid client not configured")
	}

	response, err := s.client.SendWithContext(ctx, s.buildMessage(msg))
	if err != nil {
		s.logger.Error("notify: sendgrid send failed", "error", err, "to", msg.To, "category", msg.Category)
		return fmt.Errorf("notify: sendgrid send failed: %w", err)
	}

	if response.StatusCode >= 400 {
		s.logger.Error("notify: sendgrid rejected message", "status", response.StatusCode, "body", response.Body, "to", msg.To)
		return fmt.Errorf("notify: sendgrid returned status %d", response.StatusCode)
	}

	s.logger.Info("notify: email sent via sendgrid", "to", msg.To, "category", msg.Category, "status", response.StatusCode)
	return nil
}

func (s *SendGridSender) buildMessage(msg EmailMessage) *mail.SGMailV3 {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(msg.ToName, msg.To)

	html := msg.HTML
	if html == "" {
		html = msg.Body
	}
	message := mail.NewSingleEmail(from, msg.Subject, to, msg.Body, html)
	if msg.ReplyTo != "" {
		message.SetReplyTo(mail.NewEmail(msg.ReplyToName, msg.ReplyTo))
	}
	if msg.Category != "" {
		message.AddCategories(msg.Category)
	}
	return message
}

// Provider names accepted by NewSender.
const (
	ProviderSendGrid = "sendgrid"
	ProviderSES      = "ses"
	ProviderStub     = "stub"
)

// SenderConfig selects and configures the outbound email provider.
type SenderConfig struct {
	Provider  string
	SendGrid  SendGridConfig
	SES       SESConfig
	SESClient SESAPI
}

// NewSender picks the provider named in cfg. A provider that cannot be
// built (missing API key or client) falls back to the stub sender so booking
// never fails on email configuration.
func NewSender(cfg SenderConfig, logger *logging.Logger) EmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderSendGrid:
		if s := NewSendGridSender(cfg.SendGrid, logger); s != nil {
			return s
		}
		logger.Warn("notify: sendgrid selected without API key, using stub sender")
	case ProviderSES:
		if s := NewSESSender(cfg.SESClient, cfg.SES, logger); s != nil {
			return s
		}
		logger.Warn("notify: ses selected without client, using stub sender")
	}
	return NewStubEmailSender(logger)
}

// StubEmailSender logs messages instead of sending them. It backs local
// development and EMAIL_PROVIDER=stub.
type StubEmailSender struct {
	logger *logging.Logger
}

func NewStubEmailSender(logger *logging.Logger) *StubEmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubEmailSender{logger: logger}
}

func (s *StubEmailSender) Send(ctx context.Context, msg EmailMessage) error {
	s.logger.Info("notify: email not sent (stub provider)",
		"to", msg.To,
		"subject", msg.Subject,
		"category", msg.Category,
		"reply_to", msg.ReplyTo,
	)
	return nil
}
