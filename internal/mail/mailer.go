package mail

import (
	"context"
	"fmt"
	"log/slog"

	gomail "github.com/wneessen/go-mail"

	"hireflow/internal/common"
	"hireflow/internal/config"
)

type Attachment struct {
	Filename string
	Path     string
}

type Message struct {
	To          string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Mailer sends one message synchronously. There is no retry or queueing.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
	Sender() string
	Enabled() bool
}

// NewMailer returns an SMTP mailer when SMTP is configured and an
// unavailable mailer otherwise.
func NewMailer(cfg config.SMTPConfig, logger *slog.Logger) Mailer {
	if !cfg.Enabled() {
		logger.Warn("smtp not configured; workflow emails are disabled")
		return unavailableMailer{}
	}
	return &SMTPMailer{cfg: cfg, logger: logger}
}

type SMTPMailer struct {
	cfg    config.SMTPConfig
	logger *slog.Logger
}

func (m *SMTPMailer) Sender() string { return m.cfg.From }

func (m *SMTPMailer) Enabled() bool { return true }

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	out := gomail.NewMsg()
	if err := out.From(m.cfg.From); err != nil {
		return common.NewError(common.CodeInternal, "invalid sender address", err)
	}
	if err := out.To(msg.To); err != nil {
		return common.NewValidationError("invalid recipient", map[string]string{"email": "recipient address is invalid"})
	}
	out.Subject(msg.Subject)
	out.SetDate()
	out.SetMessageID()
	out.SetBodyString(gomail.TypeTextPlain, msg.Body)
	for _, a := range msg.Attachments {
		out.AttachFile(a.Path, gomail.WithFileName(a.Filename))
	}

	opts := []gomail.Option{
		gomail.WithPort(m.cfg.Port),
		gomail.WithTimeout(m.cfg.Timeout),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(m.cfg.Username),
			gomail.WithPassword(m.cfg.Password),
		)
	}
	client, err := gomail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return common.NewError(common.CodeTransportUnavailable, "email transport unavailable", err)
	}
	if err := client.DialAndSendWithContext(ctx, out); err != nil {
		m.logger.Error("email send failed", slog.String("to", msg.To), slog.String("subject", msg.Subject), slog.String("error", err.Error()))
		return common.NewError(common.CodeTransportUnavailable, "failed to send email", fmt.Errorf("smtp %s: %w", m.cfg.Host, err))
	}
	return nil
}

type unavailableMailer struct{}

func (unavailableMailer) Send(ctx context.Context, msg Message) error {
	return common.NewError(common.CodeTransportUnavailable, "email transport is not configured", nil)
}

func (unavailableMailer) Sender() string { return "" }

func (unavailableMailer) Enabled() bool { return false }
