// Package mailx provides a small outbound-mail abstraction so services
// can send messages without caring about the delivery mechanism.
package mailx

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/verdantlabs/sprout/pkg/slogx"
)

// Mailer delivers a single message to a single recipient.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string, html bool) error
}

// SMTPConfig holds connection details for an SMTP relay.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer sends mail through a plain SMTP relay with AUTH PLAIN.
type SMTPMailer struct {
	cfg SMTPConfig
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string, html bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	contentType := "text/plain; charset=\"utf-8\""
	if html {
		contentType = "text/html; charset=\"utf-8\""
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: %s\r\n", contentType)
	fmt.Fprintf(&msg, "\r\n%s\r\n", body)

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)

	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// DiscardMailer logs messages instead of delivering them. Useful for
// local development where no relay is configured.
type DiscardMailer struct{}

func (DiscardMailer) Send(ctx context.Context, to, subject, _ string, _ bool) error {
	slogx.FromContext(ctx).Info("mail discarded", "to", to, "subject", subject)
	return nil
}
