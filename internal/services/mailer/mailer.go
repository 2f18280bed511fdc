// Package mailer sends transactional email over SMTP
package mailer

import (
	"fmt"

	"github.com/rsaiteja/codegpt/internal/config"
	"gopkg.in/gomail.v2"
)

// Sender dispatches a single email. Implemented by Mailer; tests substitute
// a fake to observe or fail sends.
type Sender interface {
	Send(to, subject, htmlBody string) error
}

// Mailer sends email through an SMTP relay
type Mailer struct {
	dialer *gomail.Dialer
	from   string
}

// New creates a Mailer from SMTP configuration
func New(cfg *config.Config) *Mailer {
	return &Mailer{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
		from:   cfg.SMTPFrom,
	}
}

// Send dispatches a single HTML email synchronously. A failure surfaces to
// the caller; there is no automatic retry.
func (m *Mailer) Send(to, subject, htmlBody string) error {
	if to == "" {
		return fmt.Errorf("no recipient specified")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
