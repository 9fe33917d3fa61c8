package mailer

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

// Mailer delivers plain-text mail. Delivery is best effort; callers decide
// whether a send failure is fatal for their flow.
type Mailer interface {
	Send(to, subject, body string) error
}

// SMTPMailer sends mail through a configured SMTP relay
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTP creates a mailer for the given relay
func NewSMTP(host string, port int, user, password, from string) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(host, port, user, password),
		from:   from,
	}
}

func (m *SMTPMailer) Send(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("smtp send to %s failed: %w", to, err)
	}
	return nil
}

// Noop discards mail; used in tests and local development without a relay
type Noop struct{}

func (Noop) Send(to, subject, body string) error { return nil }
