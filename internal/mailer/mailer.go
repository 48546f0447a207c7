// Package mailer delivers transactional email. The auth flow sends the
// temporary password before mutating any state, so a failed send leaves no
// orphaned credentials.
package mailer

import (
	"fmt"
	"net/smtp"
)

// Sender accepts a recipient address and a message body.
type Sender interface {
	Send(to, subject, body string) error
}

// SMTPSender delivers mail over plain SMTP (Mailpit in development).
type SMTPSender struct {
	Host string
	Port int
	From string
}

// NewSMTPSender constructs an SMTPSender.
func NewSMTPSender(host string, port int, from string) *SMTPSender {
	return &SMTPSender{Host: host, Port: port, From: from}
}

// Send delivers one message.
func (s *SMTPSender) Send(to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", s.Host, s.Port)
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", s.From, to, subject, body)
	if err := smtp.SendMail(addr, nil, s.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("mailer: send: %w", err)
	}
	return nil
}
