package notification

import (
	"log/slog"
	"time"

	mail "github.com/go-mail/mail"
)

// EmailSender delivers HTML mail over SMTP. It satisfies the auth service's
// Mailer interface.
type EmailSender struct {
	dialer *mail.Dialer
	from   string
	logger *slog.Logger
}

// NewEmailSender creates an SMTP-backed sender.
func NewEmailSender(host string, port int, username, password, from string, logger *slog.Logger) *EmailSender {
	dialer := mail.NewDialer(host, port, username, password)
	dialer.Timeout = 30 * time.Second
	dialer.StartTLSPolicy = mail.OpportunisticStartTLS
	return &EmailSender{dialer: dialer, from: from, logger: logger}
}

// Send delivers a single HTML message.
func (s *EmailSender) Send(to, subject, htmlBody string) error {
	msg := mail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	if err := s.dialer.DialAndSend(msg); err != nil {
		return err
	}
	s.logger.Info("email sent", "to", to, "subject", subject)
	return nil
}
