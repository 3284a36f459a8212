package service

import (
	"fmt"
	"log"

	mail "github.com/go-mail/mail/v2"
)

// Mailer sends transactional mail (currently only password resets) over SMTP.
type Mailer struct {
	dialer *mail.Dialer
	from   string
}

func NewMailer(host string, port int, username, password, from string) *Mailer {
	return &Mailer{dialer: mail.NewDialer(host, port, username, password), from: from}
}

// SendPasswordReset mails a reset link carrying the one-hour token. Errors
// are returned to the caller, which logs them without exposing delivery
// detail to the requester.
func (m *Mailer) SendPasswordReset(to, resetURL string) error {
	if m.dialer == nil {
		return fmt.Errorf("mailer not configured")
	}
	msg := mail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Reset your StudyHive password")
	msg.SetBody("text/plain", fmt.Sprintf(
		"A password reset was requested for this address.\n\n"+
			"Open the link below within one hour to choose a new password:\n\n%s\n\n"+
			"If you did not request this, ignore this email.\n", resetURL))
	if err := m.dialer.DialAndSend(msg); err != nil {
		return err
	}
	log.Printf("password reset mail sent to %s", to)
	return nil
}
