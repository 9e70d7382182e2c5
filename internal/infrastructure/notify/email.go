package notify

import (
	"context"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// Email sends HTML mail over SMTP.
type Email struct {
	from string
	send func(m *gomail.Message) error
	log  logrus.FieldLogger
}

func NewEmail(host string, port int, user, pass, from string, log logrus.FieldLogger) *Email {
	e := &Email{from: from, log: log.WithField("channel", "email")}
	if host != "" {
		d := gomail.NewDialer(host, port, user, pass)
		e.send = func(m *gomail.Message) error { return d.DialAndSend(m) }
	}
	if e.from == "" {
		e.from = user
	}
	return e
}

// SendEmail delivers htmlBody as a text/html part.
func (e *Email) SendEmail(_ context.Context, to, subject, htmlBody string) error {
	if e.send == nil || e.from == "" {
		return ErrNotConfigured
	}
	m := gomail.NewMessage()
	m.SetHeader("From", e.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)
	if err := e.send(m); err != nil {
		return err
	}
	e.log.WithField("subject", subject).Info("email sent")
	return nil
}
