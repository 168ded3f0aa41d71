package notification

import (
	"context"
	"fmt"
	"net/smtp"
)

// EmailConfig holds SMTP configuration.
type EmailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	FromName string
}

// EmailDispatcher delivers one-time codes over SMTP.
type EmailDispatcher struct {
	config EmailConfig
}

// NewEmailDispatcher creates an email dispatcher.
func NewEmailDispatcher(config EmailConfig) *EmailDispatcher {
	return &EmailDispatcher{config: config}
}

// Send delivers the code to the given email address.
func (s *EmailDispatcher) Send(_ context.Context, to, code string) error {
	subject := "Your Security Code"
	body := fmt.Sprintf(`<html><body>
		<h2>Your Security Code</h2>
		<p>You have requested an operation that requires additional authentication.</p>
		<p>Your verification code is:</p>
		<p><strong>%s</strong></p>
		<p>This code expires in 10 minutes.</p>
		<p>If you didn't request it, ignore this email.</p>
	</body></html>`, code)
	return s.sendEmail(to, subject, body)
}

func (s *EmailDispatcher) sendEmail(to, subject, body string) error {
	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		from, to, subject, body)

	auth := smtp.PlainAuth("", s.config.User, s.config.Password, s.config.Host)
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	return smtp.SendMail(addr, auth, s.config.From, []string{to}, []byte(msg))
}
