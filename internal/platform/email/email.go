package email

import (
	"context"
	"crypto/tls"
	"strings"
	"time"

	mail "github.com/go-mail/mail/v2"

	"appraisal/internal/domain/notifications"
	"appraisal/internal/platform/config"
)

type noopMailer struct{}

func (noopMailer) Send(ctx context.Context, from, to, subject, body string) error {
	return nil
}

type smtpMailer struct {
	dialer *mail.Dialer
}

// New returns an SMTP mailer, or a no-op one when email is disabled.
func New(cfg config.Config) notifications.Mailer {
	if !cfg.EmailEnabled || cfg.SMTPHost == "" {
		return noopMailer{}
	}
	d := mail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)
	d.StartTLSPolicy = mail.OpportunisticStartTLS
	d.TLSConfig = &tls.Config{ServerName: cfg.SMTPHost}
	d.Timeout = 10 * time.Second
	return &smtpMailer{dialer: d}
}

func (s *smtpMailer) Send(ctx context.Context, from, to, subject, body string) error {
	if strings.TrimSpace(to) == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.dialer.DialAndSend(buildMessage(from, to, subject, body))
}

func buildMessage(from, to, subject, body string) *mail.Message {
	m := mail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	return m
}
