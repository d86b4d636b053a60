package email

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"appraisal/internal/platform/config"
)

func TestNewReturnsNoopWhenDisabled(t *testing.T) {
	mailer := New(config.Config{EmailEnabled: false, SMTPHost: "smtp.example.com"})
	if _, ok := mailer.(noopMailer); !ok {
		t.Fatalf("expected noop mailer, got %T", mailer)
	}
	if err := mailer.Send(context.Background(), "a@example.com", "b@example.com", "s", "b"); err != nil {
		t.Fatalf("noop send: %v", err)
	}
}

func TestNewReturnsSMTPMailer(t *testing.T) {
	mailer := New(config.Config{EmailEnabled: true, SMTPHost: "smtp.example.com", SMTPPort: 587})
	if _, ok := mailer.(*smtpMailer); !ok {
		t.Fatalf("expected smtp mailer, got %T", mailer)
	}
}

func TestBuildMessageHeaders(t *testing.T) {
	msg := buildMessage("hr@example.com", "worker@example.com", "Review assigned", "Your review is open.")
	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		t.Fatalf("write message: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"From: hr@example.com", "To: worker@example.com", "Subject: Review assigned", "Your review is open."} {
		if !strings.Contains(out, want) {
			t.Fatalf("message missing %q:\n%s", want, out)
		}
	}
}
