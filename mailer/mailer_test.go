// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package mailer

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"gopkg.in/gomail.v2"
)

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m...)
	return nil
}

func TestLoadConfig(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		t.Setenv("SMTP_HOST", "")

		if _, err := LoadConfig(); !errors.Is(err, ErrNotConfigured) {
			t.Errorf("Expected ErrNotConfigured, got %v", err)
		}
	})

	t.Run("defaults", func(t *testing.T) {
		t.Setenv("SMTP_HOST", "smtp.example.com")
		// Setenv registers the restore; unset so defaults apply
		t.Setenv("SMTP_PORT", "")
		t.Setenv("SMTP_FROM", "")
		os.Unsetenv("SMTP_PORT")
		os.Unsetenv("SMTP_FROM")

		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Port != 587 || cfg.From != "votedesk@localhost" {
			t.Errorf("Unexpected defaults %+v", cfg)
		}
	})

	t.Run("explicit", func(t *testing.T) {
		t.Setenv("SMTP_HOST", "smtp.example.com")
		t.Setenv("SMTP_PORT", "2525")
		t.Setenv("SMTP_USERNAME", "user")
		t.Setenv("SMTP_PASSWORD", "pass")
		t.Setenv("SMTP_FROM", "polls@example.com")

		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		want := Config{Host: "smtp.example.com", Port: 2525, Username: "user", Password: "pass", From: "polls@example.com"}
		if cfg != want {
			t.Errorf("Got %+v, want %+v", cfg, want)
		}
	})

	t.Run("bad port", func(t *testing.T) {
		t.Setenv("SMTP_HOST", "smtp.example.com")
		t.Setenv("SMTP_PORT", "abc")

		if _, err := LoadConfig(); err == nil {
			t.Error("Expected error for non-numeric port")
		}
	})
}

func TestSend(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	fake := &fakeDialer{}
	m := &Mailer{from: "polls@example.com", dialer: fake, now: func() time.Time { return now }}

	err := m.Send(context.Background(), "voter@example.com", "123456", now.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if len(fake.sent) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(fake.sent))
	}
	msg := fake.sent[0]
	if got := msg.GetHeader("To"); len(got) != 1 || got[0] != "voter@example.com" {
		t.Errorf("To = %v", got)
	}

	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}
	if !strings.Contains(buf.String(), "123456") {
		t.Error("Message does not contain the code")
	}
	if !strings.Contains(buf.String(), "2 minutes from now") {
		t.Errorf("Message missing expiry: %s", buf.String())
	}
}

func TestSendErrors(t *testing.T) {
	fake := &fakeDialer{err: errors.New("connection refused")}
	m := &Mailer{from: "x@y.co", dialer: fake, now: time.Now}

	if err := m.Send(context.Background(), "", "123456", time.Now()); err == nil {
		t.Error("Expected error for empty recipient")
	}
	if err := m.Send(context.Background(), "a@b.co", "123456", time.Now()); err == nil {
		t.Error("Expected dialer error")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.Send(ctx, "a@b.co", "123456", time.Now()); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
