// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package mailer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/dustin/go-humanize"
	"gopkg.in/gomail.v2"
)

// ErrNotConfigured is returned by LoadConfig when SMTP_HOST is unset.
var ErrNotConfigured = errors.New("SMTP_HOST not set")

// Config holds SMTP settings read from the environment.
type Config struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM" envDefault:"votedesk@localhost"`
}

// LoadConfig reads SMTP_* variables. Returns ErrNotConfigured when no host
// is set so callers can fall back to another sender.
func LoadConfig() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse SMTP settings: %w", err)
	}
	if cfg.Host == "" {
		return Config{}, ErrNotConfigured
	}
	if cfg.Port <= 0 {
		return Config{}, fmt.Errorf("invalid SMTP_PORT %d", cfg.Port)
	}
	return cfg, nil
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer sends verification codes by email.
type Mailer struct {
	from   string
	dialer dialer
	now    func() time.Time
}

func New(cfg Config) *Mailer {
	return &Mailer{
		from:   cfg.From,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		now:    time.Now,
	}
}

// Send mails code to destination.
func (m *Mailer) Send(ctx context.Context, destination, code string, expiresAt time.Time) error {
	if destination == "" {
		return fmt.Errorf("no recipient specified")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", destination)
	msg.SetHeader("Subject", "Your voting code: "+code)
	msg.SetBody("text/plain", body(code, m.now(), expiresAt))

	return m.dialer.DialAndSend(msg)
}

func body(code string, now, expiresAt time.Time) string {
	return fmt.Sprintf(
		"Your verification code is %s.\n\nIt expires %s. If you did not request it, ignore this email.\n",
		code,
		humanize.RelTime(expiresAt, now, "ago", "from now"),
	)
}
