// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package challenge

import (
	"context"
	"log/slog"
	"time"
)

// LogSender writes codes to the structured log instead of delivering them.
// Used for SMS until a gateway is configured.
type LogSender struct {
	Method string
}

func (l LogSender) Send(ctx context.Context, destination, code string, expiresAt time.Time) error {
	slog.InfoContext(ctx, "Verification code issued",
		"method", l.Method,
		"destination", mask(destination),
		"code", code,
		"expires_at", expiresAt)
	return nil
}

// mask keeps the last four characters of destination.
func mask(destination string) string {
	r := []rune(destination)
	if len(r) <= 4 {
		return "****"
	}
	for i := range r[:len(r)-4] {
		r[i] = '*'
	}
	return string(r)
}
