// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package mailer delivers verification codes over SMTP.
//
// Settings come from SMTP_HOST, SMTP_PORT, SMTP_USERNAME, SMTP_PASSWORD and
// SMTP_FROM. Without SMTP_HOST the server logs email codes instead.
package mailer
