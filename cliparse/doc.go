// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Config Fields

  - Port: Server listen port (default: 3318)
  - DatabaseType: sqlite (default), postgres, or mongo
  - DatabaseURL: connection string / DSN (required)
  - DatabaseName: Mongo database name (default: votedesk)
  - AdminKey: key exchanged for admin tokens (required)
  - JWTSecret: token signing secret (required)
  - IdentitySalt: salt for hashing verified destinations (required)
  - ChallengeTTL: verification code lifetime (default: 120s)
  - TicketTTL: vote ticket lifetime (default: 10m)

# Environment Variables

Flags fall back to environment variables:

	PORT           → -p
	DATABASE_TYPE  → -t
	DATABASE_URL   → -d
	DATABASE_NAME  → -db-name
	ADMIN_KEY      → -admin-key
	JWT_SECRET     → -jwt-secret
	IDENTITY_SALT  → -identity-salt
	CHALLENGE_TTL  → -challenge-ttl
	TICKET_TTL     → -ticket-ttl

CLI flags take precedence over environment variables. main loads a .env
file (if present) before parsing, so it feeds the same lookups.
*/
package cliparse
