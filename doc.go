// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the VoteDesk API server.

VoteDesk runs simple single-choice polls. Admins create and edit polls,
voters verify by email or SMS code and cast one vote per poll, and everyone
can read live counts and a computed summary.

# Starting the Server

The server requires environment variables or CLI flags for configuration:

	DATABASE_URL=votedesk.db ADMIN_KEY=... JWT_SECRET=... IDENTITY_SALT=... go run .

Or with flags:

	go run . -p 3318 -t postgres -d "postgres://..."

A .env file in the working directory is loaded first when present.

# Configuration

Required settings:

  - DATABASE_URL (-d): SQLite path, PostgreSQL DSN, or MongoDB URI
  - ADMIN_KEY (-admin-key): exchanged for admin tokens
  - JWT_SECRET (-jwt-secret): token signing secret
  - IDENTITY_SALT (-identity-salt): hashes verified addresses into voter ids

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite, postgres, or mongo (default: sqlite)
  - DATABASE_NAME (-db-name): Mongo database (default: votedesk)
  - CHALLENGE_TTL, TICKET_TTL: code and ticket lifetimes
  - SMTP_HOST, SMTP_PORT, SMTP_USERNAME, SMTP_PASSWORD, SMTP_FROM: email delivery

# Architecture

  - handlers: HTTP request handlers (polls, voting, summary, verification)
  - router: chi route table and middleware chain
  - middleware: logging, recovery, CORS, bearer auth, JSON helpers
  - store: SQL and MongoDB persistence
  - challenge: verification codes and vote tickets
  - hub: websocket change feed
  - summary: results aggregation
  - client, session, flow, booth, dashboard: API consumers

See package documentation for each component.
*/
package main
