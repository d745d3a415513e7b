// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens SQL connections and creates the schema.

# Connections

Open supports PostgreSQL (lib/pq) and SQLite (modernc.org/sqlite):

	conn, err := db.Open("sqlite", "file:votedesk.db")
	conn, err := db.Open("postgres", "postgres://...")

SQLite connections are limited to one open connection.

# Schema Creation

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

  - poll: question and timestamps
  - poll_option: label, display position, vote counter
  - ballot: one row per voter identity per poll
  - challenge: verification code hashes with expiry and attempts

# Relationships

	poll 1──* poll_option
	poll 1──* ballot
	poll_option 1──* ballot
	poll 1──* challenge

Foreign keys declare ON DELETE CASCADE; the store also deletes dependent
rows explicitly because SQLite only enforces foreign keys when enabled per
connection.
*/
package db
