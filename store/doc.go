// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package store persists polls, ballots, and verification challenges.

Two implementations satisfy Store:

  - SQLStore on PostgreSQL or SQLite (see package db for the schema)
  - MongoStore with options embedded in each poll document

# Vote Counting

CastVote never reads a count and writes it back. SQL increments the column
in place inside a transaction that also inserts the ballot; Mongo uses $inc
on the matched array element. A unique (poll, voter) key rejects a second
ballot with ErrDuplicateVote.

# Editing Options

UpdatePoll diffs the edited list against the stored one with PlanOptions:

	existing: [a:Red(4) b:Green(2)]
	edit:     [{_id:a, option:Crimson}, {option:Yellow}]
	result:   [a:Crimson(4) new:Yellow(0)]   removed: b

Ballots on removed options are deleted so their voters may vote again.
*/
package store
