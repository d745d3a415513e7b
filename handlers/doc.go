// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the VoteDesk API.

# Handler Types

Each handler is a struct over its dependencies:

  - PollHandler: poll list, detail, create, edit, delete
  - VotingHandler: vote casting
  - ResultsHandler: computed poll summaries
  - VerificationHandler: challenge start and code verification
  - AuthHandler: admin key exchange

Handlers are created via constructor functions:

	pollHandler := handlers.NewPollHandler(st, hub)

Mutating handlers notify a Publisher after each success so that connected
dashboards can refresh. A nil Publisher is allowed.

# Authentication

Admin routes and vote casting sit behind middleware.RequireRole; handlers read
the verified claims with middleware.ClaimsFromContext. The token subject is
the voter identity, so each identity may vote once per poll:

	POST /api/auth/admin          → AdminToken (admin key for a bearer token)
	POST /api/verification/start  → StartVerification (sends a 6 digit code)
	POST /api/verification/verify → VerifyCode (code for a vote ticket)
	POST /api/polls/vote          → CastVote (admin token or ticket)

# Errors

Validation failures return 400 with a per-field map. Missing polls and
options return 404 and repeat votes return 409.
*/
package handlers
