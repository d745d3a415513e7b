// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the VoteDesk API.

# Route Registration

NewRouter builds a chi router over the running services:

	handler := router.NewRouter(router.Services{
		Store:      st,
		Hub:        events,
		Challenges: challenges,
		Tokens:     tokens,
		AdminKey:   cfg.AdminKey,
	})

Every request passes through request ID, panic recovery, access logging, and
CORS middleware.

# Endpoints

Health:

	GET /health

Sessions (public):

	POST /api/auth/admin          - Exchange admin key for a token
	POST /api/verification/start  - Send a verification code
	POST /api/verification/verify - Exchange a code for a vote ticket

Polls (public):

	GET /api/polls              - List polls with counts
	GET /api/polls/{id}         - Poll detail
	GET /api/polls/{id}/summary - Computed summary
	GET /api/polls/events       - Websocket change feed

Poll management (admin bearer token):

	POST   /api/polls/create - Create poll
	PUT    /api/polls/{id}   - Edit question and options
	DELETE /api/polls/{id}   - Delete poll and its votes

Voting (admin token or vote ticket):

	POST /api/polls/vote - Cast one vote
*/
package router
