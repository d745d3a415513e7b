// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package client is a Go client for the VoteDesk API.

	c := client.New("http://localhost:3318", nil, sess)
	polls, err := c.ListPolls(ctx)

The bearer token is read from the TokenSource on every call, so a
session.Store can be swapped between admin and anonymous use without
rebuilding the client.

# Errors

Responses map onto typed errors:

  - ErrNotFound, ErrUnauthorized, ErrForbidden, ErrConflict (errors.Is)
  - ErrDuplicateVote from CastVote
  - *ValidationError with per-field messages
  - *VerificationError from StartVerification and VerifyCode
  - *NetworkError for transport failures and unexpected statuses

Calls are never retried.
*/
package client
