// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package challenge issues and verifies one-time codes that gate vote casting.

# Flow

	Start(pollID, "email", "a@b.co")  → code mailed, challenge stored (argon2 hash)
	Verify(challengeID, "123456")     → vote ticket JWT

The ticket's subject is a salted hash of the destination, so the same
address always maps to the same voter and can vote once per poll. The
ticket's poll claim limits it to the poll the challenge was started for.

# Limits

Codes are 6 digits and expire after CodeTTL (120s by default). Five wrong
codes lock the challenge. A challenge verifies at most once.

Face verification has no server-side counterpart; Start rejects it with
ErrUnsupportedMethod.
*/
package challenge
