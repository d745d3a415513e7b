// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

Types for parsing incoming JSON:

  - CreatePollRequest: question, options ([]string)
  - UpdatePollRequest: question, options (labels or {_id, option} objects)
  - CastVoteRequest: pollId, optionId
  - StartVerificationRequest: pollId, method, destination
  - VerifyCodeRequest: challengeId, code
  - AdminTokenRequest: adminKey

# Response Types

  - Poll: the poll document itself is returned by create, update, and list
  - MessageResponse: message
  - StartVerificationResponse: challengeId, method, expiresAt
  - VerifyCodeResponse: ticket, expiresAt
  - AdminTokenResponse: token, expiresAt
  - ErrorResponse: error, message, fields

# Domain Types

  - Poll: question with ordered options
  - Option: label and vote counter, serialized as {"_id", "option", "votes"}
  - Ballot: one identity's vote on one poll
  - Challenge: verification code awaiting confirmation

# Constants

Roles:

	RoleAdmin = "admin"
	RoleVoter = "voter"

Verification methods:

	MethodOTP   = "otp"
	MethodEmail = "email"
	MethodFace  = "face"
*/
package models
