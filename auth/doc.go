// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides identity, token, and code utilities.

# Admin Key

Admin operations are unlocked by exchanging the configured admin key for an
admin token. The key is compared in constant time:

	err := auth.ValidateAdminKey(providedKey, cfg.AdminKey)

# Tokens

JWTAuthenticator signs HS256 tokens whose issuer is also their audience:

	jwtAuth := auth.NewJWTAuthenticator("votedesk", cfg.JWTSecret)
	token, expiresAt, err := jwtAuth.Issue(subject, models.RoleVoter, pollID, ttl)
	claims, err := jwtAuth.Validate(token)

Admin tokens carry role "admin". Vote tickets carry role "voter", the poll
they were issued for, and the hashed voter identity as subject.

# Voter Identities

Verified destinations never reach storage in clear text:

	voterID := auth.HashIdentity("voter@example.com", cfg.IdentitySalt)

Returns 16 bytes (32 hex chars) of HMAC-SHA256 over the normalized address.

# Verification Codes

Codes are random digits, stored as argon2id hashes:

	code, err := auth.GenerateCode(6)
	hash, err := auth.HashCode(code)
	ok, err := auth.VerifyCode(input, hash)

# ID Generation

Random hex IDs for database records:

	id, err := auth.GenerateID(16)  // 32 hex characters
*/
package auth
