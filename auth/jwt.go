// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carried by every token the API issues.
// PollID is set on vote tickets and binds them to a single poll.
type Claims struct {
	Role   string `json:"role"`
	PollID string `json:"poll,omitempty"`
	jwt.RegisteredClaims
}

// JWTAuthenticator issues and validates HS256 tokens.
type JWTAuthenticator struct {
	issuer string
	secret []byte
}

// NewJWTAuthenticator creates a new JWTAuthenticator instance.
// The issuer doubles as the audience.
func NewJWTAuthenticator(issuer, secret string) JWTAuthenticator {
	return JWTAuthenticator{
		issuer: issuer,
		secret: []byte(secret),
	}
}

// Issue signs a token for subject with the given role and lifetime.
func (a JWTAuthenticator) Issue(subject, role, pollID string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)

	jti, err := GenerateID(16)
	if err != nil {
		return "", time.Time{}, err
	}

	claims := Claims{
		Role:   role,
		PollID: pollID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   subject,
			Issuer:    a.issuer,
			Audience:  jwt.ClaimStrings{a.issuer},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenStr, err := token.SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenStr, expiresAt, nil
}

// Validate parses tokenString and returns its claims.
// Expiry, audience, issuer, and signing method are all enforced.
func (a JWTAuthenticator) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}

		return a.secret, nil
	},
		jwt.WithExpirationRequired(),
		jwt.WithAudience(a.issuer),
		jwt.WithIssuer(a.issuer),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
