// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"fmt"

	"github.com/matthewhartstonge/argon2"
)

// Verification codes live for minutes, so a lighter cost than the
// password defaults is enough.
var codeHasher = func() argon2.Config {
	cfg := argon2.DefaultConfig()
	cfg.TimeCost = 1
	cfg.MemoryCost = 16 * 1024
	return cfg
}()

// HashCode returns the encoded argon2id hash of a verification code
func HashCode(code string) (string, error) {
	encoded, err := codeHasher.HashEncoded([]byte(code))
	if err != nil {
		return "", fmt.Errorf("failed to hash code: %w", err)
	}
	return string(encoded), nil
}

// VerifyCode reports whether code matches an encoded hash from HashCode
func VerifyCode(code, encoded string) (bool, error) {
	ok, err := argon2.VerifyEncoded([]byte(code), []byte(encoded))
	if err != nil {
		return false, fmt.Errorf("failed to verify code: %w", err)
	}
	return ok, nil
}
