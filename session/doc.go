// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package session is the single place a client keeps its bearer token.
// Components read the token and decoded claims from a Store and subscribe
// to it to react to sign-in and sign-out. A Store is a client.TokenSource.
package session
