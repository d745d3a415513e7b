// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/danielhkuo/votedesk/auth"
	"github.com/danielhkuo/votedesk/models"
)

var ErrMalformedToken = errors.New("malformed token")

// Listener is called after every change with the new token, or "" after
// Clear. claims is nil when signed out.
type Listener func(token string, claims *auth.Claims)

// Store holds the current bearer token and its decoded claims.
// Claims are decoded without verifying the signature; the server does that.
type Store struct {
	mu        sync.RWMutex
	token     string
	claims    *auth.Claims
	listeners map[int]Listener
	nextID    int

	// now is replaced in tests
	now func() time.Time
}

func New() *Store {
	return &Store{
		listeners: make(map[int]Listener),
		now:       time.Now,
	}
}

// Set replaces the current token. The previous token is kept when token
// cannot be decoded.
func (s *Store) Set(token string) error {
	claims := &auth.Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	s.mu.Lock()
	s.token = token
	s.claims = claims
	s.mu.Unlock()

	s.notify(token, claims)
	return nil
}

// Clear signs out.
func (s *Store) Clear() {
	s.mu.Lock()
	s.token = ""
	s.claims = nil
	s.mu.Unlock()

	s.notify("", nil)
}

// Token returns the current token, or "" when signed out or expired.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.claims == nil || s.expired(s.claims) {
		return ""
	}
	return s.token
}

// Claims returns a copy of the current claims.
func (s *Store) Claims() (auth.Claims, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.claims == nil || s.expired(s.claims) {
		return auth.Claims{}, false
	}
	return *s.claims, true
}

func (s *Store) IsAdmin() bool {
	claims, ok := s.Claims()
	return ok && claims.Role == models.RoleAdmin
}

// Subscribe registers fn for change notifications and returns a function
// that removes it.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store) notify(token string, claims *auth.Claims) {
	s.mu.RLock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.RUnlock()

	for _, fn := range listeners {
		var c *auth.Claims
		if claims != nil {
			cp := *claims
			c = &cp
		}
		fn(token, c)
	}
}

func (s *Store) expired(claims *auth.Claims) bool {
	return claims.ExpiresAt != nil && !s.now().Before(claims.ExpiresAt.Time)
}
