// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package challenge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/danielhkuo/votedesk/auth"
	"github.com/danielhkuo/votedesk/models"
	"github.com/danielhkuo/votedesk/store"
	"github.com/danielhkuo/votedesk/validation"
)

var (
	ErrUnsupportedMethod = errors.New("verification method not supported by the server")
	ErrInvalidCode       = errors.New("code must be exactly 6 digits")
	ErrChallengeNotFound = store.ErrChallengeNotFound
	ErrChallengeExpired  = errors.New("challenge expired")
	ErrChallengeUsed     = errors.New("challenge already used")
	ErrTooManyAttempts   = errors.New("too many attempts")
	ErrCodeMismatch      = errors.New("code does not match")
)

// Defaults
const (
	DefaultCodeTTL     = 120 * time.Second
	DefaultTicketTTL   = 10 * time.Minute
	DefaultMaxAttempts = 5
)

// Sender delivers a verification code to a destination.
type Sender interface {
	Send(ctx context.Context, destination, code string, expiresAt time.Time) error
}

// Config controls code and ticket lifetimes.
type Config struct {
	IdentitySalt string
	CodeTTL      time.Duration
	TicketTTL    time.Duration
	MaxAttempts  int
}

// Ticket is a short-lived voter token bound to one poll.
type Ticket struct {
	Token     string
	PollID    string
	ExpiresAt time.Time
}

// Service issues and verifies challenge codes.
type Service struct {
	store   store.Store
	tokens  auth.JWTAuthenticator
	senders map[string]Sender
	cfg     Config

	// now is replaced in tests
	now func() time.Time
}

func NewService(st store.Store, tokens auth.JWTAuthenticator, senders map[string]Sender, cfg Config) *Service {
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = DefaultCodeTTL
	}
	if cfg.TicketTTL <= 0 {
		cfg.TicketTTL = DefaultTicketTTL
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}

	return &Service{
		store:   st,
		tokens:  tokens,
		senders: senders,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Start creates a challenge for pollID and sends its code to destination.
func (s *Service) Start(ctx context.Context, pollID, method, destination string) (*models.Challenge, error) {
	if method == models.MethodFace {
		return nil, ErrUnsupportedMethod
	}
	if err := validation.Destination(method, destination); err != nil {
		return nil, err
	}

	sender, ok := s.senders[method]
	if !ok {
		return nil, ErrUnsupportedMethod
	}

	if _, err := s.store.GetPoll(ctx, pollID); err != nil {
		return nil, err
	}

	code, err := auth.GenerateCode(validation.CodeLength)
	if err != nil {
		return nil, err
	}

	hash, err := auth.HashCode(code)
	if err != nil {
		return nil, err
	}

	c, err := s.store.CreateChallenge(ctx, &models.Challenge{
		PollID:      pollID,
		Method:      method,
		Destination: destination,
		CodeHash:    hash,
		ExpiresAt:   s.now().Add(s.cfg.CodeTTL),
	})
	if err != nil {
		return nil, err
	}

	if err := sender.Send(ctx, destination, code, c.ExpiresAt); err != nil {
		return nil, fmt.Errorf("failed to send code: %w", err)
	}

	slog.Info("Verification challenge started", "challenge_id", c.ID, "poll_id", pollID, "method", method)

	return c, nil
}

// Verify checks code against the challenge and, on success, consumes it and
// issues a vote ticket. Every well-formed code counts toward the attempt
// limit.
func (s *Service) Verify(ctx context.Context, challengeID, code string) (*Ticket, error) {
	if !validation.Code(code) {
		return nil, ErrInvalidCode
	}

	c, err := s.store.GetChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	switch {
	case c.ConsumedAt != nil:
		return nil, ErrChallengeUsed
	case !s.now().Before(c.ExpiresAt):
		return nil, ErrChallengeExpired
	case c.Attempts >= s.cfg.MaxAttempts:
		return nil, ErrTooManyAttempts
	}

	// Claimed before comparing; the store enforces the limit
	attempts, err := s.store.ClaimChallengeAttempt(ctx, c.ID, s.cfg.MaxAttempts)
	switch {
	case errors.Is(err, store.ErrAttemptsExhausted):
		return nil, ErrTooManyAttempts
	case errors.Is(err, store.ErrChallengeConsumed):
		return nil, ErrChallengeUsed
	case err != nil:
		return nil, err
	}

	ok, err := auth.VerifyCode(code, c.CodeHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		slog.Warn("Verification code mismatch", "challenge_id", c.ID, "attempts", attempts)
		return nil, ErrCodeMismatch
	}

	if err := s.store.ConsumeChallenge(ctx, c.ID); err != nil {
		if errors.Is(err, store.ErrChallengeConsumed) {
			return nil, ErrChallengeUsed
		}
		return nil, err
	}

	voterID := auth.HashIdentity(c.Destination, s.cfg.IdentitySalt)
	token, expiresAt, err := s.tokens.Issue(voterID, models.RoleVoter, c.PollID, s.cfg.TicketTTL)
	if err != nil {
		return nil, err
	}

	return &Ticket{Token: token, PollID: c.PollID, ExpiresAt: expiresAt}, nil
}

// Sweep deletes expired challenges.
func (s *Service) Sweep(ctx context.Context) (int64, error) {
	return s.store.DeleteExpiredChallenges(ctx, s.now())
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := s.Sweep(ctx)
			if err != nil {
				slog.Error("Failed to sweep challenges", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("Swept expired challenges", "count", n)
			}
		}
	}
}
