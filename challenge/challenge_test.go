// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package challenge

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/danielhkuo/votedesk/auth"
	"github.com/danielhkuo/votedesk/models"
	"github.com/danielhkuo/votedesk/store"
	"github.com/danielhkuo/votedesk/testutil"
	"github.com/danielhkuo/votedesk/validation"
)

// captureSender records the last code it was asked to send
type captureSender struct {
	mu    sync.Mutex
	codes map[string]string
	err   error
}

func (c *captureSender) Send(ctx context.Context, destination, code string, expiresAt time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	if c.codes == nil {
		c.codes = map[string]string{}
	}
	c.codes[destination] = code
	return nil
}

func (c *captureSender) code(destination string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.codes[destination]
}

func setup(t *testing.T) (*Service, store.Store, *captureSender, *models.Poll) {
	t.Helper()

	st := testutil.SetupTestStore(t)
	sender := &captureSender{}
	svc := NewService(st, testutil.Authenticator(), map[string]Sender{
		models.MethodEmail: sender,
		models.MethodOTP:   sender,
	}, Config{IdentitySalt: testutil.TestIdentitySalt})

	poll := testutil.CreateTestPoll(t, st, "Q", "A", "B")
	return svc, st, sender, poll
}

// wrongCode returns a well-formed code different from code
func wrongCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

func TestStart(t *testing.T) {
	ctx := context.Background()

	t.Run("email sends a six digit code", func(t *testing.T) {
		svc, st, sender, poll := setup(t)

		c, err := svc.Start(ctx, poll.ID, models.MethodEmail, "voter@example.com")
		if err != nil {
			t.Fatalf("Start failed: %v", err)
		}

		code := sender.code("voter@example.com")
		if !validation.Code(code) {
			t.Errorf("Sent code %q is not 6 digits", code)
		}

		stored, err := st.GetChallenge(ctx, c.ID)
		if err != nil {
			t.Fatalf("GetChallenge failed: %v", err)
		}
		if stored.CodeHash == code {
			t.Error("Code stored in plain text")
		}
		if ttl := time.Until(stored.ExpiresAt); ttl <= 0 || ttl > DefaultCodeTTL {
			t.Errorf("Unexpected TTL %v", ttl)
		}
	})

	t.Run("face is unsupported", func(t *testing.T) {
		svc, _, _, poll := setup(t)

		_, err := svc.Start(ctx, poll.ID, models.MethodFace, "")
		if !errors.Is(err, ErrUnsupportedMethod) {
			t.Errorf("Expected ErrUnsupportedMethod, got %v", err)
		}
	})

	t.Run("bad destination", func(t *testing.T) {
		svc, _, _, poll := setup(t)

		_, err := svc.Start(ctx, poll.ID, models.MethodOTP, "555-1234")
		var verrs validation.Errors
		if !errors.As(err, &verrs) || verrs["destination"] == "" {
			t.Errorf("Expected destination validation error, got %v", err)
		}
	})

	t.Run("unknown poll", func(t *testing.T) {
		svc, _, _, _ := setup(t)

		_, err := svc.Start(ctx, "missing", models.MethodEmail, "voter@example.com")
		if !errors.Is(err, store.ErrPollNotFound) {
			t.Errorf("Expected ErrPollNotFound, got %v", err)
		}
	})

	t.Run("send failure", func(t *testing.T) {
		svc, _, sender, poll := setup(t)
		sender.err = errors.New("smtp down")

		if _, err := svc.Start(ctx, poll.ID, models.MethodEmail, "voter@example.com"); err == nil {
			t.Error("Expected error when delivery fails")
		}
	})
}

func TestVerify(t *testing.T) {
	ctx := context.Background()

	t.Run("correct code issues a ticket", func(t *testing.T) {
		svc, _, sender, poll := setup(t)
		c, _ := svc.Start(ctx, poll.ID, models.MethodEmail, "Voter@Example.com")

		ticket, err := svc.Verify(ctx, c.ID, sender.code("Voter@Example.com"))
		if err != nil {
			t.Fatalf("Verify failed: %v", err)
		}

		claims, err := testutil.Authenticator().Validate(ticket.Token)
		if err != nil {
			t.Fatalf("Ticket invalid: %v", err)
		}
		if claims.Role != models.RoleVoter || claims.PollID != poll.ID {
			t.Errorf("Unexpected claims %+v", claims)
		}
		if claims.Subject != auth.HashIdentity("voter@example.com", testutil.TestIdentitySalt) {
			t.Errorf("Subject is not the hashed destination")
		}
	})

	t.Run("malformed code", func(t *testing.T) {
		svc, st, _, poll := setup(t)
		c, _ := svc.Start(ctx, poll.ID, models.MethodOTP, "+15551234567")

		for _, code := range []string{"12345", "1234567", "12a456", ""} {
			if _, err := svc.Verify(ctx, c.ID, code); !errors.Is(err, ErrInvalidCode) {
				t.Errorf("Verify(%q): expected ErrInvalidCode, got %v", code, err)
			}
		}

		stored, _ := st.GetChallenge(ctx, c.ID)
		if stored.Attempts != 0 {
			t.Errorf("Malformed codes should not count as attempts, got %d", stored.Attempts)
		}
	})

	t.Run("mismatch then lockout", func(t *testing.T) {
		svc, _, sender, poll := setup(t)
		c, _ := svc.Start(ctx, poll.ID, models.MethodOTP, "+15551234567")
		good := sender.code("+15551234567")
		bad := wrongCode(good)

		for i := 0; i < DefaultMaxAttempts; i++ {
			if _, err := svc.Verify(ctx, c.ID, bad); !errors.Is(err, ErrCodeMismatch) {
				t.Fatalf("Attempt %d: expected ErrCodeMismatch, got %v", i+1, err)
			}
		}

		if _, err := svc.Verify(ctx, c.ID, good); !errors.Is(err, ErrTooManyAttempts) {
			t.Errorf("Expected ErrTooManyAttempts, got %v", err)
		}
	})

	t.Run("parallel guesses respect the limit", func(t *testing.T) {
		svc, st, sender, poll := setup(t)
		c, _ := svc.Start(ctx, poll.ID, models.MethodEmail, "voter@example.com")
		bad := wrongCode(sender.code("voter@example.com"))

		var wg sync.WaitGroup
		var mismatches, locked atomic.Int32
		for i := 0; i < 40; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svc.Verify(ctx, c.ID, bad)
				switch {
				case errors.Is(err, ErrCodeMismatch):
					mismatches.Add(1)
				case errors.Is(err, ErrTooManyAttempts):
					locked.Add(1)
				default:
					t.Errorf("Unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()

		if got := mismatches.Load(); got != DefaultMaxAttempts {
			t.Errorf("Compared %d wrong codes, want %d", got, DefaultMaxAttempts)
		}
		if got := locked.Load(); got != 40-DefaultMaxAttempts {
			t.Errorf("Locked out %d guesses, want %d", got, 40-DefaultMaxAttempts)
		}

		stored, _ := st.GetChallenge(ctx, c.ID)
		if stored.Attempts != DefaultMaxAttempts {
			t.Errorf("Stored attempts = %d, want %d", stored.Attempts, DefaultMaxAttempts)
		}
	})

	t.Run("used once", func(t *testing.T) {
		svc, _, sender, poll := setup(t)
		c, _ := svc.Start(ctx, poll.ID, models.MethodEmail, "voter@example.com")
		code := sender.code("voter@example.com")

		if _, err := svc.Verify(ctx, c.ID, code); err != nil {
			t.Fatalf("First verify failed: %v", err)
		}
		if _, err := svc.Verify(ctx, c.ID, code); !errors.Is(err, ErrChallengeUsed) {
			t.Errorf("Expected ErrChallengeUsed, got %v", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		svc, _, sender, poll := setup(t)
		c, _ := svc.Start(ctx, poll.ID, models.MethodEmail, "voter@example.com")

		svc.now = func() time.Time { return time.Now().Add(DefaultCodeTTL + time.Second) }

		if _, err := svc.Verify(ctx, c.ID, sender.code("voter@example.com")); !errors.Is(err, ErrChallengeExpired) {
			t.Errorf("Expected ErrChallengeExpired, got %v", err)
		}
	})

	t.Run("unknown challenge", func(t *testing.T) {
		svc, _, _, _ := setup(t)

		if _, err := svc.Verify(ctx, "missing", "123456"); !errors.Is(err, ErrChallengeNotFound) {
			t.Errorf("Expected ErrChallengeNotFound, got %v", err)
		}
	})
}

func TestSweep(t *testing.T) {
	ctx := context.Background()
	svc, st, _, poll := setup(t)

	c, _ := svc.Start(ctx, poll.ID, models.MethodEmail, "voter@example.com")

	n, err := svc.Sweep(ctx)
	if err != nil || n != 0 {
		t.Fatalf("Sweep before expiry: n=%d err=%v", n, err)
	}

	svc.now = func() time.Time { return time.Now().Add(time.Hour) }
	n, err = svc.Sweep(ctx)
	if err != nil || n != 1 {
		t.Fatalf("Sweep after expiry: n=%d err=%v", n, err)
	}

	if _, err := st.GetChallenge(ctx, c.ID); !errors.Is(err, store.ErrChallengeNotFound) {
		t.Errorf("Expected challenge removed, got %v", err)
	}
}

func TestMask(t *testing.T) {
	tests := map[string]string{
		"+15551234567": "********4567",
		"abc":          "****",
	}
	for in, want := range tests {
		if got := mask(in); got != want {
			t.Errorf("mask(%q) = %q, want %q", in, got, want)
		}
	}
}
