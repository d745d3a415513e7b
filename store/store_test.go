// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/danielhkuo/votedesk/models"
)

// runStoreTests exercises behavior every Store implementation shares.
func runStoreTests(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("CreateAndGetPoll", func(t *testing.T) {
		s := newStore(t)

		created, err := s.CreatePoll(ctx, "Favorite color?", []string{"Red", "Blue"})
		if err != nil {
			t.Fatalf("CreatePoll failed: %v", err)
		}
		if created.ID == "" {
			t.Fatal("Expected poll ID")
		}
		if len(created.Options) != 2 {
			t.Fatalf("Expected 2 options, got %d", len(created.Options))
		}
		for _, opt := range created.Options {
			if opt.ID == "" || opt.Votes != 0 {
				t.Errorf("Unexpected option %+v", opt)
			}
		}

		got, err := s.GetPoll(ctx, created.ID)
		if err != nil {
			t.Fatalf("GetPoll failed: %v", err)
		}
		if got.Question != "Favorite color?" {
			t.Errorf("Question = %q", got.Question)
		}
		if got.Options[0].Label != "Red" || got.Options[1].Label != "Blue" {
			t.Errorf("Options out of order: %+v", got.Options)
		}
	})

	t.Run("GetPollNotFound", func(t *testing.T) {
		s := newStore(t)

		_, err := s.GetPoll(ctx, "missing")
		if !errors.Is(err, ErrPollNotFound) {
			t.Errorf("Expected ErrPollNotFound, got %v", err)
		}
	})

	t.Run("ListPolls", func(t *testing.T) {
		s := newStore(t)

		polls, err := s.ListPolls(ctx)
		if err != nil {
			t.Fatalf("ListPolls failed: %v", err)
		}
		if polls == nil || len(polls) != 0 {
			t.Errorf("Expected empty non-nil list, got %v", polls)
		}

		for i := range 3 {
			if _, err := s.CreatePoll(ctx, fmt.Sprintf("Q%d", i), []string{"A", "B"}); err != nil {
				t.Fatalf("CreatePoll failed: %v", err)
			}
		}

		polls, err = s.ListPolls(ctx)
		if err != nil {
			t.Fatalf("ListPolls failed: %v", err)
		}
		if len(polls) != 3 {
			t.Fatalf("Expected 3 polls, got %d", len(polls))
		}
		for _, p := range polls {
			if len(p.Options) != 2 {
				t.Errorf("Poll %s has %d options", p.ID, len(p.Options))
			}
		}
	})

	t.Run("CastVote", func(t *testing.T) {
		s := newStore(t)
		poll, _ := s.CreatePoll(ctx, "Q", []string{"A", "B"})

		ballot, err := s.CastVote(ctx, poll.ID, poll.Options[1].ID, "voter-1")
		if err != nil {
			t.Fatalf("CastVote failed: %v", err)
		}
		if ballot.OptionID != poll.Options[1].ID {
			t.Errorf("Ballot option = %s", ballot.OptionID)
		}

		got, _ := s.GetPoll(ctx, poll.ID)
		if got.Options[0].Votes != 0 || got.Options[1].Votes != 1 {
			t.Errorf("Unexpected counts: %+v", got.Options)
		}
	})

	t.Run("CastVoteDuplicate", func(t *testing.T) {
		s := newStore(t)
		poll, _ := s.CreatePoll(ctx, "Q", []string{"A", "B"})

		if _, err := s.CastVote(ctx, poll.ID, poll.Options[0].ID, "voter-1"); err != nil {
			t.Fatalf("First vote failed: %v", err)
		}

		_, err := s.CastVote(ctx, poll.ID, poll.Options[1].ID, "voter-1")
		if !errors.Is(err, ErrDuplicateVote) {
			t.Fatalf("Expected ErrDuplicateVote, got %v", err)
		}

		got, _ := s.GetPoll(ctx, poll.ID)
		if got.TotalVotes() != 1 {
			t.Errorf("Rejected vote changed counts: %+v", got.Options)
		}
	})

	t.Run("CastVoteUnknownTargets", func(t *testing.T) {
		s := newStore(t)
		poll, _ := s.CreatePoll(ctx, "Q", []string{"A", "B"})
		other, _ := s.CreatePoll(ctx, "Other", []string{"C", "D"})

		if _, err := s.CastVote(ctx, "missing", poll.Options[0].ID, "v"); !errors.Is(err, ErrPollNotFound) {
			t.Errorf("Expected ErrPollNotFound, got %v", err)
		}
		if _, err := s.CastVote(ctx, poll.ID, "missing", "v"); !errors.Is(err, ErrOptionNotFound) {
			t.Errorf("Expected ErrOptionNotFound, got %v", err)
		}
		if _, err := s.CastVote(ctx, poll.ID, other.Options[0].ID, "v"); !errors.Is(err, ErrOptionNotFound) {
			t.Errorf("Expected ErrOptionNotFound for foreign option, got %v", err)
		}

		// Failed attempts must not burn the voter's slot
		if _, err := s.CastVote(ctx, poll.ID, poll.Options[0].ID, "v"); err != nil {
			t.Errorf("Vote after failed attempts: %v", err)
		}
	})

	t.Run("ConcurrentVotesAllCounted", func(t *testing.T) {
		s := newStore(t)
		poll, _ := s.CreatePoll(ctx, "Q", []string{"A", "B"})

		const voters = 40
		var wg sync.WaitGroup
		var failures atomic.Int32
		for i := range voters {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if _, err := s.CastVote(ctx, poll.ID, poll.Options[0].ID, fmt.Sprintf("voter-%d", i)); err != nil {
					failures.Add(1)
				}
			}(i)
		}
		wg.Wait()

		if failures.Load() != 0 {
			t.Fatalf("%d votes failed", failures.Load())
		}
		got, _ := s.GetPoll(ctx, poll.ID)
		if got.Options[0].Votes != voters {
			t.Errorf("Expected %d votes, got %d", voters, got.Options[0].Votes)
		}
	})

	t.Run("ConcurrentDuplicateVotes", func(t *testing.T) {
		s := newStore(t)
		poll, _ := s.CreatePoll(ctx, "Q", []string{"A", "B"})

		var wg sync.WaitGroup
		var accepted, duplicates atomic.Int32
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.CastVote(ctx, poll.ID, poll.Options[1].ID, "same-voter")
				switch {
				case err == nil:
					accepted.Add(1)
				case errors.Is(err, ErrDuplicateVote):
					duplicates.Add(1)
				}
			}()
		}
		wg.Wait()

		if accepted.Load() != 1 || duplicates.Load() != 19 {
			t.Errorf("accepted=%d duplicates=%d", accepted.Load(), duplicates.Load())
		}
		got, _ := s.GetPoll(ctx, poll.ID)
		if got.TotalVotes() != 1 {
			t.Errorf("Expected 1 vote, got %d", got.TotalVotes())
		}
	})

	t.Run("UpdatePollPreservesVotes", func(t *testing.T) {
		s := newStore(t)
		poll, _ := s.CreatePoll(ctx, "Q", []string{"A", "B", "C"})
		s.CastVote(ctx, poll.ID, poll.Options[0].ID, "v1")
		s.CastVote(ctx, poll.ID, poll.Options[1].ID, "v2")
		s.CastVote(ctx, poll.ID, poll.Options[1].ID, "v3")

		updated, err := s.UpdatePoll(ctx, poll.ID, "New question", []models.OptionInput{
			{ID: poll.Options[1].ID, Label: "B renamed"},
			{Label: "A"},
			{Label: "D"},
		})
		if err != nil {
			t.Fatalf("UpdatePoll failed: %v", err)
		}

		if updated.Question != "New question" {
			t.Errorf("Question = %q", updated.Question)
		}
		if len(updated.Options) != 3 {
			t.Fatalf("Expected 3 options, got %+v", updated.Options)
		}
		if updated.Options[0].ID != poll.Options[1].ID || updated.Options[0].Votes != 2 || updated.Options[0].Label != "B renamed" {
			t.Errorf("Renamed option = %+v", updated.Options[0])
		}
		if updated.Options[1].ID != poll.Options[0].ID || updated.Options[1].Votes != 1 {
			t.Errorf("Label-matched option = %+v", updated.Options[1])
		}
		if updated.Options[2].Votes != 0 || updated.Options[2].Label != "D" {
			t.Errorf("New option = %+v", updated.Options[2])
		}

		got, _ := s.GetPoll(ctx, poll.ID)
		if got.TotalVotes() != 3 {
			t.Errorf("Stored total = %d", got.TotalVotes())
		}
	})

	t.Run("UpdatePollRemovedOptionFreesVoters", func(t *testing.T) {
		s := newStore(t)
		poll, _ := s.CreatePoll(ctx, "Q", []string{"A", "B"})
		s.CastVote(ctx, poll.ID, poll.Options[0].ID, "v1")

		updated, err := s.UpdatePoll(ctx, poll.ID, "", []models.OptionInput{
			{ID: poll.Options[1].ID, Label: "B"},
			{Label: "C"},
		})
		if err != nil {
			t.Fatalf("UpdatePoll failed: %v", err)
		}
		if updated.Question != "Q" {
			t.Errorf("Empty question should keep current, got %q", updated.Question)
		}
		if updated.TotalVotes() != 0 {
			t.Errorf("Removed option votes should be discarded, total %d", updated.TotalVotes())
		}

		if _, err := s.CastVote(ctx, poll.ID, updated.Options[0].ID, "v1"); err != nil {
			t.Errorf("Voter of removed option should vote again: %v", err)
		}
	})

	t.Run("UpdatePollQuestionOnly", func(t *testing.T) {
		s := newStore(t)
		poll, _ := s.CreatePoll(ctx, "Q", []string{"A", "B"})
		s.CastVote(ctx, poll.ID, poll.Options[0].ID, "v1")

		updated, err := s.UpdatePoll(ctx, poll.ID, "Renamed", nil)
		if err != nil {
			t.Fatalf("UpdatePoll failed: %v", err)
		}
		if updated.Question != "Renamed" || len(updated.Options) != 2 || updated.TotalVotes() != 1 {
			t.Errorf("Unexpected poll %+v", updated)
		}
	})

	t.Run("UpdatePollNotFound", func(t *testing.T) {
		s := newStore(t)

		_, err := s.UpdatePoll(ctx, "missing", "Q", nil)
		if !errors.Is(err, ErrPollNotFound) {
			t.Errorf("Expected ErrPollNotFound, got %v", err)
		}
	})

	t.Run("DeletePoll", func(t *testing.T) {
		s := newStore(t)
		poll, _ := s.CreatePoll(ctx, "Q", []string{"A", "B"})
		s.CastVote(ctx, poll.ID, poll.Options[0].ID, "v1")
		s.CreateChallenge(ctx, &models.Challenge{
			PollID: poll.ID, Method: models.MethodEmail, Destination: "a@b.co",
			CodeHash: "h", ExpiresAt: time.Now().Add(time.Minute),
		})

		if err := s.DeletePoll(ctx, poll.ID); err != nil {
			t.Fatalf("DeletePoll failed: %v", err)
		}
		if _, err := s.GetPoll(ctx, poll.ID); !errors.Is(err, ErrPollNotFound) {
			t.Errorf("Expected ErrPollNotFound after delete, got %v", err)
		}
		if err := s.DeletePoll(ctx, poll.ID); !errors.Is(err, ErrPollNotFound) {
			t.Errorf("Second delete: expected ErrPollNotFound, got %v", err)
		}
	})

	t.Run("ChallengeLifecycle", func(t *testing.T) {
		s := newStore(t)
		poll, _ := s.CreatePoll(ctx, "Q", []string{"A", "B"})

		c, err := s.CreateChallenge(ctx, &models.Challenge{
			PollID:      poll.ID,
			Method:      models.MethodOTP,
			Destination: "+15551234567",
			CodeHash:    "hash",
			ExpiresAt:   time.Now().Add(2 * time.Minute),
		})
		if err != nil {
			t.Fatalf("CreateChallenge failed: %v", err)
		}

		got, err := s.GetChallenge(ctx, c.ID)
		if err != nil {
			t.Fatalf("GetChallenge failed: %v", err)
		}
		if got.Destination != "+15551234567" || got.CodeHash != "hash" || got.ConsumedAt != nil {
			t.Errorf("Unexpected challenge %+v", got)
		}

		for want := 1; want <= 3; want++ {
			n, err := s.ClaimChallengeAttempt(ctx, c.ID, 5)
			if err != nil {
				t.Fatalf("ClaimChallengeAttempt failed: %v", err)
			}
			if n != want {
				t.Errorf("Attempts = %d, want %d", n, want)
			}
		}
		if _, err := s.ClaimChallengeAttempt(ctx, c.ID, 3); !errors.Is(err, ErrAttemptsExhausted) {
			t.Errorf("Expected ErrAttemptsExhausted, got %v", err)
		}
		if got, _ := s.GetChallenge(ctx, c.ID); got.Attempts != 3 {
			t.Errorf("Exhausted claim still counted: attempts = %d", got.Attempts)
		}

		if err := s.ConsumeChallenge(ctx, c.ID); err != nil {
			t.Fatalf("ConsumeChallenge failed: %v", err)
		}
		if err := s.ConsumeChallenge(ctx, c.ID); !errors.Is(err, ErrChallengeConsumed) {
			t.Errorf("Expected ErrChallengeConsumed, got %v", err)
		}
		if _, err := s.ClaimChallengeAttempt(ctx, c.ID, 5); !errors.Is(err, ErrChallengeConsumed) {
			t.Errorf("Expected ErrChallengeConsumed after use, got %v", err)
		}

		got, _ = s.GetChallenge(ctx, c.ID)
		if got.ConsumedAt == nil {
			t.Error("Expected ConsumedAt set")
		}
	})

	t.Run("ChallengeNotFound", func(t *testing.T) {
		s := newStore(t)

		if _, err := s.GetChallenge(ctx, "missing"); !errors.Is(err, ErrChallengeNotFound) {
			t.Errorf("GetChallenge: %v", err)
		}
		if _, err := s.ClaimChallengeAttempt(ctx, "missing", 5); !errors.Is(err, ErrChallengeNotFound) {
			t.Errorf("ClaimChallengeAttempt: %v", err)
		}
		if err := s.ConsumeChallenge(ctx, "missing"); !errors.Is(err, ErrChallengeNotFound) {
			t.Errorf("ConsumeChallenge: %v", err)
		}
	})

	t.Run("DeleteExpiredChallenges", func(t *testing.T) {
		s := newStore(t)
		poll, _ := s.CreatePoll(ctx, "Q", []string{"A", "B"})
		now := time.Now()

		expired, _ := s.CreateChallenge(ctx, &models.Challenge{
			PollID: poll.ID, Method: models.MethodEmail, Destination: "x@y.co",
			CodeHash: "h", ExpiresAt: now.Add(-time.Minute),
		})
		live, _ := s.CreateChallenge(ctx, &models.Challenge{
			PollID: poll.ID, Method: models.MethodEmail, Destination: "x@y.co",
			CodeHash: "h", ExpiresAt: now.Add(time.Minute),
		})

		n, err := s.DeleteExpiredChallenges(ctx, now)
		if err != nil {
			t.Fatalf("DeleteExpiredChallenges failed: %v", err)
		}
		if n != 1 {
			t.Errorf("Deleted %d, want 1", n)
		}
		if _, err := s.GetChallenge(ctx, expired.ID); !errors.Is(err, ErrChallengeNotFound) {
			t.Errorf("Expired challenge still present: %v", err)
		}
		if _, err := s.GetChallenge(ctx, live.ID); err != nil {
			t.Errorf("Live challenge removed: %v", err)
		}
	})
}
