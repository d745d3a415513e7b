// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/danielhkuo/votedesk/models"
	"github.com/danielhkuo/votedesk/testutil"
)

// TestConcurrentVotes verifies that simultaneous votes from different voters
// are all counted and land only on their target options
func TestConcurrentVotes(t *testing.T) {
	st := testutil.SetupTestStore(t)
	handler := NewVotingHandler(st, nil)

	poll := testutil.CreateTestPoll(t, st, "Q", "A", "B", "C")

	numVoters := 30
	tokens := make([]string, numVoters)
	for i := range numVoters {
		tokens[i] = testutil.VoterToken(t, fmt.Sprintf("concurrent-%d", i), poll.ID)
	}

	var successCount atomic.Int32
	var wg sync.WaitGroup

	for i := range numVoters {
		wg.Add(1)
		go func(voterIdx int) {
			defer wg.Done()

			w := castVote(handler, tokens[voterIdx], models.CastVoteRequest{
				PollID:   poll.ID,
				OptionID: poll.Options[voterIdx%3].ID,
			})
			if w.Code == http.StatusOK {
				successCount.Add(1)
			} else {
				t.Errorf("Voter %d got status %d: %s", voterIdx, w.Code, w.Body.String())
			}
		}(i)
	}

	wg.Wait()

	if got := successCount.Load(); got != int32(numVoters) {
		t.Errorf("Expected %d successful votes, got %d", numVoters, got)
	}

	got, err := st.GetPoll(context.Background(), poll.ID)
	if err != nil {
		t.Fatalf("Failed to reload poll: %v", err)
	}
	for _, opt := range got.Options {
		if opt.Votes != int64(numVoters/3) {
			t.Errorf("Option %s has %d votes, want %d", opt.Label, opt.Votes, numVoters/3)
		}
	}
}

// TestConcurrentDuplicateVotes verifies that racing submissions from the
// same identity are counted once
func TestConcurrentDuplicateVotes(t *testing.T) {
	st := testutil.SetupTestStore(t)
	handler := NewVotingHandler(st, nil)

	poll := testutil.CreateTestPoll(t, st, "Q", "A", "B")
	token := testutil.VoterToken(t, "double-clicker", poll.ID)

	attempts := 15
	var accepted, conflicts atomic.Int32
	var wg sync.WaitGroup

	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()

			w := castVote(handler, token, models.CastVoteRequest{PollID: poll.ID, OptionID: poll.Options[0].ID})
			switch w.Code {
			case http.StatusOK:
				accepted.Add(1)
			case http.StatusConflict:
				conflicts.Add(1)
			default:
				t.Errorf("Unexpected status %d: %s", w.Code, w.Body.String())
			}
		}()
	}

	wg.Wait()

	if accepted.Load() != 1 || conflicts.Load() != int32(attempts-1) {
		t.Errorf("accepted=%d conflicts=%d", accepted.Load(), conflicts.Load())
	}

	got, _ := st.GetPoll(context.Background(), poll.ID)
	if got.TotalVotes() != 1 {
		t.Errorf("Expected 1 vote, got %d", got.TotalVotes())
	}
}
