// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package booth

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/danielhkuo/votedesk/flow"
	"github.com/danielhkuo/votedesk/models"
	"github.com/danielhkuo/votedesk/summary"
)

var (
	ErrUnknownPoll   = errors.New("poll not found")
	ErrUnknownOption = errors.New("option not found")
	ErrAlreadyVoted  = errors.New("already voted on this poll")
	ErrNotVoted      = errors.New("results are shown after voting")
)

const refreshTimeout = 10 * time.Second

// API is what the booth needs from the server. *client.Client satisfies it.
type API interface {
	ListPolls(ctx context.Context) ([]models.Poll, error)
	flow.Backend
}

// Options tune the verification sessions the booth starts.
type Options struct {
	AfterFunc flow.AfterFunc
	OnChange  func(flow.Snapshot)
}

// Booth is the voting screen: poll list, one selection per poll, and the
// verification session for the vote in progress.
type Booth struct {
	mu   sync.Mutex
	api  API
	opts Options

	polls    []models.Poll
	selected map[string]string
	voted    map[string]bool

	active     *flow.Session
	activePoll string
}

func New(api API, opts Options) *Booth {
	return &Booth{
		api:      api,
		opts:     opts,
		selected: make(map[string]string),
		voted:    make(map[string]bool),
	}
}

// Refresh refetches the poll list. Selections for polls or options that no
// longer exist are dropped. On error the previous list is kept.
func (b *Booth) Refresh(ctx context.Context) error {
	polls, err := b.api.ListPolls(ctx)
	if err != nil {
		slog.Warn("Failed to refresh polls", "error", err)
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.polls = polls
	for pollID, optionID := range b.selected {
		poll := b.findLocked(pollID)
		if poll == nil {
			delete(b.selected, pollID)
			continue
		}
		if _, ok := poll.Option(optionID); !ok {
			delete(b.selected, pollID)
		}
	}
	return nil
}

// Polls returns a copy of the current list.
func (b *Booth) Polls() []models.Poll {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]models.Poll, len(b.polls))
	copy(out, b.polls)
	return out
}

// Select marks optionID as the choice for pollID, replacing any earlier one.
func (b *Booth) Select(pollID, optionID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	poll := b.findLocked(pollID)
	if poll == nil {
		return ErrUnknownPoll
	}
	if b.voted[pollID] {
		return ErrAlreadyVoted
	}
	if _, ok := poll.Option(optionID); !ok {
		return ErrUnknownOption
	}

	b.selected[pollID] = optionID
	return nil
}

func (b *Booth) Selection(pollID string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.selected[pollID]
}

// HasVoted reports whether a vote was accepted for pollID in this session.
func (b *Booth) HasVoted(pollID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.voted[pollID]
}

// StartVote opens a verification session for pollID with the current
// selection. Any session already open is cancelled first. Without a
// selection the session is returned in idle along with flow.ErrNoSelection.
func (b *Booth) StartVote(pollID string) (*flow.Session, error) {
	b.mu.Lock()
	if b.findLocked(pollID) == nil {
		b.mu.Unlock()
		return nil, ErrUnknownPoll
	}
	if b.voted[pollID] {
		b.mu.Unlock()
		return nil, ErrAlreadyVoted
	}

	prev := b.active
	optionID := b.selected[pollID]

	session := flow.New(flow.Config{
		PollID:    pollID,
		Backend:   b.api,
		AfterFunc: b.opts.AfterFunc,
		OnVoted:   b.onVoted,
		OnChange:  b.opts.OnChange,
	})
	b.active = session
	b.activePoll = pollID
	b.mu.Unlock()

	if prev != nil {
		// Already finished sessions refuse to cancel; nothing to do then
		_ = prev.Cancel()
	}

	return session, session.RequestVote(optionID)
}

// Active returns the open verification session, if any.
func (b *Booth) Active() (*flow.Session, string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active, b.activePoll
}

// Results is the summary shown once the voter has voted on pollID.
func (b *Booth) Results(pollID string) (summary.Report, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	poll := b.findLocked(pollID)
	if poll == nil {
		return summary.Report{}, ErrUnknownPoll
	}
	if !b.voted[pollID] {
		return summary.Report{}, ErrNotVoted
	}
	return summary.Compute(poll), nil
}

func (b *Booth) onVoted(pollID, optionID string) {
	b.mu.Lock()
	b.voted[pollID] = true
	delete(b.selected, pollID)
	if b.activePoll == pollID {
		b.active = nil
		b.activePoll = ""
	}
	b.mu.Unlock()

	slog.Info("Vote accepted", "poll_id", pollID, "option_id", optionID)

	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()
	b.Refresh(ctx)
}

func (b *Booth) findLocked(pollID string) *models.Poll {
	for i := range b.polls {
		if b.polls[i].ID == pollID {
			return &b.polls[i]
		}
	}
	return nil
}
