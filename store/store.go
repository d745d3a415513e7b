// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"errors"
	"time"

	"github.com/danielhkuo/votedesk/models"
)

var (
	ErrPollNotFound      = errors.New("poll not found")
	ErrOptionNotFound    = errors.New("option not found")
	ErrDuplicateVote     = errors.New("voter has already voted on this poll")
	ErrChallengeNotFound = errors.New("challenge not found")
	ErrChallengeConsumed = errors.New("challenge already consumed")
	ErrAttemptsExhausted = errors.New("challenge attempt limit reached")
	ErrConflict          = errors.New("poll changed concurrently")
)

// Store persists polls, ballots, and verification challenges.
type Store interface {
	// CreatePoll stores a new poll whose options start at zero votes.
	CreatePoll(ctx context.Context, question string, labels []string) (*models.Poll, error)

	// ListPolls returns every poll, oldest first, options in display order.
	ListPolls(ctx context.Context) ([]models.Poll, error)

	// GetPoll returns one poll or ErrPollNotFound.
	GetPoll(ctx context.Context, id string) (*models.Poll, error)

	// UpdatePoll rewrites the question and option list. See PlanOptions
	// for how existing options and their votes carry over.
	// An empty question keeps the current one; nil options keep the current list.
	UpdatePoll(ctx context.Context, id, question string, options []models.OptionInput) (*models.Poll, error)

	// DeletePoll removes a poll with its options, ballots, and challenges.
	DeletePoll(ctx context.Context, id string) error

	// CastVote records voterID's ballot and atomically increments the option.
	// Returns ErrDuplicateVote when voterID already voted on the poll.
	CastVote(ctx context.Context, pollID, optionID, voterID string) (*models.Ballot, error)

	// CreateChallenge stores a pending verification challenge.
	CreateChallenge(ctx context.Context, challenge *models.Challenge) (*models.Challenge, error)

	// GetChallenge returns one challenge or ErrChallengeNotFound.
	GetChallenge(ctx context.Context, id string) (*models.Challenge, error)

	// ClaimChallengeAttempt atomically counts one verification attempt and
	// returns the new count. It fails with ErrAttemptsExhausted once
	// maxAttempts have been claimed and with ErrChallengeConsumed after use.
	ClaimChallengeAttempt(ctx context.Context, id string, maxAttempts int) (int, error)

	// ConsumeChallenge marks a challenge used. Only the first call succeeds.
	ConsumeChallenge(ctx context.Context, id string) error

	// DeleteExpiredChallenges removes challenges that expired before now.
	DeleteExpiredChallenges(ctx context.Context, now time.Time) (int64, error)
}
