// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/votedesk/auth"
	"github.com/danielhkuo/votedesk/models"
)

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLStore implements Store on PostgreSQL or SQLite.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) CreatePoll(ctx context.Context, question string, labels []string) (*models.Poll, error) {
	pollID, err := auth.GenerateID(16)
	if err != nil {
		return nil, err
	}

	plan, err := PlanOptions(nil, labelsToInputs(labels))
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO poll (id, question, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
	`, pollID, question, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert poll: %w", err)
	}

	for i, opt := range plan.Options {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO poll_option (id, poll_id, label, position, votes)
			VALUES ($1, $2, $3, $4, 0)
		`, opt.ID, pollID, opt.Label, i)
		if err != nil {
			return nil, fmt.Errorf("failed to insert option: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &models.Poll{
		ID:        pollID,
		Question:  question,
		Options:   plan.Options,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLStore) ListPolls(ctx context.Context) ([]models.Poll, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, question, created_at, updated_at
		FROM poll
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query polls: %w", err)
	}
	defer rows.Close()

	polls := []models.Poll{}
	index := map[string]int{}
	for rows.Next() {
		var p models.Poll
		if err := rows.Scan(&p.ID, &p.Question, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan poll: %w", err)
		}
		p.Options = []models.Option{}
		index[p.ID] = len(polls)
		polls = append(polls, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	optRows, err := s.db.QueryContext(ctx, `
		SELECT id, poll_id, label, votes
		FROM poll_option
		ORDER BY poll_id, position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query options: %w", err)
	}
	defer optRows.Close()

	for optRows.Next() {
		var opt models.Option
		var pollID string
		if err := optRows.Scan(&opt.ID, &pollID, &opt.Label, &opt.Votes); err != nil {
			return nil, fmt.Errorf("failed to scan option: %w", err)
		}
		if i, ok := index[pollID]; ok {
			polls[i].Options = append(polls[i].Options, opt)
		}
	}

	return polls, optRows.Err()
}

func (s *SQLStore) GetPoll(ctx context.Context, id string) (*models.Poll, error) {
	return getPoll(ctx, s.db, id)
}

func (s *SQLStore) UpdatePoll(ctx context.Context, id, question string, options []models.OptionInput) (*models.Poll, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := getPoll(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if question == "" {
		question = current.Question
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE poll SET question = $1, updated_at = $2 WHERE id = $3
	`, question, time.Now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update poll: %w", err)
	}

	if options != nil {
		plan, err := PlanOptions(current.Options, options)
		if err != nil {
			return nil, err
		}

		for _, optionID := range plan.Removed {
			if _, err := tx.ExecContext(ctx, `DELETE FROM ballot WHERE option_id = $1`, optionID); err != nil {
				return nil, fmt.Errorf("failed to delete ballots: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM poll_option WHERE id = $1`, optionID); err != nil {
				return nil, fmt.Errorf("failed to delete option: %w", err)
			}
		}

		for i, opt := range plan.Options {
			if plan.Added[opt.ID] {
				_, err = tx.ExecContext(ctx, `
					INSERT INTO poll_option (id, poll_id, label, position, votes)
					VALUES ($1, $2, $3, $4, 0)
				`, opt.ID, id, opt.Label, i)
			} else {
				// votes is left alone so concurrent increments are kept
				_, err = tx.ExecContext(ctx, `
					UPDATE poll_option SET label = $1, position = $2 WHERE id = $3
				`, opt.Label, i, opt.ID)
			}
			if err != nil {
				return nil, fmt.Errorf("failed to write option: %w", err)
			}
		}
	}

	updated, err := getPoll(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return updated, nil
}

func (s *SQLStore) DeletePoll(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM ballot WHERE poll_id = $1`,
		`DELETE FROM challenge WHERE poll_id = $1`,
		`DELETE FROM poll_option WHERE poll_id = $1`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("failed to delete poll children: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM poll WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete poll: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPollNotFound
	}

	return tx.Commit()
}

func (s *SQLStore) CastVote(ctx context.Context, pollID, optionID, voterID string) (*models.Ballot, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM poll WHERE id = $1)
	`, pollID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to query poll: %w", err)
	}
	if !exists {
		return nil, ErrPollNotFound
	}

	// Single atomic increment; never read-modify-write
	res, err := tx.ExecContext(ctx, `
		UPDATE poll_option SET votes = votes + 1
		WHERE id = $1 AND poll_id = $2
	`, optionID, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to increment votes: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrOptionNotFound
	}

	ballot := &models.Ballot{
		ID:       uuid.NewString(),
		PollID:   pollID,
		OptionID: optionID,
		VoterID:  voterID,
		CastAt:   time.Now().UTC(),
	}

	// The unique (poll_id, voter_id) constraint is the duplicate guard
	res, err = tx.ExecContext(ctx, `
		INSERT INTO ballot (id, poll_id, option_id, voter_id, cast_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (poll_id, voter_id) DO NOTHING
	`, ballot.ID, ballot.PollID, ballot.OptionID, ballot.VoterID, ballot.CastAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert ballot: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrDuplicateVote
	}

	_, err = tx.ExecContext(ctx, `UPDATE poll SET updated_at = $1 WHERE id = $2`, ballot.CastAt, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to touch poll: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return ballot, nil
}

func (s *SQLStore) CreateChallenge(ctx context.Context, c *models.Challenge) (*models.Challenge, error) {
	c.ID = uuid.NewString()
	c.CreatedAt = time.Now().UTC()
	c.ExpiresAt = c.ExpiresAt.UTC()
	c.Attempts = 0
	c.ConsumedAt = nil

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO challenge (id, poll_id, method, destination, code_hash, attempts, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6, $7)
	`, c.ID, c.PollID, c.Method, c.Destination, c.CodeHash, c.ExpiresAt, c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert challenge: %w", err)
	}

	return c, nil
}

func (s *SQLStore) GetChallenge(ctx context.Context, id string) (*models.Challenge, error) {
	var c models.Challenge
	var consumedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, poll_id, method, destination, code_hash, attempts, expires_at, consumed_at, created_at
		FROM challenge
		WHERE id = $1
	`, id).Scan(
		&c.ID, &c.PollID, &c.Method, &c.Destination, &c.CodeHash,
		&c.Attempts, &c.ExpiresAt, &consumedAt, &c.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrChallengeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query challenge: %w", err)
	}

	if consumedAt.Valid {
		c.ConsumedAt = &consumedAt.Time
	}

	return &c, nil
}

func (s *SQLStore) ClaimChallengeAttempt(ctx context.Context, id string, maxAttempts int) (int, error) {
	var attempts int
	err := s.db.QueryRowContext(ctx, `
		UPDATE challenge SET attempts = attempts + 1
		WHERE id = $1 AND consumed_at IS NULL AND attempts < $2
		RETURNING attempts
	`, id, maxAttempts).Scan(&attempts)
	if errors.Is(err, sql.ErrNoRows) {
		c, err := s.GetChallenge(ctx, id)
		if err != nil {
			return 0, err
		}
		if c.ConsumedAt != nil {
			return 0, ErrChallengeConsumed
		}
		return 0, ErrAttemptsExhausted
	}
	if err != nil {
		return 0, fmt.Errorf("failed to claim attempt: %w", err)
	}

	return attempts, nil
}

func (s *SQLStore) ConsumeChallenge(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE challenge SET consumed_at = $1
		WHERE id = $2 AND consumed_at IS NULL
	`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to consume challenge: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.GetChallenge(ctx, id); err != nil {
			return err
		}
		return ErrChallengeConsumed
	}

	return nil
}

func (s *SQLStore) DeleteExpiredChallenges(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM challenge WHERE expires_at < $1`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired challenges: %w", err)
	}

	return res.RowsAffected()
}

func getPoll(ctx context.Context, q querier, id string) (*models.Poll, error) {
	var p models.Poll
	err := q.QueryRowContext(ctx, `
		SELECT id, question, created_at, updated_at
		FROM poll
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Question, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPollNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query poll: %w", err)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT id, label, votes
		FROM poll_option
		WHERE poll_id = $1
		ORDER BY position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query options: %w", err)
	}
	defer rows.Close()

	p.Options = []models.Option{}
	for rows.Next() {
		var opt models.Option
		if err := rows.Scan(&opt.ID, &opt.Label, &opt.Votes); err != nil {
			return nil, fmt.Errorf("failed to scan option: %w", err)
		}
		p.Options = append(p.Options, opt)
	}

	return &p, rows.Err()
}
