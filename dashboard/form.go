// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/danielhkuo/votedesk/client"
	"github.com/danielhkuo/votedesk/models"
	"github.com/danielhkuo/votedesk/validation"
)

var (
	ErrMinOptions  = fmt.Errorf("a poll needs at least %d options", validation.MinOptions)
	ErrOptionIndex = errors.New("option index out of range")
)

// Form is the create and edit form. PollID is empty for a new poll.
type Form struct {
	PollID   string
	Question string
	Options  []FormOption
}

// FormOption is one row of the option list. ID is set for options that
// already exist, so their votes survive the edit.
type FormOption struct {
	ID    string
	Label string
}

// NewForm returns an empty create form with the minimum number of rows.
func NewForm() *Form {
	return &Form{Options: make([]FormOption, validation.MinOptions)}
}

// EditForm returns a form pre-populated from the current poll.
func (d *Dashboard) EditForm(pollID string) (*Form, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	poll := d.findLocked(pollID)
	if poll == nil {
		return nil, ErrUnknownPoll
	}

	f := &Form{PollID: poll.ID, Question: poll.Question}
	for _, opt := range poll.Options {
		f.Options = append(f.Options, FormOption{ID: opt.ID, Label: opt.Label})
	}
	return f, nil
}

// AddOption appends an empty row.
func (f *Form) AddOption() {
	f.Options = append(f.Options, FormOption{})
}

// RemoveOption deletes row i. The form never drops below the minimum.
func (f *Form) RemoveOption(i int) error {
	if i < 0 || i >= len(f.Options) {
		return ErrOptionIndex
	}
	if len(f.Options) <= validation.MinOptions {
		return ErrMinOptions
	}
	f.Options = append(f.Options[:i], f.Options[i+1:]...)
	return nil
}

// Validate applies the same rules as the server. Errors are keyed by
// field.
func (f *Form) Validate() error {
	labels := make([]string, len(f.Options))
	for i, opt := range f.Options {
		labels[i] = opt.Label
	}

	if _, _, err := validation.Poll(f.Question, labels); err != nil {
		var verrs validation.Errors
		if errors.As(err, &verrs) {
			return &client.ValidationError{Message: "Please fix the highlighted fields", Fields: verrs}
		}
		return err
	}
	return nil
}

// Submit validates the form, then creates or fully updates the poll and
// reloads the list. Invalid forms never reach the server.
func (d *Dashboard) Submit(ctx context.Context, f *Form) (*models.Poll, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	var (
		poll *models.Poll
		err  error
	)
	if f.PollID == "" {
		labels := make([]string, 0, len(f.Options))
		for _, opt := range f.Options {
			labels = append(labels, opt.Label)
		}
		poll, err = d.api.CreatePoll(ctx, f.Question, labels)
	} else {
		inputs := make([]models.OptionInput, 0, len(f.Options))
		for _, opt := range f.Options {
			if strings.TrimSpace(opt.Label) == "" {
				continue
			}
			inputs = append(inputs, models.OptionInput{ID: opt.ID, Label: opt.Label})
		}
		poll, err = d.api.UpdatePoll(ctx, f.PollID, f.Question, inputs)
	}
	if err != nil {
		return nil, err
	}

	slog.Info("Poll saved", "poll_id", poll.ID, "options", len(poll.Options))

	if err := d.Load(ctx); err != nil {
		return poll, err
	}
	return poll, nil
}
