// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/danielhkuo/votedesk/models"
	"github.com/danielhkuo/votedesk/summary"
)

// ChartType is how a poll's counts are drawn.
type ChartType string

const (
	ChartBar ChartType = "bar"
	ChartPie ChartType = "pie"
)

var (
	ErrUnknownPoll    = errors.New("poll not found")
	ErrUnknownChart   = errors.New("chart type must be bar or pie")
	ErrInvalidConfirm = errors.New("delete confirmation is not pending")
)

// API is what the dashboard needs from the server. *client.Client
// satisfies it.
type API interface {
	ListPolls(ctx context.Context) ([]models.Poll, error)
	CreatePoll(ctx context.Context, question string, options []string) (*models.Poll, error)
	UpdatePoll(ctx context.Context, id, question string, options []models.OptionInput) (*models.Poll, error)
	DeletePoll(ctx context.Context, id string) error
	Summary(ctx context.Context, pollID string) (*summary.Report, error)
}

// Dashboard is the admin view over all polls. Expand state and chart
// preferences are view state only and never sent to the server.
type Dashboard struct {
	mu  sync.Mutex
	api API

	polls    []models.Poll
	expanded map[string]bool
	charts   map[string]ChartType
	pending  map[string]*DeleteConfirmation
}

func New(api API) *Dashboard {
	return &Dashboard{
		api:      api,
		expanded: make(map[string]bool),
		charts:   make(map[string]ChartType),
		pending:  make(map[string]*DeleteConfirmation),
	}
}

// Load fetches the full poll list. On error the previous list is kept.
func (d *Dashboard) Load(ctx context.Context) error {
	polls, err := d.api.ListPolls(ctx)
	if err != nil {
		slog.Warn("Failed to load polls", "error", err)
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.polls = polls

	// Forget view state for polls that are gone
	live := make(map[string]bool, len(polls))
	for _, p := range polls {
		live[p.ID] = true
	}
	for id := range d.expanded {
		if !live[id] {
			delete(d.expanded, id)
		}
	}
	for id := range d.charts {
		if !live[id] {
			delete(d.charts, id)
		}
	}
	for id := range d.pending {
		if !live[id] {
			delete(d.pending, id)
		}
	}
	return nil
}

// Watch reloads the list for every event until events closes or ctx is
// done.
func (d *Dashboard) Watch(ctx context.Context, events <-chan models.PollEvent) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-events:
			if !ok {
				return nil
			}
			slog.Debug("Poll changed", "action", evt.Action, "poll_id", evt.PollID)
			if err := d.Load(ctx); err != nil && ctx.Err() != nil {
				return ctx.Err()
			}
		}
	}
}

func (d *Dashboard) Polls() []models.Poll {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]models.Poll, len(d.polls))
	copy(out, d.polls)
	return out
}

// Toggle flips the expanded state of a poll and returns the new state.
func (d *Dashboard) Toggle(pollID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.findLocked(pollID) == nil {
		return false, ErrUnknownPoll
	}
	d.expanded[pollID] = !d.expanded[pollID]
	return d.expanded[pollID], nil
}

func (d *Dashboard) Expanded(pollID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.expanded[pollID]
}

func (d *Dashboard) SetChart(pollID string, chart ChartType) error {
	if chart != ChartBar && chart != ChartPie {
		return fmt.Errorf("%w: %q", ErrUnknownChart, chart)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.findLocked(pollID) == nil {
		return ErrUnknownPoll
	}
	d.charts[pollID] = chart
	return nil
}

// Chart returns the chart preference for a poll, bar unless set.
func (d *Dashboard) Chart(pollID string) ChartType {
	d.mu.Lock()
	defer d.mu.Unlock()

	if c, ok := d.charts[pollID]; ok {
		return c
	}
	return ChartBar
}

// Series is the data behind a poll's chart, in option order.
type Series struct {
	Type        ChartType
	Labels      []string
	Values      []int64
	Percentages []float64
}

func (d *Dashboard) Series(pollID string) (Series, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	poll := d.findLocked(pollID)
	if poll == nil {
		return Series{}, ErrUnknownPoll
	}

	chart := ChartBar
	if c, ok := d.charts[pollID]; ok {
		chart = c
	}

	total := poll.TotalVotes()
	s := Series{Type: chart}
	for _, opt := range poll.Options {
		s.Labels = append(s.Labels, opt.Label)
		s.Values = append(s.Values, opt.Votes)
		s.Percentages = append(s.Percentages, summary.Percentage(opt.Votes, total))
	}
	return s, nil
}

// Summary fetches the server computed report for a poll.
func (d *Dashboard) Summary(ctx context.Context, pollID string) (*summary.Report, error) {
	return d.api.Summary(ctx, pollID)
}

// DeleteConfirmation must be passed to ConfirmDelete before a poll is
// deleted.
type DeleteConfirmation struct {
	PollID   string
	Question string
	Votes    int64
}

// RequestDelete opens the confirmation for deleting pollID. A second request
// replaces the first.
func (d *Dashboard) RequestDelete(pollID string) (*DeleteConfirmation, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	poll := d.findLocked(pollID)
	if poll == nil {
		return nil, ErrUnknownPoll
	}

	c := &DeleteConfirmation{PollID: poll.ID, Question: poll.Question, Votes: poll.TotalVotes()}
	d.pending[pollID] = c
	return c, nil
}

// CancelDelete drops a pending confirmation.
func (d *Dashboard) CancelDelete(c *DeleteConfirmation) {
	if c == nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending[c.PollID] == c {
		delete(d.pending, c.PollID)
	}
}

// ConfirmDelete deletes the poll named by a pending confirmation and reloads
// the list. Each confirmation can be used once.
func (d *Dashboard) ConfirmDelete(ctx context.Context, c *DeleteConfirmation) error {
	d.mu.Lock()
	if c == nil || d.pending[c.PollID] != c {
		d.mu.Unlock()
		return ErrInvalidConfirm
	}
	delete(d.pending, c.PollID)
	d.mu.Unlock()

	if err := d.api.DeletePoll(ctx, c.PollID); err != nil {
		return err
	}

	slog.Info("Poll deleted", "poll_id", c.PollID)
	return d.Load(ctx)
}

func (d *Dashboard) findLocked(pollID string) *models.Poll {
	for i := range d.polls {
		if d.polls[i].ID == pollID {
			return &d.polls[i]
		}
	}
	return nil
}
