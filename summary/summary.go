// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package summary

import (
	"fmt"
	"math"
	"slices"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"

	"github.com/danielhkuo/votedesk/models"
)

// Participation levels
const (
	ParticipationHigh   = "High"
	ParticipationMedium = "Medium"
	ParticipationLow    = "Low"
)

// Distribution levels
const (
	DistributionNone     = "No votes"
	DistributionHighly   = "Highly skewed"
	DistributionModerate = "Moderately skewed"
	DistributionSlight   = "Slightly skewed"
	DistributionEven     = "Evenly distributed"
)

// RankedOption is an option with its share of the total.
type RankedOption struct {
	ID         string  `json:"_id"`
	Label      string  `json:"option"`
	Votes      int64   `json:"votes"`
	Percentage float64 `json:"percentage"`
}

// Report is the aggregate view of one poll's results.
type Report struct {
	PollID             string         `json:"pollId"`
	TotalVotes         int64          `json:"totalVotes"`
	SortedOptions      []RankedOption `json:"sortedOptions"`
	LeadingOption      *RankedOption  `json:"leadingOption,omitempty"`
	LeadingPercentage  float64        `json:"leadingPercentage"`
	SecondOption       *RankedOption  `json:"secondOption,omitempty"`
	SecondPercentage   float64        `json:"secondPercentage"`
	MarginLeadership   float64        `json:"marginLeadership"`
	ParticipationLevel string         `json:"participationLevel"`
	Coefficient        float64        `json:"coefficient"`
	DistributionLevel  string         `json:"distributionLevel"`
	Insights           []string       `json:"insights"`
}

// Compute builds the Report for a poll. It has no side effects.
func Compute(poll *models.Poll) Report {
	r := Report{
		PollID:        poll.ID,
		TotalVotes:    poll.TotalVotes(),
		SortedOptions: make([]RankedOption, len(poll.Options)),
		Insights:      []string{},
	}

	for i, opt := range poll.Options {
		r.SortedOptions[i] = RankedOption{
			ID:         opt.ID,
			Label:      opt.Label,
			Votes:      opt.Votes,
			Percentage: Percentage(opt.Votes, r.TotalVotes),
		}
	}

	// Ties keep their original order
	slices.SortStableFunc(r.SortedOptions, func(a, b RankedOption) int {
		switch {
		case a.Votes > b.Votes:
			return -1
		case a.Votes < b.Votes:
			return 1
		}
		return 0
	})

	if len(r.SortedOptions) > 0 {
		lead := r.SortedOptions[0]
		r.LeadingOption = &lead
		r.LeadingPercentage = lead.Percentage
	}
	if len(r.SortedOptions) > 1 {
		second := r.SortedOptions[1]
		r.SecondOption = &second
		r.SecondPercentage = second.Percentage
		r.MarginLeadership = round1(r.LeadingPercentage - r.SecondPercentage)
	}

	r.ParticipationLevel = participationLevel(r.TotalVotes)
	r.Coefficient, r.DistributionLevel = distribution(poll.Options, r.TotalVotes)
	r.Insights = insights(r)

	return r
}

// Percentage is votes as a share of total, rounded to one decimal.
// Zero when total is zero.
func Percentage(votes, total int64) float64 {
	if total == 0 {
		return 0
	}
	return round1(float64(votes) / float64(total) * 100)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func participationLevel(total int64) string {
	switch {
	case total > 20:
		return ParticipationHigh
	case total > 10:
		return ParticipationMedium
	default:
		return ParticipationLow
	}
}

// distribution returns the coefficient of variation of the vote counts and
// its label. The variance is the population variance.
func distribution(options []models.Option, total int64) (float64, string) {
	if len(options) == 0 {
		return 0, DistributionNone
	}

	mean := float64(total) / float64(len(options))
	if mean == 0 {
		return 0, DistributionNone
	}

	var sumSq float64
	for _, opt := range options {
		d := float64(opt.Votes) - mean
		sumSq += d * d
	}
	coefficient := math.Sqrt(sumSq/float64(len(options))) / mean

	switch {
	case coefficient > 1.2:
		return coefficient, DistributionHighly
	case coefficient > 0.8:
		return coefficient, DistributionModerate
	case coefficient > 0.4:
		return coefficient, DistributionSlight
	default:
		return coefficient, DistributionEven
	}
}

func votes(n int64) string {
	return humanize.Comma(n) + " " + english.PluralWord(int(n), "vote", "")
}

func insights(r Report) []string {
	lines := []string{}
	if r.TotalVotes == 0 || r.LeadingOption == nil {
		return lines
	}

	lead := r.LeadingOption
	lines = append(lines, fmt.Sprintf("%q leads with %s (%.1f%%).", lead.Label, votes(lead.Votes), lead.Percentage))

	if r.SecondOption == nil {
		return lines
	}

	second := r.SecondOption
	lines = append(lines, fmt.Sprintf("%q follows with %s (%.1f%%).", second.Label, votes(second.Votes), second.Percentage))

	switch {
	case r.MarginLeadership > 20:
		lines = append(lines, fmt.Sprintf("%q holds a significant lead of %.1f points.", lead.Label, r.MarginLeadership))
	case r.MarginLeadership > 0 && r.MarginLeadership <= 5:
		lines = append(lines, fmt.Sprintf("The race is very close: %.1f points separate the top two.", r.MarginLeadership))
	}

	return lines
}
