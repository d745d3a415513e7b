// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"strings"

	"github.com/danielhkuo/votedesk/auth"
	"github.com/danielhkuo/votedesk/models"
)

// OptionPlan describes how an edited option list maps onto stored options.
type OptionPlan struct {
	// Options is the new list in display order. Survivors keep ID and Votes.
	Options []models.Option
	// Added holds the IDs minted for options that did not exist before.
	Added map[string]bool
	// Removed holds the IDs of stored options absent from the edit.
	// Their votes are discarded.
	Removed []string
}

// PlanOptions diffs an edited option list against the stored one.
// Inputs are matched by ID first, then by unchanged label. A matched option
// keeps its ID and vote count and takes the input's label. Unmatched inputs
// become new options with zero votes; unmatched stored options are removed.
func PlanOptions(existing []models.Option, inputs []models.OptionInput) (OptionPlan, error) {
	plan := OptionPlan{
		Options: make([]models.Option, len(inputs)),
		Added:   map[string]bool{},
	}

	byID := make(map[string]int, len(existing))
	for i, opt := range existing {
		byID[opt.ID] = i
	}
	claimed := make([]bool, len(existing))
	matched := make([]bool, len(inputs))

	// Pass 1: explicit IDs
	for i, in := range inputs {
		if in.ID == "" {
			continue
		}
		if j, ok := byID[in.ID]; ok && !claimed[j] {
			claimed[j] = true
			matched[i] = true
			plan.Options[i] = existing[j]
			plan.Options[i].Label = strings.TrimSpace(in.Label)
		}
	}

	// Pass 2: unchanged labels
	for i, in := range inputs {
		if matched[i] {
			continue
		}
		label := strings.TrimSpace(in.Label)
		for j, opt := range existing {
			if !claimed[j] && opt.Label == label {
				claimed[j] = true
				matched[i] = true
				plan.Options[i] = opt
				break
			}
		}
	}

	// Everything else is new
	for i, in := range inputs {
		if matched[i] {
			continue
		}
		id, err := auth.GenerateID(12)
		if err != nil {
			return OptionPlan{}, err
		}
		plan.Options[i] = models.Option{ID: id, Label: strings.TrimSpace(in.Label)}
		plan.Added[id] = true
	}

	for j, opt := range existing {
		if !claimed[j] {
			plan.Removed = append(plan.Removed, opt.ID)
		}
	}

	return plan, nil
}

func labelsToInputs(labels []string) []models.OptionInput {
	inputs := make([]models.OptionInput, len(labels))
	for i, label := range labels {
		inputs[i] = models.OptionInput{Label: label}
	}
	return inputs
}
