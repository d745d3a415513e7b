// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"testing"

	"github.com/danielhkuo/votedesk/models"
)

func TestPlanOptions(t *testing.T) {
	existing := []models.Option{
		{ID: "a", Label: "Red", Votes: 4},
		{ID: "b", Label: "Green", Votes: 2},
		{ID: "c", Label: "Blue", Votes: 1},
	}

	t.Run("match by id keeps votes and takes new label", func(t *testing.T) {
		plan, err := PlanOptions(existing, []models.OptionInput{
			{ID: "a", Label: "Crimson"},
			{ID: "b", Label: "Green"},
			{ID: "c", Label: "Blue"},
		})
		if err != nil {
			t.Fatalf("PlanOptions failed: %v", err)
		}

		if plan.Options[0].ID != "a" || plan.Options[0].Label != "Crimson" || plan.Options[0].Votes != 4 {
			t.Errorf("Renamed option = %+v", plan.Options[0])
		}
		if len(plan.Added) != 0 || len(plan.Removed) != 0 {
			t.Errorf("Expected no adds or removals, got added=%v removed=%v", plan.Added, plan.Removed)
		}
	})

	t.Run("match by unchanged label", func(t *testing.T) {
		plan, err := PlanOptions(existing, []models.OptionInput{
			{Label: "Blue"},
			{Label: " Red "},
		})
		if err != nil {
			t.Fatalf("PlanOptions failed: %v", err)
		}

		if plan.Options[0].ID != "c" || plan.Options[0].Votes != 1 {
			t.Errorf("Expected Blue to keep id c with 1 vote, got %+v", plan.Options[0])
		}
		if plan.Options[1].ID != "a" || plan.Options[1].Votes != 4 {
			t.Errorf("Expected Red to keep id a with 4 votes, got %+v", plan.Options[1])
		}
		if len(plan.Removed) != 1 || plan.Removed[0] != "b" {
			t.Errorf("Expected b removed, got %v", plan.Removed)
		}
	})

	t.Run("new options start at zero", func(t *testing.T) {
		plan, err := PlanOptions(existing, []models.OptionInput{
			{ID: "a", Label: "Red"},
			{Label: "Yellow"},
		})
		if err != nil {
			t.Fatalf("PlanOptions failed: %v", err)
		}

		added := plan.Options[1]
		if added.Votes != 0 || added.Label != "Yellow" {
			t.Errorf("New option = %+v", added)
		}
		if !plan.Added[added.ID] {
			t.Errorf("Expected %s in Added", added.ID)
		}
		if len(plan.Removed) != 2 {
			t.Errorf("Expected 2 removed, got %v", plan.Removed)
		}
	})

	t.Run("unknown id falls back to label then new", func(t *testing.T) {
		plan, err := PlanOptions(existing, []models.OptionInput{
			{ID: "zzz", Label: "Green"},
			{ID: "yyy", Label: "Purple"},
		})
		if err != nil {
			t.Fatalf("PlanOptions failed: %v", err)
		}

		if plan.Options[0].ID != "b" {
			t.Errorf("Expected Green matched to b, got %s", plan.Options[0].ID)
		}
		if plan.Options[1].ID == "yyy" || !plan.Added[plan.Options[1].ID] {
			t.Errorf("Expected fresh id for Purple, got %s", plan.Options[1].ID)
		}
	})

	t.Run("an existing option is claimed once", func(t *testing.T) {
		plan, err := PlanOptions(existing, []models.OptionInput{
			{ID: "a", Label: "Red"},
			{ID: "a", Label: "Red again"},
		})
		if err != nil {
			t.Fatalf("PlanOptions failed: %v", err)
		}

		if plan.Options[0].ID != "a" {
			t.Errorf("First input should claim a")
		}
		if plan.Options[1].ID == "a" {
			t.Errorf("Second input must not reuse a")
		}
	})

	t.Run("empty existing list", func(t *testing.T) {
		plan, err := PlanOptions(nil, labelsToInputs([]string{"Yes", "No"}))
		if err != nil {
			t.Fatalf("PlanOptions failed: %v", err)
		}

		if len(plan.Options) != 2 || len(plan.Added) != 2 {
			t.Errorf("Expected 2 new options, got %+v", plan)
		}
		if plan.Options[0].ID == plan.Options[1].ID {
			t.Errorf("Option IDs must differ")
		}
	})
}
