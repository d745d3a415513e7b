// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielhkuo/votedesk/summary"
	"github.com/danielhkuo/votedesk/testutil"
)

func TestGetSummary(t *testing.T) {
	st := testutil.SetupTestStore(t)
	handler := NewResultsHandler(st)

	poll := testutil.CreateTestPoll(t, st, "Q", "A", "B", "C")
	votes := []int{10, 5, 5}
	n := 0
	for i, count := range votes {
		for range count {
			testutil.CastTestVote(t, st, poll.ID, poll.Options[i].ID, fmt.Sprintf("voter-%d", n))
			n++
		}
	}

	get := func(pollID string) *httptest.ResponseRecorder {
		req := testutil.WithURLParams(testutil.MakeRequest("GET", "/api/polls/"+pollID+"/summary", nil, nil),
			map[string]string{"id": pollID})
		w := httptest.NewRecorder()
		handler.GetSummary(w, req)
		return w
	}

	t.Run("computed from live counts", func(t *testing.T) {
		w := get(poll.ID)
		testutil.AssertStatus(t, w, http.StatusOK)

		var report summary.Report
		testutil.AssertJSON(t, w, &report)

		if report.TotalVotes != 20 {
			t.Errorf("TotalVotes = %d", report.TotalVotes)
		}
		if report.LeadingPercentage != 50.0 || report.SecondPercentage != 25.0 || report.MarginLeadership != 25.0 {
			t.Errorf("Unexpected percentages %+v", report)
		}
		if report.LeadingOption == nil || report.LeadingOption.ID != poll.Options[0].ID {
			t.Errorf("Unexpected leading option %+v", report.LeadingOption)
		}
		if report.DistributionLevel != summary.DistributionEven {
			t.Errorf("DistributionLevel = %q", report.DistributionLevel)
		}
	})

	t.Run("empty poll", func(t *testing.T) {
		empty := testutil.CreateTestPoll(t, st, "Empty", "X", "Y")

		w := get(empty.ID)
		testutil.AssertStatus(t, w, http.StatusOK)

		var report summary.Report
		testutil.AssertJSON(t, w, &report)
		if report.DistributionLevel != summary.DistributionNone || len(report.Insights) != 0 {
			t.Errorf("Unexpected report %+v", report)
		}
	})

	t.Run("not found", func(t *testing.T) {
		testutil.AssertStatus(t, get("missing"), http.StatusNotFound)
	})
}
