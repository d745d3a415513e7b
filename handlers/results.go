// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/danielhkuo/votedesk/middleware"
	"github.com/danielhkuo/votedesk/store"
	"github.com/danielhkuo/votedesk/summary"
)

type ResultsHandler struct {
	store store.Store
}

func NewResultsHandler(st store.Store) *ResultsHandler {
	return &ResultsHandler{store: st}
}

// GetSummary handles GET /api/polls/{id}/summary
// Computed on every request from the live counts.
func (h *ResultsHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	pollID := chi.URLParam(r, "id")

	poll, err := h.store.GetPoll(r.Context(), pollID)
	if errors.Is(err, store.ErrPollNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	}
	if err != nil {
		slog.Error("failed to get poll", "error", err, "poll_id", pollID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to load poll")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, summary.Compute(poll))
}
