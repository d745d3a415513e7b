// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/votedesk/middleware"
	"github.com/danielhkuo/votedesk/models"
	"github.com/danielhkuo/votedesk/store"
	"github.com/danielhkuo/votedesk/validation"
)

type VotingHandler struct {
	store  store.Store
	events Publisher
}

func NewVotingHandler(st store.Store, events Publisher) *VotingHandler {
	if events == nil {
		events = noopPublisher{}
	}
	return &VotingHandler{store: st, events: events}
}

// CastVote handles POST /api/polls/vote
// Requires a bearer token; its subject is the voter identity. Vote tickets
// are bound to one poll.
func (h *VotingHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Missing bearer token")
		return
	}

	var req models.CastVoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := validation.Struct(req); err != nil {
		writeValidationError(w, err)
		return
	}

	if claims.Role == models.RoleVoter && claims.PollID != req.PollID {
		middleware.ErrorResponse(w, http.StatusForbidden, "Ticket was issued for another poll")
		return
	}

	ballot, err := h.store.CastVote(r.Context(), req.PollID, req.OptionID, claims.Subject)
	switch {
	case errors.Is(err, store.ErrPollNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	case errors.Is(err, store.ErrOptionNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Option not found")
		return
	case errors.Is(err, store.ErrDuplicateVote):
		middleware.ErrorResponse(w, http.StatusConflict, "You have already voted on this poll")
		return
	case err != nil:
		slog.Error("failed to cast vote", "error", err, "poll_id", req.PollID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to record vote")
		return
	}

	slog.Info("vote cast",
		"poll_id", ballot.PollID,
		"option_id", ballot.OptionID,
		"ballot_id", ballot.ID,
		"role", claims.Role,
	)
	h.events.Publish(models.ActionVoted, req.PollID)

	middleware.JSONResponse(w, http.StatusOK, models.MessageResponse{Message: "Vote recorded"})
}
