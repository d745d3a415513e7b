// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/danielhkuo/votedesk/middleware"
	"github.com/danielhkuo/votedesk/models"
	"github.com/danielhkuo/votedesk/store"
	"github.com/danielhkuo/votedesk/validation"
)

// Publisher is notified after each successful mutation
type Publisher interface {
	Publish(action, pollID string)
}

type noopPublisher struct{}

func (noopPublisher) Publish(string, string) {}

type PollHandler struct {
	store  store.Store
	events Publisher
}

func NewPollHandler(st store.Store, events Publisher) *PollHandler {
	if events == nil {
		events = noopPublisher{}
	}
	return &PollHandler{store: st, events: events}
}

// ListPolls handles GET /api/polls
func (h *PollHandler) ListPolls(w http.ResponseWriter, r *http.Request) {
	polls, err := h.store.ListPolls(r.Context())
	if err != nil {
		slog.Error("failed to list polls", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to load polls")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, polls)
}

// GetPoll handles GET /api/polls/{id}
func (h *PollHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
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

	middleware.JSONResponse(w, http.StatusOK, poll)
}

// CreatePoll handles POST /api/polls/create
func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePollRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	question, labels, err := validation.Poll(req.Question, req.Options)
	if err != nil {
		writeValidationError(w, err)
		return
	}

	poll, err := h.store.CreatePoll(r.Context(), question, labels)
	if err != nil {
		slog.Error("failed to create poll", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create poll")
		return
	}

	slog.Info("poll created", "poll_id", poll.ID, "options", len(poll.Options))
	h.events.Publish(models.ActionCreated, poll.ID)

	middleware.JSONResponse(w, http.StatusCreated, poll)
}

// UpdatePoll handles PUT /api/polls/{id}
// Options matched by _id or unchanged label keep their votes.
func (h *PollHandler) UpdatePoll(w http.ResponseWriter, r *http.Request) {
	pollID := chi.URLParam(r, "id")

	var req models.UpdatePollRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	question, options, err := validation.PollUpdate(req.Question, req.Options)
	if err != nil {
		writeValidationError(w, err)
		return
	}

	poll, err := h.store.UpdatePoll(r.Context(), pollID, question, options)
	switch {
	case errors.Is(err, store.ErrPollNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	case errors.Is(err, store.ErrConflict):
		middleware.ErrorResponse(w, http.StatusConflict, "Poll changed while saving, try again")
		return
	case err != nil:
		slog.Error("failed to update poll", "error", err, "poll_id", pollID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update poll")
		return
	}

	slog.Info("poll updated", "poll_id", pollID, "options", len(poll.Options))
	h.events.Publish(models.ActionUpdated, pollID)

	middleware.JSONResponse(w, http.StatusOK, poll)
}

// DeletePoll handles DELETE /api/polls/{id}
func (h *PollHandler) DeletePoll(w http.ResponseWriter, r *http.Request) {
	pollID := chi.URLParam(r, "id")

	err := h.store.DeletePoll(r.Context(), pollID)
	if errors.Is(err, store.ErrPollNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	}
	if err != nil {
		slog.Error("failed to delete poll", "error", err, "poll_id", pollID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete poll")
		return
	}

	slog.Info("poll deleted", "poll_id", pollID)
	h.events.Publish(models.ActionDeleted, pollID)

	middleware.JSONResponse(w, http.StatusOK, models.MessageResponse{Message: "Poll deleted"})
}

// writeValidationError answers 400 with field messages when err carries them
func writeValidationError(w http.ResponseWriter, err error) {
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		middleware.ValidationResponse(w, verrs)
		return
	}
	middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
}
