// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/votedesk/challenge"
	"github.com/danielhkuo/votedesk/middleware"
	"github.com/danielhkuo/votedesk/models"
	"github.com/danielhkuo/votedesk/store"
	"github.com/danielhkuo/votedesk/validation"
)

type VerificationHandler struct {
	challenges *challenge.Service
}

func NewVerificationHandler(challenges *challenge.Service) *VerificationHandler {
	return &VerificationHandler{challenges: challenges}
}

// StartVerification handles POST /api/verification/start
func (h *VerificationHandler) StartVerification(w http.ResponseWriter, r *http.Request) {
	var req models.StartVerificationRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := validation.Struct(req); err != nil {
		writeValidationError(w, err)
		return
	}

	c, err := h.challenges.Start(r.Context(), req.PollID, req.Method, req.Destination)
	var verrs validation.Errors
	switch {
	case errors.As(err, &verrs):
		middleware.ValidationResponse(w, verrs)
		return
	case errors.Is(err, challenge.ErrUnsupportedMethod):
		middleware.ErrorResponse(w, http.StatusBadRequest, "Method is verified on the device, not by the server")
		return
	case errors.Is(err, store.ErrPollNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	case err != nil:
		slog.Error("failed to start verification", "error", err, "poll_id", req.PollID, "method", req.Method)
		middleware.ErrorResponse(w, http.StatusBadGateway, "Failed to send verification code")
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, models.StartVerificationResponse{
		ChallengeID: c.ID,
		Method:      c.Method,
		ExpiresAt:   c.ExpiresAt,
	})
}

// VerifyCode handles POST /api/verification/verify
func (h *VerificationHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyCodeRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := validation.Struct(req); err != nil {
		writeValidationError(w, err)
		return
	}

	ticket, err := h.challenges.Verify(r.Context(), req.ChallengeID, req.Code)
	if err != nil {
		status, message := verifyErrorStatus(err)
		if status == http.StatusInternalServerError {
			slog.Error("failed to verify code", "error", err, "challenge_id", req.ChallengeID)
		}
		middleware.ErrorResponse(w, status, message)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.VerifyCodeResponse{
		Ticket:    ticket.Token,
		ExpiresAt: ticket.ExpiresAt,
	})
}

func verifyErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, challenge.ErrInvalidCode):
		return http.StatusBadRequest, "Code must be exactly 6 digits"
	case errors.Is(err, challenge.ErrChallengeNotFound):
		return http.StatusNotFound, "Verification not found"
	case errors.Is(err, challenge.ErrChallengeExpired):
		return http.StatusGone, "Code expired, request a new one"
	case errors.Is(err, challenge.ErrChallengeUsed):
		return http.StatusConflict, "Code already used"
	case errors.Is(err, challenge.ErrTooManyAttempts):
		return http.StatusTooManyRequests, "Too many attempts, request a new code"
	case errors.Is(err, challenge.ErrCodeMismatch):
		return http.StatusUnauthorized, "Incorrect code"
	default:
		return http.StatusInternalServerError, "Failed to verify code"
	}
}
