// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielhkuo/votedesk/auth"
	"github.com/danielhkuo/votedesk/middleware"
	"github.com/danielhkuo/votedesk/models"
	"github.com/danielhkuo/votedesk/validation"
)

// AdminTokenTTL is the lifetime of tokens minted by POST /api/auth/admin
const AdminTokenTTL = 12 * time.Hour

type AuthHandler struct {
	adminKey string
	tokens   auth.JWTAuthenticator
}

func NewAuthHandler(adminKey string, tokens auth.JWTAuthenticator) *AuthHandler {
	return &AuthHandler{adminKey: adminKey, tokens: tokens}
}

// AdminToken handles POST /api/auth/admin
// Exchanges the configured admin key for a bearer token.
func (h *AuthHandler) AdminToken(w http.ResponseWriter, r *http.Request) {
	var req models.AdminTokenRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := validation.Struct(req); err != nil {
		writeValidationError(w, err)
		return
	}

	if err := auth.ValidateAdminKey(req.AdminKey, h.adminKey); err != nil {
		slog.Warn("rejected admin key", "remote", middleware.ClientIP(r))
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid admin key")
		return
	}

	// Each session is its own voter identity
	sessionID, err := auth.GenerateID(8)
	if err != nil {
		slog.Error("failed to generate session ID", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}

	token, expiresAt, err := h.tokens.Issue("admin-"+sessionID, models.RoleAdmin, "", AdminTokenTTL)
	if err != nil {
		slog.Error("failed to issue admin token", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.AdminTokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
	})
}
