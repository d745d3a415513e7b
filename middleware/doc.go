// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

	r.Use(middleware.WithLogging)

Logs request start and completion with status, bytes, duration_ms and the
chi request id. Completions with a 5xx status log at error level.

# Panic Recovery

	r.Use(middleware.Recover)

Logs the panic with its stack and answers 500 without leaking details.

# CORS Middleware

	r.Use(middleware.CORS([]string{"https://admin.example"}))

Allows methods GET, POST, PUT, DELETE, OPTIONS with headers
Content-Type and Authorization. A nil list allows every origin; otherwise
preflights from unlisted origins get 403.

# Bearer Authentication

	r.With(middleware.RequireRole(authn, models.RoleAdmin)).Post("/api/polls/create", h.CreatePoll)

Missing or invalid tokens get 401, a role outside the list gets 403.
Handlers read the verified claims back:

	claims, ok := middleware.ClaimsFromContext(r.Context())

# JSON Helpers

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
	middleware.ValidationResponse(w, map[string]string{"question": "..."})

	var req models.CreatePollRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

Bodies over 1 MiB are rejected and an empty body is ErrEmptyBody.

# Client IP

	ip := middleware.ClientIP(r)

Strips the port from RemoteAddr. Mount chi's RealIP first when running
behind a proxy.
*/
package middleware
