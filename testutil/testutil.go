// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/danielhkuo/votedesk/auth"
	"github.com/danielhkuo/votedesk/cliparse"
	"github.com/danielhkuo/votedesk/db"
	"github.com/danielhkuo/votedesk/models"
	"github.com/danielhkuo/votedesk/store"
)

// Fixed secrets for tests
const (
	TestAdminKey     = "test-admin-key"
	TestJWTSecret    = "test-jwt-secret"
	TestIdentitySalt = "test-identity-salt"
	TestIssuer       = "votedesk"
)

// SetupTestDB opens a fresh in-memory SQLite database with the full schema
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.Open(cliparse.DatabaseSQLite, ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// SetupTestStore returns a SQL store on a fresh test database
func SetupTestStore(t *testing.T) store.Store {
	t.Helper()
	return store.NewSQLStore(SetupTestDB(t))
}

// Authenticator returns the JWT authenticator tests sign tokens with
func Authenticator() auth.JWTAuthenticator {
	return auth.NewJWTAuthenticator(TestIssuer, TestJWTSecret)
}

// AdminToken issues a bearer token with the admin role
func AdminToken(t *testing.T) string {
	t.Helper()

	token, _, err := Authenticator().Issue("admin", models.RoleAdmin, "", time.Hour)
	if err != nil {
		t.Fatalf("Failed to issue admin token: %v", err)
	}
	return token
}

// VoterToken issues a vote ticket for voterID bound to pollID
func VoterToken(t *testing.T, voterID, pollID string) string {
	t.Helper()

	token, _, err := Authenticator().Issue(voterID, models.RoleVoter, pollID, time.Hour)
	if err != nil {
		t.Fatalf("Failed to issue voter token: %v", err)
	}
	return token
}

// Bearer returns an Authorization header map for token
func Bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

// CreateTestPoll stores a poll with the given options
func CreateTestPoll(t *testing.T, st store.Store, question string, labels ...string) *models.Poll {
	t.Helper()

	poll, err := st.CreatePoll(context.Background(), question, labels)
	if err != nil {
		t.Fatalf("Failed to create test poll: %v", err)
	}
	return poll
}

// CastTestVote records a vote for voterID
func CastTestVote(t *testing.T, st store.Store, pollID, optionID, voterID string) {
	t.Helper()

	if _, err := st.CastVote(context.Background(), pollID, optionID, voterID); err != nil {
		t.Fatalf("Failed to cast test vote: %v", err)
	}
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// WithURLParams attaches chi route parameters to a request so handlers can be
// called without going through the router
func WithURLParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
