// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/danielhkuo/votedesk/models"
	"github.com/danielhkuo/votedesk/summary"
)

// TokenSource supplies the bearer token for each request.
type TokenSource interface {
	Token() string
}

// Client calls the VoteDesk API. Failed calls are never retried.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
}

// New creates a client for baseURL. A nil httpClient uses a client with a
// 15 second timeout; a nil tokens sends no Authorization header.
func New(baseURL string, httpClient *http.Client, tokens TokenSource) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		tokens:  tokens,
	}
}

type staticToken string

func (s staticToken) Token() string { return string(s) }

// WithToken returns a copy of c that authenticates with token.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.tokens = staticToken(token)
	return &cp
}

func (c *Client) ListPolls(ctx context.Context) ([]models.Poll, error) {
	var polls []models.Poll
	if err := c.do(ctx, "list polls", http.MethodGet, "/api/polls", nil, &polls); err != nil {
		return nil, err
	}
	return polls, nil
}

func (c *Client) GetPoll(ctx context.Context, id string) (*models.Poll, error) {
	var poll models.Poll
	if err := c.do(ctx, "get poll", http.MethodGet, "/api/polls/"+url.PathEscape(id), nil, &poll); err != nil {
		return nil, err
	}
	return &poll, nil
}

func (c *Client) CreatePoll(ctx context.Context, question string, options []string) (*models.Poll, error) {
	req := models.CreatePollRequest{Question: question, Options: options}

	var poll models.Poll
	if err := c.do(ctx, "create poll", http.MethodPost, "/api/polls/create", req, &poll); err != nil {
		return nil, err
	}
	return &poll, nil
}

// UpdatePoll replaces the question and option list. Options with an ID keep
// their votes.
func (c *Client) UpdatePoll(ctx context.Context, id, question string, options []models.OptionInput) (*models.Poll, error) {
	req := models.UpdatePollRequest{Question: question, Options: options}

	var poll models.Poll
	if err := c.do(ctx, "update poll", http.MethodPut, "/api/polls/"+url.PathEscape(id), req, &poll); err != nil {
		return nil, err
	}
	return &poll, nil
}

func (c *Client) DeletePoll(ctx context.Context, id string) error {
	return c.do(ctx, "delete poll", http.MethodDelete, "/api/polls/"+url.PathEscape(id), nil, nil)
}

// CastVote votes with the current session token.
func (c *Client) CastVote(ctx context.Context, pollID, optionID string) error {
	req := models.CastVoteRequest{PollID: pollID, OptionID: optionID}

	err := c.do(ctx, "cast vote", http.MethodPost, "/api/polls/vote", req, nil)
	if errors.Is(err, ErrConflict) {
		return ErrDuplicateVote
	}
	return err
}

// CastVoteTicket votes with a ticket from VerifyCode instead of the session.
func (c *Client) CastVoteTicket(ctx context.Context, pollID, optionID, ticket string) error {
	return c.WithToken(ticket).CastVote(ctx, pollID, optionID)
}

func (c *Client) Summary(ctx context.Context, pollID string) (*summary.Report, error) {
	var report summary.Report
	if err := c.do(ctx, "get summary", http.MethodGet, "/api/polls/"+url.PathEscape(pollID)+"/summary", nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// StartVerification asks the server to send a code to destination.
func (c *Client) StartVerification(ctx context.Context, pollID, method, destination string) (*models.StartVerificationResponse, error) {
	req := models.StartVerificationRequest{PollID: pollID, Method: method, Destination: destination}

	var resp models.StartVerificationResponse
	if err := c.do(ctx, "start verification", http.MethodPost, "/api/verification/start", req, &resp); err != nil {
		return nil, verificationError(err)
	}
	return &resp, nil
}

// VerifyCode exchanges a code for a vote ticket.
func (c *Client) VerifyCode(ctx context.Context, challengeID, code string) (*models.VerifyCodeResponse, error) {
	req := models.VerifyCodeRequest{ChallengeID: challengeID, Code: code}

	var resp models.VerifyCodeResponse
	if err := c.do(ctx, "verify code", http.MethodPost, "/api/verification/verify", req, &resp); err != nil {
		return nil, verificationError(err)
	}
	return &resp, nil
}

// AdminToken exchanges the admin key for a bearer token.
func (c *Client) AdminToken(ctx context.Context, adminKey string) (*models.AdminTokenResponse, error) {
	var resp models.AdminTokenResponse
	if err := c.do(ctx, "admin login", http.MethodPost, "/api/auth/admin", models.AdminTokenRequest{AdminKey: adminKey}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Events streams poll change events until ctx is done or the connection
// drops. The channel is closed when the stream ends.
func (c *Client) Events(ctx context.Context) (<-chan models.PollEvent, error) {
	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/api/polls/events"

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, &NetworkError{Op: "subscribe", Err: err}
	}

	out := make(chan models.PollEvent)
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		conn.Close()
	}()
	go func() {
		defer close(out)
		defer close(done)
		for {
			var evt models.PollEvent
			if err := conn.ReadJSON(&evt); err != nil {
				if ctx.Err() == nil {
					slog.Warn("Event stream closed", "error", err)
				}
				return
			}
			select {
			case out <- evt:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: failed to encode request: %w", op, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		slog.Warn("API call failed", "op", op, "error", err)
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return statusError(op, resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &NetworkError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

func statusError(op string, resp *http.Response) error {
	var body models.ErrorResponse
	_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body)

	message := body.Message
	if message == "" {
		message = body.Error
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusBadRequest:
		return &ValidationError{Message: message, Fields: body.Fields}
	case http.StatusUnauthorized:
		return &apiError{op: op, status: resp.StatusCode, kind: ErrUnauthorized, message: message}
	case http.StatusForbidden:
		return &apiError{op: op, status: resp.StatusCode, kind: ErrForbidden, message: message}
	case http.StatusNotFound:
		return &apiError{op: op, status: resp.StatusCode, kind: ErrNotFound, message: message}
	case http.StatusConflict:
		return &apiError{op: op, status: resp.StatusCode, kind: ErrConflict, message: message}
	default:
		slog.Warn("API call failed", "op", op, "status", resp.StatusCode, "message", message)
		return &NetworkError{Op: op, Status: resp.StatusCode, Err: errors.New(message)}
	}
}

// apiError is a well-understood rejection; errors.Is matches its kind.
type apiError struct {
	op      string
	status  int
	kind    error
	message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s: %v: %s", e.op, e.kind, e.message)
}

func (e *apiError) Unwrap() error {
	return e.kind
}

// verificationError turns any answer from the server into a
// VerificationError. Transport failures stay NetworkErrors.
func verificationError(err error) error {
	var (
		netErr *NetworkError
		apiErr *apiError
		verr   *ValidationError
	)

	switch {
	case errors.As(err, &netErr):
		if netErr.Status == 0 {
			return err
		}
		return &VerificationError{Status: netErr.Status, Message: netErr.Err.Error(), Err: err}
	case errors.As(err, &apiErr):
		return &VerificationError{Status: apiErr.status, Message: apiErr.message, Err: err}
	case errors.As(err, &verr):
		message := verr.Message
		if msg, ok := verr.Fields["destination"]; ok {
			message = msg
		}
		return &VerificationError{Status: http.StatusBadRequest, Message: message, Err: err}
	default:
		return err
	}
}
