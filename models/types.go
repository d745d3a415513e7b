package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// Token roles
const (
	RoleAdmin = "admin"
	RoleVoter = "voter"
)

// Verification methods
const (
	MethodOTP   = "otp"
	MethodEmail = "email"
	MethodFace  = "face"
)

// Push event actions
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
	ActionVoted   = "voted"
)

// Request types

type CreatePollRequest struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// Options may be sent as plain labels or as {"_id", "option"} objects.
// Objects with an id keep that option's votes across the edit.
type UpdatePollRequest struct {
	Question string        `json:"question"`
	Options  []OptionInput `json:"options"`
}

type CastVoteRequest struct {
	PollID   string `json:"pollId"   validate:"required"`
	OptionID string `json:"optionId" validate:"required"`
}

type StartVerificationRequest struct {
	PollID      string `json:"pollId"      validate:"required"`
	Method      string `json:"method"      validate:"required,oneof=otp email face"`
	Destination string `json:"destination"`
}

type VerifyCodeRequest struct {
	ChallengeID string `json:"challengeId" validate:"required"`
	Code        string `json:"code"        validate:"required"`
}

type AdminTokenRequest struct {
	AdminKey string `json:"adminKey" validate:"required"`
}

// OptionInput is one entry of an edited option list.
type OptionInput struct {
	ID    string `json:"_id,omitempty"`
	Label string `json:"option"`
}

func (o *OptionInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		o.ID = ""
		return json.Unmarshal(data, &o.Label)
	}

	type plain OptionInput
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*o = OptionInput(p)
	return nil
}

// Response types

type MessageResponse struct {
	Message string `json:"message"`
}

type StartVerificationResponse struct {
	ChallengeID string    `json:"challengeId"`
	Method      string    `json:"method"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

type VerifyCodeResponse struct {
	Ticket    string    `json:"ticket"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type AdminTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// PollEvent is pushed to websocket subscribers after each mutation.
type PollEvent struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	PollID string `json:"pollId"`
}

// Domain types

type Poll struct {
	ID        string    `json:"_id"`
	Question  string    `json:"question"`
	Options   []Option  `json:"options"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Option struct {
	ID    string `json:"_id"`
	Label string `json:"option"`
	Votes int64  `json:"votes"`
}

// Option returns the option with the given id.
func (p *Poll) Option(id string) (Option, bool) {
	for _, opt := range p.Options {
		if opt.ID == id {
			return opt, true
		}
	}
	return Option{}, false
}

// TotalVotes sums the vote counters of all options.
func (p *Poll) TotalVotes() int64 {
	var total int64
	for _, opt := range p.Options {
		total += opt.Votes
	}
	return total
}

// Ballot records that one identity voted on one poll.
type Ballot struct {
	ID       string    `json:"id"`
	PollID   string    `json:"poll_id"`
	OptionID string    `json:"option_id"`
	VoterID  string    `json:"-"` // Never expose in JSON
	CastAt   time.Time `json:"cast_at"`
}

// Challenge is a backend-issued verification code awaiting confirmation.
type Challenge struct {
	ID          string     `json:"id"`
	PollID      string     `json:"poll_id"`
	Method      string     `json:"method"`
	Destination string     `json:"-"`
	CodeHash    string     `json:"-"`
	Attempts    int        `json:"attempts"`
	ExpiresAt   time.Time  `json:"expires_at"`
	ConsumedAt  *time.Time `json:"consumed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Error response

type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}
