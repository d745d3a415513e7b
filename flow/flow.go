// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package flow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/danielhkuo/votedesk/client"
	"github.com/danielhkuo/votedesk/models"
	"github.com/danielhkuo/votedesk/validation"
)

// State is a step of the verification flow.
type State string

const (
	Idle            State = "idle"
	MethodSelection State = "method-selection"
	PhoneEntry      State = "phone-entry"
	OTPSentWait     State = "otp-sent-wait"
	OTPVerify       State = "otp-verify"
	EmailEntry      State = "email-entry"
	EmailSentWait   State = "email-sent-wait"
	EmailVerify     State = "email-verify"
	FaceInit        State = "face-init"
	FaceDetect      State = "face-detect"
	FaceVerify      State = "face-verify"
	Submitted       State = "submitted"
	Cancelled       State = "cancelled"
)

var (
	ErrNoSelection       = errors.New("select an option before voting")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrUnknownMethod     = errors.New("unknown verification method")
	ErrNoDestination     = errors.New("enter a destination first")
	ErrInvalidCode       = errors.New("code must be exactly 6 digits")
	ErrCodeExpired       = errors.New("code expired, request a new one")
	ErrNotDetected       = errors.New("no face detected yet")
	ErrBusy              = errors.New("request already in progress")
	ErrStale             = errors.New("verification session changed during the request")
)

// Defaults
const (
	DefaultCodeTTL     = 120 * time.Second
	DefaultDetectDelay = 1500 * time.Millisecond
	DefaultMatchDelay  = 2 * time.Second

	castTimeout = 15 * time.Second
)

// Backend is the part of the API the flow talks to. *client.Client
// satisfies it.
type Backend interface {
	StartVerification(ctx context.Context, pollID, method, destination string) (*models.StartVerificationResponse, error)
	VerifyCode(ctx context.Context, challengeID, code string) (*models.VerifyCodeResponse, error)
	CastVote(ctx context.Context, pollID, optionID string) error
	CastVoteTicket(ctx context.Context, pollID, optionID, ticket string) error
}

// Timer is a pending callback.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. Tests replace it with a manual clock.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type Config struct {
	PollID    string
	Backend   Backend
	AfterFunc AfterFunc
	Now       func() time.Time

	CodeTTL     time.Duration
	DetectDelay time.Duration
	MatchDelay  time.Duration

	// OnVoted runs once after the vote is accepted.
	OnVoted func(pollID, optionID string)
	// OnChange runs after every transition, including timer driven ones.
	OnChange func(Snapshot)
}

// Snapshot is a read-only view of a session.
type Snapshot struct {
	PollID       string
	OptionID     string
	State        State
	Method       string
	Destination  string
	ExpiresAt    time.Time
	FaceDetected bool
	Err          error
}

// Remaining is the countdown left on the current code.
func (s Snapshot) Remaining(now time.Time) time.Duration {
	if s.ExpiresAt.IsZero() || !now.Before(s.ExpiresAt) {
		return 0
	}
	return s.ExpiresAt.Sub(now)
}

// Session walks one voter through verification and casts their vote.
// Methods are safe to call from any goroutine; timer callbacks take the
// same lock and are ignored once a later transition has happened.
type Session struct {
	mu  sync.Mutex
	cfg Config

	state       State
	optionID    string
	method      string
	destination string
	challengeID string
	code        string
	ticket      string
	expiresAt   time.Time
	detected    bool
	matching    bool
	busy        bool
	resume      State
	err         error

	gen    uint64
	timers []Timer
}

func New(cfg Config) *Session {
	if cfg.AfterFunc == nil {
		cfg.AfterFunc = realAfterFunc
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = DefaultCodeTTL
	}
	if cfg.DetectDelay <= 0 {
		cfg.DetectDelay = DefaultDetectDelay
	}
	if cfg.MatchDelay <= 0 {
		cfg.MatchDelay = DefaultMatchDelay
	}

	return &Session{cfg: cfg, state: Idle}
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RequestVote opens method selection for optionID.
func (s *Session) RequestVote(optionID string) error {
	s.mu.Lock()
	if s.state != Idle {
		defer s.mu.Unlock()
		return s.invalid("request vote")
	}
	if optionID == "" {
		return s.failLocked(ErrNoSelection)
	}

	s.optionID = optionID
	s.err = nil
	s.state = MethodSelection
	return s.changedLocked()
}

func (s *Session) ChooseMethod(method string) error {
	s.mu.Lock()
	if s.state != MethodSelection {
		defer s.mu.Unlock()
		return s.invalid("choose method")
	}

	switch method {
	case models.MethodOTP:
		s.state = PhoneEntry
	case models.MethodEmail:
		s.state = EmailEntry
	case models.MethodFace:
		s.state = FaceInit
	default:
		return s.failLocked(fmt.Errorf("%w: %q", ErrUnknownMethod, method))
	}

	s.method = method
	s.err = nil
	return s.changedLocked()
}

// SetDestination records the phone number or email address after a format
// check.
func (s *Session) SetDestination(destination string) error {
	s.mu.Lock()
	if s.state != PhoneEntry && s.state != EmailEntry {
		defer s.mu.Unlock()
		return s.invalid("set destination")
	}

	if err := validation.Destination(s.method, destination); err != nil {
		return s.failLocked(verificationError(err, "destination"))
	}

	s.destination = destination
	s.err = nil
	return s.changedLocked()
}

// SendCode asks the server for a code and starts the countdown. It may be
// called again to resend.
func (s *Session) SendCode(ctx context.Context) error {
	s.mu.Lock()
	if entryState(s.method) == "" || !s.inCodeBranch() {
		defer s.mu.Unlock()
		return s.invalid("send code")
	}
	if s.destination == "" {
		return s.failLocked(ErrNoDestination)
	}
	if s.busy {
		s.mu.Unlock()
		return ErrBusy
	}

	s.busy = true
	gen := s.gen
	pollID, method, destination := s.cfg.PollID, s.method, s.destination
	s.mu.Unlock()

	resp, err := s.cfg.Backend.StartVerification(ctx, pollID, method, destination)

	s.mu.Lock()
	s.busy = false
	if gen != s.gen {
		s.mu.Unlock()
		return ErrStale
	}
	if err != nil {
		return s.failLocked(err)
	}

	s.invalidateLocked()
	s.challengeID = resp.ChallengeID
	s.code = ""
	s.ticket = ""
	s.expiresAt = s.cfg.Now().Add(s.cfg.CodeTTL)
	s.state = sentWaitState(method)
	s.err = nil

	s.countdownLocked(s.cfg.CodeTTL)

	return s.changedLocked()
}

// EnterCode records the code the user typed.
func (s *Session) EnterCode(code string) error {
	s.mu.Lock()
	if s.state != sentWaitState(s.method) && s.state != verifyState(s.method) {
		defer s.mu.Unlock()
		return s.invalid("enter code")
	}

	s.code = code
	s.state = verifyState(s.method)
	s.err = nil
	return s.changedLocked()
}

// Verify checks the code with the server and, on success, casts the vote
// with the returned ticket. A malformed code fails without a request.
func (s *Session) Verify(ctx context.Context) error {
	s.mu.Lock()
	if s.state != OTPVerify && s.state != EmailVerify {
		defer s.mu.Unlock()
		return s.invalid("verify")
	}
	if !validation.Code(s.code) {
		return s.failLocked(&client.VerificationError{Message: ErrInvalidCode.Error(), Err: ErrInvalidCode})
	}
	if s.busy {
		s.mu.Unlock()
		return ErrBusy
	}

	// A ticket survives a failed cast, so the user can resubmit without a
	// new code
	if s.ticket == "" {
		s.busy = true
		gen := s.gen
		challengeID, code := s.challengeID, s.code
		s.mu.Unlock()

		resp, err := s.cfg.Backend.VerifyCode(ctx, challengeID, code)

		s.mu.Lock()
		s.busy = false
		if gen != s.gen {
			s.mu.Unlock()
			return ErrStale
		}
		if err != nil {
			return s.failLocked(err)
		}
		s.ticket = resp.Ticket
	}

	return s.submitLocked(ctx)
}

// CameraReady starts simulated face detection.
func (s *Session) CameraReady() error {
	s.mu.Lock()
	if s.state != FaceInit {
		defer s.mu.Unlock()
		return s.invalid("camera ready")
	}

	s.state = FaceDetect
	s.detected = false
	s.err = nil

	gen := s.gen
	s.timers = append(s.timers, s.cfg.AfterFunc(s.cfg.DetectDelay, func() {
		s.mu.Lock()
		if gen != s.gen || s.state != FaceDetect {
			s.mu.Unlock()
			return
		}
		s.detected = true
		s.changedLocked()
	}))

	return s.changedLocked()
}

// ConfirmFace starts the simulated match. The vote is cast with the
// session's own token when the match completes.
func (s *Session) ConfirmFace() error {
	s.mu.Lock()
	switch {
	case s.state == FaceDetect && !s.detected:
		return s.failLocked(ErrNotDetected)
	case s.state == FaceDetect, s.state == FaceVerify && !s.matching && !s.busy:
	default:
		defer s.mu.Unlock()
		return s.invalid("confirm face")
	}

	s.invalidateLocked()
	s.state = FaceVerify
	s.matching = true
	s.err = nil

	gen := s.gen
	s.timers = append(s.timers, s.cfg.AfterFunc(s.cfg.MatchDelay, func() {
		s.mu.Lock()
		if gen != s.gen || s.state != FaceVerify {
			s.mu.Unlock()
			return
		}
		s.matching = false

		ctx, cancel := context.WithTimeout(context.Background(), castTimeout)
		defer cancel()
		s.submitLocked(ctx)
	}))

	return s.changedLocked()
}

// Cancel tears the session down without voting. Allowed from any state
// before submission.
func (s *Session) Cancel() error {
	s.mu.Lock()
	if s.state == Submitted || s.state == Cancelled {
		defer s.mu.Unlock()
		return s.invalid("cancel")
	}

	s.invalidateLocked()
	s.clearLocked()
	s.state = Cancelled
	s.err = nil
	return s.changedLocked()
}

// submitLocked enters Submitted and makes the single vote-cast call.
// Called with s.mu held; returns with it released.
func (s *Session) submitLocked(ctx context.Context) error {
	s.resume = s.state
	s.invalidateLocked()
	s.state = Submitted
	s.busy = true
	s.err = nil

	pollID, optionID, ticket := s.cfg.PollID, s.optionID, s.ticket
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.emit(snap)

	var err error
	if ticket != "" {
		err = s.cfg.Backend.CastVoteTicket(ctx, pollID, optionID, ticket)
	} else {
		err = s.cfg.Backend.CastVote(ctx, pollID, optionID)
	}

	s.mu.Lock()
	s.busy = false
	if err != nil {
		s.state = s.resume
		if s.state == verifyState(s.method) {
			// The code keeps its original deadline
			s.countdownLocked(max(s.expiresAt.Sub(s.cfg.Now()), 0))
		}
		return s.failLocked(err)
	}

	s.clearLocked()
	snap = s.snapshotLocked()
	s.mu.Unlock()

	if s.cfg.OnVoted != nil {
		s.cfg.OnVoted(pollID, optionID)
	}
	s.emit(snap)
	return nil
}

// countdownLocked schedules expiry of the current code after d.
func (s *Session) countdownLocked(d time.Duration) {
	gen := s.gen
	s.timers = append(s.timers, s.cfg.AfterFunc(d, func() {
		s.expire(gen)
	}))
}

// expire returns a code session to its entry step when the countdown ends.
func (s *Session) expire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || (s.state != sentWaitState(s.method) && s.state != verifyState(s.method)) {
		s.mu.Unlock()
		return
	}

	s.invalidateLocked()
	s.challengeID = ""
	s.code = ""
	s.ticket = ""
	s.expiresAt = time.Time{}
	s.state = entryState(s.method)
	s.failLocked(ErrCodeExpired)
}

func (s *Session) inCodeBranch() bool {
	return s.state == entryState(s.method) ||
		s.state == sentWaitState(s.method) ||
		s.state == verifyState(s.method)
}

// invalidateLocked stops pending timers and makes any callback already in
// flight a no-op.
func (s *Session) invalidateLocked() {
	s.gen++
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = nil
}

func (s *Session) clearLocked() {
	s.challengeID = ""
	s.code = ""
	s.ticket = ""
	s.expiresAt = time.Time{}
	s.detected = false
	s.matching = false
}

func (s *Session) invalid(op string) error {
	return fmt.Errorf("%w: cannot %s in state %s", ErrInvalidTransition, op, s.state)
}

// failLocked records err, releases the lock, and notifies.
func (s *Session) failLocked(err error) error {
	s.err = err
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.emit(snap)
	return err
}

// changedLocked releases the lock and notifies.
func (s *Session) changedLocked() error {
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.emit(snap)
	return nil
}

func (s *Session) emit(snap Snapshot) {
	if s.cfg.OnChange != nil {
		s.cfg.OnChange(snap)
	}
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		PollID:       s.cfg.PollID,
		OptionID:     s.optionID,
		State:        s.state,
		Method:       s.method,
		Destination:  s.destination,
		ExpiresAt:    s.expiresAt,
		FaceDetected: s.detected,
		Err:          s.err,
	}
}

func entryState(method string) State {
	switch method {
	case models.MethodOTP:
		return PhoneEntry
	case models.MethodEmail:
		return EmailEntry
	}
	return ""
}

func sentWaitState(method string) State {
	switch method {
	case models.MethodOTP:
		return OTPSentWait
	case models.MethodEmail:
		return EmailSentWait
	}
	return ""
}

func verifyState(method string) State {
	switch method {
	case models.MethodOTP:
		return OTPVerify
	case models.MethodEmail:
		return EmailVerify
	}
	return ""
}

func verificationError(err error, field string) error {
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		if msg, ok := verrs[field]; ok {
			return &client.VerificationError{Message: msg, Err: err}
		}
	}
	return &client.VerificationError{Message: err.Error(), Err: err}
}
