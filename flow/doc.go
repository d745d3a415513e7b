// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package flow is the voter-side verification state machine.

	idle → method-selection
	  → phone-entry → otp-sent-wait → otp-verify   → submitted
	  → email-entry → email-sent-wait → email-verify → submitted
	  → face-init → face-detect → face-verify      → submitted

Any state before submitted can move to cancelled.

Phone and email codes are issued and checked by the server; a verified code
returns a vote ticket, and the vote is cast with that ticket. A code is good
for 120 seconds, after which the session returns to the entry step. Face
detection and matching are simulated with fixed delays, and the vote is cast
with the session's existing token.

The vote-cast call is made once per submission. On failure the error is
recorded and the session returns to the step it was submitted from; nothing
is retried automatically.

Timers come from Config.AfterFunc. A callback that fires after a later
transition is ignored.
*/
package flow
