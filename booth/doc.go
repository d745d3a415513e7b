// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package booth models the voting screen. It keeps the poll list, the
// voter's selection per poll, and which polls were voted on during this
// session. Voting runs through a flow.Session; once the vote is accepted
// the list is refetched and the poll's summary becomes available.
package booth
