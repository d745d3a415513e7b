// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package hub pushes poll change notifications over websockets.

Every successful mutation publishes one event:

	{"type": "poll_changed", "action": "voted", "pollId": "..."}

Events carry no poll data. Clients refetch the list when they see one.

Run must be running for clients to register and receive events:

	h := hub.New()
	go h.Run(ctx)
	r.Get("/api/polls/events", h.ServeWS)
*/
package hub
