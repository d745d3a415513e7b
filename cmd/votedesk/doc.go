// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Command votedesk is a terminal client for a VoteDesk server.

	VOTEDESK_URL=http://localhost:3318 votedesk polls
	votedesk login -key $ADMIN_KEY
	export VOTEDESK_TOKEN=...
	votedesk create -q "Lunch?" Pizza Sushi
	votedesk vote -poll <id> -option Pizza -to me@example.com

Admin commands (create, edit, delete) need VOTEDESK_TOKEN to hold an admin
token. delete asks for confirmation on a terminal and requires -yes
otherwise. vote prompts for the emailed or texted code; -method face runs
the simulated camera check and votes with the signed-in session.
*/
package main
