// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package dashboard models the admin poll dashboard.

Load fetches every poll. Each poll can be expanded and drawn as a bar or pie
chart; both are view state only.

Edits go through a Form pre-populated from the poll. Rows can be added and
removed down to the two option minimum, the form is validated with the same
rules as the server, and Submit sends a full update before reloading:

	f, _ := d.EditForm(pollID)
	f.AddOption()
	f.Options[len(f.Options)-1].Label = "Ramen"
	poll, err := d.Submit(ctx, f)

Deleting takes two steps so the caller can show a confirmation first:

	c, _ := d.RequestDelete(pollID)
	err := d.ConfirmDelete(ctx, c)
*/
package dashboard
