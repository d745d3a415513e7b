// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"

	"github.com/danielhkuo/votedesk/booth"
	"github.com/danielhkuo/votedesk/client"
	"github.com/danielhkuo/votedesk/dashboard"
	"github.com/danielhkuo/votedesk/flow"
	"github.com/danielhkuo/votedesk/models"
	"github.com/danielhkuo/votedesk/session"
	"github.com/danielhkuo/votedesk/summary"
)

const faceTimeout = 30 * time.Second

var errUsage = errors.New("usage: votedesk <login|whoami|polls|summary|create|edit|delete|watch|vote> [flags]")

type app struct {
	api         *client.Client
	session     *session.Store
	out         io.Writer
	interactive bool
	prompt      func(label string) (string, error)

	// afterFunc drives verification timers; nil uses real time
	afterFunc flow.AfterFunc
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}

	cmd, args := args[0], args[1:]
	switch cmd {
	case "login":
		return a.login(ctx, args)
	case "whoami":
		return a.whoami()
	case "polls":
		return a.polls(ctx, args)
	case "summary":
		return a.summary(ctx, args)
	case "create":
		return a.create(ctx, args)
	case "edit":
		return a.edit(ctx, args)
	case "delete":
		return a.delete(ctx, args)
	case "watch":
		return a.watch(ctx)
	case "vote":
		return a.vote(ctx, args)
	default:
		return fmt.Errorf("unknown command %q\n%w", cmd, errUsage)
	}
}

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	return fs
}

func (a *app) requireAdmin() error {
	if !a.session.IsAdmin() {
		return errors.New("admin session required; run votedesk login and export VOTEDESK_TOKEN")
	}
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := a.flags("login")
	key := fs.String("key", os.Getenv("ADMIN_KEY"), "Admin key (default $ADMIN_KEY)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *key == "" {
		return errors.New("admin key required (-key or ADMIN_KEY)")
	}

	resp, err := a.api.AdminToken(ctx, *key)
	if err != nil {
		return err
	}
	if err := a.session.Set(resp.Token); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Signed in as admin, token expires %s\n", humanize.Time(resp.ExpiresAt))
	fmt.Fprintf(a.out, "export VOTEDESK_TOKEN=%s\n", resp.Token)
	return nil
}

func (a *app) whoami() error {
	claims, ok := a.session.Claims()
	if !ok {
		fmt.Fprintln(a.out, "Not signed in")
		return nil
	}

	fmt.Fprintf(a.out, "%s (%s)", claims.Subject, claims.Role)
	if claims.ExpiresAt != nil {
		fmt.Fprintf(a.out, ", expires %s", humanize.Time(claims.ExpiresAt.Time))
	}
	fmt.Fprintln(a.out)
	return nil
}

func (a *app) polls(ctx context.Context, args []string) error {
	fs := a.flags("polls")
	chart := fs.String("chart", string(dashboard.ChartBar), "Chart type: bar or pie")
	if err := fs.Parse(args); err != nil {
		return err
	}

	d := dashboard.New(a.api)
	if err := d.Load(ctx); err != nil {
		return err
	}

	polls := d.Polls()
	if len(polls) == 0 {
		fmt.Fprintln(a.out, "No polls yet")
		return nil
	}

	for _, p := range polls {
		if err := d.SetChart(p.ID, dashboard.ChartType(*chart)); err != nil {
			return err
		}
		s, err := d.Series(p.ID)
		if err != nil {
			return err
		}
		a.printSeries(p, s)
	}
	return nil
}

func (a *app) summary(ctx context.Context, args []string) error {
	fs := a.flags("summary")
	id := fs.String("id", "", "Poll ID")
	if err := fs.Parse(args); err != nil {
		return err
	}

	report, err := dashboard.New(a.api).Summary(ctx, *id)
	if err != nil {
		return err
	}
	a.printReport(report)
	return nil
}

func (a *app) create(ctx context.Context, args []string) error {
	if err := a.requireAdmin(); err != nil {
		return err
	}

	fs := a.flags("create")
	question := fs.String("q", "", "Question")
	if err := fs.Parse(args); err != nil {
		return err
	}

	f := dashboard.NewForm()
	f.Question = *question
	for i, label := range fs.Args() {
		if i >= len(f.Options) {
			f.AddOption()
		}
		f.Options[i].Label = label
	}

	poll, err := dashboard.New(a.api).Submit(ctx, f)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Created poll %s with %s\n", poll.ID, english.Plural(len(poll.Options), "option", ""))
	return nil
}

func (a *app) edit(ctx context.Context, args []string) error {
	if err := a.requireAdmin(); err != nil {
		return err
	}

	var add, remove stringList
	fs := a.flags("edit")
	id := fs.String("id", "", "Poll ID")
	question := fs.String("q", "", "New question")
	fs.Var(&add, "add", "Option to add (repeatable)")
	fs.Var(&remove, "remove", "Option label to remove (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	d := dashboard.New(a.api)
	if err := d.Load(ctx); err != nil {
		return err
	}
	f, err := d.EditForm(*id)
	if err != nil {
		return err
	}

	if *question != "" {
		f.Question = *question
	}
	for _, label := range add {
		f.AddOption()
		f.Options[len(f.Options)-1].Label = label
	}
	for _, label := range remove {
		i := optionIndex(f, label)
		if i < 0 {
			return fmt.Errorf("poll has no option %q", label)
		}
		if err := f.RemoveOption(i); err != nil {
			return err
		}
	}

	poll, err := d.Submit(ctx, f)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Updated poll %s\n", poll.ID)
	return nil
}

func (a *app) delete(ctx context.Context, args []string) error {
	if err := a.requireAdmin(); err != nil {
		return err
	}

	fs := a.flags("delete")
	id := fs.String("id", "", "Poll ID")
	yes := fs.Bool("yes", false, "Skip the confirmation prompt")
	if err := fs.Parse(args); err != nil {
		return err
	}

	d := dashboard.New(a.api)
	if err := d.Load(ctx); err != nil {
		return err
	}
	c, err := d.RequestDelete(*id)
	if err != nil {
		return err
	}

	if !*yes {
		if !a.interactive {
			d.CancelDelete(c)
			return errors.New("refusing to delete without -yes when stdin is not a terminal")
		}
		answer, err := a.prompt(fmt.Sprintf("Delete %q and its %s? [y/N]", c.Question, votes(c.Votes)))
		if err != nil || !strings.EqualFold(answer, "y") {
			d.CancelDelete(c)
			fmt.Fprintln(a.out, "Cancelled")
			return nil
		}
	}

	if err := d.ConfirmDelete(ctx, c); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Deleted poll %s\n", c.PollID)
	return nil
}

// watch prints poll events until interrupted.
func (a *app) watch(ctx context.Context) error {
	events, err := a.api.Events(ctx)
	if err != nil {
		return err
	}

	d := dashboard.New(a.api)
	if err := d.Load(ctx); err != nil {
		return err
	}

	relay := make(chan models.PollEvent)
	go func() {
		defer close(relay)
		for evt := range events {
			fmt.Fprintf(a.out, "%s  %s %s\n", time.Now().Format(time.TimeOnly), evt.Action, evt.PollID)
			select {
			case relay <- evt:
			case <-ctx.Done():
				return
			}
		}
	}()

	err = d.Watch(ctx, relay)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *app) vote(ctx context.Context, args []string) error {
	fs := a.flags("vote")
	pollID := fs.String("poll", "", "Poll ID")
	option := fs.String("option", "", "Option label or ID")
	method := fs.String("method", models.MethodEmail, "Verification method: email, otp or face")
	to := fs.String("to", "", "Email address or phone number for the code")
	if err := fs.Parse(args); err != nil {
		return err
	}

	snaps := make(chan flow.Snapshot, 64)
	b := booth.New(a.api, booth.Options{
		AfterFunc: a.afterFunc,
		OnChange: func(s flow.Snapshot) {
			select {
			case snaps <- s:
			default:
			}
		},
	})
	if err := b.Refresh(ctx); err != nil {
		return err
	}

	optionID, err := resolveOption(b.Polls(), *pollID, *option)
	if err != nil {
		return err
	}
	if err := b.Select(*pollID, optionID); err != nil {
		return err
	}

	sess, err := b.StartVote(*pollID)
	if err != nil {
		return err
	}
	if err := sess.ChooseMethod(*method); err != nil {
		_ = sess.Cancel()
		return err
	}

	if *method == models.MethodFace {
		err = a.faceVote(ctx, b, sess, snaps, *pollID)
	} else {
		err = a.codeVote(ctx, sess, *to)
	}
	if err != nil {
		// Fails once submitted, which is fine
		_ = sess.Cancel()
		return err
	}

	fmt.Fprintln(a.out, "Vote recorded")
	report, err := b.Results(*pollID)
	if err != nil {
		return err
	}
	a.printReport(&report)
	return nil
}

func (a *app) codeVote(ctx context.Context, sess *flow.Session, to string) error {
	if to == "" {
		return errors.New("-to is required for code verification")
	}
	if err := sess.SetDestination(to); err != nil {
		return err
	}
	if err := sess.SendCode(ctx); err != nil {
		return err
	}

	for {
		code, err := a.prompt("Code sent to " + to + ", enter it")
		if err != nil {
			return err
		}
		if err := sess.EnterCode(code); err != nil {
			return err
		}

		err = sess.Verify(ctx)
		if retryable(err) {
			var verr *client.VerificationError
			errors.As(err, &verr)
			fmt.Fprintln(a.out, verr.Message)
			continue
		}
		return err
	}
}

// retryable reports whether another code may be typed for the same
// challenge. Expired, used and locked challenges are final.
func retryable(err error) bool {
	var verr *client.VerificationError
	if !errors.As(err, &verr) {
		return false
	}
	return errors.Is(err, flow.ErrInvalidCode) || verr.Status == http.StatusUnauthorized
}

// faceVote drives the simulated camera steps. The vote is cast with the
// signed-in session.
func (a *app) faceVote(ctx context.Context, b *booth.Booth, sess *flow.Session, snaps <-chan flow.Snapshot, pollID string) error {
	if a.session.Token() == "" {
		return errors.New("face verification votes with your session; run votedesk login first")
	}
	if err := sess.CameraReady(); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Looking for a face...")

	timeout := time.NewTimer(faceTimeout)
	defer timeout.Stop()

	confirmed := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout.C:
			return errors.New("face verification timed out")
		case s := <-snaps:
			switch {
			case b.HasVoted(pollID):
				return nil
			case s.Err != nil && s.State == flow.FaceVerify:
				return s.Err
			case s.State == flow.FaceDetect && s.FaceDetected && !confirmed:
				confirmed = true
				fmt.Fprintln(a.out, "Face detected, matching...")
				if err := sess.ConfirmFace(); err != nil {
					return err
				}
			}
		}
	}
}

func (a *app) printSeries(p models.Poll, s dashboard.Series) {
	fmt.Fprintf(a.out, "%s  %s  (%s)\n", p.ID, p.Question, votes(p.TotalVotes()))

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for i, label := range s.Labels {
		graph := ""
		if s.Type == dashboard.ChartBar {
			graph = strings.Repeat("#", int(s.Percentages[i]/5))
		}
		fmt.Fprintf(w, "  %s\t%s\t%.1f%%\t%s\n", label, humanize.Comma(s.Values[i]), s.Percentages[i], graph)
	}
	w.Flush()
}

func (a *app) printReport(r *summary.Report) {
	fmt.Fprintf(a.out, "%s, %s participation, %s\n",
		votes(r.TotalVotes), strings.ToLower(r.ParticipationLevel), strings.ToLower(r.DistributionLevel))
	for _, line := range r.Insights {
		fmt.Fprintln(a.out, "  "+line)
	}
}

func resolveOption(polls []models.Poll, pollID, option string) (string, error) {
	for _, p := range polls {
		if p.ID != pollID {
			continue
		}
		for _, opt := range p.Options {
			if opt.ID == option || opt.Label == option {
				return opt.ID, nil
			}
		}
		return "", fmt.Errorf("%w: %q", booth.ErrUnknownOption, option)
	}
	return "", booth.ErrUnknownPoll
}

func optionIndex(f *dashboard.Form, label string) int {
	for i, opt := range f.Options {
		if opt.Label == label {
			return i
		}
	}
	return -1
}

func votes(n int64) string {
	return humanize.Comma(n) + " " + english.PluralWord(int(n), "vote", "")
}

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}
