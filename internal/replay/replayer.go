// Package replay renders recorded audit runs.
package replay

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/vinayprograms/codeaudit/internal/session"
	"github.com/vinayprograms/codeaudit/internal/usage"
)

// Replayer reads and formats run sessions.
type Replayer struct {
	output    io.Writer
	verbosity int // 0=normal, 1=verbose (step starts and token breakdown)
	pricing   usage.Pricing
}

// ReplayerOption configures a Replayer.
type ReplayerOption func(*Replayer)

// WithPricing sets the rate table used for the cost estimate.
func WithPricing(p usage.Pricing) ReplayerOption {
	return func(r *Replayer) {
		r.pricing = p
	}
}

// New creates a new Replayer.
func New(output io.Writer, verbosity int, opts ...ReplayerOption) *Replayer {
	r := &Replayer{
		output:    output,
		verbosity: verbosity,
		pricing:   usage.DefaultPricing(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReplayFile loads and replays a session from a file.
func (r *Replayer) ReplayFile(path string) error {
	sess, err := session.LoadFile(path)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	return r.Replay(sess)
}

// Render returns the formatted session as a string.
func (r *Replayer) Render(sess *session.Session) string {
	var buf strings.Builder
	old := r.output
	r.output = &buf
	r.Replay(sess)
	r.output = old
	return buf.String()
}

// ReplayFileLive opens a pager that re-renders whenever the session file is
// rewritten.
func (r *Replayer) ReplayFileLive(path string) error {
	render := func() (string, error) {
		sess, err := session.LoadFile(path)
		if err != nil {
			return "", err
		}
		return r.Render(sess), nil
	}

	sess, err := session.LoadFile(path)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	title := fmt.Sprintf("%s audit %s (LIVE)", sess.Audit, shortID(sess.ID))
	return RunLive(title, path, render)
}

// Replay outputs a formatted timeline of the session.
func (r *Replayer) Replay(sess *session.Session) error {
	r.printHeader(sess)
	r.printTimeline(sess)
	r.printSummary(sess)
	return nil
}

func (r *Replayer) printHeader(sess *session.Session) {
	fmt.Fprintln(r.output)
	fmt.Fprintf(r.output, "%s %s\n", titleStyle.Render("RUN"), valueStyle.Render(sess.ID))
	fmt.Fprintln(r.output, divider)
	fmt.Fprintf(r.output, "%s %s\n", labelStyle.Render("Audit:   "), valueStyle.Render(sess.Audit))
	fmt.Fprintf(r.output, "%s %s\n", labelStyle.Render("Agent:   "), valueStyle.Render(fmt.Sprintf("%s (%s)", sess.Agent, sess.Model)))
	if sess.WorkDir != "" {
		fmt.Fprintf(r.output, "%s %s\n", labelStyle.Render("Project: "), valueStyle.Render(sess.WorkDir))
	}
	fmt.Fprintf(r.output, "%s %s\n", labelStyle.Render("Status:  "), statusStyle(sess.Status).Render(sess.Status))
	fmt.Fprintf(r.output, "%s %s\n", labelStyle.Render("Started: "), valueStyle.Render(sess.CreatedAt.Format(time.RFC3339)))
	fmt.Fprintln(r.output)
}

func (r *Replayer) printTimeline(sess *session.Session) {
	fmt.Fprintf(r.output, "%s %s\n", titleStyle.Render("TIMELINE"), dimStyle.Render(fmt.Sprintf("(%d events)", len(sess.Events))))
	fmt.Fprintln(r.output, divider)

	for i := range sess.Events {
		r.formatEvent(i+1, &sess.Events[i])
	}
}

func (r *Replayer) printSummary(sess *session.Session) {
	fmt.Fprintln(r.output)
	fmt.Fprintln(r.output, divider)

	switch sess.Status {
	case session.StatusComplete:
		fmt.Fprintln(r.output, successStyle.Render("COMPLETED"))
	case session.StatusFailed:
		fmt.Fprintln(r.output, errorStyle.Render("COMPLETED WITH FAILURES"))
	case session.StatusInterrupted:
		fmt.Fprintln(r.output, warnStyle.Render("INTERRUPTED"))
	default:
		fmt.Fprintln(r.output, warnStyle.Render("RUNNING"))
	}
	if sess.Error != "" {
		fmt.Fprintf(r.output, "%s %s\n", errorStyle.Render("Error:"), valueStyle.Render(sess.Error))
	}

	PrintStats(r.output, ComputeStats(sess, r.pricing))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
