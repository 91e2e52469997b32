package replay

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"github.com/vinayprograms/codeaudit/internal/panel"
	"github.com/vinayprograms/codeaudit/internal/session"
	"github.com/vinayprograms/codeaudit/internal/usage"
)

// StepStat is the recorded outcome of one step.
type StepStat struct {
	Index      int
	Title      string
	Status     string
	Score      *int
	DurationMs int64
	Tokens     usage.TokenUsage
	Success    bool
}

// Stats holds aggregate statistics for a recorded run.
type Stats struct {
	// Wall clock between the first and last event
	WallMs int64

	// Sum of step durations
	StepMs int64

	Steps   []StepStat
	Passed  int
	Failed  int
	Pending int // planned steps with no recorded outcome

	Tokens usage.TokenUsage
	Cost   float64
}

// ComputeStats derives statistics from a session's step_end events. Cost is
// estimated with pricing for the session's model.
func ComputeStats(sess *session.Session, pricing usage.Pricing) *Stats {
	stats := &Stats{}
	var first, last time.Time
	seen := make(map[int]bool)

	for _, event := range sess.Events {
		if first.IsZero() || event.Timestamp.Before(first) {
			first = event.Timestamp
		}
		if last.IsZero() || event.Timestamp.After(last) {
			last = event.Timestamp
		}
		if event.Type != session.EventStepEnd || event.StepIndex == nil {
			continue
		}

		st := StepStat{
			Index:      *event.StepIndex,
			Title:      event.StepTitle,
			Status:     event.Status,
			Score:      event.Score,
			DurationMs: event.DurationMs,
			Success:    event.Success != nil && *event.Success,
		}
		if event.Tokens != nil {
			st.Tokens = *event.Tokens
		}
		stats.Steps = append(stats.Steps, st)
		seen[st.Index] = true

		stats.StepMs += st.DurationMs
		stats.Tokens = stats.Tokens.Add(st.Tokens)
		if st.Success {
			stats.Passed++
		} else {
			stats.Failed++
		}
	}

	if !first.IsZero() {
		stats.WallMs = last.Sub(first).Milliseconds()
	}
	for i := range sess.Steps {
		if !seen[i] {
			stats.Pending++
		}
	}
	if pricing == nil {
		pricing = usage.DefaultPricing()
	}
	stats.Cost = pricing.Cost(sess.Model, stats.Tokens)
	return stats
}

// PrintStats outputs the statistics to the writer.
func PrintStats(w io.Writer, stats *Stats) {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))

	fmt.Fprintln(w)
	fmt.Fprintln(w, headerStyle.Render("RUN STATISTICS"))
	fmt.Fprintln(w, divider)

	fmt.Fprintf(w, "%s %s\n", labelStyle.Render("Wall time: "), valueStyle.Render(formatDuration(stats.WallMs)))
	fmt.Fprintf(w, "%s %s\n", labelStyle.Render("Step time: "), valueStyle.Render(formatDuration(stats.StepMs)))

	steps := successStyle.Render(fmt.Sprintf("%d passed", stats.Passed))
	if stats.Failed > 0 {
		steps += "  " + errorStyle.Render(fmt.Sprintf("%d failed", stats.Failed))
	}
	if stats.Pending > 0 {
		steps += "  " + warnStyle.Render(fmt.Sprintf("%d not run", stats.Pending))
	}
	fmt.Fprintf(w, "%s %s\n", labelStyle.Render("Steps:     "), steps)
	fmt.Fprintln(w)

	if len(stats.Steps) > 0 {
		fmt.Fprintln(w, headerStyle.Render("Per step:"))
		for _, st := range stats.Steps {
			score := "   -"
			if st.Score != nil {
				score = fmt.Sprintf("%4d", *st.Score)
			}
			title := truncate.StringWithTail(st.Title, 30, "…")
			fmt.Fprintf(w, "  %s %-30s %s %s %s\n",
				labelStyle.Render(fmt.Sprintf("%2d.", st.Index+1)),
				title,
				statusStyle(st.Status).Render(fmt.Sprintf("%-6s", st.Status)),
				valueStyle.Render(score),
				dimStyle.Render(fmt.Sprintf("%8s  %s tok", formatDuration(st.DurationMs), panel.FormatTokens(st.Tokens.Billable()))))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, headerStyle.Render("Token usage:"))
	t := stats.Tokens
	fmt.Fprintf(w, "  %s %s\n", labelStyle.Render("Input:      "), valueStyle.Render(panel.FormatThousands(t.InputTokens)))
	fmt.Fprintf(w, "  %s %s\n", labelStyle.Render("Output:     "), valueStyle.Render(panel.FormatThousands(t.OutputTokens)))
	fmt.Fprintf(w, "  %s %s\n", labelStyle.Render("Cache read: "), valueStyle.Render(panel.FormatThousands(t.CacheReadTokens)))
	fmt.Fprintf(w, "  %s %s\n", labelStyle.Render("Cache write:"), valueStyle.Render(panel.FormatThousands(t.CacheWriteTokens)))
	fmt.Fprintf(w, "  %s %s\n", labelStyle.Render("Est. cost:  "), valueStyle.Render(panel.FormatCost(stats.Cost)))
}

// formatDuration formats milliseconds as human-readable duration.
func formatDuration(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	if ms < 60000 {
		return fmt.Sprintf("%.2fs", float64(ms)/1000)
	}
	mins := ms / 60000
	secs := (ms % 60000) / 1000
	return fmt.Sprintf("%dm%ds", mins, secs)
}
