package replay

import (
	"fmt"

	"github.com/vinayprograms/codeaudit/internal/panel"
	"github.com/vinayprograms/codeaudit/internal/session"
)

// formatEvent writes one timeline row.
func (r *Replayer) formatEvent(seq int, event *session.Event) {
	ts := timeStyle.Render(event.Timestamp.Format("15:04:05"))
	seqNum := seqStyle.Render(fmt.Sprintf("%d", seq))

	switch event.Type {
	case session.EventRunStart:
		r.fmtRunStart(seqNum, ts, event)
	case session.EventStepStart:
		r.fmtStepStart(seqNum, ts, event)
	case session.EventStepEnd:
		r.fmtStepEnd(seqNum, ts, event)
	case session.EventRunEnd:
		r.fmtRunEnd(seqNum, ts, event)
	default:
		fmt.Fprintf(r.output, "%s │ %s │ %s\n", seqNum, ts, dimStyle.Render(event.Type))
	}
}

func (r *Replayer) fmtRunStart(seqNum, ts string, event *session.Event) {
	fmt.Fprintf(r.output, "%s │ %s │ %s %s\n", seqNum, ts,
		flowStyle.Render("RUN START"),
		dimStyle.Render(fmt.Sprintf("(%s/%s, %d steps)", event.Agent, event.Model, event.TotalSteps)))
}

func (r *Replayer) fmtStepStart(seqNum, ts string, event *session.Event) {
	if r.verbosity < 1 {
		return
	}
	fmt.Fprintf(r.output, "%s │ %s │ %s %s\n", seqNum, ts,
		stepStyle.Render(fmt.Sprintf("STEP %s", stepLabel(event))),
		dimStyle.Render(event.StepTitle))
}

func (r *Replayer) fmtStepEnd(seqNum, ts string, event *session.Event) {
	line := fmt.Sprintf("%s │ %s │ %s %s %s", seqNum, ts,
		stepStyle.Render(fmt.Sprintf("STEP %s", stepLabel(event))),
		valueStyle.Render(event.StepTitle),
		statusStyle(event.Status).Render(event.Status))
	if event.Score != nil {
		line += " " + valueStyle.Render(fmt.Sprintf("%d/100", *event.Score))
	}
	line += " " + dimStyle.Render(fmt.Sprintf("(%s)", formatDuration(event.DurationMs)))
	fmt.Fprintln(r.output, line)

	if r.verbosity >= 1 && event.Tokens != nil {
		t := event.Tokens
		fmt.Fprintf(r.output, "%s   %s\n", r.indent(),
			dimStyle.Render(fmt.Sprintf("tokens in=%d out=%d cache_read=%d cache_write=%d",
				t.InputTokens, t.OutputTokens, t.CacheReadTokens, t.CacheWriteTokens)))
	}
	if event.Error != "" {
		exit := ""
		if event.ExitCode != nil {
			exit = fmt.Sprintf(" [exit %d]", *event.ExitCode)
		}
		fmt.Fprintf(r.output, "%s   %s\n", r.indent(), errorStyle.Render("error"+exit+": "+event.Error))
	}
}

func (r *Replayer) fmtRunEnd(seqNum, ts string, event *session.Event) {
	fmt.Fprintf(r.output, "%s │ %s │ %s %s %s\n", seqNum, ts,
		flowStyle.Render("RUN END"),
		statusStyle(event.Status).Render(event.Status),
		dimStyle.Render(fmt.Sprintf("(%d passed, %d failed, %s)", event.Passed, event.Failed, panel.FormatCost(event.Cost))))
}

// indent aligns continuation lines under the timeline's content column.
func (r *Replayer) indent() string {
	return "      │          │"
}

func stepLabel(event *session.Event) string {
	if event.StepIndex == nil {
		return "?"
	}
	return fmt.Sprintf("%d", *event.StepIndex+1)
}
