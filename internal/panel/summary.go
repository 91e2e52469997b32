package panel

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Summary is what the end-of-run card shows.
type Summary struct {
	Passed       int
	Failed       int
	Duration     time.Duration
	Tokens       int
	Cost         float64
	ReportPath   string
	ReportExists bool
	Interrupted  bool
}

// RenderSummary draws the summary card.
func RenderSummary(s Summary) string {
	total := s.Passed + s.Failed

	var title string
	switch {
	case s.Interrupted:
		title = yellowStyle.Bold(true).Render("⚠") + "  " + yellowStyle.Bold(true).Render("AUDIT INTERRUPTED")
	case s.Failed == 0:
		title = greenStyle.Bold(true).Render("✔") + "  " + greenStyle.Bold(true).Render("AUDIT COMPLETE")
	default:
		title = yellowStyle.Bold(true).Render("⚠") + "  " + yellowStyle.Bold(true).Render("AUDIT FINISHED")
	}
	titlePad := max(0, (contentWidth-lipgloss.Width(title))/2)

	steps := greenStyle.Render(fmt.Sprintf("%d/%d passed", s.Passed, total))
	if s.Failed > 0 {
		steps = fmt.Sprintf("%d/%d passed  %s", s.Passed, total, redStyle.Render(fmt.Sprintf("%d failed", s.Failed)))
	}

	lines := []string{
		"",
		borderTop(),
		emptyLine(),
		padLine(strings.Repeat(" ", titlePad) + title),
		emptyLine(),
		borderSep(),
		emptyLine(),
		padLine(dimStyle.Render("Steps") + "      " + steps),
		padLine(dimStyle.Render("Duration") + "   " + FormatDuration(s.Duration)),
		padLine(dimStyle.Render("Tokens") + "     " + FormatThousands(s.Tokens)),
		padLine(dimStyle.Render("Cost") + "       " + FormatCost(s.Cost)),
		emptyLine(),
	}
	if s.ReportExists {
		lines = append(lines,
			padLine(dimStyle.Render("Report")+" "+dimStyle.Render("→")+"  "+linkStyle.Render(s.ReportPath)),
			emptyLine(),
		)
	}
	lines = append(lines, borderBot(), "")
	return strings.Join(lines, "\n")
}

// PrintSummary writes the summary card to w.
func PrintSummary(w io.Writer, s Summary) {
	fmt.Fprintln(w, RenderSummary(s))
}
