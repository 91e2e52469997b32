package replay

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vinayprograms/codeaudit/internal/panel"
	"github.com/vinayprograms/codeaudit/internal/session"
)

const (
	gray   = lipgloss.Color("8")
	red    = lipgloss.Color("9")
	green  = lipgloss.Color("10")
	yellow = lipgloss.Color("11")
	cyan   = lipgloss.Color("14")
	white  = lipgloss.Color("15")
)

var (
	dimStyle   = lipgloss.NewStyle().Foreground(gray)
	labelStyle = dimStyle
	timeStyle  = dimStyle
	valueStyle = lipgloss.NewStyle().Foreground(white)
	titleStyle = valueStyle.Bold(true)
	flowStyle  = titleStyle // RUN START / RUN END rows
	stepStyle  = lipgloss.NewStyle().Foreground(cyan)

	successStyle = lipgloss.NewStyle().Foreground(green)
	errorStyle   = lipgloss.NewStyle().Foreground(red)
	warnStyle    = lipgloss.NewStyle().Foreground(yellow)

	// right-aligned sequence column of the timeline
	seqStyle = dimStyle.Width(5).Align(lipgloss.Right)

	divider = dimStyle.Render(strings.Repeat("━", 60))
)

// statusStyle colors a step status or a run status.
func statusStyle(status string) lipgloss.Style {
	switch status {
	case string(panel.StatusStrong), session.StatusComplete:
		return successStyle
	case string(panel.StatusFair), session.StatusRunning:
		return warnStyle
	case string(panel.StatusInfo):
		return stepStyle
	case string(panel.StatusWeak), string(panel.StatusError), session.StatusFailed, session.StatusInterrupted:
		return errorStyle
	default:
		return valueStyle
	}
}
