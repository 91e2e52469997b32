package panel

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

const (
	contentWidth = 56
	indent       = "  "
	barWidth     = 20
	barColor     = "#6C63FF"
)

var (
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	boldStyle   = lipgloss.NewStyle().Bold(true)
	greenStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	yellowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	redStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	cyanStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	plainStyle  = lipgloss.NewStyle()
	linkStyle   = lipgloss.NewStyle().Underline(true)
)

// FormatDuration renders d as "42s" or "3m 07s".
func FormatDuration(d time.Duration) string {
	secs := int(d / time.Second)
	if secs < 0 {
		secs = 0
	}
	if secs < 60 {
		return fmt.Sprintf("%ds", secs)
	}
	return fmt.Sprintf("%dm %02ds", secs/60, secs%60)
}

// FormatTokens renders a token count compactly: 950, 12K, 1.2M.
func FormatTokens(n int) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%dK", (n+500)/1_000)
	default:
		return strconv.Itoa(n)
	}
}

// FormatThousands renders n with comma group separators.
func FormatThousands(n int) string {
	s := strconv.Itoa(n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// FormatCost renders an approximate USD amount.
func FormatCost(cost float64) string {
	return fmt.Sprintf("~$%.2f", cost)
}

func statusIcon(s Status) string {
	switch s {
	case StatusStrong:
		return greenStyle.Render("✔")
	case StatusFair:
		return yellowStyle.Render("▲")
	case StatusWeak, StatusError:
		return redStyle.Render("✖")
	case StatusInfo:
		return cyanStyle.Render("●")
	default:
		return dimStyle.Render("○")
	}
}

func statusStyle(s Status) lipgloss.Style {
	switch s {
	case StatusStrong:
		return greenStyle
	case StatusFair:
		return yellowStyle
	case StatusWeak, StatusError:
		return redStyle
	case StatusRunning:
		return cyanStyle
	case StatusInfo:
		return plainStyle
	default:
		return dimStyle
	}
}

// Box drawing shared by the panel and the summary card.

func padLine(content string) string {
	pad := max(0, contentWidth-lipgloss.Width(content))
	return dimStyle.Render(indent+"│") + "  " + content + strings.Repeat(" ", pad) + "  " + dimStyle.Render("│")
}

func emptyLine() string { return padLine("") }

func border(left, right string) string {
	return dimStyle.Render(indent + left + strings.Repeat("─", contentWidth+4) + right)
}

func borderTop() string { return border("┌", "┐") }
func borderSep() string { return border("├", "┤") }
func borderBot() string { return border("└", "┘") }

// fillDots joins prefix and suffix with a dotted leader spanning the content width.
func fillDots(prefix, suffix string) string {
	dots := contentWidth - lipgloss.Width(prefix) - lipgloss.Width(suffix)
	if dots > 2 {
		return prefix + dimStyle.Render(" "+strings.Repeat("·", dots-2)+" ") + suffix
	}
	return prefix + " " + suffix
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}
