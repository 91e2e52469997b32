// Package tui provides the interactive selection prompt used when more than
// one agent or model could serve a run.
package tui

import (
	"errors"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrCancelled is returned when the user quits without choosing.
var ErrCancelled = errors.New("selection cancelled")

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("14"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")).
			Bold(true)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))
)

// model is a single-choice cursor list.
type model struct {
	title     string
	options   []string
	cursor    int
	chosen    int
	cancelled bool
}

func newModel(title string, options []string) model {
	return model{title: title, options: options, chosen: -1}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "ctrl+c", "q", "esc":
		m.cancelled = true
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.options)-1 {
			m.cursor++
		}
	case "home", "g":
		m.cursor = 0
	case "end", "G":
		m.cursor = max(0, len(m.options)-1)
	case "enter", " ":
		if len(m.options) > 0 {
			m.chosen = m.cursor
			return m, tea.Quit
		}
	default:
		// digits jump straight to an option
		if s := key.String(); len(s) == 1 && s[0] >= '1' && s[0] <= '9' {
			if i := int(s[0] - '1'); i < len(m.options) {
				m.cursor = i
			}
		}
	}
	return m, nil
}

func (m model) View() string {
	if m.chosen >= 0 || m.cancelled {
		return ""
	}
	var s strings.Builder
	s.WriteString(titleStyle.Render(m.title) + "\n\n")
	for i, opt := range m.options {
		cursor := "  "
		style := normalStyle
		if i == m.cursor {
			cursor = "> "
			style = selectedStyle
		}
		s.WriteString(cursor + style.Render(opt) + "\n")
	}
	s.WriteString("\n" + dimStyle.Render("↑/↓ to move, Enter to select, q to cancel") + "\n")
	return s.String()
}

// Chooser runs the list as a bubbletea program on the terminal.
type Chooser struct {
	in  io.Reader
	out io.Writer
}

// NewChooser creates a chooser reading keys from stdin and drawing to stderr,
// so that stdout stays clean for the run output.
func NewChooser() *Chooser {
	return &Chooser{in: os.Stdin, out: os.Stderr}
}

// Choose shows options under title and returns the selected index.
func (c *Chooser) Choose(title string, options []string) (int, error) {
	if len(options) == 0 {
		return -1, errors.New("nothing to choose from")
	}
	if len(options) == 1 {
		return 0, nil
	}
	prog := tea.NewProgram(newModel(title, options), tea.WithInput(c.in), tea.WithOutput(c.out))
	final, err := prog.Run()
	if err != nil {
		return -1, err
	}
	m := final.(model)
	if m.cancelled || m.chosen < 0 {
		return -1, ErrCancelled
	}
	return m.chosen, nil
}
