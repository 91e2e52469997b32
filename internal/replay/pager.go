package replay

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fsnotify/fsnotify"
	"github.com/muesli/reflow/wordwrap"
)

var (
	pagerTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	pagerInfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))

	liveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("10"))

	matchStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))
)

// settleDelay lets a burst of writes finish before re-rendering.
const settleDelay = 100 * time.Millisecond

// RunLive shows render's output in a full-screen pager and refreshes it when
// path changes. Session files are replaced by rename, so the directory is
// watched rather than the file.
func RunLive(title, path string, render func() (string, error)) error {
	content, err := render()
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	m := newPagerModel(title, content)
	m.live = true
	m.render = render
	m.watcher = watcher
	m.target = filepath.Clean(path)

	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion()).Run()
	return err
}

// fileChangedMsg is sent when the watched session file changes.
type fileChangedMsg struct{}

// pagerModel is a scrollable, searchable view of rendered content.
type pagerModel struct {
	viewport viewport.Model
	title    string
	content  string
	wrapped  string // content wrapped to the viewport width
	ready    bool

	live       bool
	follow     bool // keep the view pinned to the bottom on refresh
	render     func() (string, error)
	watcher    *fsnotify.Watcher
	target     string
	lastUpdate time.Time

	searching   bool
	searchInput textinput.Model
	query       string
	matches     []int // wrapped line numbers
	matchIndex  int
	notFound    bool
}

func newPagerModel(title, content string) *pagerModel {
	return &pagerModel{title: title, content: content}
}

func (m *pagerModel) Init() tea.Cmd {
	if m.live && m.watcher != nil {
		return m.waitForChange()
	}
	return nil
}

// isTargetEvent reports whether event rewrote target.
func isTargetEvent(event fsnotify.Event, target string) bool {
	if filepath.Clean(event.Name) != target {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create) != 0
}

// waitForChange blocks until the target file is rewritten.
func (m *pagerModel) waitForChange() tea.Cmd {
	return func() tea.Msg {
		for {
			select {
			case event, ok := <-m.watcher.Events:
				if !ok {
					return nil
				}
				if isTargetEvent(event, m.target) {
					time.Sleep(settleDelay)
					return fileChangedMsg{}
				}
			case _, ok := <-m.watcher.Errors:
				if !ok {
					return nil
				}
			}
		}
	}
}

func (m *pagerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.searching {
		return m.updateSearch(msg)
	}

	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case fileChangedMsg:
		m.refresh()
		if m.watcher != nil {
			cmds = append(cmds, m.waitForChange())
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "esc":
			if m.query == "" {
				return m, tea.Quit
			}
			m.clearSearch()
		case "g":
			m.viewport.GotoTop()
			m.follow = false
		case "G":
			m.viewport.GotoBottom()
		case "f", "F":
			if m.live {
				m.follow = !m.follow
				if m.follow {
					m.viewport.GotoBottom()
				}
			}
		case "/":
			m.searching = true
			m.searchInput = textinput.New()
			m.searchInput.Placeholder = "Search..."
			m.searchInput.CharLimit = 100
			m.searchInput.Width = 40
			m.searchInput.SetValue(m.query)
			m.searchInput.Focus()
			return m, textinput.Blink
		case "n":
			if len(m.matches) > 0 {
				m.matchIndex = (m.matchIndex + 1) % len(m.matches)
				m.jumpToMatch()
			}
		case "N":
			if len(m.matches) > 0 {
				m.matchIndex = (m.matchIndex - 1 + len(m.matches)) % len(m.matches)
				m.jumpToMatch()
			}
		}

	case tea.WindowSizeMsg:
		const chrome = 2 // header and footer lines
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-chrome)
			m.viewport.YPosition = 1
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - chrome
		}
		m.setContent(m.content)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *pagerModel) updateSearch(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "enter":
			m.searching = false
			m.query = m.searchInput.Value()
			m.search()
			if len(m.matches) > 0 {
				m.jumpToMatch()
			}
			return m, nil
		case "esc", "ctrl+c":
			m.searching = false
			m.clearSearch()
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

// refresh re-renders the content, keeping the scroll position unless
// following.
func (m *pagerModel) refresh() {
	if m.render == nil {
		return
	}
	content, err := m.render()
	if err != nil {
		// a partially written file; the next change will retry
		return
	}
	offset := m.viewport.YOffset
	m.setContent(content)
	m.lastUpdate = time.Now()
	if m.follow {
		m.viewport.GotoBottom()
	} else {
		m.viewport.SetYOffset(offset)
	}
}

func (m *pagerModel) setContent(content string) {
	m.content = content
	m.wrapped = wrapContent(content, m.viewport.Width)
	m.viewport.SetContent(m.wrapped)
	if m.query != "" {
		m.search()
	}
}

func (m *pagerModel) clearSearch() {
	m.query = ""
	m.matches = nil
	m.matchIndex = 0
	m.notFound = false
}

// search finds lines of the wrapped content containing the query,
// case-insensitively.
func (m *pagerModel) search() {
	m.matches = nil
	m.matchIndex = 0
	m.notFound = false
	if m.query == "" {
		return
	}
	q := strings.ToLower(m.query)
	for i, line := range strings.Split(m.wrapped, "\n") {
		if strings.Contains(strings.ToLower(line), q) {
			m.matches = append(m.matches, i)
		}
	}
	m.notFound = len(m.matches) == 0
}

// jumpToMatch centers the current match.
func (m *pagerModel) jumpToMatch() {
	if m.matchIndex < 0 || m.matchIndex >= len(m.matches) {
		return
	}
	m.viewport.SetYOffset(m.matches[m.matchIndex] - m.viewport.Height/2)
}

func (m *pagerModel) View() string {
	if !m.ready {
		return "\n  Loading..."
	}

	title := pagerTitleStyle.Render(m.title)
	rule := strings.Repeat("─", max(0, m.viewport.Width-lipgloss.Width(title)))
	header := lipgloss.JoinHorizontal(lipgloss.Center, title, pagerInfoStyle.Render(rule))

	if m.searching {
		return header + "\n" + m.viewport.View() + "\n" + matchStyle.Render("/") + m.searchInput.View()
	}

	info := fmt.Sprintf(" %3.f%% ", m.viewport.ScrollPercent()*100)
	var help string
	switch {
	case m.notFound:
		help = " " + errorStyle.Render("Pattern not found") + " │ /: search "
	case len(m.matches) > 0:
		help = " " + matchStyle.Render(fmt.Sprintf("[%d/%d]", m.matchIndex+1, len(m.matches))) + " │ n/N: next/prev │ esc: clear "
	case m.live:
		mode := "f: follow"
		if m.follow {
			mode = "f: stop following"
		}
		help = " " + liveStyle.Render("● LIVE") + " │ q: quit │ /: search │ " + mode + " "
		if !m.lastUpdate.IsZero() {
			help += "│ updated " + m.lastUpdate.Format("15:04:05") + " "
		}
	default:
		help = " q: quit │ /: search │ g/G: top/bottom "
	}
	fill := strings.Repeat("─", max(0, m.viewport.Width-lipgloss.Width(help)-lipgloss.Width(info)))
	footer := pagerInfoStyle.Render(help) + pagerInfoStyle.Render(fill) + pagerInfoStyle.Render(info)

	return header + "\n" + m.viewport.View() + "\n" + footer
}

// wrapContent wraps lines wider than width. Timeline rows ("seq │ time │
// text") wrap their text column and indent continuations under it.
func wrapContent(content string, width int) string {
	if width <= 0 {
		return content
	}

	var out []string
	for _, line := range strings.Split(content, "\n") {
		if lipgloss.Width(line) <= width {
			out = append(out, line)
			continue
		}

		if last := strings.LastIndex(line, "│"); last > 0 {
			start := last + len("│")
			for start < len(line) && line[start] == ' ' {
				start++
			}
			prefix := line[:start]
			prefixWidth := lipgloss.Width(prefix)
			textWidth := max(20, width-prefixWidth)

			parts := strings.Split(wordwrap.String(line[start:], textWidth), "\n")
			out = append(out, prefix+parts[0])
			pad := strings.Repeat(" ", prefixWidth)
			for _, p := range parts[1:] {
				out = append(out, pad+p)
			}
			continue
		}

		out = append(out, strings.Split(wordwrap.String(line, width), "\n")...)
	}
	return strings.Join(out, "\n")
}
