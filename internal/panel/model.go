package panel

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
)

// spinnerInterval is the animation period for the running step.
const spinnerInterval = 80 * time.Millisecond

// titleWidth bounds step titles so the suffix always fits on the line.
const titleWidth = contentWidth - 22

type stepState struct {
	title     string
	status    Status
	duration  time.Duration
	score     *int
	startedAt time.Time
}

// Messages sent into the running program by Panel's setters.
type (
	runningMsg struct {
		index int
		at    time.Time
	}
	completeMsg struct {
		index    int
		status   Status
		duration time.Duration
		score    *int
	}
	statsMsg struct {
		tokens int
		cost   float64
	}
)

// model is the Bubble Tea model behind the live panel. It only mirrors state
// pushed to it; it never looks at execution.
type model struct {
	auditType string
	steps     []stepState
	startedAt time.Time
	tokens    int
	cost      float64

	spinner spinner.Model
	bar     progress.Model
	now     func() time.Time
}

func newModel(auditType string, titles []string, now func() time.Time) *model {
	steps := make([]stepState, len(titles))
	for i, t := range titles {
		steps[i] = stepState{title: t, status: StatusPending}
	}
	sp := spinner.New(spinner.WithSpinner(spinner.Spinner{
		Frames: spinner.MiniDot.Frames,
		FPS:    spinnerInterval,
	}))
	sp.Style = cyanStyle
	return &model{
		auditType: auditType,
		steps:     steps,
		spinner:   sp,
		bar: progress.New(
			progress.WithSolidFill(barColor),
			progress.WithWidth(barWidth),
			progress.WithoutPercentage(),
		),
		now: now,
	}
}

func (m *model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case runningMsg:
		m.setRunning(msg.index, msg.at)
	case completeMsg:
		m.complete(msg.index, msg.status, msg.duration, msg.score)
	case statsMsg:
		m.tokens, m.cost = msg.tokens, msg.cost
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// setRunning moves a pending step to running. Other transitions are ignored.
func (m *model) setRunning(index int, at time.Time) bool {
	if index < 0 || index >= len(m.steps) || m.steps[index].status != StatusPending {
		return false
	}
	m.steps[index].status = StatusRunning
	m.steps[index].startedAt = at
	return true
}

// complete moves a running step to a terminal status. Other transitions are
// ignored.
func (m *model) complete(index int, status Status, d time.Duration, score *int) bool {
	if index < 0 || index >= len(m.steps) || m.steps[index].status != StatusRunning || !status.Terminal() {
		return false
	}
	s := &m.steps[index]
	s.status = status
	s.duration = d
	if score != nil {
		v := *score
		s.score = &v
	}
	return true
}

func (m *model) completed() int {
	n := 0
	for _, s := range m.steps {
		if s.status.Terminal() {
			n++
		}
	}
	return n
}

func (m *model) View() string {
	lines := []string{
		borderTop(),
		emptyLine(),
		padLine(m.header()),
		emptyLine(),
		borderSep(),
		emptyLine(),
	}
	for i := range m.steps {
		lines = append(lines, padLine(m.stepLine(i)))
	}
	lines = append(lines,
		emptyLine(),
		borderSep(),
		padLine(m.footer()),
		borderBot(),
	)
	return strings.Join(lines, "\n")
}

func (m *model) header() string {
	done, total := m.completed(), len(m.steps)
	var frac float64
	if total > 0 {
		frac = float64(done) / float64(total)
	}
	pct := int(frac*100 + 0.5)

	label := boldStyle.Render(capitalize(m.auditType) + " Audit")
	right := fmt.Sprintf("%d/%d  %s", done, total, boldStyle.Render(fmt.Sprintf("%d%%", pct)))
	gap := max(2, contentWidth-lipgloss.Width(label)-barWidth-lipgloss.Width(right)-4)
	return label + strings.Repeat(" ", gap) + m.bar.ViewAs(frac) + "  " + right
}

func (m *model) stepLine(i int) string {
	s := m.steps[i]
	title := truncate.StringWithTail(s.title, titleWidth, "…")

	switch s.status {
	case StatusPending:
		return dimStyle.Render("○ " + title)
	case StatusRunning:
		elapsed := FormatDuration(m.now().Sub(s.startedAt))
		return fillDots(m.spinner.View()+" "+cyanStyle.Render(title)+" ", cyanStyle.Render(elapsed))
	}

	style := statusStyle(s.status)
	suffix := dimStyle.Render(FormatDuration(s.duration))
	if s.score != nil {
		suffix = style.Render(fmt.Sprint(*s.score)) + "  " + suffix
	}
	return fillDots(statusIcon(s.status)+" "+style.Render(title)+" ", suffix)
}

func (m *model) footer() string {
	var elapsed time.Duration
	if !m.startedAt.IsZero() {
		elapsed = m.now().Sub(m.startedAt)
	}
	sep := "  " + dimStyle.Render("│") + "  "
	return strings.Join([]string{
		dimStyle.Render("Time") + " " + FormatDuration(elapsed),
		dimStyle.Render("Tokens") + " " + FormatTokens(m.tokens),
		dimStyle.Render("Cost") + " " + FormatCost(m.cost),
	}, sep)
}
