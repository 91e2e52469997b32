package panel

import (
	"io"
	"os"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Panel is the live terminal panel. The orchestrating loop pushes state into
// it through SetRunning, Complete and SetStats; a Bubble Tea program owns the
// redraw loop between Start and Stop.
type Panel struct {
	mu      sync.Mutex
	model   *model
	out     io.Writer
	prog    *tea.Program
	done    chan struct{}
	running bool
	stopped bool

	stopOnce sync.Once
}

// Option configures a Panel.
type Option func(*Panel)

// WithOutput sets where the panel draws. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(p *Panel) { p.out = w }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Panel) { p.model.now = now }
}

// New creates a panel for an audit with one line per step title.
func New(auditType string, titles []string, opts ...Option) *Panel {
	p := &Panel{
		model: newModel(auditType, titles, time.Now),
		out:   os.Stdout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start begins rendering. Calling Start more than once has no effect.
func (p *Panel) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.prog != nil || p.stopped {
		return
	}
	p.model.startedAt = p.model.now()
	p.prog = tea.NewProgram(p.model,
		tea.WithInput(nil),
		tea.WithOutput(p.out),
		tea.WithoutSignalHandler(),
	)
	p.done = make(chan struct{})
	p.running = true
	go func() {
		defer close(p.done)
		_, _ = p.prog.Run()
	}()
}

// Stop draws the final frame and releases the terminal. It is safe to call
// repeatedly and without Start.
func (p *Panel) Stop() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.stopped = true
		prog, done := p.prog, p.done
		p.mu.Unlock()
		if prog == nil {
			return
		}
		prog.Quit()
		<-done

		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	})
}

// SetRunning marks step index as running from now.
func (p *Panel) SetRunning(index int) {
	p.dispatch(runningMsg{index: index, at: p.model.now()})
}

// Complete moves step index to a terminal status.
func (p *Panel) Complete(index int, status Status, d time.Duration, score *int) {
	p.dispatch(completeMsg{index: index, status: status, duration: d, score: score})
}

// SetStats updates the run-level token and cost display.
func (p *Panel) SetStats(tokens int, cost float64) {
	p.dispatch(statsMsg{tokens: tokens, cost: cost})
}

// dispatch routes a state change to the program while it runs, and applies
// it directly otherwise.
func (p *Panel) dispatch(msg tea.Msg) {
	p.mu.Lock()
	if p.running {
		prog := p.prog
		p.mu.Unlock()
		prog.Send(msg)
		return
	}
	defer p.mu.Unlock()
	p.model.Update(msg)
}

// View renders the current panel without a running program.
func (p *Panel) View() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return ""
	}
	return p.model.View()
}
