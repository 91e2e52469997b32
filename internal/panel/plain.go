package panel

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Plain reports progress as one line per transition. It is used when stdout
// is not a terminal, where the live panel would only produce escape noise.
type Plain struct {
	mu        sync.Mutex
	out       io.Writer
	auditType string
	titles    []string
	status    []Status
	started   time.Time
	tokens    int
	cost      float64
	now       func() time.Time
	stopped   bool
}

// NewPlain creates a line renderer writing to out.
func NewPlain(out io.Writer, auditType string, titles []string) *Plain {
	status := make([]Status, len(titles))
	for i := range status {
		status[i] = StatusPending
	}
	return &Plain{out: out, auditType: auditType, titles: titles, status: status, now: time.Now}
}

func (p *Plain) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started = p.now()
	fmt.Fprintf(p.out, "%s audit: %d steps\n", capitalize(p.auditType), len(p.titles))
}

func (p *Plain) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	p.stopped = true
	done := 0
	for _, s := range p.status {
		if s.Terminal() {
			done++
		}
	}
	fmt.Fprintf(p.out, "%d/%d steps  time %s  tokens %s  cost %s\n",
		done, len(p.titles), FormatDuration(p.now().Sub(p.started)), FormatTokens(p.tokens), FormatCost(p.cost))
}

func (p *Plain) SetRunning(index int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if index < 0 || index >= len(p.status) || p.status[index] != StatusPending {
		return
	}
	p.status[index] = StatusRunning
	fmt.Fprintf(p.out, "[%d/%d] %s ...\n", index+1, len(p.titles), p.titles[index])
}

func (p *Plain) Complete(index int, status Status, d time.Duration, score *int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if index < 0 || index >= len(p.status) || p.status[index] != StatusRunning || !status.Terminal() {
		return
	}
	p.status[index] = status
	line := fmt.Sprintf("[%d/%d] %s %s", index+1, len(p.titles), p.titles[index], status)
	if score != nil {
		line += fmt.Sprintf(" %d/100", *score)
	}
	fmt.Fprintf(p.out, "%s (%s)\n", line, FormatDuration(d))
}

func (p *Plain) SetStats(tokens int, cost float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokens, p.cost = tokens, cost
}
