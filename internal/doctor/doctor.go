// Package doctor checks that the environment can run audits.
package doctor

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"github.com/vinayprograms/codeaudit/internal/agents"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	headStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
)

// Check is the result of probing one binary.
type Check struct {
	Name     string // display name
	Binary   string // binary that was found, or the first candidate
	Path     string // empty when not found
	Required bool
}

// OK reports whether the binary was found.
func (c Check) OK() bool { return c.Path != "" }

// Report is the full environment check.
type Report struct {
	RulesDir string
	RulesErr error
	Git      Check
	Agents   []Check
}

// AnyAgent reports whether at least one agent backend is installed.
func (r *Report) AnyAgent() bool {
	for _, a := range r.Agents {
		if a.OK() {
			return true
		}
	}
	return false
}

// Healthy reports whether an audit can run.
func (r *Report) Healthy() bool {
	return r.Git.OK() && r.AnyAgent() && r.RulesErr == nil
}

// Run checks git and every registered agent concurrently. lookPath nil
// selects exec.LookPath.
func Run(ctx context.Context, reg *agents.Registry, lookPath agents.LookPathFunc) (*Report, error) {
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	configs := reg.All()
	report := &Report{Agents: make([]Check, len(configs))}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		report.Git = checkBinaries(ctx, "git", []string{"git"}, lookPath)
		report.Git.Required = true
		return ctx.Err()
	})
	for i, cfg := range configs {
		g.Go(func() error {
			report.Agents[i] = checkBinaries(ctx, cfg.DisplayName, cfg.Binaries, lookPath)
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return report, nil
}

func checkBinaries(ctx context.Context, name string, binaries []string, lookPath agents.LookPathFunc) Check {
	c := Check{Name: name}
	if len(binaries) > 0 {
		c.Binary = binaries[0]
	}
	for _, bin := range binaries {
		if ctx.Err() != nil {
			break
		}
		if path, err := lookPath(bin); err == nil {
			c.Binary, c.Path = bin, path
			break
		}
	}
	return c
}

// Print renders the report.
func Print(w io.Writer, r *Report) {
	fmt.Fprintln(w, headStyle.Render("Environment"))
	printCheck(w, r.Git)
	if r.RulesErr != nil {
		fmt.Fprintf(w, "  %s %-22s %s\n", failStyle.Render("✘"), "rules", failStyle.Render(r.RulesErr.Error()))
	} else if r.RulesDir != "" {
		fmt.Fprintf(w, "  %s %-22s %s\n", okStyle.Render("✔"), "rules", dimStyle.Render(r.RulesDir))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, headStyle.Render("Agents"))
	for _, a := range r.Agents {
		printCheck(w, a)
	}

	fmt.Fprintln(w)
	if r.AnyAgent() {
		var found []string
		for _, a := range r.Agents {
			if a.OK() {
				found = append(found, a.Binary)
			}
		}
		fmt.Fprintf(w, "%s %s\n", okStyle.Render("✔"), "agent available: "+strings.Join(found, ", "))
	} else {
		fmt.Fprintf(w, "%s %s\n", failStyle.Render("✘"), "no supported agent found on PATH")
	}
}

func printCheck(w io.Writer, c Check) {
	if c.OK() {
		fmt.Fprintf(w, "  %s %-22s %s\n", okStyle.Render("✔"), c.Name, dimStyle.Render(c.Path))
		return
	}
	note := "not found"
	if c.Required {
		note += " (required)"
	}
	fmt.Fprintf(w, "  %s %-22s %s\n", failStyle.Render("✘"), c.Name, failStyle.Render(note))
}
