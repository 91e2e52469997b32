package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vinayprograms/codeaudit/internal/agents"
	"github.com/vinayprograms/codeaudit/internal/doctor"
	"github.com/vinayprograms/codeaudit/internal/plan"
)

var (
	nameStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// Run lists audits.
func (c *ListCmd) Run(env *runEnv) error {
	cfg, workDir, err := loadConfig(c.Config, ".")
	if err != nil {
		return err
	}
	rulesDir, err := findRulesDir(c.Rules, cfg, workDir)
	if err != nil {
		return err
	}
	audits, err := plan.ListAudits(rulesDir)
	if err != nil {
		return err
	}
	printAudits(env.stdout, rulesDir, audits)
	return nil
}

func printAudits(w io.Writer, rulesDir string, audits []plan.Audit) {
	fmt.Fprintf(w, "%s %s\n\n", labelStyle.Render("Rules:"), rulesDir)
	if len(audits) == 0 {
		fmt.Fprintln(w, "No audits found.")
		return
	}
	for _, a := range audits {
		if a.Err != nil {
			fmt.Fprintf(w, "%s  %s\n\n", nameStyle.Render(a.Name), errStyle.Render(a.Err.Error()))
			continue
		}
		fmt.Fprintf(w, "%s  %s\n", nameStyle.Render(a.Name), labelStyle.Render(fmt.Sprintf("(%d steps)", len(a.Plan.Steps))))
		if a.Plan.Meta.Description != "" {
			fmt.Fprintf(w, "  %s\n", a.Plan.Meta.Description)
		}
		for _, s := range a.Plan.Steps {
			fmt.Fprintf(w, "  %2d. %s\n", s.Index+1, s.Title)
		}
		fmt.Fprintln(w)
	}
}

// Run prints environment checks. An unhealthy environment is an error so
// scripts can gate on the exit code.
func (c *DoctorCmd) Run(env *runEnv) error {
	cfg, workDir, err := loadConfig(c.Config, ".")
	if err != nil {
		return err
	}
	reg := agents.Default()
	reg.ExtendModels(cfg.ExtraModels())

	report, err := doctor.Run(env.ctx, reg, nil)
	if err != nil {
		return err
	}
	report.RulesDir, report.RulesErr = findRulesDir(c.Rules, cfg, workDir)
	doctor.Print(env.stdout, report)
	if !report.Healthy() {
		return fmt.Errorf("environment is not ready")
	}
	return nil
}

// Run prints the agent registry.
func (c *AgentsCmd) Run(env *runEnv) error {
	cfg, _, err := loadConfig(c.Config, ".")
	if err != nil {
		return err
	}
	reg := agents.Default()
	reg.ExtendModels(cfg.ExtraModels())
	printAgents(env.stdout, reg)
	return nil
}

func printAgents(w io.Writer, reg *agents.Registry) {
	for _, a := range reg.All() {
		fmt.Fprintf(w, "%s  %s\n", nameStyle.Render(a.Name), a.DisplayName)
		fmt.Fprintf(w, "  %s %s\n", labelStyle.Render("binaries:"), strings.Join(a.Binaries, ", "))
		fmt.Fprintf(w, "  %s %s\n", labelStyle.Render("prompt:  "), a.PromptVia)
		fmt.Fprintf(w, "  %s %s\n", labelStyle.Render("models:  "), strings.Join(a.Models, ", "))
		if a.ParseTokens != nil {
			fmt.Fprintf(w, "  %s %s\n", labelStyle.Render("usage:   "), "reported")
		}
		fmt.Fprintln(w)
	}
}

// Run prints version information.
func (c *VersionCmd) Run(env *runEnv) error {
	fmt.Fprintf(env.stdout, "codeaudit version %s\n", version)
	fmt.Fprintf(env.stdout, "  commit: %s\n", commit)
	fmt.Fprintf(env.stdout, "  built:  %s\n", buildTime)
	return nil
}
