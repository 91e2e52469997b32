package plan

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// PlanFile is the name of the plan inside each audit directory.
const PlanFile = "plan.md"

// ParseString parses plan content (frontmatter and step list). name is the
// audit type used when the frontmatter does not declare one.
func ParseString(content, dir, name string) (*Plan, error) {
	content = strings.ReplaceAll(content, "\r\n", "\n")

	meta, body, err := parseMeta(content)
	if err != nil {
		return nil, err
	}
	steps, err := Parse(body, dir)
	if err != nil {
		return nil, err
	}
	return &Plan{Meta: meta.withDefaults(name), Steps: steps}, nil
}

// LoadFile reads and parses a plan. The audit name defaults to the name of
// the directory holding the plan.
func LoadFile(path string) (*Plan, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan: %w", err)
	}

	dir := filepath.Dir(path)
	p, err := ParseString(string(content), dir, filepath.Base(dir))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	p.Path = path
	return p, nil
}

// Audit is one audit type found in a rules directory.
type Audit struct {
	Name string
	Plan *Plan
	Err  error // set when plan.md exists but failed to parse
}

// ListAudits returns every subdirectory of rulesDir that contains a plan,
// sorted by name.
func ListAudits(rulesDir string) ([]Audit, error) {
	entries, err := os.ReadDir(rulesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules directory: %w", err)
	}

	var audits []Audit
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		planPath := filepath.Join(rulesDir, e.Name(), PlanFile)
		if _, err := os.Stat(planPath); err != nil {
			continue
		}
		p, err := LoadFile(planPath)
		audits = append(audits, Audit{Name: e.Name(), Plan: p, Err: err})
	}
	sort.Slice(audits, func(i, j int) bool { return audits[i].Name < audits[j].Name })
	return audits, nil
}

// PlanPath returns the plan location for an audit type.
func PlanPath(rulesDir, auditType string) string {
	return filepath.Join(rulesDir, auditType, PlanFile)
}

// FindRulesDir returns the first candidate that is an existing directory.
// Empty candidates are skipped.
func FindRulesDir(candidates ...string) (string, error) {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if info, err := os.Stat(c); err == nil && info.IsDir() {
			return c, nil
		}
	}
	return "", fmt.Errorf("rules directory not found (tried %s)", strings.Join(nonEmpty(candidates), ", "))
}

// DefaultRulesCandidates lists rules locations relative to the running executable.
func DefaultRulesCandidates() []string {
	exe, err := os.Executable()
	if err != nil {
		return nil
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	dir := filepath.Dir(exe)
	return []string{
		filepath.Join(dir, "rules"),
		filepath.Join(dir, "..", "share", "codeaudit", "rules"),
	}
}

func nonEmpty(ss []string) []string {
	var out []string
	for _, s := range ss {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
