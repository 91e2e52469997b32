package plan

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default values applied when a plan's frontmatter omits them.
const (
	DefaultArtifactPrefix = "step_"
	DefaultReportExt      = "txt"
)

// Meta is the optional YAML frontmatter of a plan.
type Meta struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`

	// ArtifactPrefix selects which artifact files belong to this audit, both
	// for prior-step context and for score lookup (e.g. "practices_step_").
	ArtifactPrefix string `yaml:"artifact_prefix,omitempty"`

	// Report is the extension of the final report: reports/<name>_audit.<report>.
	Report string `yaml:"report,omitempty"`
}

// withDefaults fills unset fields.
func (m Meta) withDefaults(name string) Meta {
	if m.Name == "" {
		m.Name = name
	}
	if m.ArtifactPrefix == "" {
		m.ArtifactPrefix = DefaultArtifactPrefix
	}
	if m.Report == "" {
		m.Report = DefaultReportExt
	}
	m.Report = strings.TrimPrefix(m.Report, ".")
	return m
}

// splitFrontmatter separates a leading "---" YAML block from the body.
// Content without a leading delimiter has no frontmatter.
func splitFrontmatter(content string) (frontmatter, body string, err error) {
	lines := strings.Split(content, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return "", content, nil
	}

	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			return strings.Join(lines[1:i], "\n"), strings.Join(lines[i+1:], "\n"), nil
		}
	}
	return "", "", fmt.Errorf("unclosed frontmatter")
}

// parseMeta decodes the frontmatter and returns it along with the remaining body.
func parseMeta(content string) (Meta, string, error) {
	fm, body, err := splitFrontmatter(content)
	if err != nil {
		return Meta{}, "", err
	}
	var meta Meta
	if strings.TrimSpace(fm) != "" {
		if err := yaml.Unmarshal([]byte(fm), &meta); err != nil {
			return Meta{}, "", fmt.Errorf("invalid frontmatter: %w", err)
		}
	}
	return meta, body, nil
}
