// Package plan parses audit plans into ordered steps.
//
// A plan is a markdown file listing rule files in execution order:
//
//	---
//	name: health
//	artifact_prefix: step_
//	---
//	## Execution Order
//
//	1. `00-stack-detector.md` — Stack Detection
//	2. `01-repository-inventory.md`
//
// The frontmatter block is optional.
package plan

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrNoSteps is returned when a plan contains no recognizable step lines.
var ErrNoSteps = errors.New("no steps found")

// Step is one rule file in a plan. Index is 0-based and assigned in match order.
type Step struct {
	Index    int
	Filename string
	Filepath string
	Title    string
}

// Plan is a parsed plan file.
type Plan struct {
	Meta  Meta
	Steps []Step
	Path  string
}

// stepPattern matches `N. `file.ext` [sep Title]` where sep is a hyphen, en dash or em dash.
var stepPattern = regexp.MustCompile("(?m)^\\d+\\.\\s+`([^`]+\\.(?:md|markdown|txt))`[ \\t]*(?:[—–-][ \\t]*(.+))?$")

// extensions stripped when deriving a title from a filename.
var extensions = []string{".markdown", ".md", ".txt"}

var numericPrefix = regexp.MustCompile(`^\d+-`)

// Parse extracts steps from plan text. Step file paths are resolved against dir.
// Parse has no side effects.
func Parse(text, dir string) ([]Step, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var steps []Step
	for _, m := range stepPattern.FindAllStringSubmatch(text, -1) {
		filename := m[1]
		title := strings.TrimSpace(m[2])
		if title == "" {
			title = TitleFromFilename(filename)
		}
		steps = append(steps, Step{
			Index:    len(steps),
			Filename: filename,
			Filepath: filepath.Join(dir, filename),
			Title:    title,
		})
	}

	if len(steps) == 0 {
		return nil, fmt.Errorf("%w in plan. Expected format: \"1. `filename.md` — Title\"", noStepsError{})
	}
	return steps, nil
}

// noStepsError carries the user-facing "No steps found" wording while
// still matching ErrNoSteps.
type noStepsError struct{}

func (noStepsError) Error() string        { return "No steps found" }
func (noStepsError) Is(target error) bool { return target == ErrNoSteps }

// TitleFromFilename derives a human-readable title: the extension and a
// leading "NN-" prefix are removed and remaining dashes become spaces.
func TitleFromFilename(filename string) string {
	name := filename
	for _, ext := range extensions {
		if strings.HasSuffix(name, ext) {
			name = strings.TrimSuffix(name, ext)
			break
		}
	}
	name = numericPrefix.ReplaceAllString(name, "")
	return strings.ReplaceAll(name, "-", " ")
}

// Titles returns the step titles in order.
func (p *Plan) Titles() []string {
	titles := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		titles[i] = s.Title
	}
	return titles
}
