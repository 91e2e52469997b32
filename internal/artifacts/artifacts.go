// Package artifacts reads the files agents leave behind between steps:
// prior-step context for prompts, and per-step scores.
//
// Every read here is best effort. Missing directories, unreadable files and
// malformed content yield "no context" or "no score", never an error.
package artifacts

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// ContextHeader introduces forwarded artifacts in a step prompt.
const ContextHeader = "\n\n## Context from prior steps (already completed — DO NOT re-read these files)\n\n"

// Collector reads step artifacts from one directory.
type Collector struct {
	Dir    string
	Prefix string // e.g. "step_"; filenames look like <prefix><NN>_<slug>.md
}

// New returns a collector for dir using prefix as the step filter.
func New(dir, prefix string) *Collector {
	return &Collector{Dir: dir, Prefix: prefix}
}

// StepTag is the zero-padded marker a step's artifacts carry in their names.
func (c *Collector) StepTag(index int) string {
	return fmt.Sprintf("%s%02d", c.Prefix, index)
}

// stepNumber returns the step number embedded right after the prefix. The
// whole digit run counts, so step_010 is step 10 and never step 1.
func (c *Collector) stepNumber(name string) (int, bool) {
	if !strings.HasPrefix(name, c.Prefix) {
		return 0, false
	}
	rest := name[len(c.Prefix):]
	end := 0
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(rest[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// PriorContext returns the context block for step current: every markdown
// artifact whose embedded step number is lower than current, in filename
// order. Returns "" when there is nothing to forward.
func (c *Collector) PriorContext(current int) string {
	if current <= 0 {
		return ""
	}
	entries, err := os.ReadDir(c.Dir)
	if err != nil {
		return ""
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".md") {
			continue
		}
		if n, ok := c.stepNumber(name); ok && n < current {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var blocks []string
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(c.Dir, name))
		if err != nil {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("--- Artifact: %s ---\n%s", name, string(data)))
	}
	if len(blocks) == 0 {
		return ""
	}
	return ContextHeader + strings.Join(blocks, "\n\n")
}
