package artifacts

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ScoreRecordVersion is the only structured score format understood.
const ScoreRecordVersion = 1

// ScoreRecord is the structured alternative to a "Score: N/100" line. Agents
// may write it as <prefix><NN>[_slug].score.json next to their markdown.
type ScoreRecord struct {
	Version int `json:"version"`
	Step    int `json:"step"`
	Score   int `json:"score"`
}

var scorePattern = regexp.MustCompile(`(?i)Score:\s*(\d+)\s*/\s*100`)

// ParseScore extracts the first "Score: N/100" value from text.
func ParseScore(text string) (int, bool) {
	m := scorePattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Score returns the score recorded for step index, or nil when none exists.
// A valid score record takes precedence over markdown artifacts; among
// markdown files the first match in filename order wins.
func (c *Collector) Score(index int) *int {
	entries, err := os.ReadDir(c.Dir)
	if err != nil {
		return nil
	}
	var records, docs []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			continue
		}
		if n, ok := c.stepNumber(name); !ok || n != index {
			continue
		}
		switch {
		case strings.HasSuffix(name, ".score.json"):
			records = append(records, name)
		case strings.HasSuffix(name, ".md"):
			docs = append(docs, name)
		}
	}
	sort.Strings(records)
	sort.Strings(docs)

	for _, name := range records {
		if s, ok := c.readRecord(name, index); ok {
			return &s
		}
	}
	for _, name := range docs {
		data, err := os.ReadFile(filepath.Join(c.Dir, name))
		if err != nil {
			continue
		}
		if s, ok := ParseScore(string(data)); ok {
			return &s
		}
	}
	return nil
}

func (c *Collector) readRecord(name string, index int) (int, bool) {
	data, err := os.ReadFile(filepath.Join(c.Dir, name))
	if err != nil {
		return 0, false
	}
	var rec ScoreRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return 0, false
	}
	if rec.Version != ScoreRecordVersion || rec.Step != index {
		return 0, false
	}
	if rec.Score < 0 || rec.Score > 100 {
		return 0, false
	}
	return rec.Score, true
}

// WriteScore stores a structured score record for step index.
func (c *Collector) WriteScore(index, score int) error {
	if err := os.MkdirAll(c.Dir, 0755); err != nil {
		return err
	}
	data, err := json.Marshal(ScoreRecord{Version: ScoreRecordVersion, Step: index, Score: score})
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.Dir, c.StepTag(index)+".score.json"), data, 0644)
}
