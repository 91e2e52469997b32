package agents

import (
	"encoding/json"
	"strings"

	"github.com/vinayprograms/codeaudit/internal/usage"
)

// usageLine is the subset of a JSON result line carrying token counters.
type usageLine struct {
	Usage *struct {
		InputTokens              int `json:"input_tokens"`
		OutputTokens             int `json:"output_tokens"`
		CacheReadInputTokens     int `json:"cache_read_input_tokens"`
		CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
	} `json:"usage"`
}

// ParseJSONUsage scans stdout from the last line backwards for a JSON object
// with a "usage" field and maps its counters. Malformed lines are skipped, so
// a truncated trailing line does not hide an earlier report. No usage at all
// yields the zero value; telemetry never fails a step.
func ParseJSONUsage(stdout string) usage.TokenUsage {
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var parsed usageLine
		if err := json.Unmarshal([]byte(line), &parsed); err != nil {
			continue
		}
		if parsed.Usage == nil {
			continue
		}
		return usage.TokenUsage{
			InputTokens:      nonNegative(parsed.Usage.InputTokens),
			OutputTokens:     nonNegative(parsed.Usage.OutputTokens),
			CacheReadTokens:  nonNegative(parsed.Usage.CacheReadInputTokens),
			CacheWriteTokens: nonNegative(parsed.Usage.CacheCreationInputTokens),
		}
	}
	return usage.TokenUsage{}
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
