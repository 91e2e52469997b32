// Package usage aggregates per-step token consumption and estimates cost.
package usage

import "time"

// TokenUsage is token consumption for one step or a whole run. Unknown
// counters are zero.
type TokenUsage struct {
	InputTokens      int `json:"input_tokens"`
	OutputTokens     int `json:"output_tokens"`
	CacheReadTokens  int `json:"cache_read_tokens"`
	CacheWriteTokens int `json:"cache_write_tokens"`
}

// Add returns the field-wise sum of u and o.
func (u TokenUsage) Add(o TokenUsage) TokenUsage {
	return TokenUsage{
		InputTokens:      u.InputTokens + o.InputTokens,
		OutputTokens:     u.OutputTokens + o.OutputTokens,
		CacheReadTokens:  u.CacheReadTokens + o.CacheReadTokens,
		CacheWriteTokens: u.CacheWriteTokens + o.CacheWriteTokens,
	}
}

// Billable is the token count shown while a run is in progress:
// input, output and cache reads.
func (u TokenUsage) Billable() int {
	return u.InputTokens + u.OutputTokens + u.CacheReadTokens
}

// Exchanged is input plus output, the count reported in run summaries.
func (u TokenUsage) Exchanged() int {
	return u.InputTokens + u.OutputTokens
}

// StepResult is the outcome of executing one step. It is created once and
// never modified.
type StepResult struct {
	StepIndex  int        `json:"step_index"`
	StepTitle  string     `json:"step_title"`
	Tokens     TokenUsage `json:"tokens"`
	DurationMs int64      `json:"duration_ms"`
	Success    bool       `json:"success"`
}

// Duration returns DurationMs as a time.Duration.
func (r StepResult) Duration() time.Duration {
	return time.Duration(r.DurationMs) * time.Millisecond
}

// Tracker accumulates step results in arrival order.
type Tracker struct {
	results []StepResult
	pricing Pricing
}

// NewTracker creates a tracker using the given pricing table. A nil table
// selects DefaultPricing.
func NewTracker(pricing Pricing) *Tracker {
	if pricing == nil {
		pricing = DefaultPricing()
	}
	return &Tracker{pricing: pricing}
}

// Add appends a result.
func (t *Tracker) Add(r StepResult) {
	t.results = append(t.results, r)
}

// Results returns a copy of the accumulated results.
func (t *Tracker) Results() []StepResult {
	out := make([]StepResult, len(t.results))
	copy(out, t.results)
	return out
}

// TotalTokens sums every token category across results.
func (t *Tracker) TotalTokens() TokenUsage {
	var total TokenUsage
	for _, r := range t.results {
		total = total.Add(r.Tokens)
	}
	return total
}

// TotalDurationMs sums per-step durations. Gaps between steps are not counted.
func (t *Tracker) TotalDurationMs() int64 {
	var total int64
	for _, r := range t.results {
		total += r.DurationMs
	}
	return total
}

// SuccessCount returns the number of successful steps.
func (t *Tracker) SuccessCount() int {
	n := 0
	for _, r := range t.results {
		if r.Success {
			n++
		}
	}
	return n
}

// FailureCount returns the number of failed steps.
func (t *Tracker) FailureCount() int {
	return len(t.results) - t.SuccessCount()
}

// EstimateCost prices the accumulated tokens for model.
func (t *Tracker) EstimateCost(model string) float64 {
	return t.pricing.Cost(model, t.TotalTokens())
}
