package usage

// DefaultModel is the pricing fallback for models missing from the table.
const DefaultModel = "sonnet"

// Rate is USD per million tokens. Cache writes are not priced.
type Rate struct {
	Input     float64 `toml:"input"`
	Output    float64 `toml:"output"`
	CacheRead float64 `toml:"cache_read"`
}

// Pricing maps model identifiers to rates.
type Pricing map[string]Rate

// DefaultPricing returns the built-in approximate price table.
func DefaultPricing() Pricing {
	return Pricing{
		"sonnet":           {Input: 3, Output: 15, CacheRead: 0.3},
		"opus":             {Input: 15, Output: 75, CacheRead: 1.5},
		"haiku":            {Input: 0.25, Output: 1.25, CacheRead: 0.03},
		"gemini-2.5-pro":   {Input: 1.25, Output: 10, CacheRead: 0.3},
		"gemini-2.5-flash": {Input: 0.15, Output: 0.6, CacheRead: 0.04},
	}
}

// With returns a copy of p with overrides applied on top.
func (p Pricing) With(overrides map[string]Rate) Pricing {
	out := make(Pricing, len(p)+len(overrides))
	for k, v := range p {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// RateFor returns the rate for model, falling back to DefaultModel.
func (p Pricing) RateFor(model string) Rate {
	if r, ok := p[model]; ok {
		return r
	}
	if r, ok := p[DefaultModel]; ok {
		return r
	}
	return DefaultPricing()[DefaultModel]
}

// Cost prices tokens at model's rate.
func (p Pricing) Cost(model string, tokens TokenUsage) float64 {
	r := p.RateFor(model)
	return (float64(tokens.InputTokens)*r.Input +
		float64(tokens.OutputTokens)*r.Output +
		float64(tokens.CacheReadTokens)*r.CacheRead) / 1_000_000
}
