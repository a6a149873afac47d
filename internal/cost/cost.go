// Package cost estimates USD spend for a model invocation from token counts.
package cost

import "strings"

// Pricing is USD per 1000 tokens.
type Pricing struct {
	Input  float64
	Output float64
}

// table maps exact model identifiers to per-1k-token prices. Unknown models
// fall back through prefix match, then family heuristic, then defaultPricing.
var table = map[string]Pricing{
	"gpt-4o":                 {Input: 0.0025, Output: 0.01},
	"gpt-4o-mini":            {Input: 0.00015, Output: 0.0006},
	"gpt-4":                  {Input: 0.03, Output: 0.06},
	"gpt-4-turbo":            {Input: 0.01, Output: 0.03},
	"gpt-3.5-turbo":          {Input: 0.0005, Output: 0.0015},
	"claude-3-opus":          {Input: 0.015, Output: 0.075},
	"claude-3-sonnet":        {Input: 0.003, Output: 0.015},
	"claude-3-haiku":         {Input: 0.00025, Output: 0.00125},
	"claude-3-5-sonnet":      {Input: 0.003, Output: 0.015},
	"claude-sonnet-4":        {Input: 0.003, Output: 0.015},
	"claude-opus-4":          {Input: 0.015, Output: 0.075},
}

var defaultPricing = Pricing{Input: 0.001, Output: 0.002}

// Lookup resolves pricing for a model identifier. Resolution order: exact
// table hit, longest prefix of the identifier present in the table, coarse
// family substring, generic default.
func Lookup(model string) Pricing {
	if p, ok := table[model]; ok {
		return p
	}
	best := ""
	for key := range table {
		if strings.HasPrefix(model, key) && len(key) > len(best) {
			best = key
		}
	}
	if best != "" {
		return table[best]
	}
	switch {
	case strings.Contains(model, "gpt-4"):
		return Pricing{Input: 0.03, Output: 0.06}
	case strings.Contains(model, "gpt-3"):
		return Pricing{Input: 0.0005, Output: 0.0015}
	case strings.Contains(model, "claude"):
		return Pricing{Input: 0.003, Output: 0.015}
	}
	return defaultPricing
}

// Estimate computes the USD cost of a call.
func Estimate(model string, tokensIn, tokensOut int) float64 {
	p := Lookup(model)
	return (float64(tokensIn)*p.Input + float64(tokensOut)*p.Output) / 1000
}
