package cost

import "strings"

// Pricing is the per-1K-token USD price of a model.
type Pricing struct {
	Input  float64
	Output float64
}

// Cost returns the USD cost of a generation with the given token counts.
func (p Pricing) Cost(promptTokens, completionTokens int) float64 {
	return float64(promptTokens)/1000*p.Input + float64(completionTokens)/1000*p.Output
}

// pricing table per 1K tokens. Unknown models fall back to the gpt-4o rate
// so usage is never silently free.
var pricing = map[string]Pricing{
	"gpt-4o":                     {Input: 0.0025, Output: 0.01},
	"gpt-4o-mini":                {Input: 0.00015, Output: 0.0006},
	"gpt-4-turbo":                {Input: 0.01, Output: 0.03},
	"gpt-4":                      {Input: 0.03, Output: 0.06},
	"claude-3-5-sonnet-20241022": {Input: 0.003, Output: 0.015},
	"claude-3-5-haiku-20241022":  {Input: 0.0008, Output: 0.004},
}

var defaultPricing = pricing["gpt-4o"]

// PriceFor returns the pricing for a model name, matching on prefix so dated
// snapshot names resolve to their family. The longest prefix wins, so
// "gpt-4o-..." resolves to gpt-4o rather than gpt-4.
func PriceFor(model string) Pricing {
	if p, ok := pricing[model]; ok {
		return p
	}
	var best string
	for name := range pricing {
		if strings.HasPrefix(model, name) && len(name) > len(best) {
			best = name
		}
	}
	if best != "" {
		return pricing[best]
	}
	return defaultPricing
}

// Estimate returns the USD cost of a generation on the named model.
func Estimate(model string, promptTokens, completionTokens int) float64 {
	return PriceFor(model).Cost(promptTokens, completionTokens)
}
