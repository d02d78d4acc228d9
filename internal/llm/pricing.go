package llm

// Price is the USD cost per 1K tokens for one model.
type Price struct {
	In  float64
	Out float64
}

// pricing is the static per-model price table, USD per 1K tokens.
var pricing = map[string]Price{
	"gpt-5":          {In: 0.015, Out: 0.045},
	"gpt-4-turbo":    {In: 0.01, Out: 0.03},
	"gpt-4o":         {In: 0.005, Out: 0.015},
	"gpt-3.5-turbo":  {In: 0.0005, Out: 0.0015},
	"claude-3-haiku": {In: 0.00025, Out: 0.00125},
	"ollama":         {In: 0, Out: 0},
}

// PriceFor returns the price for a model, falling back to def for models not
// in the table. The fallback is deliberate: an unknown model must never be
// billed at zero.
func PriceFor(model string, def Price) Price {
	if p, ok := pricing[model]; ok {
		return p
	}
	return def
}

// Cost computes the USD cost of a call given its token counts.
func Cost(p Price, tokensIn, tokensOut int) float64 {
	return float64(tokensIn)*p.In/1000 + float64(tokensOut)*p.Out/1000
}
