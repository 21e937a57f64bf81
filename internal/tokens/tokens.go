// Package tokens estimates prompt token counts without a model tokenizer.
package tokens

import (
	"math"
	"strings"

	"github.com/HartBrook/tokun/internal/llm"
)

// DefaultMultiplier applies to providers missing from Multipliers.
const DefaultMultiplier = 1.3

// Multipliers holds the calibrated tokens-per-word ratio for each provider.
// Adjust entries here; callers only go through Estimate.
var Multipliers = map[llm.Provider]float64{
	llm.ProviderOpenAI:     1.3,
	llm.ProviderPerplexity: 1.35,
	llm.ProviderAnthropic:  1.25,
	llm.ProviderGoogle:     1.2,
	llm.ProviderOther:      1.3,
}

// Count is an approximate token and word count for a piece of text.
type Count struct {
	Tokens int `json:"tokens"`
	Words  int `json:"words"`
}

// Multiplier returns the tokens-per-word ratio for p.
func Multiplier(p llm.Provider) float64 {
	if m, ok := Multipliers[p]; ok {
		return m
	}
	return DefaultMultiplier
}

// CountWords returns the number of whitespace-delimited words in text.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// Estimate returns the approximate token and word count of text for provider p.
// It never fails; empty text counts as zero.
func Estimate(text string, p llm.Provider) Count {
	words := CountWords(text)
	if words == 0 {
		return Count{}
	}
	return Count{
		Tokens: int(math.Round(float64(words) * Multiplier(p))),
		Words:  words,
	}
}

// Stats holds before/after token statistics.
type Stats struct {
	Before int
	After  int
}

// Saved returns the number of tokens saved.
func (s Stats) Saved() int {
	return s.Before - s.After
}

// PercentReduction returns the percentage reduction (0-100).
func (s Stats) PercentReduction() float64 {
	if s.Before == 0 {
		return 0
	}
	return float64(s.Saved()) / float64(s.Before) * 100
}
