// Package rewrite shortens prompts locally, without calling an LLM.
package rewrite

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/HartBrook/tokun/internal/llm"
	"github.com/HartBrook/tokun/internal/tokens"
)

// Strategy selects a local rewrite.
type Strategy string

const (
	// StrategyStrip removes filler phrases.
	StrategyStrip Strategy = "strip"
	// StrategySentences keeps a representative subset of sentences.
	StrategySentences Strategy = "sentences"
)

// ParseStrategy converts user input into a Strategy. Empty input means strip.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyStrip:
		return StrategyStrip, nil
	case StrategySentences:
		return StrategySentences, nil
	default:
		return "", fmt.Errorf("unknown rewrite strategy %q (use strip or sentences)", s)
	}
}

// Local rewrites text with the given strategy. Unknown strategies strip fillers.
func Local(text string, strategy Strategy, p llm.Provider) llm.Result {
	if strategy == StrategySentences {
		return SelectSentences(text, p)
	}
	return StripFillers(text, p)
}

var (
	fillerPattern     = regexp.MustCompile(`(?i)\b(please|kindly|would you|could you|I would like you to)\b`)
	whitespacePattern = regexp.MustCompile(`\s+`)
	sentencePattern   = regexp.MustCompile(`[.!?]+`)
)

// StripFillers removes politeness and filler phrases, then collapses whitespace.
func StripFillers(text string, p llm.Provider) llm.Result {
	stripped := fillerPattern.ReplaceAllString(text, "")
	stripped = strings.TrimSpace(whitespacePattern.ReplaceAllString(stripped, " "))
	return newResult(text, stripped, p)
}

// SelectSentences keeps roughly 70% of the sentences: always the first,
// evenly spaced picks from the rest, and the last when room remains.
// Sentences are kept verbatim and in their original order.
func SelectSentences(text string, p llm.Provider) llm.Result {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return newResult(text, "", p)
	}

	indices := selectIndices(len(sentences))
	picked := make([]string, 0, len(indices))
	for _, i := range indices {
		picked = append(picked, sentences[i])
	}

	return newResult(text, strings.Join(picked, ". ")+".", p)
}

// splitSentences splits on runs of sentence punctuation and drops blank pieces.
func splitSentences(text string) []string {
	var sentences []string
	for _, part := range sentencePattern.Split(text, -1) {
		if s := strings.TrimSpace(part); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// selectIndices returns the ascending sentence indices to keep out of n.
func selectIndices(n int) []int {
	target := max(2, n*7/10)
	if n <= target {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all
	}

	selected := map[int]bool{0: true}
	remainingSlots := target - 1
	stride := n / remainingSlots
	for i := 1; i < remainingSlots; i++ {
		selected[min(i*stride, n-1)] = true
	}
	if !selected[n-1] && len(selected) < target {
		selected[n-1] = true
	}

	indices := make([]int, 0, len(selected))
	for i := range selected {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	return indices
}

// newResult counts the rewritten text locally and attaches scanner suggestions for the original.
func newResult(original, rewritten string, p llm.Provider) llm.Result {
	counted := tokens.Estimate(rewritten, p)
	return llm.Result{
		OptimizedText: rewritten,
		Tokens:        counted.Tokens,
		Words:         counted.Words,
		Suggestions:   Suggest(original),
	}
}
