package rewrite

import (
	"regexp"
	"strings"
)

const (
	// MaxSuggestions caps the scanner's output.
	MaxSuggestions = 6
	// minGenericSuggestions is how many general tips always survive the cap.
	minGenericSuggestions = 2
	// longSentenceWords is the length above which a sentence is flagged.
	longSentenceWords = 50
)

// rule flags one known inefficiency in the original text.
type rule struct {
	matches func(text string) bool
	tip     string
}

func pattern(expr string) func(string) bool {
	re := regexp.MustCompile(`(?i)` + expr)
	return re.MatchString
}

// rules run in order; each contributes its tip at most once.
var rules = []rule{
	{
		matches: pattern(`\b(please|kindly)\b`),
		tip:     "Remove unnecessary politeness words like 'please' and 'kindly'",
	},
	{
		matches: pattern(`\bI (want|would like) you to\b`),
		tip:     "Replace 'I want you to' with direct commands for brevity",
	},
	{
		matches: pattern(`\b(very|really|quite|extremely|absolutely)\b`),
		tip:     "Remove unnecessary intensifiers like 'very', 'really', 'quite'",
	},
	{
		matches: pattern(`\bin order to\b`),
		tip:     "Replace 'in order to' with simple 'to'",
	},
	{
		matches: pattern(`\b(that is|which is|who is)\b`),
		tip:     "Remove unnecessary relative clauses to reduce word count",
	},
	{
		matches: hasLongSentence,
		tip:     "Break down complex sentences into shorter, clearer statements",
	},
	{
		matches: pattern(`\b(actually|basically|essentially|fundamentally)\b`),
		tip:     "Remove filler words like 'actually', 'basically', 'essentially'",
	},
	{
		matches: pattern(`\b(make sure|ensure that)\b`),
		tip:     "Use 'ensure' instead of 'make sure that' for conciseness",
	},
}

// genericTips are appended after every matched rule.
var genericTips = []string{
	"Use active voice instead of passive voice when possible",
	"Combine related sentences to reduce repetition",
	"Focus on essential information and remove background context",
}

// Suggest scans the original text for known inefficiencies and returns one tip
// per matched rule followed by general tips, at most MaxSuggestions in total.
// At least two general tips are always included.
func Suggest(original string) []string {
	matched := make([]string, 0, len(rules))
	for _, r := range rules {
		if r.matches(original) {
			matched = append(matched, r.tip)
		}
	}

	if limit := MaxSuggestions - minGenericSuggestions; len(matched) > limit {
		matched = matched[:limit]
	}

	suggestions := append(matched, genericTips...)
	if len(suggestions) > MaxSuggestions {
		suggestions = suggestions[:MaxSuggestions]
	}
	return suggestions
}

func hasLongSentence(text string) bool {
	for _, sentence := range sentencePattern.Split(text, -1) {
		if len(strings.Fields(sentence)) > longSentenceWords {
			return true
		}
	}
	return false
}
