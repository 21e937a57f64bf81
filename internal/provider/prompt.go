package provider

import (
	"fmt"

	"github.com/HartBrook/tokun/internal/llm"
)

// Response length ceilings per mode, used when the configuration sets no max tokens.
const (
	balancedMaxTokens = 1000
	detailedMaxTokens = 4000
)

// maxTokensFor returns the upper bound on reply length for a request.
func maxTokensFor(mode llm.Mode, cfg llm.Configuration) int {
	if cfg.MaxTokens > 0 {
		return cfg.MaxTokens
	}
	if mode == llm.ModeDetailed {
		return detailedMaxTokens
	}
	return balancedMaxTokens
}

const replyFormat = `Return a JSON object with the following structure:
{
  "optimizedText": "the rewritten version of the input text",
  "suggestions": ["suggestion 1 for further optimization", "suggestion 2", "suggestion 3"]
}
Return only the JSON object. No explanations or commentary.`

// buildSystemPrompt creates the system instruction for a request.
func buildSystemPrompt(mode llm.Mode, targetTokens, maxTokens int) string {
	if mode == llm.ModeDetailed {
		return buildDetailedPrompt(maxTokens)
	}
	return buildBalancedPrompt(targetTokens)
}

func buildBalancedPrompt(targetTokens int) string {
	return fmt.Sprintf(`You are an expert at optimizing text to use fewer tokens while preserving the original meaning.
Your task is to rewrite the input text to be more concise, using fewer tokens, but preserving the core meaning.

RULES:
- Keep every concrete requirement, name, number and constraint
- Remove politeness, filler and repetition
- Prefer direct instructions over requests

Make the optimized text around %d tokens long.

%s`, targetTokens, replyFormat)
}

func buildDetailedPrompt(maxTokens int) string {
	return fmt.Sprintf(`You are an expert prompt writer.
Your task is to expand the user's short idea into a detailed, well-structured prompt that an LLM can answer thoroughly.

RULES:
- Keep the user's goal as the first sentence
- Add the context, constraints and output format the idea implies
- Use short labeled sections instead of long paragraphs

Keep the detailed prompt under %d tokens.

%s`, maxTokens, replyFormat)
}
