// Package llm holds the domain types shared by the estimator, the provider
// adapters and the optimization service.
package llm

import (
	"fmt"
	"strings"
)

// Provider identifies an LLM vendor.
type Provider string

const (
	ProviderOpenAI     Provider = "openai"
	ProviderPerplexity Provider = "perplexity"
	ProviderAnthropic  Provider = "anthropic"
	ProviderGoogle     Provider = "google"
	ProviderOther      Provider = "other"
)

// DefaultProvider is used when nothing has been configured.
const DefaultProvider = ProviderOpenAI

// Providers lists every known provider in display order.
var Providers = []Provider{
	ProviderOpenAI,
	ProviderPerplexity,
	ProviderAnthropic,
	ProviderGoogle,
	ProviderOther,
}

// DefaultModels maps each provider to the model used when none is configured.
var DefaultModels = map[Provider]string{
	ProviderOpenAI:     "gpt-4o-mini",
	ProviderPerplexity: "llama-3.1-sonar-small-128k-online",
	ProviderAnthropic:  "claude-instant",
	ProviderGoogle:     "gemini-pro",
	ProviderOther:      "generic",
}

// Valid reports whether p is one of the known providers.
func (p Provider) Valid() bool {
	for _, known := range Providers {
		if p == known {
			return true
		}
	}
	return false
}

func (p Provider) String() string {
	return string(p)
}

// ParseProvider converts user input into a Provider.
func ParseProvider(s string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("unknown provider %q (use openai, perplexity, anthropic, google, or other)", s)
	}
	return p, nil
}

// Configuration selects a provider and carries its credentials.
// An empty APIKey means the provider is unconfigured.
type Configuration struct {
	Provider  Provider `json:"provider" yaml:"provider"`
	APIKey    string   `json:"-" yaml:"-"`
	Model     string   `json:"model,omitempty" yaml:"model,omitempty"`
	MaxTokens int      `json:"maxTokens,omitempty" yaml:"max_tokens,omitempty"`
}

// HasAPIKey reports whether a key is configured.
func (c Configuration) HasAPIKey() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// ModelOr returns the configured model, or fallback when unset.
func (c Configuration) ModelOr(fallback string) string {
	if c.Model != "" {
		return c.Model
	}
	return fallback
}

// Mode selects between concise rewrites and idea expansion.
type Mode string

const (
	ModeBalanced Mode = "balanced"
	ModeDetailed Mode = "detailed"
)

// ParseMode converts user input into a Mode. Empty input means balanced.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeBalanced:
		return ModeBalanced, nil
	case ModeDetailed:
		return ModeDetailed, nil
	default:
		return "", fmt.Errorf("unknown mode %q (use balanced or detailed)", s)
	}
}

// Result is the outcome of one optimize or rewrite call.
// Tokens and Words are always computed locally from OptimizedText.
type Result struct {
	OptimizedText string   `json:"optimizedText"`
	Tokens        int      `json:"tokens"`
	Words         int      `json:"words"`
	Suggestions   []string `json:"suggestions"`

	// Pending is set by placeholder adapters that echo the input unchanged.
	Pending bool `json:"pending,omitempty"`
}
