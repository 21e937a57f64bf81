package provider

import (
	"context"

	"github.com/HartBrook/tokun/internal/llm"
	"github.com/HartBrook/tokun/internal/tokens"
)

// StubAdapter stands in for a provider whose integration does not exist yet.
// It makes no network call and returns the input unchanged with Pending set.
type StubAdapter struct {
	provider    llm.Provider
	placeholder string
}

// NewAnthropicStub creates the placeholder adapter for Anthropic.
func NewAnthropicStub() *StubAdapter {
	return &StubAdapter{
		provider:    llm.ProviderAnthropic,
		placeholder: "Anthropic integration pending",
	}
}

// NewGoogleStub creates the placeholder adapter for Google AI.
func NewGoogleStub() *StubAdapter {
	return &StubAdapter{
		provider:    llm.ProviderGoogle,
		placeholder: "Google AI integration pending",
	}
}

// Provider implements Adapter.
func (s *StubAdapter) Provider() llm.Provider { return s.provider }

// DefaultModel implements Adapter.
func (s *StubAdapter) DefaultModel() string { return llm.DefaultModels[s.provider] }

// Optimize implements Adapter.
func (s *StubAdapter) Optimize(_ context.Context, req Request) (*llm.Result, error) {
	counted := tokens.Estimate(req.Text, s.provider)
	return &llm.Result{
		OptimizedText: req.Text,
		Tokens:        counted.Tokens,
		Words:         counted.Words,
		Suggestions:   []string{s.placeholder},
		Pending:       true,
	}, nil
}
