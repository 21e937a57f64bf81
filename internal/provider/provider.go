// Package provider implements the LLM backends that rewrite prompts.
package provider

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/HartBrook/tokun/internal/llm"
	"github.com/HartBrook/tokun/internal/logging"
)

// Adapter rewrites text against one LLM backend.
type Adapter interface {
	// Provider returns the provider this adapter serves.
	Provider() llm.Provider
	// DefaultModel is used when the configuration does not name a model.
	DefaultModel() string
	// Optimize sends a single rewrite request. Token and word counts in the
	// result are computed locally, never taken from the backend.
	Optimize(ctx context.Context, req Request) (*llm.Result, error)
}

// Request is one rewrite call.
type Request struct {
	Text         string
	TargetTokens int
	Mode         llm.Mode
	Config       llm.Configuration
}

// Option configures an adapter.
type Option func(*options)

type options struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// WithBaseURL sets the API base URL (the part before /chat/completions).
func WithBaseURL(url string) Option {
	return func(o *options) {
		o.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func buildOptions(defaultBaseURL string, opts []Option) options {
	o := options{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{},
		logger:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.baseURL == "" {
		o.baseURL = defaultBaseURL
	}
	return o
}

// Registry maps providers to adapters.
// Providers without a registered adapter resolve to the fallback adapter.
type Registry struct {
	adapters map[llm.Provider]Adapter
	fallback llm.Provider
}

// NewRegistry creates a registry holding the given adapters.
// The fallback is the OpenAI-style adapter.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{
		adapters: make(map[llm.Provider]Adapter, len(adapters)),
		fallback: llm.ProviderOpenAI,
	}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// NewDefaultRegistry registers every built-in adapter.
// baseURLs overrides endpoints per provider; shared options apply to all adapters.
func NewDefaultRegistry(baseURLs map[llm.Provider]string, opts ...Option) *Registry {
	withURL := func(p llm.Provider) []Option {
		all := append([]Option{}, opts...)
		if url := baseURLs[p]; url != "" {
			all = append(all, WithBaseURL(url))
		}
		return all
	}

	r := NewRegistry(
		NewOpenAI(withURL(llm.ProviderOpenAI)...),
		NewPerplexity(withURL(llm.ProviderPerplexity)...),
		NewAnthropicStub(),
		NewGoogleStub(),
	)
	// "other" resolves to the OpenAI adapter unless it has its own endpoint.
	if baseURLs[llm.ProviderOther] != "" {
		r.Register(NewOther(withURL(llm.ProviderOther)...))
	}
	return r
}

// Register adds or replaces the adapter for its provider.
func (r *Registry) Register(a Adapter) {
	r.adapters[a.Provider()] = a
}

// Resolve returns the adapter for p, or the fallback adapter when p has none.
// It returns nil only if the fallback itself is not registered.
func (r *Registry) Resolve(p llm.Provider) Adapter {
	if a, ok := r.adapters[p]; ok {
		return a
	}
	return r.adapters[r.fallback]
}
