// Package optimize is the entry point for counting, optimizing and locally
// rewriting prompts.
package optimize

import (
	"context"
	"log/slog"

	"github.com/HartBrook/tokun/internal/errors"
	"github.com/HartBrook/tokun/internal/llm"
	"github.com/HartBrook/tokun/internal/logging"
	"github.com/HartBrook/tokun/internal/provider"
	"github.com/HartBrook/tokun/internal/rewrite"
	"github.com/HartBrook/tokun/internal/store"
	"github.com/HartBrook/tokun/internal/tokens"
)

const (
	// defaultReduction is the share of the original token count aimed for
	// when no target is given.
	defaultReduction = 0.7
	// minDefaultTarget is the floor for the computed target.
	minDefaultTarget = 10
)

// ConfigSource supplies the current provider configuration.
type ConfigSource interface {
	Get() llm.Configuration
}

// Recorder saves completed optimizations.
type Recorder interface {
	AddHistory(ctx context.Context, r store.Record) (store.Record, error)
}

// Options controls a single OptimizePrompt call.
type Options struct {
	TargetTokens int      // Target token count (<= 0 = 70% of the original, at least 10)
	Mode         llm.Mode // Empty means balanced
}

// Service dispatches optimization requests to the configured provider.
type Service struct {
	config   ConfigSource
	registry *provider.Registry
	recorder Recorder
	logger   *slog.Logger
	strict   bool
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithRecorder saves every successful result.
func WithRecorder(r Recorder) ServiceOption {
	return func(s *Service) {
		s.recorder = r
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithStrictProviders makes placeholder providers fail with
// PROVIDER_NOT_IMPLEMENTED instead of echoing the input.
func WithStrictProviders() ServiceOption {
	return func(s *Service) {
		s.strict = true
	}
}

// NewService creates a service reading configuration from config on every call.
func NewService(config ConfigSource, registry *provider.Registry, opts ...ServiceOption) *Service {
	s := &Service{
		config:   config,
		registry: registry,
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CountTokens estimates text with the active provider's multiplier.
func (s *Service) CountTokens(text string) tokens.Count {
	return tokens.Estimate(text, s.config.Get().Provider)
}

// DefaultTarget returns the target used when none is given:
// 70% of the estimated tokens, never below 10.
func DefaultTarget(text string, p llm.Provider) int {
	return max(int(float64(tokens.Estimate(text, p).Tokens)*defaultReduction), minDefaultTarget)
}

// OptimizePrompt rewrites text with the configured provider. It makes a single
// attempt and never falls back to a local rewrite on its own.
func (s *Service) OptimizePrompt(ctx context.Context, text string, opts Options) (*llm.Result, error) {
	cfg := s.config.Get()
	if !cfg.HasAPIKey() {
		return nil, errors.APIKeyMissing(string(cfg.Provider))
	}

	mode, err := llm.ParseMode(string(opts.Mode))
	if err != nil {
		return nil, errors.ConfigInvalid(err.Error())
	}

	target := opts.TargetTokens
	if target <= 0 {
		target = DefaultTarget(text, cfg.Provider)
	}

	adapter := s.registry.Resolve(cfg.Provider)
	if adapter == nil {
		return nil, errors.ProviderNotImplemented(string(cfg.Provider))
	}

	s.logger.Debug("optimizing prompt",
		"provider", cfg.Provider,
		"adapter", adapter.Provider(),
		"mode", mode,
		"target", target)

	result, err := adapter.Optimize(ctx, provider.Request{
		Text:         text,
		TargetTokens: target,
		Mode:         mode,
		Config:       cfg,
	})
	if err != nil {
		return nil, err
	}
	if result.Pending && s.strict {
		return nil, errors.ProviderNotImplemented(string(cfg.Provider))
	}

	if !result.Pending {
		s.record(ctx, store.Record{
			Provider:      string(cfg.Provider),
			Model:         cfg.ModelOr(adapter.DefaultModel()),
			Mode:          string(mode),
			Source:        store.SourceProvider,
			OriginalText:  text,
			OptimizedText: result.OptimizedText,
		}, text, result)
	}
	return result, nil
}

// RewriteLocally shortens text without calling a provider.
func (s *Service) RewriteLocally(ctx context.Context, text string, strategy rewrite.Strategy) llm.Result {
	cfg := s.config.Get()
	result := rewrite.Local(text, strategy, cfg.Provider)

	s.record(ctx, store.Record{
		Provider:      string(cfg.Provider),
		Mode:          string(strategy),
		Source:        store.SourceLocal,
		OriginalText:  text,
		OptimizedText: result.OptimizedText,
	}, text, &result)
	return result
}

// record saves r with counts filled in. Failures are logged, never returned.
func (s *Service) record(ctx context.Context, r store.Record, original string, result *llm.Result) {
	if s.recorder == nil {
		return
	}
	r.OriginalTokens = tokens.Estimate(original, llm.Provider(r.Provider)).Tokens
	r.OptimizedTokens = result.Tokens
	if _, err := s.recorder.AddHistory(ctx, r); err != nil {
		s.logger.Debug("failed to record history", "error", err)
	}
}
