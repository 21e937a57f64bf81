// Package settings manages the active provider configuration on top of a
// key/value store.
package settings

import (
	"context"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/HartBrook/tokun/internal/errors"
	"github.com/HartBrook/tokun/internal/llm"
	"github.com/HartBrook/tokun/internal/store"
)

// ProviderKey is the store key holding the active provider id.
const ProviderKey = "llm_provider"

// APIKeyKey returns the store key for p's API key.
func APIKeyKey(p llm.Provider) string { return string(p) + "_key" }

// ModelKey returns the store key for p's model override.
func ModelKey(p llm.Provider) string { return string(p) + "_model" }

// MaxTokensKey returns the store key for p's max-tokens override.
func MaxTokensKey(p llm.Provider) string { return string(p) + "_max_tokens" }

// EnvKeys maps each provider to the environment variable consulted when no
// key is stored.
var EnvKeys = map[llm.Provider]string{
	llm.ProviderOpenAI:     "OPENAI_API_KEY",
	llm.ProviderPerplexity: "PERPLEXITY_API_KEY",
	llm.ProviderAnthropic:  "ANTHROPIC_API_KEY",
	llm.ProviderGoogle:     "GOOGLE_API_KEY",
	llm.ProviderOther:      "TOKUN_API_KEY",
}

// KeySource says where the effective API key came from.
type KeySource string

const (
	KeyFromStore KeySource = "store"
	KeyFromEnv   KeySource = "env"
	KeyUnset     KeySource = ""
)

// Update is a partial configuration change. Nil fields are left as they are.
// Key, model and max tokens apply to the provider that is active after the
// update.
type Update struct {
	Provider  *llm.Provider
	APIKey    *string
	Model     *string
	MaxTokens *int
}

// Manager holds the in-memory configuration snapshot and persists changes.
// It is safe for concurrent use.
type Manager struct {
	kv       store.KV
	fallback llm.Provider
	defaults map[llm.Provider]llm.Configuration
	lookup   func(string) (string, bool)

	mu     sync.RWMutex
	active llm.Provider
	stored map[llm.Provider]llm.Configuration
}

// Option configures a Manager.
type Option func(*Manager)

// WithDefaultProvider sets the provider used when none is stored.
func WithDefaultProvider(p llm.Provider) Option {
	return func(m *Manager) {
		if p.Valid() {
			m.fallback = p
		}
	}
}

// WithProviderDefaults sets per-provider model and max-tokens values used when
// the store has none.
func WithProviderDefaults(defaults map[llm.Provider]llm.Configuration) Option {
	return func(m *Manager) {
		for p, cfg := range defaults {
			m.defaults[p] = cfg
		}
	}
}

// WithEnv replaces the environment lookup used for API key fallback.
func WithEnv(lookup func(string) (string, bool)) Option {
	return func(m *Manager) {
		m.lookup = lookup
	}
}

// Open creates a Manager over kv and loads the stored configuration.
func Open(ctx context.Context, kv store.KV, opts ...Option) (*Manager, error) {
	m := &Manager{
		kv:       kv,
		fallback: llm.DefaultProvider,
		defaults: make(map[llm.Provider]llm.Configuration),
		lookup:   os.LookupEnv,
	}
	for _, opt := range opts {
		opt(m)
	}

	if err := m.load(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) load(ctx context.Context) error {
	active := m.fallback
	if v, ok, err := m.kv.Get(ctx, ProviderKey); err != nil {
		return err
	} else if ok {
		if p, err := llm.ParseProvider(v); err == nil {
			active = p
		}
	}

	stored := make(map[llm.Provider]llm.Configuration, len(llm.Providers))
	for _, p := range llm.Providers {
		cfg := llm.Configuration{Provider: p}

		key, _, err := m.kv.Get(ctx, APIKeyKey(p))
		if err != nil {
			return err
		}
		cfg.APIKey = key

		model, _, err := m.kv.Get(ctx, ModelKey(p))
		if err != nil {
			return err
		}
		cfg.Model = model

		maxTokens, ok, err := m.kv.Get(ctx, MaxTokensKey(p))
		if err != nil {
			return err
		}
		if ok {
			if n, err := strconv.Atoi(maxTokens); err == nil && n > 0 {
				cfg.MaxTokens = n
			}
		}

		stored[p] = cfg
	}

	m.mu.Lock()
	m.active = active
	m.stored = stored
	m.mu.Unlock()
	return nil
}

// Get returns a snapshot of the active provider's configuration.
func (m *Manager) Get() llm.Configuration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.effective(m.active)
}

// For returns the effective configuration of p, whether or not it is active.
func (m *Manager) For(p llm.Provider) llm.Configuration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.effective(p)
}

// KeySource reports where p's effective API key comes from.
func (m *Manager) KeySource(p llm.Provider) KeySource {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if strings.TrimSpace(m.stored[p].APIKey) != "" {
		return KeyFromStore
	}
	if _, ok := m.envKey(p); ok {
		return KeyFromEnv
	}
	return KeyUnset
}

func (m *Manager) effective(p llm.Provider) llm.Configuration {
	cfg := m.stored[p]
	cfg.Provider = p

	if strings.TrimSpace(cfg.APIKey) == "" {
		cfg.APIKey, _ = m.envKey(p)
	}
	def := m.defaults[p]
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	return cfg
}

func (m *Manager) envKey(p llm.Provider) (string, bool) {
	name, ok := EnvKeys[p]
	if !ok || m.lookup == nil {
		return "", false
	}
	v, ok := m.lookup(name)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

// Set merges u into the configuration and persists the changed keys.
// Switching providers recalls the key and model previously stored for the
// new provider.
func (m *Manager) Set(ctx context.Context, u Update) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	active := m.active
	if u.Provider != nil {
		if !u.Provider.Valid() {
			return errors.ConfigInvalid("unknown provider " + strings.TrimSpace(string(*u.Provider)))
		}
		active = *u.Provider
	}
	if u.MaxTokens != nil && *u.MaxTokens < 0 {
		return errors.ConfigInvalid("max tokens must not be negative")
	}

	cfg := m.stored[active]
	cfg.Provider = active

	if u.Provider != nil {
		if err := m.kv.Set(ctx, ProviderKey, string(active)); err != nil {
			return err
		}
	}
	if u.APIKey != nil {
		key := strings.TrimSpace(*u.APIKey)
		if err := m.setOrDelete(ctx, APIKeyKey(active), key); err != nil {
			return err
		}
		cfg.APIKey = key
	}
	if u.Model != nil {
		model := strings.TrimSpace(*u.Model)
		if err := m.setOrDelete(ctx, ModelKey(active), model); err != nil {
			return err
		}
		cfg.Model = model
	}
	if u.MaxTokens != nil {
		value := ""
		if *u.MaxTokens > 0 {
			value = strconv.Itoa(*u.MaxTokens)
		}
		if err := m.setOrDelete(ctx, MaxTokensKey(active), value); err != nil {
			return err
		}
		cfg.MaxTokens = *u.MaxTokens
	}

	m.active = active
	m.stored[active] = cfg
	return nil
}

func (m *Manager) setOrDelete(ctx context.Context, key, value string) error {
	if value == "" {
		return m.kv.Delete(ctx, key)
	}
	return m.kv.Set(ctx, key, value)
}

// Reset deletes every stored setting and returns to defaults.
func (m *Manager) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := []string{ProviderKey}
	for _, p := range llm.Providers {
		keys = append(keys, APIKeyKey(p), ModelKey(p), MaxTokensKey(p))
	}
	for _, key := range keys {
		if err := m.kv.Delete(ctx, key); err != nil {
			return err
		}
	}

	m.active = m.fallback
	m.stored = make(map[llm.Provider]llm.Configuration, len(llm.Providers))
	return nil
}

// Ptr returns a pointer to v, for building an Update.
func Ptr[T any](v T) *T {
	return &v
}
