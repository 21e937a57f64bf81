// Package config handles tokun configuration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/HartBrook/tokun/internal/errors"
	"github.com/HartBrook/tokun/internal/llm"
	"github.com/HartBrook/tokun/internal/logging"
	"gopkg.in/yaml.v3"
)

// ProviderConfig overrides endpoint and defaults for one provider.
type ProviderConfig struct {
	BaseURL   string `yaml:"base_url,omitempty"`
	Model     string `yaml:"model,omitempty"`
	MaxTokens int    `yaml:"max_tokens,omitempty"`
}

// HTTPConfig contains provider HTTP client settings.
type HTTPConfig struct {
	Timeout string `yaml:"timeout,omitempty"` // e.g., "30s"; empty means no client timeout
}

// BridgeConfig contains settings for the extension bridge server.
type BridgeConfig struct {
	Listen   string `yaml:"listen"`
	Fallback string `yaml:"fallback"` // none | local
}

// LogConfig contains diagnostic logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// StoreConfig points at the settings and history database.
type StoreConfig struct {
	Path string `yaml:"path,omitempty"` // empty means Paths.StoreFile
}

// Config represents the tokun configuration file.
type Config struct {
	Version int `yaml:"version"`

	// Provider is the default provider until one is chosen with `tokun config use`.
	Provider string `yaml:"provider"`

	Providers map[string]ProviderConfig `yaml:"providers,omitempty"`

	HTTP   HTTPConfig   `yaml:"http,omitempty"`
	Bridge BridgeConfig `yaml:"bridge"`
	Log    LogConfig    `yaml:"log"`
	Store  StoreConfig  `yaml:"store,omitempty"`
}

// Default values.
const (
	DefaultVersion        = 1
	DefaultBridgeListen   = "127.0.0.1:7878"
	DefaultBridgeFallback = "none"
)

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadOrDefault reads config from path, returning defaults when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := LoadFrom(path)
	if errors.HasCode(err, errors.ErrConfigNotFound) {
		return Default(), nil
	}
	return cfg, err
}

// LoadFrom reads and validates config from a specific path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigNotFound(path)
		}
		return nil, errors.Wrap(errors.ErrConfigInvalid, "failed to read config", "", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(errors.ErrConfigInvalid, "failed to parse config YAML", "Check config syntax", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// SaveTo writes config to a specific path.
func SaveTo(cfg *Config, path string) error {
	cfg.applyDefaults()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(errors.ErrConfigInvalid, "failed to marshal config", "", err)
	}

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(errors.ErrConfigInvalid, "failed to create config directory", "", err)
	}

	return os.WriteFile(path, data, 0644)
}

// Validate checks config for valid values.
func (c *Config) Validate() error {
	if _, err := llm.ParseProvider(c.Provider); err != nil {
		return errors.ConfigInvalid(err.Error())
	}

	for _, name := range c.providerNames() {
		p := c.Providers[name]
		if _, err := llm.ParseProvider(name); err != nil {
			return errors.ConfigInvalid(fmt.Sprintf("providers: %v", err))
		}
		if p.MaxTokens < 0 {
			return errors.ConfigInvalid(fmt.Sprintf("providers.%s.max_tokens must not be negative", name))
		}
		if p.BaseURL != "" {
			u, err := url.Parse(p.BaseURL)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return errors.ConfigInvalid(fmt.Sprintf("providers.%s.base_url must be an http(s) URL", name))
			}
		}
	}

	if c.HTTP.Timeout != "" {
		if d, err := time.ParseDuration(c.HTTP.Timeout); err != nil || d < 0 {
			return errors.ConfigInvalid("invalid http.timeout format, use Go duration format (e.g., 30s)")
		}
	}

	switch c.Bridge.Fallback {
	case "none", "local":
	default:
		return errors.ConfigInvalid(fmt.Sprintf("bridge.fallback must be none or local, got %q", c.Bridge.Fallback))
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return errors.ConfigInvalid(err.Error())
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		return errors.ConfigInvalid(err.Error())
	}

	return nil
}

// applyDefaults sets default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = DefaultVersion
	}
	if c.Provider == "" {
		c.Provider = string(llm.DefaultProvider)
	}
	if c.Bridge.Listen == "" {
		c.Bridge.Listen = DefaultBridgeListen
	}
	if c.Bridge.Fallback == "" {
		c.Bridge.Fallback = DefaultBridgeFallback
	}
	if c.Log.Level == "" {
		c.Log.Level = string(logging.LevelWarn)
	}
	if c.Log.Format == "" {
		c.Log.Format = string(logging.FormatText)
	}
}

func (c *Config) providerNames() []string {
	names := make([]string, 0, len(c.Providers))
	for name := range c.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultProvider returns the configured default provider, or openai when invalid.
func (c *Config) DefaultProvider() llm.Provider {
	if p, err := llm.ParseProvider(c.Provider); err == nil {
		return p
	}
	return llm.DefaultProvider
}

// BaseURLs returns the endpoint overrides keyed by provider.
func (c *Config) BaseURLs() map[llm.Provider]string {
	urls := make(map[llm.Provider]string)
	for name, p := range c.Providers {
		if p.BaseURL != "" {
			urls[llm.Provider(name)] = p.BaseURL
		}
	}
	return urls
}

// ProviderDefaults returns the model and max-tokens defaults keyed by provider.
func (c *Config) ProviderDefaults() map[llm.Provider]llm.Configuration {
	defaults := make(map[llm.Provider]llm.Configuration)
	for name, p := range c.Providers {
		defaults[llm.Provider(name)] = llm.Configuration{
			Provider:  llm.Provider(name),
			Model:     p.Model,
			MaxTokens: p.MaxTokens,
		}
	}
	return defaults
}

// TimeoutDuration returns the provider HTTP timeout, or 0 for none.
func (c *HTTPConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// StorePath returns the database path, falling back to paths.StoreFile.
func (c *Config) StorePath(paths *Paths) string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	return paths.StoreFile
}
