package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/HartBrook/tokun/internal/config"
	"github.com/HartBrook/tokun/internal/llm"
	"github.com/HartBrook/tokun/internal/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderDisplayName(t *testing.T) {
	tests := map[llm.Provider]string{
		llm.ProviderOpenAI:     "OpenAI",
		llm.ProviderPerplexity: "Perplexity",
		llm.ProviderAnthropic:  "Anthropic",
		llm.ProviderGoogle:     "Google AI",
		llm.ProviderOther:      "Other",
	}

	for p, want := range tests {
		assert.Equal(t, want, providerDisplayName(p), p)
	}
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "", maskKey(""))
	assert.Equal(t, "*****", maskKey("short"))
	assert.Equal(t, "sk-...wxyz", maskKey("sk-abcdefghijklmnopqrstuvwxyz"))
}

func TestParseSetting(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    settings.Update
		wantErr bool
	}{
		{"model", "gpt-4o", settings.Update{Model: settings.Ptr("gpt-4o")}, false},
		{"model", "", settings.Update{Model: settings.Ptr("")}, false},
		{"max-tokens", "512", settings.Update{MaxTokens: settings.Ptr(512)}, false},
		{"max_tokens", "", settings.Update{MaxTokens: settings.Ptr(0)}, false},
		{"max-tokens", "lots", settings.Update{}, true},
		{"provider", "Perplexity", settings.Update{Provider: settings.Ptr(llm.ProviderPerplexity)}, false},
		{"provider", "acme", settings.Update{}, true},
		{"temperature", "1", settings.Update{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name+"="+tt.value, func(t *testing.T) {
			got, err := parseSetting(tt.name, tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfigShow_Defaults(t *testing.T) {
	isolate(t)

	got := runJSON(t, "", "config", "show", "--json")
	assert.Equal(t, "openai", got["active"])

	providers := got["providers"].([]any)
	require.Len(t, providers, len(llm.Providers))

	first := providers[0].(map[string]any)
	assert.Equal(t, "openai", first["provider"])
	assert.Equal(t, "OpenAI", first["name"])
	assert.Equal(t, true, first["active"])
	assert.Equal(t, "gpt-4o-mini", first["model"])
	assert.NotContains(t, first, "apiKey")
}

func TestConfigShow_Text(t *testing.T) {
	isolate(t)
	t.Setenv("OPENAI_API_KEY", "sk-from-environment")

	out, err := runCLI(t, "", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Active provider: OpenAI")
	assert.Contains(t, out, "sk-...ment")
	assert.Contains(t, out, "from OPENAI_API_KEY")
	assert.Contains(t, out, "not set")
	assert.NotContains(t, out, "sk-from-environment")
}

func TestConfigUseSetAndSetKey(t *testing.T) {
	home := isolate(t)

	out, err := runCLI(t, "", "config", "use", "perplexity")
	require.NoError(t, err)
	assert.Contains(t, out, "Now using Perplexity")
	assert.Contains(t, out, "No API key for Perplexity")

	_, err = runCLI(t, "", "config", "set", "model", "sonar-pro")
	require.NoError(t, err)
	_, err = runCLI(t, "", "config", "set", "max-tokens", "256")
	require.NoError(t, err)

	out, err = runCLI(t, "pplx-abcdefghijkl\n", "config", "set-key")
	require.NoError(t, err)
	assert.Contains(t, out, "Saved Perplexity key ppl...ijkl")

	got := runJSON(t, "", "config", "show", "--json")
	assert.Equal(t, "perplexity", got["active"])
	pplx := got["providers"].([]any)[1].(map[string]any)
	assert.Equal(t, "perplexity", pplx["provider"])
	assert.Equal(t, "sonar-pro", pplx["model"])
	assert.Equal(t, float64(256), pplx["maxTokens"])
	assert.Equal(t, "store", pplx["keySource"])
	assert.Equal(t, "ppl...ijkl", pplx["apiKey"])

	// The key is stored encrypted.
	files, err := filepath.Glob(filepath.Join(home, ".local", "share", "tokun", "tokun.db*"))
	require.NoError(t, err)
	require.NotEmpty(t, files)
	for _, f := range files {
		data, err := os.ReadFile(f)
		require.NoError(t, err)
		assert.NotContains(t, string(data), "pplx-abcdefghijkl", f)
	}
}

func TestConfigSetKey_EmptyRemovesKey(t *testing.T) {
	isolate(t)

	_, err := runCLI(t, "sk-abcdefghijkl\n", "config", "set-key")
	require.NoError(t, err)

	out, err := runCLI(t, "\n", "config", "set-key")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed the stored OpenAI key")

	got := runJSON(t, "", "config", "show", "--json")
	first := got["providers"].([]any)[0].(map[string]any)
	assert.NotContains(t, first, "keySource")
}

func TestConfigUse_Unknown(t *testing.T) {
	isolate(t)

	_, err := runCLI(t, "", "config", "use", "acme")
	assert.Error(t, err)
}

func TestConfigReset(t *testing.T) {
	isolate(t)

	_, err := runCLI(t, "", "config", "use", "google")
	require.NoError(t, err)

	_, err = runCLI(t, "", "config", "reset")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")

	out, err := runCLI(t, "", "config", "reset", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "using OpenAI")

	got := runJSON(t, "", "config", "show", "--json")
	assert.Equal(t, "openai", got["active"])
}

func TestConfigReset_ReturnsToConfiguredProvider(t *testing.T) {
	home := isolate(t)
	path := writeConfig(t, home, "provider: perplexity\n")

	_, err := runCLI(t, "", "--config", path, "config", "use", "openai")
	require.NoError(t, err)
	_, err = runCLI(t, "", "--config", path, "config", "reset", "--yes")
	require.NoError(t, err)

	got := runJSON(t, "", "--config", path, "config", "show", "--json")
	assert.Equal(t, "perplexity", got["active"])
}

func TestConfigInit(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "conf", "tokun.yaml")

	out, err := runCLI(t, "", "--config", path, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, path)

	cfg, err := config.LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, config.DefaultBridgeListen, cfg.Bridge.Listen)

	_, err = runCLI(t, "", "--config", path, "config", "init")
	assert.Error(t, err)

	_, err = runCLI(t, "", "--config", path, "config", "init", "--force")
	assert.NoError(t, err)
}
