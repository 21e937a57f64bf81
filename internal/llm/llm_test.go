package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProvider(t *testing.T) {
	tests := []struct {
		input   string
		want    Provider
		wantErr bool
	}{
		{"openai", ProviderOpenAI, false},
		{"  Perplexity ", ProviderPerplexity, false},
		{"ANTHROPIC", ProviderAnthropic, false},
		{"google", ProviderGoogle, false},
		{"other", ProviderOther, false},
		{"mistral", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseProvider(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultModels_CoverAllProviders(t *testing.T) {
	for _, p := range Providers {
		assert.NotEmpty(t, DefaultModels[p], "provider %s should have a default model", p)
	}
}

func TestParseMode(t *testing.T) {
	mode, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeBalanced, mode)

	mode, err = ParseMode("Detailed")
	require.NoError(t, err)
	assert.Equal(t, ModeDetailed, mode)

	_, err = ParseMode("verbose")
	assert.Error(t, err)
}

func TestConfiguration(t *testing.T) {
	cfg := Configuration{Provider: ProviderOpenAI, APIKey: "  "}
	assert.False(t, cfg.HasAPIKey())
	assert.Equal(t, "gpt-4o-mini", cfg.ModelOr("gpt-4o-mini"))

	cfg.APIKey = "sk-test"
	cfg.Model = "gpt-4o"
	assert.True(t, cfg.HasAPIKey())
	assert.Equal(t, "gpt-4o", cfg.ModelOr("gpt-4o-mini"))
}
