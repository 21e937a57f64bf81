package settings

import (
	"context"
	"testing"

	"github.com/HartBrook/tokun/internal/errors"
	"github.com/HartBrook/tokun/internal/llm"
	"github.com/HartBrook/tokun/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnv(string) (string, bool) { return "", false }

func envOf(vars map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		v, ok := vars[name]
		return v, ok
	}
}

func openManager(t *testing.T, kv store.KV, opts ...Option) *Manager {
	t.Helper()
	m, err := Open(context.Background(), kv, append([]Option{WithEnv(noEnv)}, opts...)...)
	require.NoError(t, err)
	return m
}

func TestManager_Defaults(t *testing.T) {
	m := openManager(t, store.NewMemory())

	cfg := m.Get()
	assert.Equal(t, llm.ProviderOpenAI, cfg.Provider)
	assert.False(t, cfg.HasAPIKey())
	assert.Empty(t, cfg.Model)
	assert.Equal(t, KeyUnset, m.KeySource(llm.ProviderOpenAI))
}

func TestManager_DefaultProviderOption(t *testing.T) {
	m := openManager(t, store.NewMemory(), WithDefaultProvider(llm.ProviderPerplexity))
	assert.Equal(t, llm.ProviderPerplexity, m.Get().Provider)

	m = openManager(t, store.NewMemory(), WithDefaultProvider("bogus"))
	assert.Equal(t, llm.ProviderOpenAI, m.Get().Provider)
}

func TestManager_SetPersists(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	m := openManager(t, kv)

	require.NoError(t, m.Set(ctx, Update{
		Provider:  Ptr(llm.ProviderOpenAI),
		APIKey:    Ptr(" sk-test "),
		Model:     Ptr("gpt-4o-mini"),
		MaxTokens: Ptr(500),
	}))

	assert.Equal(t, llm.Configuration{
		Provider:  llm.ProviderOpenAI,
		APIKey:    "sk-test",
		Model:     "gpt-4o-mini",
		MaxTokens: 500,
	}, m.Get())

	for key, want := range map[string]string{
		"llm_provider":      "openai",
		"openai_key":        "sk-test",
		"openai_model":      "gpt-4o-mini",
		"openai_max_tokens": "500",
	} {
		v, ok, err := kv.Get(ctx, key)
		require.NoError(t, err)
		assert.True(t, ok, key)
		assert.Equal(t, want, v, key)
	}

	reopened := openManager(t, kv)
	assert.Equal(t, m.Get(), reopened.Get())
}

func TestManager_SetIsPartial(t *testing.T) {
	ctx := context.Background()
	m := openManager(t, store.NewMemory())

	require.NoError(t, m.Set(ctx, Update{APIKey: Ptr("sk-1"), Model: Ptr("gpt-4o")}))
	require.NoError(t, m.Set(ctx, Update{Model: Ptr("gpt-4.1")}))

	cfg := m.Get()
	assert.Equal(t, "sk-1", cfg.APIKey)
	assert.Equal(t, "gpt-4.1", cfg.Model)
}

func TestManager_SwitchRecallsPerProviderValues(t *testing.T) {
	ctx := context.Background()
	m := openManager(t, store.NewMemory())

	require.NoError(t, m.Set(ctx, Update{APIKey: Ptr("sk-openai"), Model: Ptr("gpt-4o")}))
	require.NoError(t, m.Set(ctx, Update{Provider: Ptr(llm.ProviderPerplexity), APIKey: Ptr("pplx-key")}))

	cfg := m.Get()
	assert.Equal(t, llm.ProviderPerplexity, cfg.Provider)
	assert.Equal(t, "pplx-key", cfg.APIKey)
	assert.Empty(t, cfg.Model)

	require.NoError(t, m.Set(ctx, Update{Provider: Ptr(llm.ProviderOpenAI)}))
	cfg = m.Get()
	assert.Equal(t, "sk-openai", cfg.APIKey)
	assert.Equal(t, "gpt-4o", cfg.Model)

	require.NoError(t, m.Set(ctx, Update{Provider: Ptr(llm.ProviderGoogle)}))
	assert.False(t, m.Get().HasAPIKey())
}

func TestManager_SetRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	m := openManager(t, store.NewMemory())

	err := m.Set(ctx, Update{Provider: Ptr(llm.Provider("mistral"))})
	assert.True(t, errors.HasCode(err, errors.ErrConfigInvalid))

	err = m.Set(ctx, Update{MaxTokens: Ptr(-1)})
	assert.True(t, errors.HasCode(err, errors.ErrConfigInvalid))

	assert.Equal(t, llm.ProviderOpenAI, m.Get().Provider)
}

func TestManager_EmptyValuesDelete(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	m := openManager(t, kv)

	require.NoError(t, m.Set(ctx, Update{APIKey: Ptr("sk-1"), MaxTokens: Ptr(200)}))
	require.NoError(t, m.Set(ctx, Update{APIKey: Ptr(""), MaxTokens: Ptr(0)}))

	_, ok, _ := kv.Get(ctx, "openai_key")
	assert.False(t, ok)
	_, ok, _ = kv.Get(ctx, "openai_max_tokens")
	assert.False(t, ok)
	assert.False(t, m.Get().HasAPIKey())
}

func TestManager_EnvFallback(t *testing.T) {
	ctx := context.Background()
	m, err := Open(ctx, store.NewMemory(), WithEnv(envOf(map[string]string{
		"OPENAI_API_KEY":     "sk-env",
		"PERPLEXITY_API_KEY": "  ",
	})))
	require.NoError(t, err)

	assert.Equal(t, "sk-env", m.Get().APIKey)
	assert.Equal(t, KeyFromEnv, m.KeySource(llm.ProviderOpenAI))
	assert.Equal(t, KeyUnset, m.KeySource(llm.ProviderPerplexity))

	require.NoError(t, m.Set(ctx, Update{APIKey: Ptr("sk-stored")}))
	assert.Equal(t, "sk-stored", m.Get().APIKey)
	assert.Equal(t, KeyFromStore, m.KeySource(llm.ProviderOpenAI))
}

func TestManager_ProviderDefaults(t *testing.T) {
	ctx := context.Background()
	m := openManager(t, store.NewMemory(), WithProviderDefaults(map[llm.Provider]llm.Configuration{
		llm.ProviderPerplexity: {Model: "sonar", MaxTokens: 800},
	}))

	cfg := m.For(llm.ProviderPerplexity)
	assert.Equal(t, "sonar", cfg.Model)
	assert.Equal(t, 800, cfg.MaxTokens)

	require.NoError(t, m.Set(ctx, Update{Provider: Ptr(llm.ProviderPerplexity), Model: Ptr("sonar-pro")}))
	assert.Equal(t, "sonar-pro", m.Get().Model)
	assert.Equal(t, 800, m.Get().MaxTokens)
}

func TestManager_Reset(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	m := openManager(t, kv)

	require.NoError(t, m.Set(ctx, Update{Provider: Ptr(llm.ProviderPerplexity), APIKey: Ptr("k"), Model: Ptr("m")}))
	require.NoError(t, m.Reset(ctx))

	cfg := m.Get()
	assert.Equal(t, llm.ProviderOpenAI, cfg.Provider)
	assert.False(t, cfg.HasAPIKey())

	for _, key := range []string{"llm_provider", "perplexity_key", "perplexity_model"} {
		_, ok, err := kv.Get(ctx, key)
		require.NoError(t, err)
		assert.False(t, ok, key)
	}
}

func TestManager_IgnoresUnknownStoredProvider(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	require.NoError(t, kv.Set(ctx, ProviderKey, "mistral"))
	require.NoError(t, kv.Set(ctx, MaxTokensKey(llm.ProviderOpenAI), "lots"))

	m := openManager(t, kv)
	assert.Equal(t, llm.ProviderOpenAI, m.Get().Provider)
	assert.Equal(t, 0, m.Get().MaxTokens)
}

func TestManager_SealedStore(t *testing.T) {
	ctx := context.Background()
	inner := store.NewMemory()
	var key [32]byte
	copy(key[:], "0123456789abcdef0123456789abcdef")

	m := openManager(t, store.NewSealed(inner, key))
	require.NoError(t, m.Set(ctx, Update{APIKey: Ptr("sk-secret")}))

	raw, _, err := inner.Get(ctx, "openai_key")
	require.NoError(t, err)
	assert.NotContains(t, raw, "sk-secret")

	reopened := openManager(t, store.NewSealed(inner, key))
	assert.Equal(t, "sk-secret", reopened.Get().APIKey)
}
