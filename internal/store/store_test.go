package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/HartBrook/tokun/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKV(t *testing.T, kv KV) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := kv.Get(ctx, "llm_provider")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set(ctx, "llm_provider", "perplexity"))
	v, ok, err := kv.Get(ctx, "llm_provider")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "perplexity", v)

	require.NoError(t, kv.Set(ctx, "llm_provider", "openai"))
	v, _, err = kv.Get(ctx, "llm_provider")
	require.NoError(t, err)
	assert.Equal(t, "openai", v)

	require.NoError(t, kv.Set(ctx, "openai_model", ""))
	v, ok, err = kv.Get(ctx, "openai_model")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "", v)

	require.NoError(t, kv.Delete(ctx, "llm_provider"))
	_, ok, err = kv.Get(ctx, "llm_provider")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Delete(ctx, "never_set"))
}

func TestMemory(t *testing.T) {
	testKV(t, NewMemory())
}

func openTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "tokun.db")
	s, err := OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestSQLite_KV(t *testing.T) {
	s, _ := openTestSQLite(t)
	testKV(t, s)
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	s, path := openTestSQLite(t)

	require.NoError(t, s.Set(ctx, "perplexity_model", "sonar"))
	_, err := s.AddHistory(ctx, Record{Provider: "perplexity", Source: SourceProvider, OriginalTokens: 10, OptimizedTokens: 6})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := OpenSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()

	v, ok, err := reopened.Get(ctx, "perplexity_model")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "sonar", v)

	totals, err := reopened.HistoryTotals(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, totals.Count)
}

func TestSQLite_History(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestSQLite(t)

	totals, err := s.HistoryTotals(ctx)
	require.NoError(t, err)
	assert.Equal(t, Totals{}, totals)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, text := range []string{"first", "second", "third"} {
		_, err := s.AddHistory(ctx, Record{
			CreatedAt:       base.Add(time.Duration(i) * time.Minute),
			Provider:        "openai",
			Model:           "gpt-4o-mini",
			Mode:            "balanced",
			Source:          SourceProvider,
			OriginalText:    text + " prompt",
			OptimizedText:   text,
			OriginalTokens:  10,
			OptimizedTokens: 4,
		})
		require.NoError(t, err)
	}

	records, err := s.ListHistory(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "third", records[0].OptimizedText)
	assert.Equal(t, "second", records[1].OptimizedText)
	assert.NotEmpty(t, records[0].ID)
	assert.Equal(t, base.Add(2*time.Minute), records[0].CreatedAt)
	assert.Equal(t, SourceProvider, records[0].Source)
	assert.Equal(t, 6, records[0].Saved())

	all, err := s.ListHistory(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	totals, err = s.HistoryTotals(ctx)
	require.NoError(t, err)
	assert.Equal(t, Totals{Count: 3, OriginalTokens: 30, OptimizedTokens: 12}, totals)
	assert.Equal(t, 18, totals.Saved())

	require.NoError(t, s.ClearHistory(ctx))
	all, err = s.ListHistory(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSQLite_HistoryOrderSubSecond(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestSQLite(t)

	// .100 formats with trailing zeros that RFC3339Nano would drop.
	older := time.Date(2026, 1, 1, 0, 0, 5, 100_000_000, time.UTC)
	newer := older.Add(50 * time.Millisecond)

	_, err := s.AddHistory(ctx, Record{CreatedAt: older, Provider: "openai", Source: SourceLocal, OptimizedText: "older"})
	require.NoError(t, err)
	_, err = s.AddHistory(ctx, Record{CreatedAt: newer, Provider: "openai", Source: SourceLocal, OptimizedText: "newer"})
	require.NoError(t, err)

	records, err := s.ListHistory(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "newer", records[0].OptimizedText)
	assert.Equal(t, older, records[1].CreatedAt)
}

func TestSQLite_Pragmas(t *testing.T) {
	s, _ := openTestSQLite(t)

	var mode string
	require.NoError(t, s.db.QueryRow(`PRAGMA journal_mode`).Scan(&mode))
	assert.Equal(t, "wal", mode)

	var timeout int
	require.NoError(t, s.db.QueryRow(`PRAGMA busy_timeout`).Scan(&timeout))
	assert.Equal(t, 5000, timeout)
}

func TestSQLite_AddHistoryAssignsID(t *testing.T) {
	s, _ := openTestSQLite(t)

	a, err := s.AddHistory(context.Background(), Record{Provider: "openai", Source: SourceLocal})
	require.NoError(t, err)
	b, err := s.AddHistory(context.Background(), Record{Provider: "openai", Source: SourceLocal})
	require.NoError(t, err)

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.CreatedAt.IsZero())
}

func testKey(t *testing.T) [secretKeyLen]byte {
	t.Helper()
	key, err := LoadOrCreateKey(filepath.Join(t.TempDir(), "secret.key"))
	require.NoError(t, err)
	return key
}

func TestSealed_RoundTrip(t *testing.T) {
	ctx := context.Background()
	inner := NewMemory()
	sealed := NewSealed(inner, testKey(t))

	testKV(t, sealed)

	require.NoError(t, sealed.Set(ctx, "openai_key", "sk-test-123"))

	raw, ok, err := inner.Get(ctx, "openai_key")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(raw, sealedPrefix))
	assert.NotContains(t, raw, "sk-test-123")

	v, ok, err := sealed.Get(ctx, "openai_key")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "sk-test-123", v)

	// Non-secret keys pass through untouched.
	require.NoError(t, sealed.Set(ctx, "openai_model", "gpt-4o"))
	raw, _, _ = inner.Get(ctx, "openai_model")
	assert.Equal(t, "gpt-4o", raw)
}

func TestSealed_NonceDiffers(t *testing.T) {
	ctx := context.Background()
	inner := NewMemory()
	sealed := NewSealed(inner, testKey(t))

	require.NoError(t, sealed.Set(ctx, "a_key", "same"))
	require.NoError(t, sealed.Set(ctx, "b_key", "same"))

	a, _, _ := inner.Get(ctx, "a_key")
	b, _, _ := inner.Get(ctx, "b_key")
	assert.NotEqual(t, a, b)
}

func TestSealed_WrongKey(t *testing.T) {
	ctx := context.Background()
	inner := NewMemory()

	require.NoError(t, NewSealed(inner, testKey(t)).Set(ctx, "openai_key", "sk-test"))

	_, _, err := NewSealed(inner, testKey(t)).Get(ctx, "openai_key")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrStoreFailed))
}

func TestSealed_LegacyPlaintext(t *testing.T) {
	ctx := context.Background()
	inner := NewMemory()
	require.NoError(t, inner.Set(ctx, "openai_key", "sk-plain"))

	v, ok, err := NewSealed(inner, testKey(t)).Get(ctx, "openai_key")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "sk-plain", v)
}

func TestLoadOrCreateKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "secret.key")

	first, err := LoadOrCreateKey(path)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	second, err := LoadOrCreateKey(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0600))
	_, err = LoadOrCreateKey(path)
	assert.True(t, errors.HasCode(err, errors.ErrStoreFailed))
}

func TestIsSecret(t *testing.T) {
	assert.True(t, IsSecret("openai_key"))
	assert.False(t, IsSecret("openai_model"))
	assert.False(t, IsSecret("llm_provider"))
	assert.False(t, IsSecret("keyring"))
}
